// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akougkas/hermes/internal/core"
	"github.com/akougkas/hermes/internal/localstore"
	"github.com/akougkas/hermes/pkg/testutil"
)

// mockLockManager scripts LockBlob/UnlockBlob responses through a
// testutil.GenericMock, for tests that care about whether BoMove calls them
// rather than about real mutual exclusion.
type mockLockManager struct {
	*testutil.GenericMock
}

func newMockLockManager(t *testing.T) *mockLockManager {
	return &mockLockManager{GenericMock: testutil.NewGenericMock(t)}
}

func (m *mockLockManager) LockBlob(ctx context.Context, id core.BlobID) bool {
	return m.GetResult("LockBlob", id).(bool)
}

func (m *mockLockManager) UnlockBlob(ctx context.Context, id core.BlobID) {
	m.GetResult("UnlockBlob", id)
}

func TestBoMoveFailsWithoutTouchingBuffersWhenLockBlobFails(t *testing.T) {
	cfg := DefaultTestConfig
	cfg.MetricPrefix = "hermes_bo_test_" + metricNameRe.ReplaceAllString(t.Name(), "_")

	targets := localstore.NewTargetStore(1, 1<<20)
	targets.Register(core.TargetID(1), 100, 1<<30)
	mdm := localstore.NewMetadataManager(1)
	placement := localstore.NewPlacementEngine(targets)

	locks := newMockLockManager(t)
	blob := mdm.CreateBlob("locked-blob", 0.5, nil)
	locks.AddCall("LockBlob", false, blob)

	o := New(&cfg, targets.Store(), mdm, placement, targets, locks, localstore.NewLoopbackRPCClient(1))
	t.Cleanup(o.Shutdown)

	src := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, targets.Store().WriteBufferByID(context.Background(), src, []byte("untouched"), 0))

	err := o.BoMove(context.Background(), core.MoveArgs{Src: src, Dest: nil, Blob: blob})
	assert.Error(t, err)

	// Src is exactly as it was: BoMove never reached moveBytes.
	info, ok := targets.Store().HeaderInfo(src)
	require.True(t, ok)
	assert.EqualValues(t, len("untouched"), info.Size)

	locks.NoMoreCalls()
}

func TestBoMoveLocksAndUnlocksExactlyTheBlobInArgs(t *testing.T) {
	cfg := DefaultTestConfig
	cfg.MetricPrefix = "hermes_bo_test_" + metricNameRe.ReplaceAllString(t.Name(), "_")

	targets := localstore.NewTargetStore(1, 1<<20)
	targets.Register(core.TargetID(1), 100, 1<<30)
	mdm := localstore.NewMetadataManager(1)
	placement := localstore.NewPlacementEngine(targets)

	locks := newMockLockManager(t)

	src := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, targets.Store().WriteBufferByID(context.Background(), src, []byte("x"), 0))
	blob := mdm.CreateBlob("unlocked-blob", 0.5, []core.BufferID{src})
	dst := targets.Store().Allocate(core.TargetID(1), 100)

	locks.AddCall("LockBlob", true, blob)
	locks.AddCall("UnlockBlob", nil, blob)

	o := New(&cfg, targets.Store(), mdm, placement, targets, locks, localstore.NewLoopbackRPCClient(1))
	t.Cleanup(o.Shutdown)

	require.NoError(t, o.BoMove(context.Background(), core.MoveArgs{Src: src, Dest: []core.BufferID{dst}, Blob: blob}))
	locks.NoMoreCalls()
}
