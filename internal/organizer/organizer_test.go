// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akougkas/hermes/internal/core"
	"github.com/akougkas/hermes/internal/localstore"
)

var metricNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// newTestOrganizer wires an Organizer against localstore's memory-only
// collaborators, registering numTargets targets on the given node (target
// i+1 at 100*(i+1) MB/s, 64MB each, in 1MB slots). Each test gets
// its own metric prefix, derived from the test name, since Prometheus
// panics on duplicate registration within a process.
func newTestOrganizer(t *testing.T, nodeID uint32, numTargets int) (*Organizer, *localstore.TargetStore, *localstore.MetadataManager) {
	t.Helper()

	cfg := DefaultTestConfig
	cfg.MetricPrefix = "hermes_bo_test_" + metricNameRe.ReplaceAllString(t.Name(), "_")

	targets := localstore.NewTargetStore(nodeID, 1<<20)
	for i := 0; i < numTargets; i++ {
		targets.Register(core.TargetID(i+1), float32(100*(i+1)), 64<<20)
	}

	mdm := localstore.NewMetadataManager(nodeID)
	placement := localstore.NewPlacementEngine(targets)
	locks := NewLocalLockManager()
	rpc := localstore.NewLoopbackRPCClient(nodeID)

	o := New(&cfg, targets.Store(), mdm, placement, targets, locks, rpc)
	t.Cleanup(o.Shutdown)
	return o, targets, mdm
}

func TestBoMoveRelocatesAndUpdatesBufferList(t *testing.T) {
	o, targets, mdm := newTestOrganizer(t, 1, 2)
	ctx := context.Background()

	src := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, targets.Store().WriteBufferByID(ctx, src, []byte("blob contents"), 0))

	blob := mdm.CreateBlob("b1", 0.5, []core.BufferID{src})

	dst := targets.Store().Allocate(core.TargetID(2), 200)

	err := o.BoMove(ctx, core.MoveArgs{Src: src, Dest: []core.BufferID{dst}, Blob: blob})
	require.NoError(t, err)

	// The source buffer is gone.
	_, ok := targets.Store().HeaderInfo(src)
	assert.False(t, ok)

	// The destination buffer holds the moved bytes.
	info, ok := targets.Store().HeaderInfo(dst)
	require.True(t, ok)
	assert.EqualValues(t, len("blob contents"), info.Size)

	buf := make([]byte, info.Size)
	_, err = targets.Store().ReadBufferByID(ctx, dst, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "blob contents", string(buf))

	// The blob's buffer list now points at dst instead of src.
	list, err := mdm.BufferIDList(blob)
	require.NoError(t, err)
	assert.Equal(t, []core.BufferID{dst}, list)
}

// smallSlotStore reports a fixed per-buffer capacity smaller than the
// slots the embedded store really has, so a source written at full size
// doesn't fit into one destination as far as BoMove can tell.
type smallSlotStore struct {
	*localstore.BufferStore
	slot uint64
}

func (s smallSlotStore) Capacity(id core.BufferID) (uint64, bool) {
	if _, ok := s.BufferStore.Capacity(id); !ok {
		return 0, false
	}
	return s.slot, true
}

func TestBoMoveSplitsAcrossMultipleDestinations(t *testing.T) {
	// Destinations report 6-byte slots, too small to hold the 10-byte
	// source in one piece, so BoMove must split the write across two
	// destination buffers.
	cfg := DefaultTestConfig
	cfg.MetricPrefix = "hermes_bo_test_" + metricNameRe.ReplaceAllString(t.Name(), "_")

	targets := localstore.NewTargetStore(1, 1<<20)
	targets.Register(core.TargetID(1), 100, 1<<20)
	mdm := localstore.NewMetadataManager(1)
	placement := localstore.NewPlacementEngine(targets)
	o := New(&cfg, smallSlotStore{targets.Store(), 6}, mdm, placement, targets, NewLocalLockManager(), localstore.NewLoopbackRPCClient(1))
	t.Cleanup(o.Shutdown)

	ctx := context.Background()
	src := targets.Store().Allocate(core.TargetID(1), 100)
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, targets.Store().WriteBufferByID(ctx, src, payload, 0))
	blob := mdm.CreateBlob("b1", 0.5, []core.BufferID{src})

	d1 := targets.Store().Allocate(core.TargetID(1), 100)
	d2 := targets.Store().Allocate(core.TargetID(1), 100)

	err := o.BoMove(ctx, core.MoveArgs{Src: src, Dest: []core.BufferID{d1, d2}, Blob: blob})
	require.NoError(t, err)

	info1, ok := targets.Store().HeaderInfo(d1)
	require.True(t, ok)
	assert.EqualValues(t, 6, info1.Size)

	info2, ok := targets.Store().HeaderInfo(d2)
	require.True(t, ok)
	assert.EqualValues(t, 4, info2.Size)

	list, err := mdm.BufferIDList(blob)
	require.NoError(t, err)
	assert.Equal(t, []core.BufferID{d1, d2}, list)
}

func TestBoCopyDuplicatesWithoutMutatingBlob(t *testing.T) {
	o, targets, _ := newTestOrganizer(t, 1, 2)
	ctx := context.Background()

	src := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, targets.Store().WriteBufferByID(ctx, src, []byte("x"), 0))

	err := o.BoCopy(ctx, core.CopyArgs{Src: src, Dest: core.TargetID(2)})
	require.NoError(t, err)

	// Source still exists, untouched.
	_, ok := targets.Store().HeaderInfo(src)
	assert.True(t, ok)
}

func TestBoDeleteFreesTheBuffer(t *testing.T) {
	o, targets, _ := newTestOrganizer(t, 1, 1)

	id := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, o.BoDelete(core.DeleteArgs{Src: id}))

	_, ok := targets.Store().HeaderInfo(id)
	assert.False(t, ok)
}

func TestBoDeleteUnknownBufferErrors(t *testing.T) {
	o, _, _ := newTestOrganizer(t, 1, 1)
	err := o.BoDelete(core.DeleteArgs{Src: core.NewBufferID(1, 999)})
	assert.Error(t, err)
}

func TestLocalOrganizeBlobSucceedsWhenFarFromImportance(t *testing.T) {
	o, targets, mdm := newTestOrganizer(t, 1, 2)
	ctx := context.Background()

	// A 1MB buffer on the 100 MB/s target, with importance 1.0 far above
	// its access score, so LocalOrganizeBlob has to plan a move; the only
	// other target is the 200 MB/s one.
	src := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, targets.Store().WriteBufferByID(ctx, src, make([]byte, core.MB), 0))
	blob := mdm.CreateBlob("hot-blob", 0, []core.BufferID{src})

	err := o.LocalOrganizeBlob(ctx, blob, 0.5, 1.0)
	require.NoError(t, err)
}

func TestLocalOrganizeBlobNoopWhenNoBuffers(t *testing.T) {
	o, _, mdm := newTestOrganizer(t, 1, 1)
	blob := mdm.CreateBlob("empty-blob", 0.5, nil)

	err := o.LocalOrganizeBlob(context.Background(), blob, 0.05, 0.5)
	assert.NoError(t, err)
}

func TestOrganizeBlobLocalLookupFailureReturnsErrNoSuchBlob(t *testing.T) {
	o, _, _ := newTestOrganizer(t, 1, 1)
	err := o.OrganizeBlob(context.Background(), core.BucketID(1), "does-not-exist", 0.05, 0.5)
	assert.Error(t, err)
}

func TestLocalEnqueueBoMoveRunsAsynchronously(t *testing.T) {
	o, targets, mdm := newTestOrganizer(t, 1, 2)
	ctx := context.Background()

	src := targets.Store().Allocate(core.TargetID(1), 100)
	require.NoError(t, targets.Store().WriteBufferByID(ctx, src, []byte("y"), 0))
	blob := mdm.CreateBlob("b2", 0.5, []core.BufferID{src})
	dst := targets.Store().Allocate(core.TargetID(2), 200)

	require.NoError(t, o.LocalEnqueueBoMove(core.MoveArgs{Src: src, Dest: []core.BufferID{dst}, Blob: blob}, core.BoPriorityHigh))

	require.Eventually(t, func() bool {
		list, err := mdm.BufferIDList(blob)
		return err == nil && len(list) == 1 && list[0] == dst
	}, 2*time.Second, 5*time.Millisecond)
}
