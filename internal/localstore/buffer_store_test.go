// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akougkas/hermes/internal/core"
)

func TestBufferStoreAllocateAndReadWrite(t *testing.T) {
	s := NewBufferStore(1, 1024)
	ctx := context.Background()

	id := s.Allocate(core.TargetID(1), 500)
	assert.EqualValues(t, 1, id.NodeID())

	info, ok := s.HeaderInfo(id)
	require.True(t, ok)
	assert.EqualValues(t, 0, info.Size)
	assert.Equal(t, float32(500), info.BandwidthMbps)

	require.NoError(t, s.WriteBufferByID(ctx, id, []byte("hello"), 0))

	info, ok = s.HeaderInfo(id)
	require.True(t, ok)
	assert.EqualValues(t, 5, info.Size)

	dst := make([]byte, 5)
	n, err := s.ReadBufferByID(ctx, id, dst, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(dst))
}

func TestBufferStoreWriteBeyondCapacityFails(t *testing.T) {
	s := NewBufferStore(1, 4)
	ctx := context.Background()
	id := s.Allocate(core.TargetID(1), 500)

	err := s.WriteBufferByID(ctx, id, []byte("too long"), 0)
	assert.Error(t, err)
}

func TestBufferStoreFreeReleasesAndRecyclesIndex(t *testing.T) {
	s := NewBufferStore(1, 1024)
	id1 := s.Allocate(core.TargetID(1), 500)
	require.NoError(t, s.Free(id1))

	_, ok := s.HeaderInfo(id1)
	assert.False(t, ok)

	id2 := s.Allocate(core.TargetID(1), 500)
	assert.Equal(t, id1.HeaderIndex(), id2.HeaderIndex())
}

func TestBufferStoreFreeUnknownIDErrors(t *testing.T) {
	s := NewBufferStore(1, 1024)
	assert.Error(t, s.Free(core.NewBufferID(1, 999)))
}

func TestBufferStoreUsedBytesPerTarget(t *testing.T) {
	s := NewBufferStore(1, 1024)
	a := s.Allocate(core.TargetID(1), 500)
	s.Allocate(core.TargetID(2), 500)

	assert.EqualValues(t, 1024, s.usedBytes(core.TargetID(1)))
	assert.EqualValues(t, 1024, s.usedBytes(core.TargetID(2)))

	require.NoError(t, s.Free(a))
	assert.EqualValues(t, 0, s.usedBytes(core.TargetID(1)))
	assert.EqualValues(t, 1024, s.usedBytes(core.TargetID(2)))
}

func TestHashStringIsStable(t *testing.T) {
	assert.Equal(t, HashString("blob-a"), HashString("blob-a"))
	assert.NotEqual(t, HashString("blob-a"), HashString("blob-b"))
}
