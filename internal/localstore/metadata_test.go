// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akougkas/hermes/internal/core"
)

func TestMetadataManagerCreateAndLookupBlob(t *testing.T) {
	m := NewMetadataManager(1)

	name := m.MakeInternalName("my-blob", core.BucketID(7))
	id := m.CreateBlob(name, 0.8, nil)

	got, ok := m.Get(name, core.MapTypeBlobID)
	require.True(t, ok)
	assert.Equal(t, uint64(id), got)

	score, err := m.BlobImportanceScore(id)
	require.NoError(t, err)
	assert.Equal(t, float32(0.8), score)
}

func TestMetadataManagerBufferIDListRoundTrip(t *testing.T) {
	m := NewMetadataManager(1)
	id := m.CreateBlob("b", 0.5, []core.BufferID{1, 2, 3})

	list, err := m.BufferIDList(id)
	require.NoError(t, err)
	assert.Equal(t, []core.BufferID{1, 2, 3}, list)

	newID, err := m.SetBufferIDList(id, []core.BufferID{4, 5})
	require.NoError(t, err)
	assert.Equal(t, id, newID)

	list, err = m.BufferIDList(id)
	require.NoError(t, err)
	assert.Equal(t, []core.BufferID{4, 5}, list)
}

func TestMetadataManagerUnknownBlobErrors(t *testing.T) {
	m := NewMetadataManager(1)
	_, err := m.BufferIDList(core.BlobID(999))
	assert.Error(t, err)

	_, err = m.SetBufferIDList(core.BlobID(999), nil)
	assert.Error(t, err)

	_, err = m.BlobImportanceScore(core.BlobID(999))
	assert.Error(t, err)
}

func TestMetadataManagerFlushCounts(t *testing.T) {
	m := NewMetadataManager(1)
	vb := core.VBucketID(42)

	assert.Equal(t, 0, m.FlushCount(vb))
	assert.Equal(t, 1, m.AdjustFlushCount(vb, 1))
	assert.Equal(t, 2, m.AdjustFlushCount(vb, 1))
	assert.Equal(t, 1, m.AdjustFlushCount(vb, -1))
	assert.Equal(t, 1, m.FlushCount(vb))
}

func TestMetadataManagerVBucketIDIsStable(t *testing.T) {
	m := NewMetadataManager(1)
	assert.Equal(t, m.VBucketID("a"), m.VBucketID("a"))
	assert.NotEqual(t, m.VBucketID("a"), m.VBucketID("b"))
}
