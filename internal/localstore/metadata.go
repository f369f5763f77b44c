// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"fmt"
	"sync"

	"github.com/akougkas/hermes/internal/core"
)

// MetadataManager is a memory-only organizer.MetadataManager: every map is
// guarded by a single mutex, which is fine at the scale a single-node
// deployment runs at.
type MetadataManager struct {
	nodeID uint32

	mu          sync.Mutex
	names       map[string]uint64
	bufferLists map[core.BlobID][]core.BufferID
	importance  map[core.BlobID]float32
	flushCounts map[core.VBucketID]int
	nextOffset  uint32
}

// NewMetadataManager returns a MetadataManager whose blobs are all owned
// by nodeID.
func NewMetadataManager(nodeID uint32) *MetadataManager {
	return &MetadataManager{
		nodeID:      nodeID,
		names:       make(map[string]uint64),
		bufferLists: make(map[core.BlobID][]core.BufferID),
		importance:  make(map[core.BlobID]float32),
		flushCounts: make(map[core.VBucketID]int),
	}
}

// MakeInternalName implements organizer.MetadataManager.
func (m *MetadataManager) MakeInternalName(blobName string, bucket core.BucketID) string {
	return fmt.Sprintf("%d/%s", uint64(bucket), blobName)
}

// HashString implements organizer.MetadataManager. Every blob here is
// owned by this node, so every name maps to nodeID.
func (m *MetadataManager) HashString(name string) uint32 {
	return m.nodeID
}

// Get implements organizer.MetadataManager.
func (m *MetadataManager) Get(name string, kind core.MapType) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.names[fmt.Sprintf("%d:%s", kind, name)]
	return id, ok
}

// CreateBlob registers a brand-new blob under internalName, owned by this
// node, with the given importance score and initial (possibly empty)
// buffer list, returning its BlobID.
func (m *MetadataManager) CreateBlob(internalName string, importance float32, initial []core.BufferID) core.BlobID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := core.NewBlobID(m.nodeID, m.nextOffset, false)
	m.nextOffset++
	m.bufferLists[id] = initial
	m.importance[id] = importance
	m.names[fmt.Sprintf("%d:%s", core.MapTypeBlobID, internalName)] = uint64(id)
	return id
}

// BufferIDList implements organizer.MetadataManager.
func (m *MetadataManager) BufferIDList(blob core.BlobID) ([]core.BufferID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.bufferLists[blob]
	if !ok {
		return nil, fmt.Errorf("localstore: %w: %s", core.ErrNoSuchBlob.Error(), blob)
	}
	out := make([]core.BufferID, len(list))
	copy(out, list)
	return out, nil
}

// SetBufferIDList implements organizer.MetadataManager. The single-node
// store never needs to relocate a blob's list to a new offset, so the
// BlobID returned is always the one passed in.
func (m *MetadataManager) SetBufferIDList(blob core.BlobID, newList []core.BufferID) (core.BlobID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bufferLists[blob]; !ok {
		return 0, fmt.Errorf("localstore: %w: %s", core.ErrNoSuchBlob.Error(), blob)
	}
	stored := make([]core.BufferID, len(newList))
	copy(stored, newList)
	m.bufferLists[blob] = stored
	return blob, nil
}

// BlobImportanceScore implements organizer.MetadataManager.
func (m *MetadataManager) BlobImportanceScore(blob core.BlobID) (float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score, ok := m.importance[blob]
	if !ok {
		return 0, fmt.Errorf("localstore: %w: %s", core.ErrNoSuchBlob.Error(), blob)
	}
	return score, nil
}

// SetImportance updates blob's policy-assigned importance score.
func (m *MetadataManager) SetImportance(blob core.BlobID, score float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importance[blob] = score
}

// VBucketID implements organizer.MetadataManager.
func (m *MetadataManager) VBucketID(name string) core.VBucketID {
	return core.VBucketID(HashString(name))
}

// AdjustFlushCount implements organizer.MetadataManager.
func (m *MetadataManager) AdjustFlushCount(id core.VBucketID, delta int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushCounts[id] += delta
	return m.flushCounts[id]
}

// FlushCount implements organizer.MetadataManager.
func (m *MetadataManager) FlushCount(id core.VBucketID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushCounts[id]
}
