// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

// Package localstore provides memory-only implementations of the
// organizer package's collaborator interfaces, for single-node
// deployments and for driving the organizer without a distributed
// metadata/placement/transport stack running alongside it.
//
// It follows the same memory-backed-map idiom the rest of this project's
// tests use for fake disks: everything lives in a guarded map, nothing
// touches the filesystem except where the organizer itself does (flush,
// swap-in).
package localstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/akougkas/hermes/internal/core"
)

// BufferStore is a memory-only organizer.BufferStore: buffers are just
// byte slices in a map, capacity-bounded per slot. A single BufferStore
// backs every target on a node, since BufferID only carries a node id, not
// a target id; ownership of a buffer by a particular target is tracked
// alongside it purely for TargetStore's capacity accounting.
type BufferStore struct {
	nodeID    uint32
	slotBytes uint64

	mu      sync.Mutex
	next    uint32
	data    map[core.BufferID][]byte
	bw      map[core.BufferID]float32
	owner   map[core.BufferID]core.TargetID
	freeIDs []uint32
}

// NewBufferStore returns a BufferStore for nodeID whose slots are all
// slotBytes in capacity.
func NewBufferStore(nodeID uint32, slotBytes uint64) *BufferStore {
	return &BufferStore{
		nodeID:    nodeID,
		slotBytes: slotBytes,
		data:      make(map[core.BufferID][]byte),
		bw:        make(map[core.BufferID]float32),
		owner:     make(map[core.BufferID]core.TargetID),
	}
}

// Allocate reserves a fresh buffer on the given target with the supplied
// bandwidth rating, returning its id. Used by PlacementEngine.GetBuffers.
func (s *BufferStore) Allocate(target core.TargetID, bandwidthMbps float32) core.BufferID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx uint32
	if n := len(s.freeIDs); n > 0 {
		idx = s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
	} else {
		idx = s.next
		s.next++
	}

	id := core.NewBufferID(s.nodeID, idx)
	s.data[id] = nil
	s.bw[id] = bandwidthMbps
	s.owner[id] = target
	return id
}

// HeaderInfo implements organizer.BufferStore.
func (s *BufferStore) HeaderInfo(id core.BufferID) (core.BufferInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.data[id]
	if !ok {
		return core.BufferInfo{}, false
	}
	return core.BufferInfo{ID: id, BandwidthMbps: s.bw[id], Size: uint64(len(buf))}, true
}

// ReadBufferByID implements organizer.BufferStore.
func (s *BufferStore) ReadBufferByID(ctx context.Context, id core.BufferID, dst []byte, offset int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.data[id]
	if !ok {
		return 0, fmt.Errorf("localstore: %w: %s", core.ErrBufferNotFound.Error(), id)
	}
	if offset >= int64(len(buf)) {
		return 0, nil
	}
	return copy(dst, buf[offset:]), nil
}

// WriteBufferByID implements organizer.BufferStore.
func (s *BufferStore) WriteBufferByID(ctx context.Context, id core.BufferID, src []byte, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.data[id]
	if !ok {
		return fmt.Errorf("localstore: %w: %s", core.ErrBufferNotFound.Error(), id)
	}
	need := offset + int64(len(src))
	if need > int64(s.slotBytes) {
		return fmt.Errorf("localstore: write of %d bytes at offset %d exceeds slot capacity %d", len(src), offset, s.slotBytes)
	}
	if int64(len(buf)) < need {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], src)
	s.data[id] = buf
	return nil
}

// Capacity implements organizer.BufferStore.
func (s *BufferStore) Capacity(id core.BufferID) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return 0, false
	}
	return s.slotBytes, true
}

// Free implements organizer.BufferStore.
func (s *BufferStore) Free(id core.BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return fmt.Errorf("localstore: %w: %s", core.ErrBufferNotFound.Error(), id)
	}
	delete(s.data, id)
	delete(s.bw, id)
	delete(s.owner, id)
	s.freeIDs = append(s.freeIDs, id.HeaderIndex())
	return nil
}

// usedBytes reports how much of target's slot capacity is currently
// allocated, for TargetStore.RemainingCapacities.
func (s *BufferStore) usedBytes(target core.TargetID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n uint64
	for id, owner := range s.owner {
		if owner != target {
			continue
		}
		if _, ok := s.data[id]; ok {
			n += s.slotBytes
		}
	}
	return n
}

// HashString is a stable 32-bit FNV-1a hash of name. MetadataManager uses
// it to derive VBucketIDs.
func HashString(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}
