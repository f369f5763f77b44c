// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"context"
	"sort"
	"sync"

	"github.com/akougkas/hermes/internal/core"
)

// target bundles one TargetID's published bandwidth and total capacity.
// Buffer storage itself lives in the TargetStore's single shared
// BufferStore, keyed by owner.
type target struct {
	id            core.TargetID
	bandwidthMbps float32
	totalBytes    uint64
}

// TargetStore is a memory-only organizer.TargetStore: every target it
// knows about is local, backed by one shared BufferStore.
type TargetStore struct {
	store *BufferStore

	mu      sync.Mutex
	targets map[core.TargetID]*target
}

// NewTargetStore returns an empty TargetStore backed by a fresh
// BufferStore for nodeID; call Register to add targets before handing
// this to the organizer.
func NewTargetStore(nodeID uint32, slotBytes uint64) *TargetStore {
	return &TargetStore{
		store:   NewBufferStore(nodeID, slotBytes),
		targets: make(map[core.TargetID]*target),
	}
}

// Store returns the BufferStore shared by every target this TargetStore
// knows about; this is what gets handed to the organizer as its
// BufferStore collaborator.
func (s *TargetStore) Store() *BufferStore {
	return s.store
}

// Register adds a target with the given bandwidth rating and total
// capacity.
func (s *TargetStore) Register(id core.TargetID, bandwidthMbps float32, totalBytes uint64) {
	s.mu.Lock()
	s.targets[id] = &target{id: id, bandwidthMbps: bandwidthMbps, totalBytes: totalBytes}
	s.mu.Unlock()
}

// LocalTargets implements organizer.TargetStore.
func (s *TargetStore) LocalTargets() []core.TargetID {
	return s.ids()
}

// Bandwidths implements organizer.TargetStore.
func (s *TargetStore) Bandwidths(targets []core.TargetID) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(targets))
	for i, id := range targets {
		if t, ok := s.targets[id]; ok {
			out[i] = t.bandwidthMbps
		}
	}
	return out
}

// RemainingCapacities implements organizer.TargetStore. Every target here
// is local, so ctx is unused; a distributed TargetStore would dial out to
// remote nodes for targets it doesn't host.
func (s *TargetStore) RemainingCapacities(ctx context.Context, targets []core.TargetID) ([]uint64, error) {
	s.mu.Lock()
	snapshot := make(map[core.TargetID]uint64, len(targets))
	for _, id := range targets {
		if t, ok := s.targets[id]; ok {
			snapshot[id] = t.totalBytes
		}
	}
	s.mu.Unlock()

	out := make([]uint64, len(targets))
	for i, id := range targets {
		total, ok := snapshot[id]
		if !ok {
			continue
		}
		used := s.store.usedBytes(id)
		if used >= total {
			out[i] = 0
			continue
		}
		out[i] = total - used
	}
	return out, nil
}

// ids returns every registered target id, sorted for determinism (useful
// for the placement engine's round-robin order and for tests).
func (s *TargetStore) ids() []core.TargetID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TargetID, 0, len(s.targets))
	for id := range s.targets {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *TargetStore) bandwidthFor(id core.TargetID) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[id]; ok {
		return t.bandwidthMbps
	}
	return 0
}
