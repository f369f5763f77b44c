// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package localstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/akougkas/hermes/internal/core"
)

// PlacementEngine is a memory-only organizer.PlacementEngine: it round-robins
// across the registered targets rather than running a real schema solver, so
// standalone runs always have somewhere to put a new buffer.
type PlacementEngine struct {
	targets *TargetStore

	mu   sync.Mutex
	next int
}

// NewPlacementEngine returns a PlacementEngine that allocates out of targets.
func NewPlacementEngine(targets *TargetStore) *PlacementEngine {
	return &PlacementEngine{targets: targets}
}

// CalculatePlacement implements organizer.PlacementEngine. Every size lands
// on a single target chosen round-robin; there is no replication or erasure
// coding in a single-node deployment.
func (p *PlacementEngine) CalculatePlacement(ctx core.Context, sizes []uint64) ([]core.PlacementSchema, error) {
	ids := p.targets.ids()
	if len(ids) == 0 {
		return nil, fmt.Errorf("localstore: %w: no targets registered", core.ErrPlacementFailed.Error())
	}

	schemas := make([]core.PlacementSchema, len(sizes))
	p.mu.Lock()
	for i, size := range sizes {
		tgt := ids[p.next%len(ids)]
		p.next++
		schemas[i] = core.PlacementSchema{{Bytes: size, Target: tgt}}
	}
	p.mu.Unlock()
	return schemas, nil
}

// GetBuffers implements organizer.PlacementEngine, realizing schema by
// allocating one buffer per entry on its named target.
func (p *PlacementEngine) GetBuffers(ctx context.Context, schema core.PlacementSchema) ([]core.BufferID, error) {
	out := make([]core.BufferID, 0, len(schema))
	for _, entry := range schema {
		bw := p.targets.bandwidthFor(entry.Target)
		id := p.targets.Store().Allocate(entry.Target, bw)
		out = append(out, id)
	}
	return out, nil
}
