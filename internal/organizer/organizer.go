// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

// Package organizer implements the Hermes Buffer Organizer: the core that
// continuously reshapes the physical placement of existing blobs so that
// each blob's access score converges toward its importance score, drives
// asynchronous flushing and demand promotion, and executes the per-node
// move/copy/delete task queue those operations enqueue.
//
// The organizer depends only on the narrow collaborator interfaces in
// collaborators.go (buffer store, metadata manager, placement engine,
// target store, lock manager, RPC client); it never reaches into how those
// are actually implemented. This resolves the "global shared-memory
// context" design note by replacing a context pointer threaded everywhere
// with an *Organizer value constructed once at daemon init that borrows
// those collaborators.
package organizer

import (
	"sync"

	log "github.com/golang/glog"

	"github.com/akougkas/hermes/internal/core"
	"github.com/akougkas/hermes/pkg/tokenbucket"
)

// Organizer is the per-node Buffer Organizer core.
type Organizer struct {
	config *Config
	bw     BandwidthRange

	pool *Pool

	bufStore  BufferStore
	mdm       MetadataManager
	placement PlacementEngine
	targets   TargetStore
	locks     LockManager
	rpc       RPCClient

	metrics   *metrics
	moveBwLim *tokenbucket.TokenBucket

	clk clock

	violations chan core.ViolationInfo

	shutdownOnce sync.Once
	done         chan struct{}
	wg           sync.WaitGroup
}

// New constructs an Organizer and starts its background loops (capacity
// monitoring) and its worker pool. Call Shutdown to tear it down.
func New(cfg *Config, bufStore BufferStore, mdm MetadataManager, placement PlacementEngine, targets TargetStore, locks LockManager, rpc RPCClient) *Organizer {
	var bwLim *tokenbucket.TokenBucket
	if cfg.MoveBytesPerSec > 0 {
		bwLim = tokenbucket.New(cfg.MoveBytesPerSec, cfg.MoveBytesPerSec)
	}

	o := &Organizer{
		config:     cfg,
		bw:         BandwidthRange{Min: cfg.MinDeviceBWMbps, Max: cfg.MaxDeviceBWMbps},
		pool:       NewPool(cfg.NumWorkers, cfg.QueueDepth),
		bufStore:   bufStore,
		mdm:        mdm,
		placement:  placement,
		targets:    targets,
		locks:      locks,
		rpc:        rpc,
		metrics:    newMetrics(cfg.MetricPrefix),
		moveBwLim:  bwLim,
		clk:        realClock{},
		violations: make(chan core.ViolationInfo, 256),
		done:       make(chan struct{}),
	}

	o.wg.Add(2)
	go o.capacityMonitorLoop()
	go o.violationConsumerLoop()

	return o
}

// Shutdown tears down the organizer: stops background loops, then drains
// and stops the worker pool. In-flight move/flush tasks complete (or are
// never partially applied, per BoMove's locking discipline) rather than
// being abandoned mid-mutation.
func (o *Organizer) Shutdown() {
	o.shutdownOnce.Do(func() {
		close(o.done)
	})
	o.wg.Wait()
	o.pool.Shutdown()
}

// NodeID returns the node this organizer instance runs on.
func (o *Organizer) NodeID() uint32 {
	return o.rpc.NodeID()
}

// invalidCodePath is called from switch defaults over enum types the type
// system can't make exhaustive. It's always a programming error and is
// always fatal.
func invalidCodePath(where string) {
	log.Fatalf("organizer: invalid code path in %s", where)
}
