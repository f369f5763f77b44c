// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"time"

	"github.com/akougkas/hermes/internal/core"
)

// BufferStore is the interface to the shared-memory buffer pool: the
// free-buffer allocator, buffer header pool, and the actual byte storage of
// buffers. It is implemented by a collaborator outside this package, not by
// anything in it.
type BufferStore interface {
	// HeaderInfo returns {size, bandwidth} for a locally-owned buffer.
	// It returns ok=false if the buffer isn't present on this node.
	HeaderInfo(id core.BufferID) (info core.BufferInfo, ok bool)

	// ReadBufferByID reads up to len(dst) bytes from id, starting at
	// offset, into dst, returning the number of bytes actually read.
	ReadBufferByID(ctx context.Context, id core.BufferID, dst []byte, offset int64) (int, error)

	// WriteBufferByID writes src into id starting at offset. Safe for
	// concurrent use on the same buffer (the organizer relies on this).
	WriteBufferByID(ctx context.Context, id core.BufferID, src []byte, offset int64) error

	// Capacity returns the fixed capacity of a buffer slot, used by BoMove
	// to size destination writes.
	Capacity(id core.BufferID) (uint64, bool)

	// Free releases a locally-owned buffer back to its target's free list.
	// Used by BoDelete and by BoMove once a source buffer has been fully
	// copied out.
	Free(id core.BufferID) error
}

// MetadataManager is the interface to the distributed metadata service:
// name/ID maps, blob buffer-ID lists, importance scores, and bucket/vbucket
// resolution.
type MetadataManager interface {
	// Get resolves a name of the given kind to its packed 64-bit ID.
	Get(name string, kind core.MapType) (uint64, bool)

	// BufferIDList returns the ordered buffer IDs currently composing blob.
	BufferIDList(blob core.BlobID) ([]core.BufferID, error)

	// SetBufferIDList atomically replaces blob's buffer-ID list, returning
	// the blob's possibly-new BlobID (reorganization mutates a blob's
	// BlobID when its buffer list changes, per the data model's lifecycle
	// note for BlobID).
	SetBufferIDList(blob core.BlobID, newList []core.BufferID) (core.BlobID, error)

	// BlobImportanceScore returns the policy-assigned importance score for
	// a blob, used when OrganizeBlob is called with the -1 sentinel.
	BlobImportanceScore(blob core.BlobID) (float32, error)

	// MakeInternalName combines a blob name and bucket into the internal
	// name used for owner hashing and RPC routing.
	MakeInternalName(blobName string, bucket core.BucketID) string

	// HashString maps a name to the node that owns it.
	HashString(name string) uint32

	// VBucketID resolves a vbucket name to its ID.
	VBucketID(name string) core.VBucketID

	// AdjustFlushCount atomically adjusts the outstanding-flush counter for
	// a vbucket and returns the counter's new value.
	AdjustFlushCount(id core.VBucketID, delta int) int

	// FlushCount returns the current outstanding-flush counter for a
	// vbucket without mutating it.
	FlushCount(id core.VBucketID) int
}

// PlacementEngine is the interface to the Data Placement Engine: schema
// calculation for new allocations, and realization of a schema into actual
// destination buffers.
type PlacementEngine interface {
	// CalculatePlacement returns one schema per requested size, honoring
	// ctx's policy hint.
	CalculatePlacement(ctx core.Context, sizes []uint64) ([]core.PlacementSchema, error)

	// GetBuffers realizes a schema, returning the allocated destination
	// buffer IDs in schema order. Returns a short slice if allocation
	// partially fails.
	GetBuffers(ctx context.Context, schema core.PlacementSchema) ([]core.BufferID, error)
}

// TargetStore is the interface to the target registry: bandwidth and
// remaining-capacity introspection for the targets hosted on this node.
type TargetStore interface {
	// LocalTargets returns the targets hosted on this node.
	LocalTargets() []core.TargetID

	// Bandwidths returns the published bandwidth, in MB/s, of each target.
	Bandwidths(targets []core.TargetID) []float32

	// RemainingCapacities returns the remaining capacity, in bytes, of
	// each target. Targets may be local or remote; remote capacities are
	// resolved via RPC by the implementation.
	RemainingCapacities(ctx context.Context, targets []core.TargetID) ([]uint64, error)
}

// LockManager provides per-blob mutual exclusion, routed to the blob's home
// node when it isn't local. It mirrors the curator's LockManager,
// generalized from {blob, tract} to just {blob}: the organizer has no
// notion of tracts.
type LockManager interface {
	// LockBlob blocks until the blob's lock is held locally, or returns
	// false if the remote lock request failed.
	LockBlob(ctx context.Context, id core.BlobID) bool

	// UnlockBlob releases a previously-acquired lock.
	UnlockBlob(ctx context.Context, id core.BlobID)
}

// RPCClient is the narrow surface the organizer needs from the RPC
// transport: typed request/response calls to a named node, under a given
// method name. The transport itself (thallium/grpc/net-rpc) is someone
// else's problem; this package only depends on this interface.
type RPCClient interface {
	// Call invokes method on node, marshaling args and unmarshaling into
	// reply. method is the full net/rpc name; callers build it with
	// WithBOPrefix ("BO.<Method>") when the target is a BO-registered
	// handler.
	Call(ctx context.Context, node uint32, method string, args, reply interface{}) error

	// NodeID returns this process's own node id, so callers can tell
	// whether an owner hash resolves locally.
	NodeID() uint32
}

// TaskSink is the narrow capability the metadata manager needs back from
// the organizer, so metadata can ask for a blob to be reorganized without
// importing this package's implementation, by holding only this interface.
type TaskSink interface {
	// EnqueueOrganize asks that blob be reorganized towards importance
	// within epsilon, at low priority, as soon as a worker is free.
	EnqueueOrganize(bucket core.BucketID, blobName string, epsilon float64, importance float32)
}

// clock abstracts time.Now so tests can control it; production code always
// uses realClock.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
