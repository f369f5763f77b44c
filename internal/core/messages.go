// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

// BufferInfo is what the organizer needs to know about a buffer to compute
// and compare access scores. It's a value type, derived on demand from a
// BufferHeader and the device that owns it.
type BufferInfo struct {
	ID            BufferID
	BandwidthMbps float32
	Size          uint64 // bytes used, i.e. BufferHeader.Used
}

// Equal reports whether two BufferInfo values describe the same buffer
// state.
func (b BufferInfo) Equal(o BufferInfo) bool {
	return b.ID == o.ID && b.Size == o.Size && b.BandwidthMbps == o.BandwidthMbps
}

// TargetInfo is what the reorganizer needs to know about a target to decide
// whether a buffer can move there.
type TargetInfo struct {
	ID                TargetID
	BandwidthMbps     float32
	CapacityRemaining uint64
}

// SchemaEntry is one (size, target) pairing within a PlacementSchema.
type SchemaEntry struct {
	Bytes  uint64
	Target TargetID
}

// PlacementSchema is an ordered sequence of (bytes, target) pairs: an
// ephemeral plan consumed by the buffer allocator to realize a set of
// destination BufferIDs.
type PlacementSchema []SchemaEntry

// SwapBlob describes a blob that has been evicted from the hierarchy to a
// dedicated swap file, to be rematerialized on demand by PlaceInHierarchy.
type SwapBlob struct {
	NodeID   uint32
	Offset   uint64
	Size     uint64
	BucketID BucketID
}

// MoveArgs are the arguments of a Move BoTask: move the contents of Src
// into the ordered Dest buffers, updating Blob's buffer-ID list.
type MoveArgs struct {
	Src  BufferID
	Dest []BufferID
	Blob BlobID
}

// CopyArgs are the arguments of a Copy BoTask: duplicate Src's contents
// onto a freshly allocated buffer on Dest.
type CopyArgs struct {
	Src  BufferID
	Dest TargetID
}

// DeleteArgs are the arguments of a Delete BoTask: release Src back to its
// target's free list.
type DeleteArgs struct {
	Src BufferID
}

// BoTask is a tagged union over the three kinds of organizer task. Only the
// field matching Op is populated; expressed as a Go struct since Go has no
// unions and these tasks are small and infrequent enough that the extra
// zero-value fields cost nothing of consequence.
type BoTask struct {
	Op       BoOperation
	Priority BoPriority
	Move     MoveArgs
	Copy     CopyArgs
	Delete   DeleteArgs
}

// ViolationInfo is emitted by the capacity monitor when a target crosses a
// configured capacity bound, and consumed by the organizer's violation
// consumer loop, which logs it.
type ViolationInfo struct {
	TargetID TargetID
	Kind     ThresholdViolation
	Size     uint64
}

// Context carries per-request organizer policy knobs, forwarded through
// RPC calls that originate from the filesystem-adapter layer.
type Context struct {
	BufferOrganizerRetries uint8 // 1 byte on the wire
	Policy                 PlacementPolicy
}

// PrefetchContext carries prefetch hints alongside a Context.
type PrefetchContext struct {
	Hint      PrefetchHint
	ReadAhead int
}
