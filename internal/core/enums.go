// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

// The enums below are transmitted over RPC as 32-bit signed integers. Each
// gets a hand-rolled String() rather than go:generate stringer, matching
// the small, stable enum sets the rest of this package favors over codegen.

// MapType distinguishes the kind of name->id mapping a metadata lookup is
// resolving, e.g. LocalGet(name, kind).
type MapType int32

const (
	// MapTypeBlobID resolves an internal blob name to a BlobID.
	MapTypeBlobID MapType = iota
	// MapTypeBucketID resolves a bucket name to a BucketID.
	MapTypeBucketID
	// MapTypeVBucketID resolves a vbucket name to a VBucketID.
	MapTypeVBucketID
)

func (m MapType) String() string {
	switch m {
	case MapTypeBlobID:
		return "BlobID"
	case MapTypeBucketID:
		return "BucketID"
	case MapTypeVBucketID:
		return "VBucketID"
	default:
		return "UnknownMapType"
	}
}

// BoPriority is the priority a BoTask is submitted to the worker pool with.
type BoPriority int32

const (
	// BoPriorityLow is the default priority for organizer-driven moves.
	BoPriorityLow BoPriority = iota
	// BoPriorityHigh preempts low-priority work at dequeue time.
	BoPriorityHigh
)

func (p BoPriority) String() string {
	if p == BoPriorityHigh {
		return "High"
	}
	return "Low"
}

// BoOperation tags the variant held by a BoTask.
type BoOperation int32

const (
	// BoOperationMove moves a buffer's contents to one or more destination buffers.
	BoOperationMove BoOperation = iota
	// BoOperationCopy duplicates a buffer's contents onto a new buffer.
	BoOperationCopy
	// BoOperationDelete releases a buffer back to its target's free list.
	BoOperationDelete
)

func (o BoOperation) String() string {
	switch o {
	case BoOperationMove:
		return "Move"
	case BoOperationCopy:
		return "Copy"
	case BoOperationDelete:
		return "Delete"
	default:
		return "UnknownBoOperation"
	}
}

// ThresholdViolation is the kind of capacity bound a target has crossed.
type ThresholdViolation int32

const (
	// ViolationMin means the target is below its configured minimum
	// remaining capacity (nearly full).
	ViolationMin ThresholdViolation = iota
	// ViolationMax means the target is above its configured maximum
	// remaining capacity (suspiciously empty, e.g. after eviction).
	ViolationMax
)

func (v ThresholdViolation) String() string {
	if v == ViolationMax {
		return "Max"
	}
	return "Min"
}

// PlacementPolicy selects how the placement engine should choose targets
// for a schema. The organizer only forwards this value; it never
// interprets it (the placement engine is an external collaborator).
type PlacementPolicy int32

const (
	// PlacementPolicyRoundRobin spreads placement evenly across targets.
	PlacementPolicyRoundRobin PlacementPolicy = iota
	// PlacementPolicyRandom picks targets at random, subject to capacity.
	PlacementPolicyRandom
	// PlacementPolicyMinimizeIOTime favors targets that minimize projected I/O time.
	PlacementPolicyMinimizeIOTime
)

func (p PlacementPolicy) String() string {
	switch p {
	case PlacementPolicyRoundRobin:
		return "RoundRobin"
	case PlacementPolicyRandom:
		return "Random"
	case PlacementPolicyMinimizeIOTime:
		return "MinimizeIOTime"
	default:
		return "UnknownPlacementPolicy"
	}
}

// PrefetchHint tells the placement and organizer layers how a blob is
// expected to be accessed, which the organizer's prefetch-aware callers
// (outside this package) can use to bias importance scores.
type PrefetchHint int32

const (
	// PrefetchHintNone gives no hint.
	PrefetchHintNone PrefetchHint = iota
	// PrefetchHintSequential hints at sequential access.
	PrefetchHintSequential
	// PrefetchHintRandom hints at random access.
	PrefetchHintRandom
)

func (h PrefetchHint) String() string {
	switch h {
	case PrefetchHintSequential:
		return "Sequential"
	case PrefetchHintRandom:
		return "Random"
	default:
		return "None"
	}
}
