// Copyright (c) 2016 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

import "fmt"

/*

Identifiers in the organizer are all 64-bit tagged values, bit-packed so
they can be passed by value, compared cheaply, and sent over the wire as a
single integer.

  BufferID: {node_id (32), header_index (32)}

     +------------------------+------------------------+
     |   node_id (4 bytes)    | header_index (4 bytes)  |
     +------------------------+------------------------+

  BlobID: {node_id (31), swap (1), buffer_list_offset (32)}

     +-+------------------------+------------------------+
     |s|   node_id (31 bits)    | list offset (4 bytes)   |
     +-+------------------------+------------------------+

  's' is the high bit of the node_id word and distinguishes swap blobs
  (evicted to a dedicated swap file) from blobs materialized in the
  buffer hierarchy.

*/

// BufferID identifies a single fixed-capacity buffer slot on some node.
type BufferID uint64

// NewBufferID packs a node id and header index into a BufferID.
func NewBufferID(nodeID, headerIndex uint32) BufferID {
	return BufferID(uint64(nodeID)<<32 | uint64(headerIndex))
}

// NodeID returns the node that owns this buffer.
func (b BufferID) NodeID() uint32 {
	return uint32(b >> 32)
}

// HeaderIndex returns the slot index of this buffer's header within its
// node's buffer header pool.
func (b BufferID) HeaderIndex() uint32 {
	return uint32(b)
}

func (b BufferID) String() string {
	return fmt.Sprintf("Buffer(%d:%d)", b.NodeID(), b.HeaderIndex())
}

const swapBit = uint32(1) << 31

// BlobID identifies a blob: the node that owns its metadata, the offset of
// its buffer-ID list, and whether it is a swap blob.
type BlobID uint64

// NewBlobID packs a node id and buffer-list offset into a BlobID.
func NewBlobID(nodeID, listOffset uint32, isSwap bool) BlobID {
	tag := nodeID &^ swapBit
	if isSwap {
		tag |= swapBit
	}
	return BlobID(uint64(tag)<<32 | uint64(listOffset))
}

// NodeID returns the node that owns this blob's metadata.
func (b BlobID) NodeID() uint32 {
	return uint32(b>>32) &^ swapBit
}

// ListOffset returns the offset of this blob's buffer-ID list.
func (b BlobID) ListOffset() uint32 {
	return uint32(b)
}

// IsSwap reports whether this is a swap blob (evicted to the backing swap
// file rather than materialized in the buffer hierarchy).
func (b BlobID) IsSwap() bool {
	return uint32(b>>32)&swapBit != 0
}

func (b BlobID) String() string {
	if b.IsSwap() {
		return fmt.Sprintf("SwapBlob(%d:%d)", b.NodeID(), b.ListOffset())
	}
	return fmt.Sprintf("Blob(%d:%d)", b.NodeID(), b.ListOffset())
}

// TargetID identifies a logical storage device (target) on a node.
type TargetID uint32

func (t TargetID) String() string {
	return fmt.Sprintf("Target(%d)", uint32(t))
}

// BucketID identifies a bucket, a namespace of blob names.
type BucketID uint64

func (b BucketID) String() string {
	return fmt.Sprintf("Bucket(%d)", uint64(b))
}

// VBucketID identifies a virtual bucket, used to scope outstanding flushes
// by backing filename.
type VBucketID uint64

func (v VBucketID) String() string {
	return fmt.Sprintf("VBucket(%d)", uint64(v))
}
