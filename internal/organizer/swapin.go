// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akougkas/hermes/internal/core"
)

// PlaceInHierarchy rematerializes a blob that was previously evicted to a
// swap file back into the buffer hierarchy: it reads the blob's bytes from
// its swap file, places them into newly allocated buffers chosen by the
// placement engine under PlacementPolicyMinimizeIOTime, and registers the
// result as blobName's current (non-swap) buffer-ID list. prefetch is not
// used.
func (o *Organizer) PlaceInHierarchy(ctx context.Context, swap core.SwapBlob, blobName string, prefetch core.PrefetchContext) (core.BlobID, error) {
	m := o.metrics.placeInHier.start()
	defer m.end()

	placeCtx := core.Context{Policy: core.PlacementPolicyMinimizeIOTime}
	schemas, err := o.placement.CalculatePlacement(placeCtx, []uint64{swap.Size})
	if err != nil || len(schemas) != 1 {
		m.failed()
		return 0, fmt.Errorf("organizer: PlaceInHierarchy: calculating placement for %d bytes: %w", swap.Size, err)
	}

	dstIDs, err := o.placement.GetBuffers(ctx, schemas[0])
	if err != nil || len(dstIDs) == 0 {
		m.failed()
		return 0, fmt.Errorf("organizer: PlaceInHierarchy: allocating destination buffers: %w", err)
	}

	if err := o.copySwapIntoBuffers(ctx, swap, dstIDs); err != nil {
		m.failed()
		return 0, err
	}

	internalName := o.mdm.MakeInternalName(blobName, swap.BucketID)
	oldID, ok := o.mdm.Get(internalName, core.MapTypeBlobID)
	if !ok {
		m.failed()
		return 0, fmt.Errorf("organizer: PlaceInHierarchy: %w: %s", core.ErrNoSuchBlob.Error(), blobName)
	}

	newID, err := o.mdm.SetBufferIDList(core.BlobID(oldID), dstIDs)
	if err != nil {
		m.failed()
		return 0, fmt.Errorf("organizer: PlaceInHierarchy: registering rematerialized buffers for %s: %w", blobName, err)
	}

	_ = prefetch // not forwarded: placeCtx always carries PlacementPolicyMinimizeIOTime, and this package doesn't interpret hints itself.
	return newID, nil
}

// copySwapIntoBuffers streams swap's bytes from its backing swap file,
// starting at swap.Offset, across dst in order, filling each destination
// to its capacity before moving to the next.
func (o *Organizer) copySwapIntoBuffers(ctx context.Context, swap core.SwapBlob, dst []core.BufferID) error {
	path := swapFilePath(o.config.SwapFileDir, swap.NodeID)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("organizer: PlaceInHierarchy: opening swap file %s: %w", path, err)
	}
	defer f.Close()

	remaining := swap.Size
	offset := int64(swap.Offset)
	bounce := make([]byte, core.FlushBounceBufferSize)

	for _, d := range dst {
		if remaining == 0 {
			break
		}
		capacity, ok := o.bufStore.Capacity(d)
		if !ok {
			return fmt.Errorf("organizer: PlaceInHierarchy: %w: %s", core.ErrBufferNotFound.Error(), d)
		}
		toWrite := capacity
		if toWrite > remaining {
			toWrite = remaining
		}

		var written uint64
		for written < toWrite {
			n := uint64(len(bounce))
			if left := toWrite - written; n > left {
				n = left
			}
			chunk := bounce[:n]
			if _, err := f.ReadAt(chunk, offset); err != nil {
				return fmt.Errorf("organizer: PlaceInHierarchy: reading swap file at offset %d: %w", offset, err)
			}
			if err := o.bufStore.WriteBufferByID(ctx, d, chunk, int64(written)); err != nil {
				return fmt.Errorf("organizer: PlaceInHierarchy: writing %s: %w", d, err)
			}
			written += n
			offset += int64(n)
		}
		remaining -= toWrite
	}

	if remaining != 0 {
		return fmt.Errorf("organizer: PlaceInHierarchy: %d bytes of swap blob had no room across %d destination buffers", remaining, len(dst))
	}
	return nil
}

func swapFilePath(dir string, nodeID uint32) string {
	return filepath.Join(dir, fmt.Sprintf("swap-%d", nodeID))
}
