// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"fmt"

	log "github.com/golang/glog"

	"github.com/akougkas/hermes/internal/core"
)

// LocalEnqueueBoTask submits a fully-formed task to this node's worker
// pool, dispatching on t.Op.
func (o *Organizer) LocalEnqueueBoTask(t core.BoTask) error {
	switch t.Op {
	case core.BoOperationMove:
		return o.LocalEnqueueBoMove(t.Move, t.Priority)
	case core.BoOperationCopy:
		return o.localEnqueueBoCopy(t.Copy, t.Priority)
	case core.BoOperationDelete:
		return o.localEnqueueBoDelete(t.Delete, t.Priority)
	default:
		invalidCodePath("LocalEnqueueBoTask")
		return nil
	}
}

// LocalEnqueueBoMove submits a move to the worker pool at the given
// priority. The move itself runs asynchronously on a pool worker; the
// reorganizer driver loop fires moves and moves on without waiting for
// them to complete.
func (o *Organizer) LocalEnqueueBoMove(args core.MoveArgs, priority core.BoPriority) error {
	return o.pool.Run(func() {
		if err := o.BoMove(context.Background(), args); err != nil {
			log.Warningf("organizer: BoMove(%s -> %v) failed: %v", args.Src, args.Dest, err)
		}
	}, priority == core.BoPriorityHigh)
}

func (o *Organizer) localEnqueueBoCopy(args core.CopyArgs, priority core.BoPriority) error {
	return o.pool.Run(func() {
		if err := o.BoCopy(context.Background(), args); err != nil {
			log.Warningf("organizer: BoCopy(%s -> %s) failed: %v", args.Src, args.Dest, err)
		}
	}, priority == core.BoPriorityHigh)
}

func (o *Organizer) localEnqueueBoDelete(args core.DeleteArgs, priority core.BoPriority) error {
	return o.pool.Run(func() {
		if err := o.BoDelete(args); err != nil {
			log.Warningf("organizer: BoDelete(%s) failed: %v", args.Src, err)
		}
	}, priority == core.BoPriorityHigh)
}

// BoCopy duplicates Src's contents onto a freshly allocated buffer on
// Dest, without touching any blob's buffer-ID list. It's used to realize
// a replica rather than to relocate a blob's canonical copy. Only success
// or failure is reported; the new buffer's ID is not returned.
func (o *Organizer) BoCopy(ctx context.Context, args core.CopyArgs) error {
	info, ok := o.bufStore.HeaderInfo(args.Src)
	if !ok {
		return fmt.Errorf("organizer: BoCopy: %w: %s", core.ErrBufferNotFound.Error(), args.Src)
	}
	size := info.Size

	schema := core.PlacementSchema{{Bytes: size, Target: args.Dest}}
	dstIDs, err := o.placement.GetBuffers(ctx, schema)
	if err != nil || len(dstIDs) != 1 {
		return fmt.Errorf("organizer: BoCopy: allocating destination on %s: %w", args.Dest, err)
	}

	buf := make([]byte, size)
	if _, err := o.bufStore.ReadBufferByID(ctx, args.Src, buf, 0); err != nil {
		return fmt.Errorf("organizer: BoCopy: reading %s: %w", args.Src, err)
	}
	if err := o.bufStore.WriteBufferByID(ctx, dstIDs[0], buf, 0); err != nil {
		return fmt.Errorf("organizer: BoCopy: writing %s: %w", dstIDs[0], err)
	}
	return nil
}

// BoDelete releases Src back to its target's free list. Safe to call only
// once the caller has established that no blob still references Src.
func (o *Organizer) BoDelete(args core.DeleteArgs) error {
	if err := o.bufStore.Free(args.Src); err != nil {
		return fmt.Errorf("organizer: BoDelete: freeing %s: %w", args.Src, err)
	}
	return nil
}
