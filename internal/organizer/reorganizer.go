// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"fmt"

	log "github.com/golang/glog"

	"github.com/akougkas/hermes/internal/core"
)

// OrganizeBlob is the entry point for reorganizing a single blob towards its
// importance score. bucket/blobName identify the blob; epsilon < 0 means
// "use the organizer's configured default"; importance < 0 means "look up
// the policy-assigned importance score via the metadata manager" rather
// than using a caller-supplied value.
//
// The internal name's owner hash decides whether the work happens locally
// or is forwarded by RPC to the blob's home node, mirroring how the rest
// of the metadata-addressed surface in this package routes.
func (o *Organizer) OrganizeBlob(ctx context.Context, bucket core.BucketID, blobName string, epsilon float64, importance float32) error {
	m := o.metrics.organize.start()
	defer m.end()

	internalName := o.mdm.MakeInternalName(blobName, bucket)
	owner := o.mdm.HashString(internalName)

	if owner != o.rpc.NodeID() {
		var reply struct{}
		args := organizeArgs{Bucket: bucket, BlobName: blobName, Epsilon: epsilon, Importance: importance}
		if err := o.rpc.Call(ctx, owner, WithBOPrefix("OrganizeBlob"), args, &reply); err != nil {
			m.failed()
			return fmt.Errorf("organizer: forwarding OrganizeBlob to node %d: %w", owner, err)
		}
		return nil
	}

	blobID, ok := o.mdm.Get(internalName, core.MapTypeBlobID)
	if !ok {
		m.failed()
		return core.ErrNoSuchBlob.Error()
	}

	if err := o.LocalOrganizeBlob(ctx, core.BlobID(blobID), epsilon, importance); err != nil {
		m.failed()
		return err
	}
	return nil
}

// organizeArgs is the wire shape of a forwarded OrganizeBlob call.
type organizeArgs struct {
	Bucket     core.BucketID
	BlobName   string
	Epsilon    float64
	Importance float32
}

// LocalOrganizeBlob does the actual convergence work for a blob this node
// owns: compute the blob's current access score, and if it hasn't
// converged to importance within epsilon, walk its buffers from the
// candidate most worth migrating to the least, enqueueing a BoMove for
// each buffer that has a destination and whose relocation does not
// overshoot importance by more than epsilon (a move need not bring the
// score closer to be enqueued), until either the blob converges or no
// buffer has a destination left.
//
// importance < 0 resolves to the metadata manager's policy score;
// epsilon < 0 resolves to Config.DefaultEpsilon.
func (o *Organizer) LocalOrganizeBlob(ctx context.Context, blob core.BlobID, epsilon float64, importance float32) error {
	if epsilon < 0 {
		epsilon = o.config.DefaultEpsilon
	}
	if importance < 0 {
		var err error
		importance, err = o.mdm.BlobImportanceScore(blob)
		if err != nil {
			return fmt.Errorf("organizer: resolving importance score for %s: %w", blob, err)
		}
	}

	bufferIDs, err := o.mdm.BufferIDList(blob)
	if err != nil {
		return fmt.Errorf("organizer: listing buffers of %s: %w", blob, err)
	}
	if len(bufferIDs) == 0 {
		return nil
	}

	buffers, err := o.gatherBufferInfo(ctx, bufferIDs)
	if err != nil {
		return err
	}

	access := ComputeBlobAccessScore(o.bw, buffers)
	if withinEpsilon(importance, access, epsilon) {
		return nil
	}

	var dir direction
	if importance > access {
		// Currently faster than warranted: free up fast media by demoting.
		dir = demoting
	} else {
		// Currently slower than warranted: chase the importance by promoting.
		dir = promoting
	}

	sortBufferInfo(buffers, dir)

	targets, err := o.gatherTargetInfo(ctx)
	if err != nil {
		return err
	}
	sortTargetInfo(targets, dir)

	for i := range buffers {
		if withinEpsilon(importance, access, epsilon) {
			break
		}

		src := buffers[i]
		dst, dstIdx, ok := pickDestination(targets, src)
		if !ok {
			continue
		}

		candidate := make([]core.BufferInfo, len(buffers))
		copy(candidate, buffers)
		candidate[i].BandwidthMbps = dst.BandwidthMbps
		newAccess := ComputeBlobAccessScore(o.bw, candidate)

		if !moveIsValid(importance, access, newAccess, epsilon) {
			continue
		}

		newBuf, err := o.placement.GetBuffers(ctx, core.PlacementSchema{{Bytes: src.Size, Target: dst.ID}})
		if err != nil || len(newBuf) != 1 {
			log.Warningf("organizer: %s could not allocate a destination buffer on %s: %v", blob, dst.ID, err)
			continue
		}

		if err := o.LocalEnqueueBoMove(core.MoveArgs{Src: src.ID, Dest: newBuf, Blob: blob}, core.BoPriorityLow); err != nil {
			log.Warningf("organizer: enqueueing move of %s: %v", src.ID, err)
			continue
		}

		buffers[i] = candidate[i]
		access = newAccess
		targets[dstIdx].CapacityRemaining -= src.Size
	}

	return nil
}

// gatherBufferInfo resolves BufferInfo for a mix of local and remote
// buffer IDs, fetching remote ones by RPC to their owning node.
func (o *Organizer) gatherBufferInfo(ctx context.Context, ids []core.BufferID) ([]core.BufferInfo, error) {
	infos := make([]core.BufferInfo, 0, len(ids))
	for _, id := range ids {
		if id.NodeID() == o.rpc.NodeID() {
			info, ok := o.bufStore.HeaderInfo(id)
			if !ok {
				return nil, fmt.Errorf("organizer: %w: %s", core.ErrBufferNotFound.Error(), id)
			}
			infos = append(infos, info)
			continue
		}
		var info core.BufferInfo
		if err := o.rpc.Call(ctx, id.NodeID(), WithBOPrefix("GetBufferInfo"), id, &info); err != nil {
			return nil, fmt.Errorf("organizer: fetching remote buffer info for %s: %w", id, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// gatherTargetInfo builds a TargetInfo slice for every target this node
// hosts, including its current remaining capacity.
func (o *Organizer) gatherTargetInfo(ctx context.Context) ([]core.TargetInfo, error) {
	ids := o.targets.LocalTargets()
	if len(ids) == 0 {
		return nil, nil
	}
	bws := o.targets.Bandwidths(ids)
	caps, err := o.targets.RemainingCapacities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("organizer: reading target capacities: %w", err)
	}
	out := make([]core.TargetInfo, len(ids))
	for i, id := range ids {
		out[i] = core.TargetInfo{ID: id, BandwidthMbps: bws[i], CapacityRemaining: caps[i]}
	}
	return out, nil
}

// pickDestination returns the first target (in the caller's preferred
// order) with room for src and a different bandwidth than src's current
// target, along with its index so the caller can debit its capacity.
func pickDestination(targets []core.TargetInfo, src core.BufferInfo) (core.TargetInfo, int, bool) {
	for i, t := range targets {
		if t.BandwidthMbps == src.BandwidthMbps {
			continue
		}
		if t.CapacityRemaining < src.Size {
			continue
		}
		return t, i, true
	}
	return core.TargetInfo{}, -1, false
}

// moveIsValid reports whether relocating a buffer so the blob's access
// score becomes newAccess should be enqueued. A move is valid by default;
// it's rejected only when it would carry the access score past importance
// on the far side by more than epsilon, i.e. it overshoots.
func moveIsValid(importance, access, newAccess float32, epsilon float64) bool {
	before := float64(access) - float64(importance)
	after := float64(newAccess) - float64(importance)
	if before == 0 || (before > 0) == (after > 0) {
		return true
	}
	overshoot := after
	if overshoot < 0 {
		overshoot = -overshoot
	}
	return overshoot <= epsilon
}

// EnqueueOrganize implements TaskSink for the metadata manager: it asks
// that blob be reorganized at low priority as soon as a worker is free,
// without blocking the caller on completion.
func (o *Organizer) EnqueueOrganize(bucket core.BucketID, blobName string, epsilon float64, importance float32) {
	err := o.pool.Run(func() {
		if err := o.OrganizeBlob(context.Background(), bucket, blobName, epsilon, importance); err != nil {
			log.Warningf("organizer: background OrganizeBlob(%s) failed: %v", blobName, err)
		}
	}, false)
	if err != nil {
		log.Warningf("organizer: dropping OrganizeBlob(%s) request, queue full: %v", blobName, err)
	}
}
