// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/golang/glog"
	"golang.org/x/sys/unix"

	"github.com/akougkas/hermes/internal/core"
)

// FlushBlob persists a blob's buffers to its backing vbucket file on disk,
// in buffer-ID-list order, using a bounded bounce buffer so flushing never
// needs to allocate memory proportional to the blob's size. destPath
// identifies the backing file; offset is where within it this blob's data
// begins.
//
// The blob's lock is held for the duration of the flush, so a concurrent
// BoMove can't relocate or free its buffers out from under a read here.
// The outstanding-flush counter for vbucket is expected to already be
// incremented by the caller (LocalEnqueueFlushingTask does this at
// enqueue time); FlushBlob only ever decrements it, on its way out.
//
// OS-level failures here (open/flock/write) are unrecoverable for the
// process's view of the filesystem and are fatal: a flush that silently
// drops bytes is worse than a crash.
func (o *Organizer) FlushBlob(ctx context.Context, blob core.BlobID, vbucket core.VBucketID, destPath string, offset int64) error {
	m := o.metrics.flush.start()
	defer m.end()

	defer func() {
		o.mdm.AdjustFlushCount(vbucket, -1)
		o.metrics.flushCounter.WithLabelValues(vbucket.String()).Set(float64(o.mdm.FlushCount(vbucket)))
	}()

	if !o.locks.LockBlob(ctx, blob) {
		m.failed()
		return fmt.Errorf("organizer: FlushBlob: could not lock %s", blob)
	}
	defer o.locks.UnlockBlob(ctx, blob)

	bufferIDs, err := o.mdm.BufferIDList(blob)
	if err != nil {
		m.failed()
		return fmt.Errorf("organizer: FlushBlob: listing buffers of %s: %w", blob, err)
	}

	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		log.Fatalf("organizer: FlushBlob: opening %s: %v", destPath, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		log.Fatalf("organizer: FlushBlob: locking %s: %v", destPath, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	bounce := make([]byte, core.FlushBounceBufferSize)
	cur := offset
	for _, id := range bufferIDs {
		n, err := o.flushOneBuffer(ctx, f, id, cur, bounce)
		if err != nil {
			m.failed()
			return fmt.Errorf("organizer: FlushBlob: %s: %w", id, err)
		}
		cur += n
	}

	return nil
}

// flushOneBuffer streams a single buffer's bytes to f at the given file
// offset through the bounce buffer, returning the number of bytes written.
func (o *Organizer) flushOneBuffer(ctx context.Context, f *os.File, id core.BufferID, fileOffset int64, bounce []byte) (int64, error) {
	size, err := o.bufferSize(ctx, id)
	if err != nil {
		return 0, err
	}

	// The ReadBuffer RPC only reads from the start of a buffer, so a remote
	// buffer is fetched whole once and then streamed from memory.
	remote := id.NodeID() != o.rpc.NodeID()
	var whole []byte
	if remote {
		whole = make([]byte, size)
		if err := o.readBuffer(ctx, id, whole); err != nil {
			return 0, fmt.Errorf("reading: %w", err)
		}
	}

	var written int64
	for remaining := size; remaining > 0; {
		n := uint64(len(bounce))
		if n > remaining {
			n = remaining
		}
		chunk := bounce[:n]
		if remote {
			copy(chunk, whole[written:])
		} else if _, err := o.bufStore.ReadBufferByID(ctx, id, chunk, written); err != nil {
			return written, fmt.Errorf("reading: %w", err)
		}
		if _, err := f.WriteAt(chunk, fileOffset+written); err != nil {
			log.Fatalf("organizer: FlushBlob: writing to backing file at offset %d: %v", fileOffset+written, err)
		}
		written += int64(n)
		remaining -= n
	}
	return written, nil
}

// FlushWaiter tracks which vbuckets a batch of asynchronous flush tasks
// touched, so AwaitAsyncFlushingTasks can block until the mdm's own
// outstanding-flush counters for those vbuckets drain to zero. The counter
// itself lives on the MetadataManager rather than on the waiter, since it's
// the same counter a peer node's BO.IncrementFlushCount RPC mutates;
// draining against it, not a private in-process count, is what makes the
// wait correct across nodes.
type FlushWaiter struct {
	mu       sync.Mutex
	cond     *sync.Cond
	vbuckets map[core.VBucketID]struct{}
}

func newFlushWaiter() *FlushWaiter {
	w := &FlushWaiter{vbuckets: make(map[core.VBucketID]struct{})}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// track records that waiter now has an outstanding task against vbucket.
func (w *FlushWaiter) track(vbucket core.VBucketID) {
	w.mu.Lock()
	w.vbuckets[vbucket] = struct{}{}
	w.mu.Unlock()
}

// wake nudges an in-progress await to re-check the mdm counters now,
// instead of waiting out the rest of its poll interval.
func (w *FlushWaiter) wake() {
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

// await blocks until every vbucket tracked by w has an outstanding-flush
// count of zero in mdm. Local task completions wake it immediately via
// cond; a 500ms ticker wakes it anyway to pick up counter changes driven
// by another node's BO.IncrementFlushCount/BO.DecrementFlushCount calls,
// which this process has no other signal for. A still-waiting log line is
// emitted every logEvery wakeups, counting ticks and local completions
// alike.
func (w *FlushWaiter) await(mdm MetadataManager, logEvery int) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.wake()
			case <-stop:
				return
			}
		}
	}()

	w.mu.Lock()
	defer w.mu.Unlock()

	ticks := 0
	for {
		vbs := make([]core.VBucketID, 0, len(w.vbuckets))
		for vb := range w.vbuckets {
			vbs = append(vbs, vb)
		}

		total := 0
		for _, vb := range vbs {
			total += mdm.FlushCount(vb)
		}
		if total == 0 {
			return
		}

		w.cond.Wait()

		ticks++
		if logEvery > 0 && ticks%logEvery == 0 {
			log.Infof("organizer: still waiting on %d outstanding flush tasks across %d vbuckets", total, len(vbs))
		}
	}
}

// LocalEnqueueFlushingTask increments vbucket's outstanding-flush counter
// and submits a FlushBlob call to the worker pool, registering vbucket
// with waiter so AwaitAsyncFlushingTasks can block on it. FlushBlob itself
// decrements the counter once the flush completes.
func (o *Organizer) LocalEnqueueFlushingTask(waiter *FlushWaiter, blob core.BlobID, vbucket core.VBucketID, destPath string, offset int64) error {
	waiter.track(vbucket)
	o.mdm.AdjustFlushCount(vbucket, 1)
	o.metrics.flushCounter.WithLabelValues(vbucket.String()).Set(float64(o.mdm.FlushCount(vbucket)))

	err := o.pool.Run(func() {
		defer waiter.wake()
		if err := o.FlushBlob(context.Background(), blob, vbucket, destPath, offset); err != nil {
			log.Warningf("organizer: async FlushBlob(%s) failed: %v", blob, err)
		}
	}, false)
	if err != nil {
		o.mdm.AdjustFlushCount(vbucket, -1)
		o.metrics.flushCounter.WithLabelValues(vbucket.String()).Set(float64(o.mdm.FlushCount(vbucket)))
		waiter.wake()
	}
	return err
}

// AwaitAsyncFlushingTasks blocks until every flush task registered against
// waiter has completed.
func (o *Organizer) AwaitAsyncFlushingTasks(waiter *FlushWaiter) {
	waiter.await(o.mdm, o.config.FlushLogEvery)
}

// NewFlushWaiter creates a waiter to pass to LocalEnqueueFlushingTask and
// AwaitAsyncFlushingTasks for a batch of related flushes (e.g. all blobs in
// one vbucket being evicted together).
func NewFlushWaiter() *FlushWaiter {
	return newFlushWaiter()
}
