// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"sync"

	"github.com/akougkas/hermes/internal/core"
)

// localBlobLock provides in-process exclusive access to a blob: at most
// one reorganizer may mutate a given blob at a time. It's the single-node
// building block a distributed LockManager implementation uses for the
// local half of LockBlob/UnlockBlob; routing to a blob's home node is the
// collaborator's job, not this package's.
//
// Adapted from FineGrainedLock, narrowed to blobs only since this package
// has no notion of tracts.
type localBlobLock struct {
	mu     sync.Mutex
	cond   sync.Cond
	locked map[core.BlobID]bool
}

func newLocalBlobLock() *localBlobLock {
	l := &localBlobLock{locked: make(map[core.BlobID]bool)}
	l.cond.L = &l.mu
	return l
}

// Lock blocks until id is not held, then marks it held.
func (l *localBlobLock) Lock(id core.BlobID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.locked[id] {
		l.cond.Wait()
	}
	l.locked[id] = true
}

// TryLock attempts to acquire id without blocking.
func (l *localBlobLock) TryLock(id core.BlobID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked[id] {
		return false
	}
	l.locked[id] = true
	return true
}

// Unlock releases id. Panics if id wasn't held, since that's always a
// programming error in this package's own callers.
func (l *localBlobLock) Unlock(id core.BlobID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.locked[id] {
		panic("organizer: unlocking a blob that wasn't locked")
	}
	delete(l.locked, id)
	l.cond.Broadcast()
}

// LocalLockManager is a LockManager for a single-node deployment, or for
// tests, where every blob this process handles is known to be owned
// locally and there's no need to route a lock request to another node.
type LocalLockManager struct {
	locks *localBlobLock
}

// NewLocalLockManager constructs a LockManager backed by an in-process
// lock table only.
func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{locks: newLocalBlobLock()}
}

// LockBlob always succeeds; it blocks until the lock is free.
func (m *LocalLockManager) LockBlob(ctx context.Context, id core.BlobID) bool {
	m.locks.Lock(id)
	return true
}

// UnlockBlob releases a lock acquired by LockBlob.
func (m *LocalLockManager) UnlockBlob(ctx context.Context, id core.BlobID) {
	m.locks.Unlock(id)
}
