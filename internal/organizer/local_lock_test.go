// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akougkas/hermes/internal/core"
)

func TestLocalBlobLockTryLockFailsWhileHeld(t *testing.T) {
	l := newLocalBlobLock()
	id := core.BlobID(1)

	assert.True(t, l.TryLock(id))
	assert.False(t, l.TryLock(id))

	l.Unlock(id)
	assert.True(t, l.TryLock(id))
}

func TestLocalBlobLockLockBlocksUntilUnlock(t *testing.T) {
	l := newLocalBlobLock()
	id := core.BlobID(1)
	l.Lock(id)

	acquired := make(chan struct{})
	go func() {
		l.Lock(id)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned before the first Unlock")
	case <-time.After(50 * time.Millisecond):
	}

	l.Unlock(id)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired after Unlock")
	}
}

func TestLocalBlobLockUnlockWithoutHoldingPanics(t *testing.T) {
	l := newLocalBlobLock()
	assert.Panics(t, func() { l.Unlock(core.BlobID(1)) })
}

func TestLocalLockManagerLockBlobAndUnlockBlob(t *testing.T) {
	m := NewLocalLockManager()
	ctx := context.Background()
	id := core.BlobID(42)

	require.True(t, m.LockBlob(ctx, id))

	unblocked := make(chan struct{})
	go func() {
		m.LockBlob(ctx, id)
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("second LockBlob returned before UnlockBlob")
	case <-time.After(50 * time.Millisecond):
	}

	m.UnlockBlob(ctx, id)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("second LockBlob never unblocked")
	}
}
