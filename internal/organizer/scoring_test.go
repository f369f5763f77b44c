// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akougkas/hermes/internal/core"
)

func TestNormalizeAccessScoreBounds(t *testing.T) {
	bw := BandwidthRange{Min: 100, Max: 1000}

	// A rawScore equal to sizeMB*Min (the formula's min_seconds)
	// normalizes to 0.
	assert.InDelta(t, 0, NormalizeAccessScore(10, bw, 10*bw.Min), 1e-6)
	// A rawScore equal to sizeMB*Max (the formula's max_seconds)
	// normalizes to 1.
	assert.InDelta(t, 1, NormalizeAccessScore(10, bw, 10*bw.Max), 1e-6)
}

func TestComputeBlobAccessScoreSingleBuffer(t *testing.T) {
	bw := BandwidthRange{Min: 100, Max: 1000}
	buffers := []core.BufferInfo{
		{Size: 100 * core.MB, BandwidthMbps: 550},
	}
	// The raw score is 100/550 seconds, normalized against
	// [100*Min, 100*Max] = [10000, 100000]: just below 0, near
	// -Min/(Max-Min) = -0.111, not at the midpoint of [0, 1].
	got := ComputeBlobAccessScore(bw, buffers)
	assert.InDelta(t, (100.0/550-100*100)/(100*1000-100*100), got, 1e-4)
}

func TestWithinEpsilon(t *testing.T) {
	assert.True(t, withinEpsilon(0.5, 0.52, 0.05))
	assert.False(t, withinEpsilon(0.5, 0.6, 0.05))
	assert.True(t, withinEpsilon(0.5, 0.4999999, 0.0001))
}

func TestSortBufferInfoDemotingFastestFirst(t *testing.T) {
	buffers := []core.BufferInfo{
		{ID: 1, BandwidthMbps: 100, Size: 10},
		{ID: 2, BandwidthMbps: 900, Size: 10},
		{ID: 3, BandwidthMbps: 500, Size: 10},
	}
	sortBufferInfo(buffers, demoting)
	assert.Equal(t, []core.BufferID{2, 3, 1}, ids(buffers))
}

func TestSortBufferInfoPromotingSlowestFirst(t *testing.T) {
	buffers := []core.BufferInfo{
		{ID: 1, BandwidthMbps: 100, Size: 10},
		{ID: 2, BandwidthMbps: 900, Size: 10},
		{ID: 3, BandwidthMbps: 500, Size: 10},
	}
	sortBufferInfo(buffers, promoting)
	assert.Equal(t, []core.BufferID{1, 3, 2}, ids(buffers))
}

func TestSortBufferInfoTiesBreakByDescendingSize(t *testing.T) {
	buffers := []core.BufferInfo{
		{ID: 1, BandwidthMbps: 500, Size: 10},
		{ID: 2, BandwidthMbps: 500, Size: 30},
		{ID: 3, BandwidthMbps: 500, Size: 20},
	}
	sortBufferInfo(buffers, demoting)
	assert.Equal(t, []core.BufferID{2, 3, 1}, ids(buffers))
}

func TestSortTargetInfo(t *testing.T) {
	targets := []core.TargetInfo{
		{ID: 1, BandwidthMbps: 100},
		{ID: 2, BandwidthMbps: 900},
		{ID: 3, BandwidthMbps: 500},
	}
	sortTargetInfo(targets, demoting)
	assert.Equal(t, []core.TargetID{1, 3, 2}, targetIDs(targets))

	sortTargetInfo(targets, promoting)
	assert.Equal(t, []core.TargetID{2, 3, 1}, targetIDs(targets))
}

func ids(buffers []core.BufferInfo) []core.BufferID {
	out := make([]core.BufferID, len(buffers))
	for i, b := range buffers {
		out[i] = b.ID
	}
	return out
}

func targetIDs(targets []core.TargetInfo) []core.TargetID {
	out := make([]core.TargetID, len(targets))
	for i, tg := range targets {
		out[i] = tg.ID
	}
	return out
}
