// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"fmt"
	"time"

	"github.com/akougkas/hermes/pkg/slices"
)

// reservedMetricPrefixes are names already used by other processes in a
// deployment (the metadata manager, placement engine); reusing one here
// would collide in a shared Prometheus registry.
var reservedMetricPrefixes = []string{"hermes_md", "hermes_placement", "hermes_fsadapter"}

// Config encapsulates parameters for the Organizer.
type Config struct {
	// NumWorkers is the size of the task worker pool.
	NumWorkers int

	// QueueDepth bounds each of the pool's two priority queues. 0 means
	// unbounded.
	QueueDepth int

	// MinDeviceBWMbps and MaxDeviceBWMbps are the system-wide device
	// bandwidth range access scores are normalized against.
	MinDeviceBWMbps float32
	MaxDeviceBWMbps float32

	// DefaultEpsilon is the convergence tolerance used when a caller of
	// OrganizeBlob doesn't supply one.
	DefaultEpsilon float64

	// MoveBytesPerSec bounds how fast BoMove writes moved bytes into
	// destination buffers, 0 disables throttling. Mirrors the curator's per-purpose token
	// buckets (rsEncodeBwLim, recoveryBwLim).
	MoveBytesPerSec float32

	// CapacityPollInterval is how often the capacity monitor samples
	// target capacities.
	CapacityPollInterval time.Duration

	// MinCapacityBytes / MaxCapacityBytes bound the remaining capacity a
	// target is expected to stay within; crossing either emits a
	// ViolationInfo.
	MinCapacityBytes uint64
	MaxCapacityBytes uint64

	// FlushLogEvery is how many wakeups (500ms polling ticks and local task
	// completions alike) AwaitAsyncFlushingTasks waits through between log
	// lines about remaining outstanding flushes.
	FlushLogEvery int

	// RPCDeadline bounds a single outgoing RPC from this node's organizer.
	RPCDeadline time.Duration

	// RPCDialTimeout bounds connecting to a peer node.
	RPCDialTimeout time.Duration

	// RPCConnCacheSize bounds how many peer connections are kept open.
	RPCConnCacheSize int

	// MetricPrefix is prepended to every Prometheus metric name this
	// package registers, so multiple Organizer instances in one process
	// (e.g. in tests) don't collide.
	MetricPrefix string

	// SwapFileDir is the directory holding this node's swap files, one per
	// node id, that PlaceInHierarchy reads evicted blobs back from.
	SwapFileDir string
}

// Validate validates that the configuration has reasonable (not obviously
// wrong) values.
func (c *Config) Validate() error {
	if c.NumWorkers <= 0 {
		return fmt.Errorf("organizer: NumWorkers must be positive, got %d", c.NumWorkers)
	}
	if c.MaxDeviceBWMbps <= c.MinDeviceBWMbps {
		return fmt.Errorf("organizer: MaxDeviceBWMbps (%f) must exceed MinDeviceBWMbps (%f)", c.MaxDeviceBWMbps, c.MinDeviceBWMbps)
	}
	if c.DefaultEpsilon <= 0 {
		return fmt.Errorf("organizer: DefaultEpsilon must be positive, got %f", c.DefaultEpsilon)
	}
	if slices.ContainsString(reservedMetricPrefixes, c.MetricPrefix) {
		return fmt.Errorf("organizer: MetricPrefix %q is reserved for another component", c.MetricPrefix)
	}
	return nil
}

// DefaultProdConfig specifies default values for Config used in production.
var DefaultProdConfig = Config{
	NumWorkers:           16,
	QueueDepth:           0,
	MinDeviceBWMbps:      100,
	MaxDeviceBWMbps:      6000,
	DefaultEpsilon:       0.05,
	MoveBytesPerSec:      0,
	CapacityPollInterval: 30 * time.Second,
	MinCapacityBytes:     1 << 30, // 1GB
	MaxCapacityBytes:     0,       // 0 disables the max check by default
	FlushLogEvery:        10,
	RPCDeadline:          30 * time.Second,
	RPCDialTimeout:       10 * time.Second,
	RPCConnCacheSize:     100,
	MetricPrefix:         "hermes_bo",
	SwapFileDir:          "/var/lib/hermes/swap",
}

// DefaultTestConfig specifies default values for Config used in tests:
// smaller pools, tighter polling, so tests run fast.
var DefaultTestConfig = Config{
	NumWorkers:           4,
	QueueDepth:           1000,
	MinDeviceBWMbps:      100,
	MaxDeviceBWMbps:      1000,
	DefaultEpsilon:       0.05,
	MoveBytesPerSec:      0,
	CapacityPollInterval: 50 * time.Millisecond,
	MinCapacityBytes:     1 << 20,
	MaxCapacityBytes:     0,
	FlushLogEvery:        10,
	RPCDeadline:          time.Second,
	RPCDialTimeout:       time.Second,
	RPCConnCacheSize:     10,
	MetricPrefix:         "hermes_bo_test",
	SwapFileDir:          "",
}
