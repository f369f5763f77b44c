// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"context"
	"time"

	log "github.com/golang/glog"

	"github.com/akougkas/hermes/internal/core"
)

// capacityMonitorLoop periodically samples this node's local targets and
// emits a ViolationInfo whenever one crosses Config.MinCapacityBytes (too
// full) or Config.MaxCapacityBytes (suspiciously empty, e.g. right after a
// mass eviction), as a first-class background loop so an organizer can
// react to its own targets without an external poller.
func (o *Organizer) capacityMonitorLoop() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.config.CapacityPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			o.pollCapacities()
		}
	}
}

func (o *Organizer) pollCapacities() {
	ids := o.targets.LocalTargets()
	if len(ids) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.config.RPCDeadline)
	defer cancel()

	caps, err := o.targets.RemainingCapacities(ctx, ids)
	if err != nil {
		log.Warningf("organizer: capacity monitor: reading target capacities: %v", err)
		return
	}

	for i, id := range ids {
		remaining := caps[i]
		switch {
		case o.config.MinCapacityBytes > 0 && remaining < o.config.MinCapacityBytes:
			o.emitViolation(core.ViolationInfo{TargetID: id, Kind: core.ViolationMin, Size: remaining})
		case o.config.MaxCapacityBytes > 0 && remaining > o.config.MaxCapacityBytes:
			o.emitViolation(core.ViolationInfo{TargetID: id, Kind: core.ViolationMax, Size: remaining})
		}
	}
}

// emitViolation enqueues a capacity violation for the consumer loop,
// dropping it (with a warning) rather than blocking if the channel is
// momentarily full: a missed sample is caught at the next poll interval.
// The violations metric counts every emitted violation, dropped or not.
func (o *Organizer) emitViolation(v core.ViolationInfo) {
	select {
	case o.violations <- v:
	default:
		log.Warningf("organizer: capacity monitor: dropping violation for %s, consumer backlogged", v.TargetID)
	}
	o.metrics.violations.WithLabelValues(v.Kind.String()).Inc()
}

// violationConsumerLoop reacts to capacity violations by logging them;
// it's the seam a fuller policy (e.g. triggering targeted demotions on
// ViolationMin) would hook into without changing how violations are
// produced.
func (o *Organizer) violationConsumerLoop() {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return
		case v := <-o.violations:
			log.Infof("organizer: capacity violation: target=%s kind=%s remaining=%d", v.TargetID, v.Kind, v.Size)
		}
	}
}
