// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package organizer

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// opMetric wraps a CounterVec/SummaryVec/GaugeVec trio to track counts and
// latencies for organizer operations, adapted from the pack's
// server.OpMetric. It's created once per operation family (OrganizeBlob,
// BoMove, FlushBlob, PlaceInHierarchy) and Start/End bracket each call.
type opMetric struct {
	name      string
	counters  *prometheus.CounterVec
	latencies *prometheus.SummaryVec
	pending   *prometheus.GaugeVec
}

func newOpMetric(name string, labels ...string) *opMetric {
	labelsWithResult := append([]string{"result"}, labels...)
	return &opMetric{
		name:      name,
		counters:  promauto.NewCounterVec(prometheus.CounterOpts{Name: name}, labelsWithResult),
		latencies: promauto.NewSummaryVec(prometheus.SummaryOpts{Name: name + "_latency"}, labels),
		pending:   promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name + "_pending"}, labels),
	}
}

// start marks the beginning of an operation and returns a measurer. Only
// the first of its end/failed calls is recorded; later calls are ignored,
// so a failed() followed by a deferred end() records "failed".
func (m *opMetric) start(values ...string) *opMeasurer {
	lm := &opMeasurer{opm: m, values: values, startNs: time.Now().UnixNano()}
	m.pending.WithLabelValues(values...).Inc()
	return lm
}

// count returns how many times start has produced the given result.
func (m *opMetric) count(result string, values ...string) uint64 {
	v := append([]string{result}, values...)
	var out dto.Metric
	if m.counters.WithLabelValues(v...).Write(&out) != nil {
		return 0
	}
	return uint64(out.Counter.GetValue())
}

type opMeasurer struct {
	opm     *opMetric
	values  []string
	startNs int64
	done    bool
}

// end records the elapsed time and an "all" result.
func (lm *opMeasurer) end() {
	lm.result("all")
}

// failed records a "failed" result instead of "all".
func (lm *opMeasurer) failed() {
	lm.result("failed")
}

func (lm *opMeasurer) result(result string) {
	if lm.done {
		return
	}
	lm.done = true
	v := append([]string{result}, lm.values...)
	lm.opm.counters.WithLabelValues(v...).Inc()
	d := time.Duration(time.Now().UnixNano() - lm.startNs)
	lm.opm.latencies.WithLabelValues(lm.values...).Observe(d.Seconds())
	lm.opm.pending.WithLabelValues(lm.values...).Dec()
}

// metrics bundles the organizer's operation metrics, plus capacity and
// flush-counter gauges.
type metrics struct {
	organize     *opMetric
	move         *opMetric
	flush        *opMetric
	placeInHier  *opMetric
	violations   *prometheus.CounterVec
	flushCounter *prometheus.GaugeVec
}

func newMetrics(prefix string) *metrics {
	return &metrics{
		organize:    newOpMetric(fmt.Sprintf("%s_organize_blob", prefix)),
		move:        newOpMetric(fmt.Sprintf("%s_move", prefix)),
		flush:       newOpMetric(fmt.Sprintf("%s_flush_blob", prefix)),
		placeInHier: newOpMetric(fmt.Sprintf("%s_place_in_hierarchy", prefix)),
		violations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_capacity_violations_total", prefix),
		}, []string{"kind"}),
		flushCounter: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_outstanding_flushes", prefix),
		}, []string{"vbucket"}),
	}
}
