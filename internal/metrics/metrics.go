// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package metrics exposes Prometheus instruments for save and load operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "savestate"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	saves        *prometheus.CounterVec
	loads        *prometheus.CounterVec
	stale        prometheus.Counter
	unitRestores *prometheus.CounterVec
	payloadBytes prometheus.Histogram
	duration     *prometheus.HistogramVec
}

// NewMetrics constructs the instruments and registers them against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Save operations by outcome.",
			},
			[]string{"outcome"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Load operations by outcome.",
			},
			[]string{"outcome"},
		),
		stale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_responses_total",
				Help:      "Load responses discarded because a newer request superseded them.",
			},
		),
		unitRestores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unit_restores_total",
				Help:      "Persistent unit restores by result.",
			},
			[]string{"result"},
		),
		payloadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payload_bytes",
				Help:      "Size of encoded save payloads.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_seconds",
				Help:      "Duration of save, load and import operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.saves, m.loads, m.stale, m.unitRestores, m.payloadBytes, m.duration)
	return m
}

func (m *Metrics) ObserveSave(outcome string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLoad(outcome string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.stale.Inc()
}

// ObserveUnitRestore counts one unit as "applied" or "skipped".
func (m *Metrics) ObserveUnitRestore(result string) {
	if m == nil {
		return
	}
	m.unitRestores.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePayload(size int) {
	if m == nil {
		return
	}
	m.payloadBytes.Observe(float64(size))
}

func (m *Metrics) ObserveDuration(op string, d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// SavesCounter exposes the save counter for tests and diagnostics.
func (m *Metrics) SavesCounter(outcome string) prometheus.Counter {
	return m.saves.WithLabelValues(outcome)
}

// LoadsCounter exposes the load counter for tests and diagnostics.
func (m *Metrics) LoadsCounter(outcome string) prometheus.Counter {
	return m.loads.WithLabelValues(outcome)
}

func (m *Metrics) StaleCounter() prometheus.Counter {
	return m.stale
}

func (m *Metrics) UnitRestoresCounter(result string) prometheus.Counter {
	return m.unitRestores.WithLabelValues(result)
}
