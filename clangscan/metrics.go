// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clangscan

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan results used as the "result" label.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

// Metrics are counters of a scan service.
type Metrics struct {
	Scans               *prometheus.CounterVec
	ModulesBridged      prometheus.Counter
	RoundTripFailures   prometheus.Counter
	BridgingHeaderScans *prometheus.CounterVec
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modbridge",
			Name:      "module_scans_total",
			Help:      "Number of clang module dependency scans by result.",
		}, []string{"result"}),
		ModulesBridged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbridge",
			Name:      "modules_bridged_total",
			Help:      "Number of clang modules bridged into host module records.",
		}),
		RoundTripFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbridge",
			Name:      "round_trip_failures_total",
			Help:      "Number of scanner command lines clang failed to parse.",
		}),
		BridgingHeaderScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modbridge",
			Name:      "bridging_header_scans_total",
			Help:      "Number of bridging header dependency scans by result.",
		}, []string{"result"}),
	}
}

// Register registers the metrics to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	var errs []error
	for _, c := range []prometheus.Collector{m.Scans, m.ModulesBridged, m.RoundTripFailures, m.BridgingHeaderScans} {
		errs = append(errs, r.Register(c))
	}
	return errors.Join(errs...)
}
