// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes Prometheus instrumentation for the link manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansRun counts completed wireless scan cycles per interface.
	ScansRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkmgr",
		Subsystem: "scan",
		Name:      "cycles_total",
		Help:      "Completed wireless scan cycles.",
	}, []string{"iface"})

	// ScanFailures counts scan cycles that produced no results.
	ScanFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkmgr",
		Subsystem: "scan",
		Name:      "failures_total",
		Help:      "Scan cycles that failed or returned no data.",
	}, []string{"iface"})

	// VisibleAPs tracks the size of the device-visible access point list.
	VisibleAPs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "linkmgr",
		Subsystem: "scan",
		Name:      "visible_aps",
		Help:      "Access points currently visible to the device.",
	}, []string{"iface"})

	// ActivationAttempts counts activation workers started.
	ActivationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkmgr",
		Subsystem: "activation",
		Name:      "attempts_total",
		Help:      "Activation workers started.",
	}, []string{"iface"})

	// ActivationResults counts activation outcomes by result.
	ActivationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkmgr",
		Subsystem: "activation",
		Name:      "results_total",
		Help:      "Activation outcomes.",
	}, []string{"iface", "result"})

	// ActivationPhase reports the current phase of each device's
	// activation as an enum gauge.
	ActivationPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "linkmgr",
		Subsystem: "activation",
		Name:      "phase",
		Help:      "Current activation phase (enum index).",
	}, []string{"iface"})

	// AuthFallbacks counts drops down the authentication ladder.
	AuthFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkmgr",
		Subsystem: "activation",
		Name:      "auth_fallbacks_total",
		Help:      "Authentication mode fallbacks during association.",
	}, []string{"iface"})
)
