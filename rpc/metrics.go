// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK        = "ok"
	outcomeTransport = "transport"
	outcomeProtocol  = "protocol"
	outcomeDecode    = "decode"
	outcomeEncoding  = "encoding"
)

// Metrics holds the Prometheus collectors of a client.
type Metrics struct {
	// Calls counts finished calls by method and outcome.
	Calls *prometheus.CounterVec

	// Duration observes the wall time of calls by method.
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the client collectors and registers them with the given
// registerer. A nil registerer uses the default Prometheus registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bitcoind",
				Subsystem: "rpc",
				Name:      "calls_total",
				Help:      "The total number of JSON-RPC calls",
			},
			[]string{"method", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bitcoind",
				Subsystem: "rpc",
				Name:      "call_duration_seconds",
				Help:      "The duration of JSON-RPC calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// observe records a finished call. It is a no-op on a nil receiver.
func (m *Metrics) observe(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.Calls.WithLabelValues(method, outcome(err)).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
