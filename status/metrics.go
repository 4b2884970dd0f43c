// metrics.go - Prometheus instrumentation for command handling.
// Copyright (C) 2026  Decoder Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the decoder's command-handling counters and gauges. None
// of this is security-relevant: it exists purely so a hosted decoder
// process can be observed the way any other long-running Go service is.
type Metrics struct {
	CommandsTotal    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	TransactionTime  prometheus.Histogram
	SubscriptionSlot prometheus.Gauge
}

// NewMetrics registers and returns a fresh Metrics set against the
// default Prometheus registry, the way a single long-running decoder
// process does it once at startup.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers against reg instead of the default
// registry, so tests can use a fresh prometheus.NewRegistry() per case
// rather than colliding on repeated registration of the same metric
// names.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decoder_commands_total",
				Help: "Total number of host-link commands handled, by command byte.",
			},
			[]string{"command"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decoder_errors_total",
				Help: "Total number of commands that ended in an error response, by command byte.",
			},
			[]string{"command"},
		),
		TransactionTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decoder_transaction_duration_seconds",
				Help:    "Wall-clock duration of a full command transaction, including any timing-floor wait.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SubscriptionSlot: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "decoder_subscription_slots_used",
				Help: "Number of the fixed subscription table's slots currently occupied.",
			},
		),
	}
}

// RecordCommand records that cmd was handled, successfully or not.
func (m *Metrics) RecordCommand(cmd string, failed bool, duration float64) {
	m.CommandsTotal.WithLabelValues(cmd).Inc()
	if failed {
		m.ErrorsTotal.WithLabelValues(cmd).Inc()
	}
	m.TransactionTime.Observe(duration)
}

// SetSubscriptionSlotsUsed updates the occupied-slot gauge.
func (m *Metrics) SetSubscriptionSlotsUsed(n int) {
	m.SubscriptionSlot.Set(float64(n))
}
