// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	callResultSuccess  = "success"
	callResultRejected = "rejected"
	callResultError    = "error"
)

type stateMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	deploysTotal *prometheus.CounterVec
	contracts    prometheus.Gauge
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	// promauto.With(nil) creates unregistered collectors
	promautoFactory := promauto.With(promRegistry)
	m.callsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegat_ledger_calls_total",
			Help: "contract calls by kind, function and result",
		},
		[]string{"contract_kind", "function", "result"},
	)
	m.callDuration = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delegat_ledger_call_duration_seconds",
			Help:    "time to execute and commit a contract call",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"contract_kind"},
	)
	m.deploysTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegat_ledger_deploys_total",
			Help: "deployed contracts by kind",
		},
		[]string{"contract_kind"},
	)
	m.contracts = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "delegat_ledger_contracts",
		Help: "number of deployed contracts",
	})
}
