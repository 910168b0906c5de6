// Copyright 2026 Blink Labs Software
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

package txbuilder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type builderMetrics struct {
	builds   *prometheus.CounterVec
	failures *prometheus.CounterVec
	fees     prometheus.Histogram
}

func (m *builderMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.builds = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medifund_txbuilder_builds_total",
			Help: "Total number of transactions built",
		},
		[]string{"action"},
	)
	m.failures = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medifund_txbuilder_failures_total",
			Help: "Total number of failed transaction builds",
		},
		[]string{"action"},
	)
	m.fees = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "medifund_txbuilder_fee_lovelace",
		Help:    "Fee of built transactions in lovelace",
		Buckets: prometheus.ExponentialBuckets(150_000, 2, 8),
	})
}
