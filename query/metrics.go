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

package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type scannerMetrics struct {
	scans   prometheus.Counter
	skipped prometheus.Counter
}

func (m *scannerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.scans = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "medifund_query_scans_total",
		Help: "Total number of campaign script address scans",
	})
	m.skipped = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "medifund_query_skipped_outputs_total",
		Help: "Total number of script outputs skipped due to an undecodable datum",
	})
}
