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

package clearinghouse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clearingHouseMetrics struct {
	swaps         *prometheus.CounterVec
	kycChecks     *prometheus.CounterVec
	policyUpdates prometheus.Counter
	paused        prometheus.Gauge
}

func (m *clearingHouseMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.swaps = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_clearinghouse_swaps_total",
			Help: "total committed swaps by kind",
		},
		[]string{"kind"},
	)
	m.kycChecks = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_clearinghouse_kyc_checks_total",
			Help: "total KYC approval checks by result",
		},
		[]string{"result"},
	)
	m.policyUpdates = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "causeway_clearinghouse_policy_updates_total",
		Help: "total child DAO registrations and policy changes",
	})
	m.paused = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "causeway_clearinghouse_paused",
		Help: "whether conversions are paused",
	})
}
