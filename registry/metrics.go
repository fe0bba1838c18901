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

package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type registryMetrics struct {
	operations  *prometheus.CounterVec
	deployments prometheus.Counter
	queueLength *prometheus.GaugeVec
}

func (m *registryMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.operations = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_registry_operations_total",
			Help: "total committed registry operations by kind",
		},
		[]string{"operation"},
	)
	m.deployments = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "causeway_registry_wallet_deployments_total",
		Help: "total custodial wallets deployed",
	})
	m.queueLength = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "causeway_registry_queue_length",
			Help: "pending withdrawal proposals per cause",
		},
		[]string{"cause"},
	)
}
