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

package staking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stakingMetrics struct {
	operations    *prometheus.CounterVec
	distributions prometheus.Counter
}

func (m *stakingMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.operations = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_staking_operations_total",
			Help: "total committed staking operations by kind",
		},
		[]string{"operation"},
	)
	m.distributions = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "causeway_staking_unallocated_distributions_total",
		Help: "total distributions received while nothing was staked",
	})
}
