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

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const blobMetricNamePrefix = "causeway_database_blob_"

type blobMetrics struct {
	reads      prometheus.Counter
	writes     prometheus.Counter
	deletes    prometheus.Counter
	gcRewrites prometheus.Counter
}

func (m *blobMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.reads = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: blobMetricNamePrefix + "reads_total",
		Help: "total number of blob keys read",
	})
	m.writes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: blobMetricNamePrefix + "writes_total",
		Help: "total number of blob keys written",
	})
	m.deletes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: blobMetricNamePrefix + "deletes_total",
		Help: "total number of blob keys deleted",
	})
	m.gcRewrites = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: blobMetricNamePrefix + "gc_rewrites_total",
		Help: "total number of value log files rewritten by GC",
	})
}
