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

type runtimeMetrics struct {
	operations       prometheus.Counter
	failures         *prometheus.CounterVec
	recordsCreated   *prometheus.CounterVec
	recordsDestroyed *prometheus.CounterVec
	depositsReserved prometheus.Counter
	depositsReleased prometheus.Counter
}

// newRuntimeMetrics registers the metrics with registry. A nil registry
// yields working but unregistered collectors.
func newRuntimeMetrics(registry prometheus.Registerer) *runtimeMetrics {
	factory := promauto.With(registry)
	return &runtimeMetrics{
		operations: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleledger_ledger_operations_total",
			Help: "committed ledger operations",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleledger_ledger_operation_failures_total",
			Help: "rejected ledger operations by error kind and code",
		}, []string{"kind", "code"}),
		recordsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleledger_ledger_records_created_total",
			Help: "records created by domain",
		}, []string{"domain"}),
		recordsDestroyed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleledger_ledger_records_destroyed_total",
			Help: "records destroyed by domain",
		}, []string{"domain"}),
		depositsReserved: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleledger_ledger_deposits_reserved_total",
			Help: "storage deposit units reserved",
		}),
		depositsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleledger_ledger_deposits_released_total",
			Help: "storage deposit units released",
		}),
	}
}

func (m *runtimeMetrics) observeFailure(err error) {
	kind, ok := KindOf(err)
	if !ok {
		m.failures.WithLabelValues("context", "").Inc()
		return
	}
	m.failures.WithLabelValues(kind.String(), CodeOf(err)).Inc()
}
