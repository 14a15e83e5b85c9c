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

package governance

import (
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	votesCreated   prometheus.Counter
	votesFinalized prometheus.Counter
	ballotsCast    *prometheus.CounterVec
	votePower      *prometheus.CounterVec
	castsRejected  *prometheus.CounterVec
}

func newEngineMetrics(registry prometheus.Registerer) *engineMetrics {
	factory := promauto.With(registry)
	return &engineMetrics{
		votesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleledger_governance_votes_created_total",
			Help: "votes created",
		}),
		votesFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleledger_governance_votes_finalized_total",
			Help: "votes finalized",
		}),
		ballotsCast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleledger_governance_ballots_cast_total",
			Help: "ballots cast by weight class",
		}, []string{"weight"}),
		votePower: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleledger_governance_vote_power_total",
			Help: "vote power tallied by weight class",
		}, []string{"weight"}),
		castsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleledger_governance_casts_rejected_total",
			Help: "rejected casts by error code",
		}, []string{"code"}),
	}
}

func (m *engineMetrics) observeCast(nft bool, power uint64) {
	weight := "regular"
	if nft {
		weight = "nft"
	}
	m.ballotsCast.WithLabelValues(weight).Inc()
	m.votePower.WithLabelValues(weight).Add(float64(power))
}

func (m *engineMetrics) observeRejectedCast(err error) {
	code := ledger.CodeOf(err)
	if code == "" {
		code = "other"
	}
	m.castsRejected.WithLabelValues(code).Inc()
}
