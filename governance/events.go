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
	"github.com/blinklabs-io/taleledger/event"
	"github.com/blinklabs-io/taleledger/ledger"
)

const (
	VoteCreatedEventType   event.EventType = "governance.vote.created"
	VoteCastEventType      event.EventType = "governance.vote.cast"
	VoteFinalizedEventType event.EventType = "governance.vote.finalized"
)

type VoteCreatedEvent struct {
	Vote     ledger.Address
	Creator  ledger.Address
	VotingId string
	Choices  int
	Gated    bool
}

type VoteCastEvent struct {
	Vote   ledger.Address
	Voter  ledger.Address
	Choice uint8
	Power  uint64
	Gated  bool
}

type VoteFinalizedEvent struct {
	Vote           ledger.Address
	WinningChoice  *uint8
	TotalVotePower uint64
}
