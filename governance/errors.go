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

import "github.com/blinklabs-io/taleledger/ledger"

var (
	ErrInvalidTimeRange = ledger.NewError(ledger.KindValidation, "InvalidTimeRange", "start time must be before end time")
	ErrInvalidChoices   = ledger.NewError(ledger.KindValidation, "InvalidChoices", "a vote needs between 2 and 10 choices")
	ErrInvalidVotePower = ledger.NewError(ledger.KindValidation, "InvalidVotePower", "vote power must be positive")
	ErrTooManyTags      = ledger.NewError(ledger.KindValidation, "TooManyTags", "a vote has at most 5 tags")
	ErrInvalidVoteId    = ledger.NewError(ledger.KindValidation, "InvalidVoteId", "voting ID must be 1 to 64 bytes")
	ErrInvalidChoice    = ledger.NewError(ledger.KindValidation, "InvalidChoice", "choice index out of range")
	ErrInvalidNFT       = ledger.NewError(ledger.KindValidation, "InvalidNFT", "token account does not hold the gating mint")

	ErrNotNFTOwner = ledger.NewError(ledger.KindAuthorization, "NotNFTOwner", "token account is not owned by the voter")
	ErrNotCreator  = ledger.NewError(ledger.KindAuthorization, "NotCreator", "only the vote creator may do this")

	ErrVoteNotActive   = ledger.NewError(ledger.KindState, "VoteNotActive", "vote is not active")
	ErrVoteNotStarted  = ledger.NewError(ledger.KindState, "VoteNotStarted", "vote has not started")
	ErrVoteEnded       = ledger.NewError(ledger.KindState, "VoteEnded", "vote has ended")
	ErrAlreadyVoted    = ledger.NewError(ledger.KindState, "AlreadyVoted", "voter has already voted")
	ErrVoteStillActive = ledger.NewError(ledger.KindState, "VoteStillActive", "vote is still active")
)
