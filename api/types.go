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

package api

import (
	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/governance"
	"github.com/blinklabs-io/taleledger/ledger"
)

// ErrorResponse is returned by every failed request
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type AddressResponse struct {
	Address ledger.Address `json:"address"`
}

type CreateVoteRequest struct {
	Creator          ledger.Address  `json:"creator"`
	VotingId         string          `json:"voting_id"`
	Question         string          `json:"question"`
	Description      string          `json:"description"`
	Choices          []string        `json:"choices"`
	StartTime        int64           `json:"start_time"`
	EndTime          int64           `json:"end_time"`
	GatingMint       *ledger.Address `json:"gating_mint,omitempty"`
	RegularVotePower uint64          `json:"regular_vote_power"`
	NftVotePower     uint64          `json:"nft_vote_power"`
	Category         string          `json:"category"`
	Tags             []string        `json:"tags"`
}

type CastVoteRequest struct {
	Voter        ledger.Address  `json:"voter"`
	Choice       uint8           `json:"choice"`
	TokenAccount *ledger.Address `json:"token_account,omitempty"`
}

type FinalizeVoteRequest struct {
	Creator ledger.Address `json:"creator"`
}

type ListVotesRequest struct {
	Owner    ledger.Address `json:"owner"`
	Status   string         `json:"status"`
	Category *string        `json:"category,omitempty"`
	Page     uint32         `json:"page"`
	PageSize uint32         `json:"page_size"`
}

type VoteResponse struct {
	Address           ledger.Address  `json:"address"`
	Creator           ledger.Address  `json:"creator"`
	VotingId          string          `json:"voting_id"`
	Question          string          `json:"question"`
	Description       string          `json:"description"`
	Choices           []string        `json:"choices"`
	StartTime         int64           `json:"start_time"`
	EndTime           int64           `json:"end_time"`
	GatingMint        *ledger.Address `json:"gating_mint"`
	RegularVotePower  uint64          `json:"regular_vote_power"`
	NftVotePower      uint64          `json:"nft_vote_power"`
	Tally             []uint64        `json:"tally"`
	IsActive          bool            `json:"is_active"`
	Phase             string          `json:"phase"`
	TotalParticipants uint64          `json:"total_participants"`
	RegularVoters     uint64          `json:"regular_voters"`
	NftVoters         uint64          `json:"nft_voters"`
	TotalVotePower    uint64          `json:"total_vote_power"`
	WinningChoice     *uint8          `json:"winning_choice"`
	Category          string          `json:"category"`
	Tags              []string        `json:"tags"`
	CreatedAt         int64           `json:"created_at"`
}

func newVoteResponse(addr ledger.Address, vote *governance.Vote) VoteResponse {
	tags := vote.Tags
	if tags == nil {
		tags = []string{}
	}
	return VoteResponse{
		Address:           addr,
		Creator:           vote.Creator,
		VotingId:          vote.VotingId,
		Question:          vote.Question,
		Description:       vote.Description,
		Choices:           vote.Choices,
		StartTime:         vote.StartTime,
		EndTime:           vote.EndTime,
		GatingMint:        vote.GatingMint,
		RegularVotePower:  vote.RegularVotePower,
		NftVotePower:      vote.NftVotePower,
		Tally:             vote.Tally,
		IsActive:          vote.IsActive,
		Phase:             vote.Phase.String(),
		TotalParticipants: vote.TotalParticipants,
		RegularVoters:     vote.RegularVoters,
		NftVoters:         vote.NftVoters,
		TotalVotePower:    vote.TotalVotePower,
		WinningChoice:     vote.WinningChoice,
		Category:          vote.Category.String(),
		Tags:              tags,
		CreatedAt:         vote.CreatedAt,
	}
}

type VoteRecordResponse struct {
	Vote        ledger.Address `json:"vote"`
	Voter       ledger.Address `json:"voter"`
	HasVoted    bool           `json:"has_voted"`
	VotePower   uint64         `json:"vote_power"`
	VotedChoice *uint8         `json:"voted_choice"`
	VotedAt     *int64         `json:"voted_at"`
}

func newVoteRecordResponse(receipt *governance.VoteRecord) VoteRecordResponse {
	return VoteRecordResponse{
		Vote:        receipt.Vote,
		Voter:       receipt.Voter,
		HasVoted:    receipt.HasVoted,
		VotePower:   receipt.VotePower,
		VotedChoice: receipt.VotedChoice,
		VotedAt:     receipt.VotedAt,
	}
}

type ResultsResponse struct {
	Address           ledger.Address `json:"address"`
	Choices           []string       `json:"choices"`
	Tally             []uint64       `json:"tally"`
	WinningChoice     *uint8         `json:"winning_choice"`
	TotalVotePower    uint64         `json:"total_vote_power"`
	TotalParticipants uint64         `json:"total_participants"`
	RegularVoters     uint64         `json:"regular_voters"`
	NftVoters         uint64         `json:"nft_voters"`
	Phase             string         `json:"phase"`
}

// VoteSummary is a row of the vote index
type VoteSummary struct {
	Address           string `json:"address"`
	Creator           string `json:"creator"`
	VotingId          string `json:"voting_id"`
	Question          string `json:"question"`
	Category          string `json:"category"`
	Phase             string `json:"phase"`
	IsActive          bool   `json:"is_active"`
	Gated             bool   `json:"gated"`
	StartTime         int64  `json:"start_time"`
	EndTime           int64  `json:"end_time"`
	TotalParticipants uint64 `json:"total_participants"`
	TotalVotePower    uint64 `json:"total_vote_power"`
	WinningChoice     *uint8 `json:"winning_choice"`
	CreatedAt         int64  `json:"created_at"`
}

func newVoteSummary(row models.VoteIndex) VoteSummary {
	ret := VoteSummary{
		Category:          governance.Category(row.Category).String(),
		Phase:             governance.Phase(row.Phase).String(),
		VotingId:          row.VotingId,
		Question:          row.Question,
		IsActive:          row.IsActive,
		Gated:             row.Gated,
		StartTime:         row.StartTime,
		EndTime:           row.EndTime,
		TotalParticipants: uint64(row.TotalParticipants),
		TotalVotePower:    uint64(row.TotalVotePower),
		WinningChoice:     row.WinningChoice,
		CreatedAt:         row.CreatedAt,
	}
	if addr, err := ledger.AddressFromBytes(row.Address); err == nil {
		ret.Address = addr.String()
	}
	if creator, err := ledger.AddressFromBytes(row.Creator); err == nil {
		ret.Creator = creator.String()
	}
	return ret
}

type VoteListResponse struct {
	Owner       ledger.Address `json:"owner"`
	Status      string         `json:"status"`
	Category    *string        `json:"category"`
	Page        uint32         `json:"page"`
	PageSize    uint32         `json:"page_size"`
	LastUpdated int64          `json:"last_updated"`
	Votes       []VoteSummary  `json:"votes"`
	Total       int64          `json:"total"`
}

type BallotResponse struct {
	Voter  string `json:"voter"`
	Choice uint8  `json:"choice"`
	Power  uint64 `json:"power"`
	Gated  bool   `json:"gated"`
	CastAt int64  `json:"cast_at"`
}

func newBallotResponse(row models.Ballot) BallotResponse {
	ret := BallotResponse{
		Choice: row.Choice,
		Power:  uint64(row.Power),
		Gated:  row.Gated,
		CastAt: row.CastAt,
	}
	if voter, err := ledger.AddressFromBytes(row.Voter); err == nil {
		ret.Voter = voter.String()
	}
	return ret
}
