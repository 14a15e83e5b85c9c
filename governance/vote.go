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
	"math"
	"strings"
	"sync"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/ledger"
)

const (
	VoteDomain       = "vote"
	VoteRecordDomain = "vote_record"
	VoteListDomain   = "vote_list"
)

const (
	MaxVotingIdLength    = 64
	MaxQuestionLength    = 100
	MaxDescriptionLength = 500
	MinChoices           = 2
	MaxChoices           = 10
	MaxChoiceLength      = 50
	MaxTags              = 5
	MaxTagLength         = 20
)

// Phase is the lifecycle stage of a vote. It only moves forward.
type Phase uint8

const (
	PhaseUpcoming Phase = iota
	PhaseActive
	PhaseCompleted
)

func (p Phase) Valid() bool {
	return p <= PhaseCompleted
}

func (p Phase) String() string {
	switch p {
	case PhaseUpcoming:
		return "upcoming"
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ParsePhase converts the text form of a phase
func ParsePhase(s string) (Phase, error) {
	for p := PhaseUpcoming; p.Valid(); p++ {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, ledger.ErrInvalidEnumValue.WithDetail("phase %q", s)
}

type Category uint8

const (
	CategoryContent Category = iota
	CategoryFeature
	CategoryCommunity
	CategoryTechnical
	CategoryOther
)

func (c Category) Valid() bool {
	return c <= CategoryOther
}

func (c Category) String() string {
	switch c {
	case CategoryContent:
		return "content"
	case CategoryFeature:
		return "feature"
	case CategoryCommunity:
		return "community"
	case CategoryTechnical:
		return "technical"
	case CategoryOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseCategory converts the text form of a category
func ParseCategory(s string) (Category, error) {
	for c := CategoryContent; c.Valid(); c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, ledger.ErrInvalidEnumValue.WithDetail("category %q", s)
}

// Vote is a weighted poll. Its address is derived from the creator and the
// voting ID.
type Vote struct {
	cbor.StructAsArray
	Creator           ledger.Address
	VotingId          string
	Question          string
	Description       string
	Choices           []string
	StartTime         int64
	EndTime           int64
	GatingMint        *ledger.Address
	RegularVotePower  uint64
	NftVotePower      uint64
	Tally             []uint64
	IsActive          bool
	Phase             Phase
	TotalParticipants uint64
	RegularVoters     uint64
	NftVoters         uint64
	TotalVotePower    uint64
	WinningChoice     *uint8
	Category          Category
	Tags              []string
	CreatedAt         int64
}

var voteCapacity = sync.OnceValue(func() int {
	mint := ledger.Address{}
	winner := uint8(MaxChoices - 1)
	proto := &Vote{
		VotingId:          strings.Repeat("x", MaxVotingIdLength),
		Question:          strings.Repeat("x", MaxQuestionLength),
		Description:       strings.Repeat("x", MaxDescriptionLength),
		StartTime:         math.MinInt64,
		EndTime:           math.MaxInt64,
		GatingMint:        &mint,
		RegularVotePower:  math.MaxUint64,
		NftVotePower:      math.MaxUint64,
		IsActive:          true,
		Phase:             PhaseCompleted,
		TotalParticipants: math.MaxUint64,
		RegularVoters:     math.MaxUint64,
		NftVoters:         math.MaxUint64,
		TotalVotePower:    math.MaxUint64,
		WinningChoice:     &winner,
		Category:          CategoryOther,
		CreatedAt:         math.MinInt64,
	}
	for range MaxChoices {
		proto.Choices = append(proto.Choices, strings.Repeat("x", MaxChoiceLength))
		proto.Tally = append(proto.Tally, math.MaxUint64)
	}
	for range MaxTags {
		proto.Tags = append(proto.Tags, strings.Repeat("x", MaxTagLength))
	}
	return ledger.EncodedSize(proto)
})

func (v *Vote) Authority() ledger.Address { return v.Creator }
func (v *Vote) RecordDomain() string      { return VoteDomain }
func (v *Vote) MaxSize() int              { return voteCapacity() }

func (v *Vote) RecordSeeds() [][]byte {
	return [][]byte{v.Creator[:], ledger.StringSeed(v.VotingId)}
}

// Gated reports whether ballots are weighted by holdings of a token mint
func (v *Vote) Gated() bool {
	return v.GatingMint != nil
}

// Open reports whether results may be withheld at time now
func (v *Vote) Open(now int64) bool {
	return v.IsActive && now <= v.EndTime
}

// VoteRecord is a voter's ballot receipt for one vote
type VoteRecord struct {
	cbor.StructAsArray
	Vote        ledger.Address
	Voter       ledger.Address
	HasVoted    bool
	VotePower   uint64
	VotedChoice *uint8
	VotedAt     *int64
}

var voteRecordCapacity = sync.OnceValue(func() int {
	choice := uint8(math.MaxUint8)
	at := int64(math.MinInt64)
	return ledger.EncodedSize(&VoteRecord{
		HasVoted:    true,
		VotePower:   math.MaxUint64,
		VotedChoice: &choice,
		VotedAt:     &at,
	})
})

func (r *VoteRecord) Authority() ledger.Address     { return r.Voter }
func (r *VoteRecord) RecordDomain() string          { return VoteRecordDomain }
func (r *VoteRecord) MaxSize() int                  { return voteRecordCapacity() }
func (r *VoteRecord) ParentAddress() ledger.Address { return r.Vote }

func (r *VoteRecord) RecordSeeds() [][]byte {
	return [][]byte{r.Vote[:], r.Voter[:]}
}

// VoteList holds the listing filter last requested by an owner, for
// off-ledger indexers to consult
type VoteList struct {
	cbor.StructAsArray
	Owner       ledger.Address
	Status      Phase
	Category    *Category
	Page        uint32
	PageSize    uint32
	LastUpdated int64
}

var voteListCapacity = sync.OnceValue(func() int {
	category := CategoryOther
	return ledger.EncodedSize(&VoteList{
		Status:      PhaseCompleted,
		Category:    &category,
		Page:        math.MaxUint32,
		PageSize:    math.MaxUint32,
		LastUpdated: math.MinInt64,
	})
})

func (l *VoteList) Authority() ledger.Address { return l.Owner }
func (l *VoteList) RecordDomain() string      { return VoteListDomain }
func (l *VoteList) MaxSize() int              { return voteListCapacity() }

func (l *VoteList) RecordSeeds() [][]byte {
	return [][]byte{l.Owner[:]}
}

// MaxListPageSize caps the page size used when a vote list is resolved
// against the index
const MaxListPageSize = 100

// Filter converts the saved listing into an index query, newest first. Page
// numbers start at 1 and the page size is clamped to MaxListPageSize.
func (l *VoteList) Filter() models.VoteFilter {
	phase := uint8(l.Status)
	ret := models.VoteFilter{
		Phase:      &phase,
		Page:       max(int(l.Page), 1),
		PageSize:   min(max(int(l.PageSize), 1), MaxListPageSize),
		Descending: true,
	}
	if l.Category != nil {
		category := uint8(*l.Category)
		ret.Category = &category
	}
	return ret
}
