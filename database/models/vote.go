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

package models

import "github.com/blinklabs-io/taleledger/database/types"

// VoteIndex is the queryable projection of a vote record
type VoteIndex struct {
	ID                uint         `gorm:"primarykey"`
	Address           []byte       `gorm:"uniqueIndex;size:32;not null"`
	Creator           []byte       `gorm:"index;size:32;not null"`
	VotingId          string       `gorm:"size:64;not null"`
	Question          string       `gorm:"size:100;not null"`
	Category          uint8        `gorm:"index;not null"`
	Phase             uint8        `gorm:"index;not null"`
	IsActive          bool         `gorm:"index;not null"`
	Gated             bool         `gorm:"not null"`
	StartTime         int64        `gorm:"index;not null"`
	EndTime           int64        `gorm:"index;not null"`
	TotalParticipants types.Uint64 `gorm:"not null"`
	TotalVotePower    types.Uint64 `gorm:"not null"`
	WinningChoice     *uint8
	CreatedAt         int64 `gorm:"index;not null"`
}

// TableName returns the table name
func (VoteIndex) TableName() string {
	return "vote_index"
}

// VoteFilter selects rows from the vote index. Nil fields match everything.
type VoteFilter struct {
	Creator  []byte
	Category *uint8
	Phase    *uint8
	IsActive *bool
	// Page is 1-based
	Page     int
	PageSize int
	// Descending orders by creation time, newest first
	Descending bool
}

// Ballot records a cast vote for audit listings
type Ballot struct {
	ID     uint         `gorm:"primarykey"`
	Vote   []byte       `gorm:"uniqueIndex:idx_ballot_unique,priority:1;size:32;not null"`
	Voter  []byte       `gorm:"uniqueIndex:idx_ballot_unique,priority:2;size:32;not null"`
	Choice uint8        `gorm:"not null"`
	Power  types.Uint64 `gorm:"not null"`
	Gated  bool         `gorm:"not null"`
	CastAt int64        `gorm:"index;not null"`
}

// TableName returns the table name
func (Ballot) TableName() string {
	return "ballot"
}
