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

package story

import (
	"math"
	"strings"
	"sync"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/ledger"
)

const (
	TaleDomain    = "tale"
	EpisodeDomain = "episode"
	UserDomain    = "user"
)

const (
	MaxTaleIdLength         = 32
	MaxTitleLength          = 100
	MaxContentCidLength     = 64
	MaxGenreLength          = 30
	MaxCoverImageCidLength  = 64
	MaxEpisodeIdLength      = 32
	MaxEpisodeNameLength    = 100
	MaxImageSetIdLength     = 30
	MaxCandyMachineIdLength = 44
	MaxUserNameLength       = 50
)

// Status is the publication state of tales and episodes
type Status uint8

const (
	StatusDraft Status = iota
	StatusPublished
	StatusArchived
)

func (s Status) Valid() bool {
	return s <= StatusArchived
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPublished:
		return "published"
	case StatusArchived:
		return "archived"
	default:
		return "unknown"
	}
}

type Role uint8

const (
	RoleAdmin Role = iota
	RoleCustomer
	RoleUser
	RoleCreator
)

func (r Role) Valid() bool {
	return r <= RoleCreator
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleCustomer:
		return "customer"
	case RoleUser:
		return "user"
	case RoleCreator:
		return "creator"
	default:
		return "unknown"
	}
}

// Tale is a story owned by its author. Its address is derived from the tale
// ID alone, so tale IDs are global.
type Tale struct {
	cbor.StructAsArray
	Author        ledger.Address
	TaleId        string
	Title         string
	ContentCid    string
	Genre         string
	CoverImageCid string
	Status        Status
	Timestamp     int64
}

var taleCapacity = sync.OnceValue(func() int {
	return ledger.EncodedSize(&Tale{
		TaleId:        strings.Repeat("x", MaxTaleIdLength),
		Title:         strings.Repeat("x", MaxTitleLength),
		ContentCid:    strings.Repeat("x", MaxContentCidLength),
		Genre:         strings.Repeat("x", MaxGenreLength),
		CoverImageCid: strings.Repeat("x", MaxCoverImageCidLength),
		Status:        StatusArchived,
		Timestamp:     math.MinInt64,
	})
})

func (t *Tale) Authority() ledger.Address { return t.Author }
func (t *Tale) RecordDomain() string      { return TaleDomain }
func (t *Tale) MaxSize() int              { return taleCapacity() }

func (t *Tale) RecordSeeds() [][]byte {
	return [][]byte{ledger.StringSeed(t.TaleId)}
}

// Episode belongs to a tale. The author is copied from the tale when the
// episode is created and is not updated afterwards.
type Episode struct {
	cbor.StructAsArray
	Author         ledger.Address
	ParentTale     ledger.Address
	EpisodeId      string
	Name           string
	ContentCid     string
	ImageSetId     string
	Order          uint32
	Status         Status
	IsNft          bool
	CandyMachineId string
	Timestamp      int64
}

var episodeCapacity = sync.OnceValue(func() int {
	return ledger.EncodedSize(&Episode{
		EpisodeId:      strings.Repeat("x", MaxEpisodeIdLength),
		Name:           strings.Repeat("x", MaxEpisodeNameLength),
		ContentCid:     strings.Repeat("x", MaxContentCidLength),
		ImageSetId:     strings.Repeat("x", MaxImageSetIdLength),
		Order:          math.MaxUint32,
		Status:         StatusArchived,
		IsNft:          true,
		CandyMachineId: strings.Repeat("x", MaxCandyMachineIdLength),
		Timestamp:      math.MinInt64,
	})
})

func (e *Episode) Authority() ledger.Address     { return e.Author }
func (e *Episode) RecordDomain() string          { return EpisodeDomain }
func (e *Episode) MaxSize() int                  { return episodeCapacity() }
func (e *Episode) ParentAddress() ledger.Address { return e.ParentTale }

func (e *Episode) RecordSeeds() [][]byte {
	return [][]byte{e.ParentTale[:], ledger.StringSeed(e.EpisodeId)}
}

// UserProfile is the on-ledger profile of a wallet
type UserProfile struct {
	cbor.StructAsArray
	Wallet      ledger.Address
	Name        string
	Role        Role
	CreatedAt   int64
	LastLoginAt int64
}

var userCapacity = sync.OnceValue(func() int {
	return ledger.EncodedSize(&UserProfile{
		Name:        strings.Repeat("x", MaxUserNameLength),
		Role:        RoleCreator,
		CreatedAt:   math.MinInt64,
		LastLoginAt: math.MinInt64,
	})
})

func (u *UserProfile) Authority() ledger.Address { return u.Wallet }
func (u *UserProfile) RecordDomain() string      { return UserDomain }
func (u *UserProfile) MaxSize() int              { return userCapacity() }

func (u *UserProfile) RecordSeeds() [][]byte {
	return [][]byte{u.Wallet[:]}
}

var ErrCannotDeletePublished = ledger.NewError(
	ledger.KindState,
	"CannotDeletePublished",
	"a published tale must be archived before it is deleted",
)
