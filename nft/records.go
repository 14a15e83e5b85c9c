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

package nft

import (
	"math"
	"strings"
	"sync"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/ledger"
)

const (
	MintActivityDomain = "mint_activity"
	ListedNftDomain    = "listed_nft"

	MaxTxSignatureLength = 88
)

type MintActivityStatus uint8

const (
	MintActivityActive MintActivityStatus = iota
	MintActivityCancelled
)

func (s MintActivityStatus) Valid() bool {
	return s <= MintActivityCancelled
}

func (s MintActivityStatus) String() string {
	switch s {
	case MintActivityActive:
		return "active"
	case MintActivityCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MintActivity logs a mint performed by a user through a candy machine.
// One activity exists per user and candy machine.
type MintActivity struct {
	cbor.StructAsArray
	User         ledger.Address
	CandyMachine ledger.Address
	NftMint      ledger.Address
	TxSignature  string
	Episode      *ledger.Address
	Status       MintActivityStatus
	Timestamp    int64
}

var mintActivityCapacity = sync.OnceValue(func() int {
	episode := ledger.Address{}
	return ledger.EncodedSize(&MintActivity{
		TxSignature: strings.Repeat("x", MaxTxSignatureLength),
		Episode:     &episode,
		Status:      MintActivityCancelled,
		Timestamp:   math.MinInt64,
	})
})

func (m *MintActivity) Authority() ledger.Address { return m.User }
func (m *MintActivity) RecordDomain() string      { return MintActivityDomain }
func (m *MintActivity) MaxSize() int              { return mintActivityCapacity() }

func (m *MintActivity) RecordSeeds() [][]byte {
	return [][]byte{m.User[:], m.CandyMachine[:]}
}

// ListedNft advertises an NFT mint for sale through a candy machine
type ListedNft struct {
	cbor.StructAsArray
	Creator      ledger.Address
	NftMint      ledger.Address
	CandyMachine ledger.Address
	ListedAt     int64
}

var listedNftCapacity = sync.OnceValue(func() int {
	return ledger.EncodedSize(&ListedNft{ListedAt: math.MinInt64})
})

func (l *ListedNft) Authority() ledger.Address { return l.Creator }
func (l *ListedNft) RecordDomain() string      { return ListedNftDomain }
func (l *ListedNft) MaxSize() int              { return listedNftCapacity() }

func (l *ListedNft) RecordSeeds() [][]byte {
	return [][]byte{l.Creator[:], l.NftMint[:]}
}

var (
	ErrMintActivityAlreadyCancelled = ledger.NewError(
		ledger.KindState,
		"MintActivityAlreadyCancelled",
		"mint activity already cancelled",
	)
	ErrNftMintAddressRequired = ledger.NewError(
		ledger.KindValidation,
		"NftMintAddressRequired",
		"NFT mint address must not be empty",
	)
	ErrCandyMachineAddressRequired = ledger.NewError(
		ledger.KindValidation,
		"CandyMachineAddressRequired",
		"candy machine address must not be empty",
	)
)
