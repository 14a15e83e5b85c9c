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

package token

import (
	"math"
	"sync"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/ledger"
)

// Domain is the derivation tag of token account records
const Domain = "token_account"

// Account holds an owner's balance of one mint. Non-fungible tokens are
// mints whose supply is one.
type Account struct {
	cbor.StructAsArray
	Owner  ledger.Address
	Mint   ledger.Address
	Amount uint64
}

var accountCapacity = sync.OnceValue(func() int {
	return ledger.EncodedSize(&Account{Amount: math.MaxUint64})
})

func (a *Account) Authority() ledger.Address { return a.Owner }
func (a *Account) RecordDomain() string      { return Domain }
func (a *Account) MaxSize() int              { return accountCapacity() }

func (a *Account) RecordSeeds() [][]byte {
	return [][]byte{a.Owner[:], a.Mint[:]}
}

var (
	ErrZeroAmount         = ledger.NewError(ledger.KindValidation, "ZeroAmount", "amount must be positive")
	ErrInsufficientTokens = ledger.NewError(ledger.KindState, "InsufficientTokens", "insufficient token balance")
	ErrAccountNotEmpty    = ledger.NewError(ledger.KindState, "AccountNotEmpty", "token account still holds tokens")
)
