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
	"encoding/binary"
	"errors"

	"github.com/blinklabs-io/taleledger/database/types"
)

const (
	DefaultDepositBase    = 890880
	DefaultDepositPerByte = 6960
)

// DepositSchedule prices record storage by allocated size
type DepositSchedule struct {
	Base    uint64
	PerByte uint64
}

func DefaultDepositSchedule() DepositSchedule {
	return DepositSchedule{
		Base:    DefaultDepositBase,
		PerByte: DefaultDepositPerByte,
	}
}

// Cost returns the deposit for a record of size bytes
func (s DepositSchedule) Cost(size int) (uint64, error) {
	perByte, err := CheckedMul(s.PerByte, uint64(size)) //nolint:gosec // sizes are positive
	if err != nil {
		return 0, err
	}
	return CheckedAdd(s.Base, perByte)
}

// DepositLedger moves storage deposits between balances and records
type DepositLedger interface {
	Reserve(tx *Tx, payer Address, amount uint64) error
	Release(tx *Tx, beneficiary Address, amount uint64) error
}

// StoredDeposits keeps deposit balances in the blob store next to the
// records they pay for
type StoredDeposits struct{}

func (StoredDeposits) Reserve(tx *Tx, payer Address, amount uint64) error {
	balance, err := tx.Balance(payer)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientFunds.WithDetail(
			"%s has %d, needs %d",
			payer,
			balance,
			amount,
		)
	}
	return tx.setBalance(payer, balance-amount)
}

func (StoredDeposits) Release(tx *Tx, beneficiary Address, amount uint64) error {
	return tx.Credit(beneficiary, amount)
}

const balanceKeyPrefix = "bal"

func balanceKey(owner Address) []byte {
	return append([]byte(balanceKeyPrefix), owner[:]...)
}

// Balance returns the deposit balance of owner
func (t *Tx) Balance(owner Address) (uint64, error) {
	if err := t.requireLock(
		BalanceLock(owner),
		ErrUndeclaredBalanceAccess.WithDetail("%s", owner),
	); err != nil {
		return 0, err
	}
	val, err := t.blob().Get(t.txn.Blob(), balanceKey(owner))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, ErrStorage.Wrap(err)
	}
	if len(val) != 8 {
		return 0, ErrStorage.WithDetail("balance of %s is %d bytes", owner, len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// Credit adds amount to the deposit balance of owner
func (t *Tx) Credit(owner Address, amount uint64) error {
	balance, err := t.Balance(owner)
	if err != nil {
		return err
	}
	balance, err = CheckedAdd(balance, amount)
	if err != nil {
		return err
	}
	return t.setBalance(owner, balance)
}

func (t *Tx) setBalance(owner Address, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requireLock(
		BalanceLock(owner),
		ErrUndeclaredBalanceAccess.WithDetail("%s", owner),
	); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)
	if err := t.blob().Set(t.txn.Blob(), balanceKey(owner), buf[:]); err != nil {
		return ErrStorage.Wrap(err)
	}
	return nil
}
