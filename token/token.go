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
	"context"
	"errors"

	"github.com/blinklabs-io/taleledger/ledger"
)

// Ledger manages token accounts. A mint key acts as its own mint authority.
type Ledger struct {
	rt *ledger.Runtime
}

func New(rt *ledger.Runtime) *Ledger {
	rt.RegisterRecordTypes(func() ledger.Record { return &Account{} })
	return &Ledger{rt: rt}
}

// AccountAddress returns the token account address for owner and mint
func (l *Ledger) AccountAddress(owner, mint ledger.Address) (ledger.Address, error) {
	return l.rt.AddressOf(&Account{Owner: owner, Mint: mint})
}

// MintTo credits amount of mint to owner, creating the account when needed.
// The mint authority signs and pays for a new account.
func (l *Ledger) MintTo(
	ctx context.Context,
	signers ledger.SignerSet,
	mint ledger.Address,
	owner ledger.Address,
	amount uint64,
) (ledger.Address, error) {
	if amount == 0 {
		return ledger.Address{}, ErrZeroAmount
	}
	if err := ledger.RequireSigner(mint, signers); err != nil {
		return ledger.Address{}, err
	}
	addr, err := l.AccountAddress(owner, mint)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(mint),
	}
	err = l.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		return credit(tx, addr, owner, mint, amount, mint)
	})
	return addr, err
}

// Transfer moves amount of mint from one owner to another. The sending
// owner signs and pays for the receiving account when it does not exist.
func (l *Ledger) Transfer(
	ctx context.Context,
	signers ledger.SignerSet,
	mint ledger.Address,
	from ledger.Address,
	to ledger.Address,
	amount uint64,
) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	fromAddr, err := l.AccountAddress(from, mint)
	if err != nil {
		return err
	}
	toAddr, err := l.AccountAddress(to, mint)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(fromAddr),
		ledger.RecordLock(toAddr),
		ledger.BalanceLock(from),
	}
	return l.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var src Account
		if err := tx.Load(fromAddr, &src); err != nil {
			return err
		}
		if err := ledger.Authorize(&src, tx.Signers()); err != nil {
			return err
		}
		if src.Amount < amount {
			return ErrInsufficientTokens.WithDetail("%d < %d", src.Amount, amount)
		}
		src.Amount -= amount
		if err := tx.Save(fromAddr, &src); err != nil {
			return err
		}
		return credit(tx, toAddr, to, mint, amount, from)
	})
}

// Close destroys an empty token account and refunds its deposit to the
// owner
func (l *Ledger) Close(
	ctx context.Context,
	signers ledger.SignerSet,
	owner ledger.Address,
	mint ledger.Address,
) error {
	addr, err := l.AccountAddress(owner, mint)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(owner),
	}
	return l.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var acct Account
		if err := tx.Load(addr, &acct); err != nil {
			return err
		}
		if err := ledger.Authorize(&acct, tx.Signers()); err != nil {
			return err
		}
		if acct.Amount != 0 {
			return ErrAccountNotEmpty.WithDetail("%d remaining", acct.Amount)
		}
		return tx.Destroy(addr, &acct, owner)
	})
}

// Account returns the token account stored at addr
func (l *Ledger) Account(ctx context.Context, addr ledger.Address) (*Account, error) {
	var ret Account
	err := l.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// BalanceOf returns owner's balance of mint, zero when no account exists
func (l *Ledger) BalanceOf(ctx context.Context, owner, mint ledger.Address) (uint64, error) {
	addr, err := l.AccountAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	acct, err := l.Account(ctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return acct.Amount, nil
}

// LookupTokenAccount reads a token account inside a running operation. The
// account must be declared by the operation.
func (l *Ledger) LookupTokenAccount(
	tx *ledger.Tx,
	addr ledger.Address,
) (ledger.Address, ledger.Address, uint64, error) {
	var acct Account
	if err := tx.Load(addr, &acct); err != nil {
		return ledger.Address{}, ledger.Address{}, 0, err
	}
	return acct.Mint, acct.Owner, acct.Amount, nil
}

func credit(
	tx *ledger.Tx,
	addr ledger.Address,
	owner ledger.Address,
	mint ledger.Address,
	amount uint64,
	payer ledger.Address,
) error {
	exists, err := tx.Exists(addr)
	if err != nil {
		return err
	}
	if !exists {
		_, err := tx.Create(
			&Account{Owner: owner, Mint: mint, Amount: amount},
			payer,
		)
		return err
	}
	var acct Account
	if err := tx.Load(addr, &acct); err != nil {
		return err
	}
	acct.Amount, err = ledger.CheckedAdd(acct.Amount, amount)
	if err != nil {
		return err
	}
	return tx.Save(addr, &acct)
}
