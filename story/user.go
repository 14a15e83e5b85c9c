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
	"context"

	"github.com/blinklabs-io/taleledger/ledger"
)

func (s *Store) UserAddress(wallet ledger.Address) (ledger.Address, error) {
	return s.rt.AddressOf(&UserProfile{Wallet: wallet})
}

func validateUser(name string, role Role) error {
	if err := ledger.ValidateBounded("name", name, MaxUserNameLength); err != nil {
		return err
	}
	return ledger.ValidateEnum("role", role)
}

// RegisterUser creates the profile of a wallet. The wallet signs and pays.
func (s *Store) RegisterUser(
	ctx context.Context,
	signers ledger.SignerSet,
	wallet ledger.Address,
	name string,
	role Role,
) (ledger.Address, error) {
	if err := validateUser(name, role); err != nil {
		return ledger.Address{}, err
	}
	addr, err := s.UserAddress(wallet)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(wallet),
	}
	err = s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		now := tx.Now().Unix()
		_, err := tx.Create(&UserProfile{
			Wallet:      wallet,
			Name:        name,
			Role:        role,
			CreatedAt:   now,
			LastLoginAt: now,
		}, wallet)
		return err
	})
	if err != nil {
		return ledger.Address{}, err
	}
	return addr, nil
}

func (s *Store) updateUser(
	ctx context.Context,
	signers ledger.SignerSet,
	wallet ledger.Address,
	fn func(*ledger.Tx, *UserProfile) error,
) (*UserProfile, error) {
	addr, err := s.UserAddress(wallet)
	if err != nil {
		return nil, err
	}
	var ret UserProfile
	keys := []ledger.LockKey{ledger.RecordLock(addr)}
	err = s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		if err := tx.Load(addr, &ret); err != nil {
			return err
		}
		if err := ledger.Authorize(&ret, tx.Signers()); err != nil {
			return err
		}
		if err := fn(tx, &ret); err != nil {
			return err
		}
		return tx.Save(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store) UpdateUser(
	ctx context.Context,
	signers ledger.SignerSet,
	wallet ledger.Address,
	name string,
	role Role,
) (*UserProfile, error) {
	return s.updateUser(ctx, signers, wallet, func(_ *ledger.Tx, user *UserProfile) error {
		if err := validateUser(name, role); err != nil {
			return err
		}
		user.Name = name
		user.Role = role
		return nil
	})
}

// RecordLogin stamps the profile with the current time
func (s *Store) RecordLogin(
	ctx context.Context,
	signers ledger.SignerSet,
	wallet ledger.Address,
) (*UserProfile, error) {
	return s.updateUser(ctx, signers, wallet, func(tx *ledger.Tx, user *UserProfile) error {
		user.LastLoginAt = tx.Now().Unix()
		return nil
	})
}

// CloseUser destroys a profile and refunds the deposit to the wallet
func (s *Store) CloseUser(
	ctx context.Context,
	signers ledger.SignerSet,
	wallet ledger.Address,
) error {
	addr, err := s.UserAddress(wallet)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(wallet),
	}
	return s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var user UserProfile
		if err := tx.Load(addr, &user); err != nil {
			return err
		}
		if err := ledger.Authorize(&user, tx.Signers()); err != nil {
			return err
		}
		return tx.Destroy(addr, &user, wallet)
	})
}

func (s *Store) GetUser(ctx context.Context, wallet ledger.Address) (*UserProfile, error) {
	addr, err := s.UserAddress(wallet)
	if err != nil {
		return nil, err
	}
	var ret UserProfile
	err = s.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}
