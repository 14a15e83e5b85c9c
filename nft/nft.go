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
	"context"

	"github.com/blinklabs-io/taleledger/ledger"
)

// Registry records NFT mint activity and listings
type Registry struct {
	rt *ledger.Runtime
}

func New(rt *ledger.Runtime) *Registry {
	rt.RegisterRecordTypes(
		func() ledger.Record { return &MintActivity{} },
		func() ledger.Record { return &ListedNft{} },
	)
	return &Registry{rt: rt}
}

type MintActivityParams struct {
	CandyMachine ledger.Address
	NftMint      ledger.Address
	TxSignature  string
	Episode      *ledger.Address
}

func (r *Registry) MintActivityAddress(user, candyMachine ledger.Address) (ledger.Address, error) {
	return r.rt.AddressOf(&MintActivity{User: user, CandyMachine: candyMachine})
}

// LogMintActivity records a mint. The user signs and pays the deposit.
func (r *Registry) LogMintActivity(
	ctx context.Context,
	signers ledger.SignerSet,
	user ledger.Address,
	params MintActivityParams,
) (ledger.Address, error) {
	if err := ledger.ValidateLength("tx_signature", params.TxSignature, MaxTxSignatureLength); err != nil {
		return ledger.Address{}, err
	}
	addr, err := r.MintActivityAddress(user, params.CandyMachine)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(user),
	}
	err = r.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		activity := &MintActivity{
			User:         user,
			CandyMachine: params.CandyMachine,
			NftMint:      params.NftMint,
			TxSignature:  params.TxSignature,
			Status:       MintActivityActive,
			Timestamp:    tx.Now().Unix(),
		}
		if params.Episode != nil {
			episode := *params.Episode
			activity.Episode = &episode
		}
		_, err := tx.Create(activity, user)
		return err
	})
	if err != nil {
		return ledger.Address{}, err
	}
	return addr, nil
}

// CancelMintActivity marks an activity cancelled. It can only happen once.
func (r *Registry) CancelMintActivity(
	ctx context.Context,
	signers ledger.SignerSet,
	addr ledger.Address,
) (*MintActivity, error) {
	var ret MintActivity
	keys := []ledger.LockKey{ledger.RecordLock(addr)}
	err := r.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		if err := tx.Load(addr, &ret); err != nil {
			return err
		}
		if err := ledger.Authorize(&ret, tx.Signers()); err != nil {
			return err
		}
		if ret.Status == MintActivityCancelled {
			return ErrMintActivityAlreadyCancelled
		}
		ret.Status = MintActivityCancelled
		ret.Timestamp = tx.Now().Unix()
		return tx.Save(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// CloseMintActivity destroys an activity and refunds the deposit to the
// user
func (r *Registry) CloseMintActivity(
	ctx context.Context,
	signers ledger.SignerSet,
	user ledger.Address,
	candyMachine ledger.Address,
) error {
	addr, err := r.MintActivityAddress(user, candyMachine)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(user),
	}
	return r.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var activity MintActivity
		if err := tx.Load(addr, &activity); err != nil {
			return err
		}
		if err := ledger.Authorize(&activity, tx.Signers()); err != nil {
			return err
		}
		return tx.Destroy(addr, &activity, user)
	})
}

func (r *Registry) GetMintActivity(ctx context.Context, addr ledger.Address) (*MintActivity, error) {
	var ret MintActivity
	err := r.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *Registry) ListedNftAddress(creator, nftMint ledger.Address) (ledger.Address, error) {
	return r.rt.AddressOf(&ListedNft{Creator: creator, NftMint: nftMint})
}

// ListNft lists an NFT mint under its creator
func (r *Registry) ListNft(
	ctx context.Context,
	signers ledger.SignerSet,
	creator ledger.Address,
	nftMint ledger.Address,
	candyMachine ledger.Address,
) (ledger.Address, error) {
	if nftMint.IsZero() {
		return ledger.Address{}, ErrNftMintAddressRequired
	}
	if candyMachine.IsZero() {
		return ledger.Address{}, ErrCandyMachineAddressRequired
	}
	addr, err := r.ListedNftAddress(creator, nftMint)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(creator),
	}
	err = r.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		_, err := tx.Create(&ListedNft{
			Creator:      creator,
			NftMint:      nftMint,
			CandyMachine: candyMachine,
			ListedAt:     tx.Now().Unix(),
		}, creator)
		return err
	})
	if err != nil {
		return ledger.Address{}, err
	}
	return addr, nil
}

// UpdateListedNft moves a listing to another candy machine. The listing
// time is kept.
func (r *Registry) UpdateListedNft(
	ctx context.Context,
	signers ledger.SignerSet,
	addr ledger.Address,
	candyMachine ledger.Address,
) (*ListedNft, error) {
	var ret ListedNft
	keys := []ledger.LockKey{ledger.RecordLock(addr)}
	err := r.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		if err := tx.Load(addr, &ret); err != nil {
			return err
		}
		if err := ledger.Authorize(&ret, tx.Signers()); err != nil {
			return err
		}
		if candyMachine.IsZero() {
			return ErrCandyMachineAddressRequired
		}
		ret.CandyMachine = candyMachine
		return tx.Save(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// UnlistNft destroys a listing and refunds the deposit to its creator
func (r *Registry) UnlistNft(
	ctx context.Context,
	signers ledger.SignerSet,
	creator ledger.Address,
	nftMint ledger.Address,
) error {
	addr, err := r.ListedNftAddress(creator, nftMint)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(creator),
	}
	return r.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var listing ListedNft
		if err := tx.Load(addr, &listing); err != nil {
			return err
		}
		if err := ledger.Authorize(&listing, tx.Signers()); err != nil {
			return err
		}
		return tx.Destroy(addr, &listing, creator)
	})
}

func (r *Registry) GetListedNft(ctx context.Context, addr ledger.Address) (*ListedNft, error) {
	var ret ListedNft
	err := r.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// Listings returns the live listings of a creator, using the record index
func (r *Registry) Listings(ctx context.Context, creator ledger.Address) ([]*ListedNft, error) {
	rows, err := r.rt.Database().Metadata().GetRecordIndexes(ListedNftDomain, creator.Bytes(), nil)
	if err != nil {
		return nil, ledger.ErrStorage.Wrap(err)
	}
	ret := make([]*ListedNft, 0, len(rows))
	err = r.rt.View(ctx, func(tx *ledger.Tx) error {
		for _, row := range rows {
			addr, err := ledger.AddressFromBytes(row.Address)
			if err != nil {
				return err
			}
			var listing ListedNft
			if err := tx.Load(addr, &listing); err != nil {
				return err
			}
			ret = append(ret, &listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
