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

// Store manages tales, their episodes and user profiles
type Store struct {
	rt *ledger.Runtime
}

func New(rt *ledger.Runtime) *Store {
	rt.RegisterRecordTypes(
		func() ledger.Record { return &Tale{} },
		func() ledger.Record { return &Episode{} },
		func() ledger.Record { return &UserProfile{} },
	)
	return &Store{rt: rt}
}

type TaleParams struct {
	TaleId        string
	Title         string
	ContentCid    string
	Genre         string
	CoverImageCid string
	Status        Status
}

func (p *TaleParams) validateContent() error {
	if err := ledger.ValidateLength("title", p.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("content_cid", p.ContentCid, MaxContentCidLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("genre", p.Genre, MaxGenreLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("cover_image_cid", p.CoverImageCid, MaxCoverImageCidLength); err != nil {
		return err
	}
	return ledger.ValidateEnum("status", p.Status)
}

func (s *Store) TaleAddress(taleId string) (ledger.Address, error) {
	return s.rt.AddressOf(&Tale{TaleId: taleId})
}

// CreateTale stores a new tale. The author signs and pays the deposit.
func (s *Store) CreateTale(
	ctx context.Context,
	signers ledger.SignerSet,
	author ledger.Address,
	params TaleParams,
) (ledger.Address, error) {
	if err := ledger.ValidateBounded("tale_id", params.TaleId, MaxTaleIdLength); err != nil {
		return ledger.Address{}, err
	}
	if err := params.validateContent(); err != nil {
		return ledger.Address{}, err
	}
	addr, err := s.TaleAddress(params.TaleId)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(author),
	}
	err = s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		_, err := tx.Create(&Tale{
			Author:        author,
			TaleId:        params.TaleId,
			Title:         params.Title,
			ContentCid:    params.ContentCid,
			Genre:         params.Genre,
			CoverImageCid: params.CoverImageCid,
			Status:        params.Status,
			Timestamp:     tx.Now().Unix(),
		}, author)
		return err
	})
	if err != nil {
		return ledger.Address{}, err
	}
	return addr, nil
}

// UpdateTale replaces the mutable fields of a tale. The tale ID is fixed.
func (s *Store) UpdateTale(
	ctx context.Context,
	signers ledger.SignerSet,
	addr ledger.Address,
	params TaleParams,
) (*Tale, error) {
	var ret Tale
	keys := []ledger.LockKey{ledger.RecordLock(addr)}
	err := s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		if err := tx.Load(addr, &ret); err != nil {
			return err
		}
		if err := ledger.Authorize(&ret, tx.Signers()); err != nil {
			return err
		}
		if err := params.validateContent(); err != nil {
			return err
		}
		ret.Title = params.Title
		ret.ContentCid = params.ContentCid
		ret.Genre = params.Genre
		ret.CoverImageCid = params.CoverImageCid
		ret.Status = params.Status
		ret.Timestamp = tx.Now().Unix()
		return tx.Save(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// DeleteTale destroys a tale that is not published and refunds the
// deposit to its author
func (s *Store) DeleteTale(
	ctx context.Context,
	signers ledger.SignerSet,
	addr ledger.Address,
) error {
	tale, err := s.GetTale(ctx, addr)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(tale.Author),
	}
	return s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var cur Tale
		if err := tx.Load(addr, &cur); err != nil {
			return err
		}
		if err := ledger.Authorize(&cur, tx.Signers()); err != nil {
			return err
		}
		if cur.Status == StatusPublished {
			return ErrCannotDeletePublished.WithDetail("%s", cur.TaleId)
		}
		return tx.Destroy(addr, &cur, cur.Author)
	})
}

func (s *Store) GetTale(ctx context.Context, addr ledger.Address) (*Tale, error) {
	var ret Tale
	err := s.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}
