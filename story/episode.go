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
	"cmp"
	"context"
	"slices"

	"github.com/blinklabs-io/taleledger/ledger"
)

type EpisodeParams struct {
	EpisodeId      string
	Name           string
	ContentCid     string
	ImageSetId     string
	Order          uint32
	Status         Status
	IsNft          bool
	CandyMachineId string
}

func (p *EpisodeParams) validateContent() error {
	if err := ledger.ValidateLength("name", p.Name, MaxEpisodeNameLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("content_cid", p.ContentCid, MaxContentCidLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("image_set_id", p.ImageSetId, MaxImageSetIdLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("candy_machine_id", p.CandyMachineId, MaxCandyMachineIdLength); err != nil {
		return err
	}
	return ledger.ValidateEnum("status", p.Status)
}

// candyMachineId is only kept for NFT episodes
func (p *EpisodeParams) candyMachineId() string {
	if !p.IsNft {
		return ""
	}
	return p.CandyMachineId
}

func (s *Store) EpisodeAddress(tale ledger.Address, episodeId string) (ledger.Address, error) {
	return s.rt.AddressOf(&Episode{ParentTale: tale, EpisodeId: episodeId})
}

// CreateEpisode adds an episode to a tale. Only the tale author may do so,
// and the episode keeps its own copy of that authority.
func (s *Store) CreateEpisode(
	ctx context.Context,
	signers ledger.SignerSet,
	taleAddr ledger.Address,
	params EpisodeParams,
) (ledger.Address, error) {
	if err := ledger.ValidateBounded("episode_id", params.EpisodeId, MaxEpisodeIdLength); err != nil {
		return ledger.Address{}, err
	}
	if err := params.validateContent(); err != nil {
		return ledger.Address{}, err
	}
	tale, err := s.GetTale(ctx, taleAddr)
	if err != nil {
		return ledger.Address{}, err
	}
	addr, err := s.EpisodeAddress(taleAddr, params.EpisodeId)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(taleAddr),
		ledger.RecordLock(addr),
		ledger.BalanceLock(tale.Author),
	}
	err = s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var parent Tale
		if err := tx.Load(taleAddr, &parent); err != nil {
			return err
		}
		if err := ledger.Authorize(&parent, tx.Signers()); err != nil {
			return err
		}
		_, err := tx.Create(&Episode{
			Author:         parent.Author,
			ParentTale:     taleAddr,
			EpisodeId:      params.EpisodeId,
			Name:           params.Name,
			ContentCid:     params.ContentCid,
			ImageSetId:     params.ImageSetId,
			Order:          params.Order,
			Status:         params.Status,
			IsNft:          params.IsNft,
			CandyMachineId: params.candyMachineId(),
			Timestamp:      tx.Now().Unix(),
		}, parent.Author)
		return err
	})
	if err != nil {
		return ledger.Address{}, err
	}
	return addr, nil
}

// UpdateEpisode replaces the mutable fields of an episode
func (s *Store) UpdateEpisode(
	ctx context.Context,
	signers ledger.SignerSet,
	addr ledger.Address,
	params EpisodeParams,
) (*Episode, error) {
	var ret Episode
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
		ret.Name = params.Name
		ret.ContentCid = params.ContentCid
		ret.ImageSetId = params.ImageSetId
		ret.Order = params.Order
		ret.Status = params.Status
		ret.IsNft = params.IsNft
		ret.CandyMachineId = params.candyMachineId()
		ret.Timestamp = tx.Now().Unix()
		return tx.Save(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// DeleteEpisode destroys an episode and refunds the deposit to its author
func (s *Store) DeleteEpisode(
	ctx context.Context,
	signers ledger.SignerSet,
	addr ledger.Address,
) error {
	episode, err := s.GetEpisode(ctx, addr)
	if err != nil {
		return err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(addr),
		ledger.BalanceLock(episode.Author),
	}
	return s.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var cur Episode
		if err := tx.Load(addr, &cur); err != nil {
			return err
		}
		if err := ledger.Authorize(&cur, tx.Signers()); err != nil {
			return err
		}
		return tx.Destroy(addr, &cur, cur.Author)
	})
}

func (s *Store) GetEpisode(ctx context.Context, addr ledger.Address) (*Episode, error) {
	var ret Episode
	err := s.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// Episodes returns the live episodes of a tale in episode order, using the
// record index to find them
func (s *Store) Episodes(ctx context.Context, taleAddr ledger.Address) ([]*Episode, error) {
	rows, err := s.rt.Database().Metadata().GetChildRecordIndexes(taleAddr.Bytes(), nil)
	if err != nil {
		return nil, ledger.ErrStorage.Wrap(err)
	}
	var ret []*Episode
	err = s.rt.View(ctx, func(tx *ledger.Tx) error {
		for _, row := range rows {
			if row.Domain != EpisodeDomain {
				continue
			}
			addr, err := ledger.AddressFromBytes(row.Address)
			if err != nil {
				return err
			}
			var episode Episode
			if err := tx.Load(addr, &episode); err != nil {
				return err
			}
			ret = append(ret, &episode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(ret, func(a, b *Episode) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return ret, nil
}
