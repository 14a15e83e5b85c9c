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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxVotePageSize = 100

// SetVoteIndex creates or updates the index row for a vote
func (d *MetadataStoreSqlite) SetVoteIndex(
	vote *models.VoteIndex,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phase",
			"is_active",
			"total_participants",
			"total_vote_power",
			"winning_choice",
		}),
	}
	return db.Clauses(onConflict).Create(vote).Error
}

// ClearVoteIndexes drops every vote and ballot row ahead of a rebuild
func (d *MetadataStoreSqlite) ClearVoteIndexes(txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	db = db.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&models.Ballot{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.VoteIndex{}).Error
}

// GetVoteIndex returns the index row for a vote, or nil when not indexed
func (d *MetadataStoreSqlite) GetVoteIndex(
	address []byte,
	txn types.Txn,
) (*models.VoteIndex, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.VoteIndex
	if result := db.Where("address = ?", address).First(&ret); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetVoteIndexes returns one page of votes matching the filter along with the
// total number of matching votes
func (d *MetadataStoreSqlite) GetVoteIndexes(
	filter models.VoteFilter,
	txn types.Txn,
) ([]models.VoteIndex, int64, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, 0, err
	}
	filtered := func() *gorm.DB {
		query := db.Model(&models.VoteIndex{})
		if filter.Creator != nil {
			query = query.Where("creator = ?", filter.Creator)
		}
		if filter.Category != nil {
			query = query.Where("category = ?", *filter.Category)
		}
		if filter.Phase != nil {
			query = query.Where("phase = ?", *filter.Phase)
		}
		if filter.IsActive != nil {
			query = query.Where("is_active = ?", *filter.IsActive)
		}
		return query
	}
	var total int64
	if result := filtered().Count(&total); result.Error != nil {
		return nil, 0, result.Error
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > maxVotePageSize {
		pageSize = maxVotePageSize
	}
	page := max(filter.Page, 1)
	order := "created_at, id"
	if filter.Descending {
		order = "created_at DESC, id DESC"
	}
	var ret []models.VoteIndex
	if result := filtered().Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&ret); result.Error != nil {
		return nil, 0, result.Error
	}
	return ret, total, nil
}

// AddBallot records a cast vote
func (d *MetadataStoreSqlite) AddBallot(
	ballot *models.Ballot,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(ballot).Error
}

// GetBallots lists the ballots cast on a vote in casting order
func (d *MetadataStoreSqlite) GetBallots(
	vote []byte,
	txn types.Txn,
) ([]models.Ballot, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Ballot
	if result := db.Where("vote = ?", vote).
		Order("cast_at, id").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
