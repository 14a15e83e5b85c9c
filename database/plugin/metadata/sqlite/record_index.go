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
	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetRecordIndex creates or replaces the index row for a record
func (d *MetadataStoreSqlite) SetRecordIndex(
	record *models.RecordIndex,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"domain",
			"authority",
			"parent",
			"size",
			"deposit",
			"created_at",
		}),
	}
	return db.Clauses(onConflict).Create(record).Error
}

// DeleteRecordIndex removes the index row for a destroyed record
func (d *MetadataStoreSqlite) DeleteRecordIndex(
	address []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("address = ?", address).
		Delete(&models.RecordIndex{}).Error
}

// ClearRecordIndexes drops every record index row ahead of a rebuild
func (d *MetadataStoreSqlite) ClearRecordIndexes(txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.RecordIndex{}).Error
}

// GetRecordIndexes lists live records of a domain. A nil authority matches
// every authority.
func (d *MetadataStoreSqlite) GetRecordIndexes(
	domain string,
	authority []byte,
	txn types.Txn,
) ([]models.RecordIndex, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Where("domain = ?", domain)
	if authority != nil {
		query = query.Where("authority = ?", authority)
	}
	var ret []models.RecordIndex
	if result := query.Order("created_at, id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetChildRecordIndexes lists live records whose parent is the given address
func (d *MetadataStoreSqlite) GetChildRecordIndexes(
	parent []byte,
	txn types.Txn,
) ([]models.RecordIndex, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.RecordIndex
	if result := db.Where("parent = ?", parent).
		Order("created_at, id").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
