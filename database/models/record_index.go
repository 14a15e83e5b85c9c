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

package models

import "github.com/blinklabs-io/taleledger/database/types"

// RecordIndex mirrors a live derived record so records can be listed by
// domain and authority without scanning the blob store
type RecordIndex struct {
	ID        uint         `gorm:"primarykey"`
	Address   []byte       `gorm:"uniqueIndex;size:32;not null"`
	Domain    string       `gorm:"index:idx_record_domain_authority,priority:1;size:32;not null"`
	Authority []byte       `gorm:"index:idx_record_domain_authority,priority:2;size:32;not null"`
	Parent    []byte       `gorm:"index;size:32"`
	Size      uint32       `gorm:"not null"`
	Deposit   types.Uint64 `gorm:"not null"`
	CreatedAt int64        `gorm:"not null"`
}

// TableName returns the table name
func (RecordIndex) TableName() string {
	return "record_index"
}
