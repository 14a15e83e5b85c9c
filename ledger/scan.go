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
	"context"
	"sync"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/database/plugin/metadata"
	"github.com/blinklabs-io/taleledger/database/types"
)

// RecordFactory returns an empty record of one type to decode into
type RecordFactory func() Record

type recordType struct {
	domain  string
	factory RecordFactory
}

type recordTypes struct {
	sync.RWMutex
	byDiscriminator map[[discriminatorLength]byte]recordType
}

// RegisterRecordTypes lets the runtime decode records of these types while
// scanning storage, where only the discriminator says what a record is
func (r *Runtime) RegisterRecordTypes(factories ...RecordFactory) {
	r.registry.Lock()
	defer r.registry.Unlock()
	if r.registry.byDiscriminator == nil {
		r.registry.byDiscriminator = make(map[[discriminatorLength]byte]recordType)
	}
	for _, factory := range factories {
		domain := factory().RecordDomain()
		r.registry.byDiscriminator[Discriminator(domain)] = recordType{
			domain:  domain,
			factory: factory,
		}
	}
}

func (r *Runtime) recordType(discriminator [discriminatorLength]byte) (recordType, bool) {
	r.registry.RLock()
	defer r.registry.RUnlock()
	ret, ok := r.registry.byDiscriminator[discriminator]
	return ret, ok
}

func (r *Runtime) recordDomains() []string {
	r.registry.RLock()
	defer r.registry.RUnlock()
	ret := make([]string, 0, len(r.registry.byDiscriminator))
	for _, t := range r.registry.byDiscriminator {
		ret = append(ret, t.domain)
	}
	return ret
}

// StoredRecord is a record found by ScanRecords
type StoredRecord struct {
	Record  Record
	Address Address
	Deposit uint64
	// Size is the full allocation, header included
	Size int
}

// ScanRecords decodes every stored record of a registered type in address
// order. Records of other types are skipped and counted.
func (t *Tx) ScanRecords(fn func(StoredRecord) error) (int, error) {
	skipped := 0
	prefix := []byte(recordKeyPrefix)
	err := t.blob().Scan(t.txn.Blob(), prefix, func(key, value []byte) error {
		if err := t.ctx.Err(); err != nil {
			return err
		}
		addr, err := AddressFromBytes(key[len(prefix):])
		if err != nil {
			return ErrStorage.Wrap(err)
		}
		hdr, body, err := decodeRecord(value)
		if err != nil {
			return err
		}
		rt, ok := t.rt.recordType(hdr.discriminator)
		if !ok {
			skipped++
			return nil
		}
		rec := rt.factory()
		if _, err := cbor.Decode(body, rec); err != nil {
			return ErrStorage.WithDetail("%s %s: %s", rt.domain, addr, err)
		}
		return fn(StoredRecord{
			Record:  rec,
			Address: addr,
			Deposit: hdr.deposit,
			Size:    len(value),
		})
	})
	if err != nil {
		if _, ok := KindOf(err); ok {
			return skipped, err
		}
		if t.ctx.Err() != nil {
			return skipped, err
		}
		return skipped, ErrStorage.Wrap(err)
	}
	return skipped, nil
}

// RebuildRecordIndex replaces the record index with rows derived from the
// stored records and returns how many were indexed. Rows for records that
// are still stored keep their creation time. Operations that commit while
// the rebuild runs may be missing from the result, so run it on a node that
// is not serving requests.
func (r *Runtime) RebuildRecordIndex(ctx context.Context) (int, error) {
	created := make(map[Address]int64)
	for _, domain := range r.recordDomains() {
		rows, err := r.db.Metadata().GetRecordIndexes(domain, nil, nil)
		if err != nil {
			return 0, ErrStorage.Wrap(err)
		}
		for _, row := range rows {
			if addr, err := AddressFromBytes(row.Address); err == nil {
				created[addr] = row.CreatedAt
			}
		}
	}
	var indexed, skipped int
	err := r.Execute(ctx, NewSignerSet(), nil, func(tx *Tx) error {
		indexed = 0
		err := tx.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
			return store.ClearRecordIndexes(metaTxn)
		})
		if err != nil {
			return err
		}
		skipped, err = tx.ScanRecords(func(stored StoredRecord) error {
			createdAt, ok := created[stored.Address]
			if !ok {
				createdAt = tx.Now().Unix()
			}
			idx := newRecordIndex(stored.Address, stored.Record, stored.Size, stored.Deposit, createdAt)
			indexed++
			return tx.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
				return store.SetRecordIndex(idx, metaTxn)
			})
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		r.logger.Warn(
			"stored records of unregistered types left out of the index",
			"count", skipped,
		)
	}
	r.logger.Info("record index rebuilt", "records", indexed)
	return indexed, nil
}
