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
	"errors"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/database"
	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/plugin/blob"
	"github.com/blinklabs-io/taleledger/database/plugin/metadata"
	"github.com/blinklabs-io/taleledger/database/types"
	"github.com/blinklabs-io/taleledger/event"
)

const recordKeyPrefix = "rec"

func recordKey(addr Address) []byte {
	return append([]byte(recordKeyPrefix), addr[:]...)
}

// Tx is the context of a single ledger operation
type Tx struct {
	ctx      context.Context
	rt       *Runtime
	txn      *database.Txn
	locked   map[LockKey]struct{}
	now      time.Time
	signers  SignerSet
	onCommit []func()
	readOnly bool
}

// Context returns the context of the operation
func (t *Tx) Context() context.Context {
	return t.ctx
}

// Now returns the operation time. It is read once per operation.
func (t *Tx) Now() time.Time {
	return t.now
}

// Signers returns the keys that signed the operation
func (t *Tx) Signers() SignerSet {
	return t.signers
}

// Runtime returns the runtime executing the operation
func (t *Tx) Runtime() *Runtime {
	return t.rt
}

// OnCommit registers fn to run after the operation commits
func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

func (t *Tx) blob() blob.BlobStore {
	return t.rt.db.Blob()
}

func (t *Tx) writable() error {
	if t.readOnly {
		return ErrReadOnlyTransaction
	}
	return nil
}

// requireLock checks a key was declared. Read-only views take no locks and
// may read anything.
func (t *Tx) requireLock(key LockKey, undeclared *Error) error {
	if t.readOnly {
		return nil
	}
	if _, ok := t.locked[key]; !ok {
		return undeclared
	}
	return nil
}

func (t *Tx) requireRecordLock(addr Address) error {
	return t.requireLock(
		RecordLock(addr),
		ErrUndeclaredRecordAccess.WithDetail("%s", addr),
	)
}

func (t *Tx) readRaw(addr Address) ([]byte, error) {
	data, err := t.blob().Get(t.txn.Blob(), recordKey(addr))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, ErrRecordNotFound.WithDetail("%s", addr)
		}
		return nil, ErrStorage.Wrap(err)
	}
	return data, nil
}

// Exists reports whether a live record is stored at addr
func (t *Tx) Exists(addr Address) (bool, error) {
	if err := t.requireRecordLock(addr); err != nil {
		return false, err
	}
	_, err := t.readRaw(addr)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create stores a new record at the address derived from its seeds and
// reserves its storage deposit from payer. The payer must have signed.
func (t *Tx) Create(rec Record, payer Address) (Address, error) {
	if err := t.writable(); err != nil {
		return Address{}, err
	}
	domain := rec.RecordDomain()
	addr, nonce, err := DeriveAddress(t.rt.program, domain, rec.RecordSeeds()...)
	if err != nil {
		return Address{}, err
	}
	if err := t.requireRecordLock(addr); err != nil {
		return Address{}, err
	}
	if err := RequireSigner(payer, t.signers); err != nil {
		return Address{}, err
	}
	exists, err := t.Exists(addr)
	if err != nil {
		return Address{}, err
	}
	if exists {
		return Address{}, ErrAddressAlreadyInUse.WithDetail("%s %s", domain, addr)
	}
	body, err := cbor.Encode(rec)
	if err != nil {
		return Address{}, ErrStorage.Wrap(err)
	}
	capacity := rec.MaxSize()
	if len(body) > capacity {
		return Address{}, ErrRecordTooLarge.WithDetail(
			"%s body is %d bytes, capacity %d",
			domain,
			len(body),
			capacity,
		)
	}
	size := recordHeaderSize + capacity
	deposit, err := t.rt.schedule.Cost(size)
	if err != nil {
		return Address{}, err
	}
	if err := t.rt.deposits.Reserve(t, payer, deposit); err != nil {
		return Address{}, err
	}
	hdr := recordHeader{
		discriminator: Discriminator(domain),
		deposit:       deposit,
		nonce:         nonce,
	}
	if err := t.blob().Set(t.txn.Blob(), recordKey(addr), encodeRecord(hdr, body, capacity)); err != nil {
		return Address{}, ErrStorage.Wrap(err)
	}
	idx := newRecordIndex(addr, rec, size, deposit, t.now.Unix())
	if err := t.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
		return store.SetRecordIndex(idx, metaTxn)
	}); err != nil {
		return Address{}, err
	}
	authority := rec.Authority()
	t.OnCommit(func() {
		t.rt.metrics.recordsCreated.WithLabelValues(domain).Inc()
		t.rt.metrics.depositsReserved.Add(float64(deposit))
		t.rt.publish(RecordCreatedEventType, RecordEvent{
			Address:   addr,
			Domain:    domain,
			Authority: authority,
			Deposit:   deposit,
		})
	})
	return addr, nil
}

// Load reads the record stored at addr into rec. The address is re-derived
// from the seeds held in the record and must match.
func (t *Tx) Load(addr Address, rec Record) error {
	if err := t.requireRecordLock(addr); err != nil {
		return err
	}
	_, err := t.load(addr, rec)
	return err
}

func (t *Tx) load(addr Address, rec Record) (recordHeader, error) {
	data, err := t.readRaw(addr)
	if err != nil {
		return recordHeader{}, err
	}
	hdr, body, err := decodeRecord(data)
	if err != nil {
		return hdr, err
	}
	domain := rec.RecordDomain()
	if hdr.discriminator != Discriminator(domain) {
		return hdr, ErrDiscriminatorMismatch.WithDetail("%s is not a %s record", addr, domain)
	}
	if _, err := cbor.Decode(body, rec); err != nil {
		return hdr, ErrStorage.Wrap(err)
	}
	expected, nonce, err := DeriveAddress(t.rt.program, domain, rec.RecordSeeds()...)
	if err != nil {
		return hdr, err
	}
	if expected != addr || nonce != hdr.nonce {
		return hdr, ErrAddressMismatch.WithDetail("%s", addr)
	}
	return hdr, nil
}

// Save rewrites an existing record within its original allocation
func (t *Tx) Save(addr Address, rec Record) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requireRecordLock(addr); err != nil {
		return err
	}
	data, err := t.readRaw(addr)
	if err != nil {
		return err
	}
	hdr, _, err := decodeRecord(data)
	if err != nil {
		return err
	}
	domain := rec.RecordDomain()
	if hdr.discriminator != Discriminator(domain) {
		return ErrDiscriminatorMismatch.WithDetail("%s is not a %s record", addr, domain)
	}
	expected, _, err := DeriveAddress(t.rt.program, domain, rec.RecordSeeds()...)
	if err != nil {
		return err
	}
	if expected != addr {
		return ErrAddressMismatch.WithDetail("%s", addr)
	}
	body, err := cbor.Encode(rec)
	if err != nil {
		return ErrStorage.Wrap(err)
	}
	capacity := len(data) - recordHeaderSize
	if len(body) > capacity {
		return ErrRecordTooLarge.WithDetail(
			"%s body is %d bytes, capacity %d",
			domain,
			len(body),
			capacity,
		)
	}
	if err := t.blob().Set(t.txn.Blob(), recordKey(addr), encodeRecord(hdr, body, capacity)); err != nil {
		return ErrStorage.Wrap(err)
	}
	return nil
}

// Index queues a write to the metadata index. It runs when the operation
// commits and fails the whole operation if it errors.
func (t *Tx) Index(fn database.IndexFunc) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.txn.Index(fn); err != nil {
		return ErrStorage.Wrap(err)
	}
	return nil
}

func newRecordIndex(addr Address, rec Record, size int, deposit uint64, createdAt int64) *models.RecordIndex {
	idx := &models.RecordIndex{
		Address:   addr.Bytes(),
		Domain:    rec.RecordDomain(),
		Authority: rec.Authority().Bytes(),
		Size:      uint32(size), //nolint:gosec // bounded by MaxSize
		Deposit:   types.Uint64(deposit),
		CreatedAt: createdAt,
	}
	if child, ok := rec.(ChildRecord); ok {
		idx.Parent = child.ParentAddress().Bytes()
	}
	return idx
}

// Destroy erases the record at addr and releases its deposit to beneficiary.
// rec receives the final contents of the record.
func (t *Tx) Destroy(addr Address, rec Record, beneficiary Address) error {
	if err := t.writable(); err != nil {
		return err
	}
	if err := t.requireRecordLock(addr); err != nil {
		return err
	}
	hdr, err := t.load(addr, rec)
	if err != nil {
		return err
	}
	if err := t.rt.deposits.Release(t, beneficiary, hdr.deposit); err != nil {
		return err
	}
	if err := t.blob().Delete(t.txn.Blob(), recordKey(addr)); err != nil {
		return ErrStorage.Wrap(err)
	}
	if err := t.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
		return store.DeleteRecordIndex(addr.Bytes(), metaTxn)
	}); err != nil {
		return err
	}
	domain := rec.RecordDomain()
	authority := rec.Authority()
	t.OnCommit(func() {
		t.rt.metrics.recordsDestroyed.WithLabelValues(domain).Inc()
		t.rt.metrics.depositsReleased.Add(float64(hdr.deposit))
		t.rt.publish(RecordClosedEventType, RecordEvent{
			Address:   addr,
			Domain:    domain,
			Authority: authority,
			Deposit:   hdr.deposit,
		})
	})
	return nil
}

func (r *Runtime) publish(eventType event.EventType, data any) {
	if r.eventBus == nil {
		return
	}
	r.eventBus.PublishAsync(eventType, event.NewEvent(eventType, data))
}

// Publish sends an event after the operation commits
func (t *Tx) Publish(eventType event.EventType, data any) {
	t.OnCommit(func() {
		t.rt.publish(eventType, data)
	})
}
