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
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/taleledger/database/plugin/metadata"
	"github.com/blinklabs-io/taleledger/database/types"
)

var (
	// ErrReadOnlyTxn is returned when an index write is queued on a
	// read-only transaction
	ErrReadOnlyTxn = errors.New("index write on read-only transaction")

	errTxnDone = errors.New("transaction already committed or rolled back")
)

// IndexFunc applies index writes inside the metadata transaction opened at
// commit time
type IndexFunc func(metadata.MetadataStore, types.Txn) error

// Txn is one ledger operation. Blob reads and writes go straight to the blob
// transaction. Index writes are queued and applied at commit, so the
// metadata store is only held while the operation commits.
type Txn struct {
	db        *Database
	blobTxn   types.Txn
	pending   []IndexFunc
	lock      sync.Mutex
	finished  bool
	readWrite bool
}

func newTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:        db,
		blobTxn:   db.blob.NewTransaction(readWrite),
		readWrite: readWrite,
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// ReadWrite reports whether the transaction may write
func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// Index queues fn to run against the metadata store when the transaction
// commits. Writes queued by one operation land atomically with its blob
// writes, in queue order.
func (t *Txn) Index(fn IndexFunc) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return errTxnDone
	}
	if !t.readWrite {
		return ErrReadOnlyTxn
	}
	t.pending = append(t.pending, fn)
	return nil
}

// Do executes the specified function in the context of the transaction. Any errors returned will result
// in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit applies the queued index writes, then commits the blob store and
// finally the index. A failure before the blob commit leaves both stores
// untouched.
func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	if !t.readWrite {
		return t.rollback()
	}
	var metaTxn types.Txn
	if len(t.pending) > 0 {
		metaTxn = t.db.metadata.Transaction()
		for _, fn := range t.pending {
			if err := fn(t.db.metadata, metaTxn); err != nil {
				_ = metaTxn.Rollback()
				_ = t.rollback()
				return fmt.Errorf("index write failed: %w", err)
			}
		}
	}
	t.finished = true
	t.pending = nil
	if err := t.blobTxn.Commit(); err != nil {
		if metaTxn != nil {
			_ = metaTxn.Rollback()
		}
		return fmt.Errorf("blob commit failed: %w", err)
	}
	if metaTxn == nil {
		return nil
	}
	if err := metaTxn.Commit(); err != nil {
		// The index is now behind the blob store until it is rebuilt
		t.db.logger.Error(
			"partial commit: blob committed, metadata failed",
			"component", "database",
			"error", err,
		)
		return fmt.Errorf(
			"partial commit: metadata commit failed after blob commit: %w",
			err,
		)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.pending = nil
	if err := t.blobTxn.Rollback(); err != nil {
		return fmt.Errorf("blob rollback: %w", err)
	}
	return nil
}

// Release releases transaction resources. For read-write transactions, this
// is equivalent to Rollback. Errors are logged but not returned, making this
// safe for deferred calls.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
