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

package database_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/taleledger/database"
	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/plugin"
	"github.com/blinklabs-io/taleledger/database/plugin/blob/badger"
	"github.com/blinklabs-io/taleledger/database/plugin/metadata"
	"github.com/blinklabs-io/taleledger/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDb(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTxnDoCommitsBothStores(t *testing.T) {
	db := newTestDb(t)
	key := []byte("rec:one")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.Blob().Set(txn.Blob(), key, []byte("payload")); err != nil {
			return err
		}
		return txn.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
			return store.SetRecordIndex(&models.RecordIndex{
				Address:   key,
				Domain:    "test",
				Authority: []byte("auth"),
			}, metaTxn)
		})
	})
	require.NoError(t, err)

	txn := db.Transaction(false)
	defer txn.Release()
	val, err := db.Blob().Get(txn.Blob(), key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)
	rows, err := db.Metadata().GetRecordIndexes("test", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTxnDoRollsBackOnError(t *testing.T) {
	db := newTestDb(t)
	key := []byte("rec:two")
	errBoom := errors.New("boom")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.Blob().Set(txn.Blob(), key, []byte("payload")); err != nil {
			return err
		}
		if err := txn.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
			return store.SetRecordIndex(&models.RecordIndex{
				Address:   key,
				Domain:    "test",
				Authority: []byte("auth"),
			}, metaTxn)
		}); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	txn := db.Transaction(false)
	defer txn.Release()
	_, err = db.Blob().Get(txn.Blob(), key)
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	rows, err := db.Metadata().GetRecordIndexes("test", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReleaseAfterCommitIsNoop(t *testing.T) {
	db := newTestDb(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Commit())
	txn.Release()
	require.NoError(t, txn.Commit())
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "missing"})
	require.Error(t, err)
}

func TestIndexFailureRollsBackBlob(t *testing.T) {
	db := newTestDb(t)
	key := []byte("rec:three")
	errIndex := errors.New("index rejected")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.Blob().Set(txn.Blob(), key, []byte("payload")); err != nil {
			return err
		}
		return txn.Index(func(metadata.MetadataStore, types.Txn) error {
			return errIndex
		})
	})
	require.ErrorIs(t, err, errIndex)

	txn := db.Transaction(false)
	defer txn.Release()
	_, err = db.Blob().Get(txn.Blob(), key)
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestIndexWritesWaitForCommit(t *testing.T) {
	db := newTestDb(t)
	txn := db.Transaction(true)
	ran := 0
	require.NoError(t, txn.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
		ran++
		return store.SetRecordIndex(&models.RecordIndex{
			Address:   []byte("rec:four"),
			Domain:    "test",
			Authority: []byte("auth"),
		}, metaTxn)
	}))
	assert.Zero(t, ran)
	// the index stays readable while the write is pending
	rows, err := db.Metadata().GetRecordIndexes("test", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, txn.Commit())
	assert.Equal(t, 1, ran)
	rows, err = db.Metadata().GetRecordIndexes("test", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Error(t, txn.Index(func(metadata.MetadataStore, types.Txn) error { return nil }))
}

func TestIndexOnReadOnlyTxn(t *testing.T) {
	db := newTestDb(t)
	txn := db.Transaction(false)
	defer txn.Release()
	err := txn.Index(func(metadata.MetadataStore, types.Txn) error { return nil })
	assert.ErrorIs(t, err, database.ErrReadOnlyTxn)
}

func TestPluginOptionsReachStores(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "sync-writes", true))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "sync-writes", false)
	})
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, ok := db.Blob().(*badger.BlobStoreBadger)
	require.True(t, ok)
	assert.True(t, store.DB().Opts().SyncWrites)
}
