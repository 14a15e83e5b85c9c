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

package badger_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/taleledger/database/plugin"
	"github.com/blinklabs-io/taleledger/database/plugin/blob"
	"github.com/blinklabs-io/taleledger/database/plugin/blob/badger"
	"github.com/blinklabs-io/taleledger/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *badger.BlobStoreBadger {
	t.Helper()
	store, err := badger.New(badger.Config{
		PromRegistry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := newTestStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("rec:a"), []byte("one")))
	require.NoError(t, store.Set(txn, []byte("rec:b"), []byte("two")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	val, err := store.Get(txn, []byte("rec:a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), val)
	_, err = store.Get(txn, []byte("rec:missing"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("rec:a")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("rec:a"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, []byte("k"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestFinishedTxnRejected(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, txn.Commit())
	err := store.Set(txn, []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, types.ErrTxnFinished)
	assert.ErrorIs(t, store.Set(nil, []byte("k"), nil), types.ErrNilTxn)
}

func TestScanPrefix(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	for _, k := range []string{"bal:2", "bal:1", "rec:1"} {
		require.NoError(t, store.Set(txn, []byte(k), []byte("v"+k)))
	}
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	var keys, vals []string
	require.NoError(t, store.Scan(txn, []byte("bal:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		vals = append(vals, string(value))
		return nil
	}))
	assert.Equal(t, []string{"bal:1", "bal:2"}, keys)
	assert.Equal(t, []string{"vbal:1", "vbal:2"}, vals)

	stop := errors.New("stop")
	visited := 0
	err := store.Scan(txn, nil, func(key, value []byte) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
	assert.ErrorIs(t, store.Scan(nil, nil, nil), types.ErrNilTxn)
}

func TestRegistryAppliesOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "block-cache-size", 1<<20))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "sync-writes", true))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc", false))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "block-cache-size", uint64(badger.DefaultBlockCacheSize))
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "sync-writes", false)
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc", true)
	})
	store, err := blob.New("badger", plugin.Env{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	badgerStore, ok := store.(*badger.BlobStoreBadger)
	require.True(t, ok)
	opts := badgerStore.DB().Opts()
	assert.Equal(t, int64(1<<20), opts.BlockCacheSize)
	assert.True(t, opts.SyncWrites)

	assert.Error(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", "/tmp"))
}
