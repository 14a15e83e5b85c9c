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

package sqlite_test

import (
	"math"
	"testing"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/plugin"
	"github.com/blinklabs-io/taleledger/database/plugin/metadata"
	"github.com/blinklabs-io/taleledger/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/taleledger/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New(sqlite.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addr(b byte) []byte {
	ret := make([]byte, 32)
	ret[0] = b
	return ret
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	require.NoError(t, a.SetRecordIndex(&models.RecordIndex{
		Address:   addr(1),
		Domain:    "tale",
		Authority: addr(9),
	}, nil))
	rows, err := b.GetRecordIndexes("tale", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecordIndexLifecycle(t *testing.T) {
	store := newTestStore(t)
	txn := store.Transaction()
	for i := byte(1); i <= 3; i++ {
		require.NoError(t, store.SetRecordIndex(&models.RecordIndex{
			Address:   addr(i),
			Domain:    "tale",
			Authority: addr(100 + i%2),
			Size:      128,
			Deposit:   1000,
			CreatedAt: int64(i),
		}, txn))
	}
	require.NoError(t, txn.Commit())

	rows, err := store.GetRecordIndexes("tale", addr(101), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, addr(1), rows[0].Address)
	assert.Equal(t, addr(3), rows[1].Address)

	txn = store.Transaction()
	require.NoError(t, store.DeleteRecordIndex(addr(1), txn))
	require.NoError(t, txn.Rollback())
	rows, err = store.GetRecordIndexes("tale", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	require.NoError(t, store.DeleteRecordIndex(addr(1), nil))
	rows, err = store.GetRecordIndexes("tale", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestVoteIndexUpsertAndFilter(t *testing.T) {
	store := newTestStore(t)
	for i := byte(1); i <= 5; i++ {
		require.NoError(t, store.SetVoteIndex(&models.VoteIndex{
			Address:   addr(i),
			Creator:   addr(50),
			VotingId:  "v",
			Category:  i % 2,
			IsActive:  true,
			CreatedAt: int64(i),
		}, nil))
	}
	winner := uint8(1)
	require.NoError(t, store.SetVoteIndex(&models.VoteIndex{
		Address:           addr(2),
		Creator:           addr(50),
		VotingId:          "v",
		Category:          0,
		Phase:             2,
		IsActive:          false,
		TotalParticipants: 4,
		WinningChoice:     &winner,
		CreatedAt:         2,
	}, nil))

	got, err := store.GetVoteIndex(addr(2), nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)
	assert.Equal(t, types.Uint64(4), got.TotalParticipants)
	require.NotNil(t, got.WinningChoice)
	assert.Equal(t, uint8(1), *got.WinningChoice)

	missing, err := store.GetVoteIndex(addr(77), nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	active := true
	rows, total, err := store.GetVoteIndexes(models.VoteFilter{
		IsActive: &active,
		PageSize: 2,
		Page:     2,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, rows, 2)
	assert.Equal(t, addr(4), rows[0].Address)

	category := uint8(1)
	rows, total, err = store.GetVoteIndexes(models.VoteFilter{
		Category:   &category,
		Descending: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 3)
	assert.Equal(t, addr(5), rows[0].Address)
}

func TestBallots(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddBallot(&models.Ballot{
		Vote: addr(1), Voter: addr(2), Choice: 1, Power: 5, CastAt: 10,
	}, nil))
	require.NoError(t, store.AddBallot(&models.Ballot{
		Vote: addr(1), Voter: addr(3), Choice: 0, Power: 1, CastAt: 11,
	}, nil))
	// one ballot per voter
	require.Error(t, store.AddBallot(&models.Ballot{
		Vote: addr(1), Voter: addr(2), Choice: 0, Power: 1, CastAt: 12,
	}, nil))
	rows, err := store.GetBallots(addr(1), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, addr(2), rows[0].Voter)
}

func TestUint64ColumnsKeepHighBit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetVoteIndex(&models.VoteIndex{
		Address:           addr(1),
		Creator:           addr(2),
		TotalParticipants: 1,
		TotalVotePower:    math.MaxUint64,
	}, nil))
	require.NoError(t, store.AddBallot(&models.Ballot{
		Vote: addr(1), Voter: addr(3), Power: 1 << 63,
	}, nil))
	require.NoError(t, store.SetRecordIndex(&models.RecordIndex{
		Address:   addr(4),
		Domain:    "tale",
		Authority: addr(2),
		Deposit:   math.MaxUint64 - 1,
	}, nil))

	vote, err := store.GetVoteIndex(addr(1), nil)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, uint64(math.MaxUint64), uint64(vote.TotalVotePower))
	ballots, err := store.GetBallots(addr(1), nil)
	require.NoError(t, err)
	require.Len(t, ballots, 1)
	assert.Equal(t, uint64(1<<63), uint64(ballots[0].Power))
	rows, err := store.GetRecordIndexes("tale", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(math.MaxUint64-1), uint64(rows[0].Deposit))
}

func TestClearIndexes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetRecordIndex(&models.RecordIndex{
		Address: addr(1), Domain: "tale", Authority: addr(2),
	}, nil))
	require.NoError(t, store.SetVoteIndex(&models.VoteIndex{
		Address: addr(3), Creator: addr(2),
	}, nil))
	require.NoError(t, store.AddBallot(&models.Ballot{
		Vote: addr(3), Voter: addr(4), Power: 1,
	}, nil))

	txn := store.Transaction()
	require.NoError(t, store.ClearRecordIndexes(txn))
	require.NoError(t, store.ClearVoteIndexes(txn))
	require.NoError(t, txn.Commit())

	rows, err := store.GetRecordIndexes("tale", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	vote, err := store.GetVoteIndex(addr(3), nil)
	require.NoError(t, err)
	assert.Nil(t, vote)
	ballots, err := store.GetBallots(addr(3), nil)
	require.NoError(t, err)
	assert.Empty(t, ballots)
}

func TestRegistryAppliesOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "cache-size", 1234))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "cache-size", uint64(sqlite.DefaultCacheSizeKB))
	})
	store, err := metadata.New("sqlite", plugin.Env{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	sqliteStore, ok := store.(*sqlite.MetadataStoreSqlite)
	require.True(t, ok)
	var cacheSize int64
	require.NoError(t, sqliteStore.DB().Raw("PRAGMA cache_size").Scan(&cacheSize).Error)
	assert.Equal(t, int64(-1234), cacheSize)

	_, err = metadata.New("postgres", plugin.Env{})
	assert.ErrorContains(t, err, "not found")
}
