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

package story_test

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/taleledger/database"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/blinklabs-io/taleledger/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startingBalance = 1_000_000

func newTestStore(t *testing.T) (*ledger.Runtime, *story.Store, *ledger.FixedClock) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clock := ledger.NewFixedClock(time.Unix(1_700_000_000, 0))
	rt := ledger.NewRuntime(
		db,
		ledger.WithClock(clock),
		ledger.WithDepositSchedule(ledger.DepositSchedule{Base: 10, PerByte: 1}),
	)
	return rt, story.New(rt), clock
}

func newFundedKey(t *testing.T, rt *ledger.Runtime) ledger.Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	key := ledger.PublicKeyAddress(pub)
	require.NoError(t, rt.Fund(context.Background(), key, startingBalance))
	return key
}

func testTale() story.TaleParams {
	return story.TaleParams{
		TaleId:        "moonlit-harbor",
		Title:         "Moonlit Harbor",
		ContentCid:    "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		Genre:         "mystery",
		CoverImageCid: "bafkreih2",
		Status:        story.StatusDraft,
	}
}

func TestTaleLifecycle(t *testing.T) {
	ctx := context.Background()
	rt, store, clock := newTestStore(t)
	author := newFundedKey(t, rt)
	other := newFundedKey(t, rt)

	addr, err := store.CreateTale(ctx, ledger.NewSignerSet(author), author, testTale())
	require.NoError(t, err)
	expected, err := store.TaleAddress("moonlit-harbor")
	require.NoError(t, err)
	assert.Equal(t, expected, addr)
	bal, err := rt.BalanceOf(ctx, author)
	require.NoError(t, err)
	assert.Less(t, bal, uint64(startingBalance))

	_, err = store.CreateTale(ctx, ledger.NewSignerSet(other), other, testTale())
	require.ErrorIs(t, err, ledger.ErrAddressAlreadyInUse)

	update := testTale()
	update.Title = "Moonlit Harbor, Revised"
	update.Status = story.StatusPublished
	_, err = store.UpdateTale(ctx, ledger.NewSignerSet(other), addr, update)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	clock.Advance(time.Hour)
	tale, err := store.UpdateTale(ctx, ledger.NewSignerSet(author), addr, update)
	require.NoError(t, err)
	assert.Equal(t, "Moonlit Harbor, Revised", tale.Title)
	assert.Equal(t, "moonlit-harbor", tale.TaleId)
	assert.Equal(t, clock.Now().Unix(), tale.Timestamp)

	err = store.DeleteTale(ctx, ledger.NewSignerSet(author), addr)
	require.ErrorIs(t, err, story.ErrCannotDeletePublished)

	update.Status = story.StatusArchived
	_, err = store.UpdateTale(ctx, ledger.NewSignerSet(author), addr, update)
	require.NoError(t, err)
	err = store.DeleteTale(ctx, ledger.NewSignerSet(other), addr)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	require.NoError(t, store.DeleteTale(ctx, ledger.NewSignerSet(author), addr))

	bal, err = rt.BalanceOf(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, uint64(startingBalance), bal)
	_, err = store.GetTale(ctx, addr)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
	err = store.DeleteTale(ctx, ledger.NewSignerSet(author), addr)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)

	// The ID is free again once the tale is gone
	_, err = store.CreateTale(ctx, ledger.NewSignerSet(other), other, testTale())
	require.NoError(t, err)
}

func TestTaleValidation(t *testing.T) {
	ctx := context.Background()
	rt, store, _ := newTestStore(t)
	author := newFundedKey(t, rt)
	testDefs := []struct {
		name   string
		modify func(*story.TaleParams)
		err    error
	}{
		{
			name:   "empty id",
			modify: func(p *story.TaleParams) { p.TaleId = "" },
			err:    ledger.ErrFieldEmpty,
		},
		{
			name:   "long id",
			modify: func(p *story.TaleParams) { p.TaleId = strings.Repeat("i", 33) },
			err:    ledger.ErrFieldTooLong,
		},
		{
			name:   "long title",
			modify: func(p *story.TaleParams) { p.Title = strings.Repeat("t", 101) },
			err:    ledger.ErrFieldTooLong,
		},
		{
			name:   "long genre",
			modify: func(p *story.TaleParams) { p.Genre = strings.Repeat("g", 31) },
			err:    ledger.ErrFieldTooLong,
		},
		{
			name:   "bad status",
			modify: func(p *story.TaleParams) { p.Status = story.Status(3) },
			err:    ledger.ErrInvalidEnumValue,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := testTale()
			testDef.modify(&params)
			_, err := store.CreateTale(ctx, ledger.NewSignerSet(author), author, params)
			require.ErrorIs(t, err, testDef.err)
		})
	}

	addr, err := store.CreateTale(ctx, ledger.NewSignerSet(author), author, testTale())
	require.NoError(t, err)
	before, err := store.GetTale(ctx, addr)
	require.NoError(t, err)
	bad := testTale()
	bad.Title = "new title"
	bad.CoverImageCid = strings.Repeat("c", 65)
	_, err = store.UpdateTale(ctx, ledger.NewSignerSet(author), addr, bad)
	require.ErrorIs(t, err, ledger.ErrFieldTooLong)
	after, err := store.GetTale(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEpisodes(t *testing.T) {
	ctx := context.Background()
	rt, store, _ := newTestStore(t)
	author := newFundedKey(t, rt)
	other := newFundedKey(t, rt)
	taleAddr, err := store.CreateTale(ctx, ledger.NewSignerSet(author), author, testTale())
	require.NoError(t, err)

	_, err = store.CreateEpisode(ctx, ledger.NewSignerSet(other), taleAddr, story.EpisodeParams{
		EpisodeId: "ep-1",
		Name:      "Arrival",
	})
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	second, err := store.CreateEpisode(ctx, ledger.NewSignerSet(author), taleAddr, story.EpisodeParams{
		EpisodeId:      "ep-2",
		Name:           "Low Tide",
		Order:          2,
		IsNft:          true,
		CandyMachineId: "CndyV3LdqHUfDLmE5naZjVN8rBZz4tqhdefbAnjHG3JR",
	})
	require.NoError(t, err)
	first, err := store.CreateEpisode(ctx, ledger.NewSignerSet(author), taleAddr, story.EpisodeParams{
		EpisodeId:      "ep-1",
		Name:           "Arrival",
		Order:          1,
		CandyMachineId: "ignored",
	})
	require.NoError(t, err)

	episode, err := store.GetEpisode(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, author, episode.Author)
	assert.Equal(t, taleAddr, episode.ParentTale)
	assert.Empty(t, episode.CandyMachineId)

	episodes, err := store.Episodes(ctx, taleAddr)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "ep-1", episodes[0].EpisodeId)
	assert.Equal(t, "ep-2", episodes[1].EpisodeId)

	updated, err := store.UpdateEpisode(ctx, ledger.NewSignerSet(author), second, story.EpisodeParams{
		Name:           "Low Tide",
		Order:          2,
		IsNft:          false,
		CandyMachineId: "CndyV3LdqHUfDLmE5naZjVN8rBZz4tqhdefbAnjHG3JR",
	})
	require.NoError(t, err)
	assert.False(t, updated.IsNft)
	assert.Empty(t, updated.CandyMachineId)
	assert.Equal(t, "ep-2", updated.EpisodeId)

	err = store.DeleteEpisode(ctx, ledger.NewSignerSet(other), first)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	require.NoError(t, store.DeleteEpisode(ctx, ledger.NewSignerSet(author), first))
	episodes, err = store.Episodes(ctx, taleAddr)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "ep-2", episodes[0].EpisodeId)
}

func TestUserProfile(t *testing.T) {
	ctx := context.Background()
	rt, store, clock := newTestStore(t)
	wallet := newFundedKey(t, rt)
	other := newFundedKey(t, rt)

	_, err := store.RegisterUser(ctx, ledger.NewSignerSet(wallet), wallet, "", story.RoleUser)
	require.ErrorIs(t, err, ledger.ErrFieldEmpty)
	_, err = store.RegisterUser(ctx, ledger.NewSignerSet(wallet), wallet, strings.Repeat("n", 51), story.RoleUser)
	require.ErrorIs(t, err, ledger.ErrFieldTooLong)
	_, err = store.RegisterUser(ctx, ledger.NewSignerSet(other), wallet, "Ana", story.RoleUser)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = store.RegisterUser(ctx, ledger.NewSignerSet(wallet), wallet, "Ana", story.RoleCreator)
	require.NoError(t, err)
	_, err = store.RegisterUser(ctx, ledger.NewSignerSet(wallet), wallet, "Ana", story.RoleCreator)
	require.ErrorIs(t, err, ledger.ErrAddressAlreadyInUse)

	clock.Advance(24 * time.Hour)
	user, err := store.RecordLogin(ctx, ledger.NewSignerSet(wallet), wallet)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Unix(), user.LastLoginAt)
	assert.Less(t, user.CreatedAt, user.LastLoginAt)

	_, err = store.UpdateUser(ctx, ledger.NewSignerSet(other), wallet, "Mallory", story.RoleAdmin)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	_, err = store.UpdateUser(ctx, ledger.NewSignerSet(wallet), wallet, "Ana B", story.Role(7))
	require.ErrorIs(t, err, ledger.ErrInvalidEnumValue)
	user, err = store.UpdateUser(ctx, ledger.NewSignerSet(wallet), wallet, "Ana B", story.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "Ana B", user.Name)

	require.NoError(t, store.CloseUser(ctx, ledger.NewSignerSet(wallet), wallet))
	_, err = store.GetUser(ctx, wallet)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
	bal, err := rt.BalanceOf(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, uint64(startingBalance), bal)
}
