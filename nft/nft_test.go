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

package nft_test

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/taleledger/database"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/blinklabs-io/taleledger/nft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*ledger.Runtime, *nft.Registry, *ledger.FixedClock) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clock := ledger.NewFixedClock(time.Unix(1_700_000_000, 0))
	rt := ledger.NewRuntime(
		db,
		ledger.WithClock(clock),
		ledger.WithDepositSchedule(ledger.DepositSchedule{Base: 5, PerByte: 1}),
	)
	return rt, nft.New(rt), clock
}

func newKey(t *testing.T) ledger.Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return ledger.PublicKeyAddress(pub)
}

func TestMintActivity(t *testing.T) {
	ctx := context.Background()
	rt, registry, clock := newTestRegistry(t)
	user := newKey(t)
	other := newKey(t)
	candyMachine := newKey(t)
	episode := newKey(t)
	require.NoError(t, rt.Fund(ctx, user, 10_000))

	_, err := registry.LogMintActivity(ctx, ledger.NewSignerSet(user), user, nft.MintActivityParams{
		CandyMachine: candyMachine,
		NftMint:      newKey(t),
		TxSignature:  strings.Repeat("s", 89),
	})
	require.ErrorIs(t, err, ledger.ErrFieldTooLong)

	params := nft.MintActivityParams{
		CandyMachine: candyMachine,
		NftMint:      newKey(t),
		TxSignature:  strings.Repeat("s", 88),
		Episode:      &episode,
	}
	addr, err := registry.LogMintActivity(ctx, ledger.NewSignerSet(user), user, params)
	require.NoError(t, err)
	_, err = registry.LogMintActivity(ctx, ledger.NewSignerSet(user), user, params)
	require.ErrorIs(t, err, ledger.ErrAddressAlreadyInUse)

	activity, err := registry.GetMintActivity(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, nft.MintActivityActive, activity.Status)
	require.NotNil(t, activity.Episode)
	assert.Equal(t, episode, *activity.Episode)

	_, err = registry.CancelMintActivity(ctx, ledger.NewSignerSet(other), addr)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	clock.Advance(time.Minute)
	activity, err = registry.CancelMintActivity(ctx, ledger.NewSignerSet(user), addr)
	require.NoError(t, err)
	assert.Equal(t, nft.MintActivityCancelled, activity.Status)
	assert.Equal(t, clock.Now().Unix(), activity.Timestamp)
	_, err = registry.CancelMintActivity(ctx, ledger.NewSignerSet(user), addr)
	require.ErrorIs(t, err, nft.ErrMintActivityAlreadyCancelled)

	require.NoError(t, registry.CloseMintActivity(ctx, ledger.NewSignerSet(user), user, candyMachine))
	_, err = registry.GetMintActivity(ctx, addr)
	require.ErrorIs(t, err, ledger.ErrRecordNotFound)
	bal, err := rt.BalanceOf(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), bal)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	rt, registry, _ := newTestRegistry(t)
	creator := newKey(t)
	other := newKey(t)
	mintA := newKey(t)
	mintB := newKey(t)
	cm := newKey(t)
	require.NoError(t, rt.Fund(ctx, creator, 10_000))

	_, err := registry.ListNft(ctx, ledger.NewSignerSet(creator), creator, ledger.ZeroAddress, cm)
	require.ErrorIs(t, err, nft.ErrNftMintAddressRequired)
	_, err = registry.ListNft(ctx, ledger.NewSignerSet(creator), creator, mintA, ledger.ZeroAddress)
	require.ErrorIs(t, err, nft.ErrCandyMachineAddressRequired)

	addrA, err := registry.ListNft(ctx, ledger.NewSignerSet(creator), creator, mintA, cm)
	require.NoError(t, err)
	_, err = registry.ListNft(ctx, ledger.NewSignerSet(creator), creator, mintB, cm)
	require.NoError(t, err)
	_, err = registry.ListNft(ctx, ledger.NewSignerSet(creator), creator, mintA, cm)
	require.ErrorIs(t, err, ledger.ErrAddressAlreadyInUse)

	listings, err := registry.Listings(ctx, creator)
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	newCm := newKey(t)
	_, err = registry.UpdateListedNft(ctx, ledger.NewSignerSet(other), addrA, newCm)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	_, err = registry.UpdateListedNft(ctx, ledger.NewSignerSet(creator), addrA, ledger.ZeroAddress)
	require.ErrorIs(t, err, nft.ErrCandyMachineAddressRequired)
	listing, err := registry.UpdateListedNft(ctx, ledger.NewSignerSet(creator), addrA, newCm)
	require.NoError(t, err)
	assert.Equal(t, newCm, listing.CandyMachine)

	err = registry.UnlistNft(ctx, ledger.NewSignerSet(other), creator, mintA)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	require.NoError(t, registry.UnlistNft(ctx, ledger.NewSignerSet(creator), creator, mintA))
	listings, err = registry.Listings(ctx, creator)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, mintB, listings[0].NftMint)
}
