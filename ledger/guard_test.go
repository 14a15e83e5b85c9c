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

package ledger_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedThing struct {
	owner ledger.Address
}

func (o ownedThing) Authority() ledger.Address { return o.owner }

func TestAuthorize(t *testing.T) {
	owner := ledger.Address{1}
	other := ledger.Address{2}
	rec := ownedThing{owner: owner}
	assert.NoError(t, ledger.Authorize(rec, ledger.NewSignerSet(other, owner)))
	err := ledger.Authorize(rec, ledger.NewSignerSet(other))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	kind, _ := ledger.KindOf(err)
	assert.Equal(t, ledger.KindAuthorization, kind)
	assert.ErrorIs(t, ledger.Authorize(rec, ledger.NewSignerSet()), ledger.ErrUnauthorized)
}

func TestVerifySigners(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	msg := []byte("cast ballot")

	signers, err := ledger.VerifySigners(msg, ledger.Sign(priv, msg), ledger.Sign(otherPriv, msg))
	require.NoError(t, err)
	assert.Equal(t, 2, signers.Len())
	assert.True(t, signers.Contains(ledger.PublicKeyAddress(pub)))
	assert.Len(t, signers.Keys(), 2)

	forged := ledger.Sign(otherPriv, msg)
	forged.PublicKey = ledger.PublicKeyAddress(pub)
	_, err = ledger.VerifySigners(msg, forged)
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)

	sig := ledger.Sign(priv, msg)
	_, err = ledger.VerifySigners([]byte("other message"), sig)
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)
}
