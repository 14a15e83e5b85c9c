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

package keystore

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadSigningKey(t *testing.T) {
	key, err := GenerateSigningKey("operator")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "operator.skey")
	require.NoError(t, WriteSigningKey(path, key, false))

	loaded, err := LoadSigningKey(path)
	require.NoError(t, err)
	assert.Equal(t, key.Address(), loaded.Address())
	assert.Equal(t, "operator", loaded.Description())

	msg := []byte("cast ballot")
	signers, err := ledger.VerifySigners(msg, loaded.Sign(msg))
	require.NoError(t, err)
	assert.True(t, signers.Contains(key.Address()))
	assert.True(t, loaded.Signers().Contains(key.Address()))

	vkey, err := os.ReadFile(path + ".vkey")
	require.NoError(t, err)
	assert.Contains(t, string(vkey), VerificationKeyType)
	_, err = LoadSigningKey(path + ".vkey")
	if runtime.GOOS != "windows" {
		require.ErrorIs(t, err, ErrInsecureFileMode)
	}
}

func TestLoadSigningKeyInsecureMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not used on windows")
	}
	key, err := GenerateSigningKey("")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "open.skey")
	require.NoError(t, WriteSigningKey(path, key, false))
	require.NoError(t, os.Chmod(path, 0o644))
	_, err = LoadSigningKey(path)
	require.ErrorIs(t, err, ErrInsecureFileMode)
}

func envelope(t *testing.T, keyType string, keyBytes []byte) []byte {
	t.Helper()
	data, err := encodeKeyEnvelope(keyType, "test", keyBytes)
	require.NoError(t, err)
	return data
}

func TestParseKeyEnvelope(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pub := priv.Public().(ed25519.PublicKey)

	t.Run("seed", func(t *testing.T) {
		key, err := parseKeyEnvelope(envelope(t, SigningKeyType, priv.Seed()))
		require.NoError(t, err)
		assert.Equal(t, ledger.PublicKeyAddress(pub), key.Address())
	})
	t.Run("seed and public key", func(t *testing.T) {
		key, err := parseKeyEnvelope(envelope(t, SigningKeyType, priv))
		require.NoError(t, err)
		assert.Equal(t, ledger.PublicKeyAddress(pub), key.Address())
	})
	t.Run("mismatched public key", func(t *testing.T) {
		bad := append([]byte(nil), priv...)
		bad[ed25519.PrivateKeySize-1] ^= 0xff
		_, err := parseKeyEnvelope(envelope(t, SigningKeyType, bad))
		require.ErrorIs(t, err, ErrInvalidKeyLength)
	})
	t.Run("short key", func(t *testing.T) {
		_, err := parseKeyEnvelope(envelope(t, SigningKeyType, priv.Seed()[:16]))
		require.ErrorIs(t, err, ErrInvalidKeyLength)
	})
	t.Run("verification key", func(t *testing.T) {
		_, err := parseKeyEnvelope(envelope(t, VerificationKeyType, pub))
		require.ErrorIs(t, err, ErrUnknownKeyType)
	})
	t.Run("bad hex", func(t *testing.T) {
		_, err := parseKeyEnvelope([]byte(`{"type":"` + SigningKeyType + `","cborHex":"zz"}`))
		require.Error(t, err)
	})
	t.Run("not cbor bytes", func(t *testing.T) {
		data, err := cbor.Encode(uint64(7))
		require.NoError(t, err)
		_, err = parseKeyEnvelope([]byte(
			`{"type":"` + SigningKeyType + `","cborHex":"` + hex.EncodeToString(data) + `"}`,
		))
		require.Error(t, err)
	})
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, isEncrypted([]byte(`{"type":"x","cborHex":"00"}`)))
	assert.True(t, isEncrypted([]byte(`{"data":"ENC[...]","sops":{"version":"3.11.0"}}`)))
	assert.False(t, isEncrypted([]byte("not json")))
	_, err := Encrypt([]byte(`{"data":"x","sops":{}}`))
	require.Error(t, err)
}
