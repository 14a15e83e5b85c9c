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
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	SigningKeyType      = "TaleLedgerSigningKey_ed25519"
	VerificationKeyType = "TaleLedgerVerificationKey_ed25519"
)

// keyFileEnvelope is the JSON structure of a key file
type keyFileEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// LoadSigningKey loads a signing key from a file. Files encrypted with sops
// are decrypted first. Returns ErrInsecureFileMode if the file has group or
// other access.
//
// The file is opened first and permissions are checked on the open handle
// to avoid a race between the permission check and the read.
func LoadSigningKey(path string) (*SigningKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()

	if err := checkOpenFilePermissions(f); err != nil {
		return nil, err
	}

	// Valid key files are well under this size
	const maxKeyFileSize = 1 << 20
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	if isEncrypted(data) {
		data, err = Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt key file %q: %w", path, err)
		}
	}
	key, err := parseKeyEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	return key, nil
}

// WriteSigningKey writes a signing key file readable only by its owner,
// encrypting it with sops when requested. The verification key is written
// next to it with a .vkey suffix.
func WriteSigningKey(path string, key *SigningKey, encrypt bool) error {
	data, err := encodeKeyEnvelope(SigningKeyType, key.Description(), key.seed())
	if err != nil {
		return err
	}
	if encrypt {
		data, err = Encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt key file: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file %q: %w", path, err)
	}
	addr := key.Address()
	vkey, err := encodeKeyEnvelope(VerificationKeyType, key.Description(), addr[:])
	if err != nil {
		return err
	}
	if err := os.WriteFile(path+".vkey", vkey, 0o644); err != nil { //nolint:gosec // public key
		return fmt.Errorf("failed to write verification key: %w", err)
	}
	return nil
}

func encodeKeyEnvelope(keyType, description string, keyBytes []byte) ([]byte, error) {
	cborData, err := cbor.Encode(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key: %w", err)
	}
	return json.MarshalIndent(
		keyFileEnvelope{
			Type:        keyType,
			Description: description,
			CborHex:     hex.EncodeToString(cborData),
		},
		"",
		"    ",
	)
}

// parseKeyEnvelope parses a signing key file
func parseKeyEnvelope(fileBytes []byte) (*SigningKey, error) {
	var env keyFileEnvelope
	if err := json.Unmarshal(fileBytes, &env); err != nil {
		return nil, fmt.Errorf("could not parse key file envelope: %w", err)
	}
	if env.Type != SigningKeyType {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyType, env.Type)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("could not decode key from hex: %w", err)
	}
	var keyBytes []byte
	if _, err := cbor.Decode(cborData, &keyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skey CBOR: %w", err)
	}
	switch len(keyBytes) {
	case ed25519.SeedSize:
		return NewSigningKey(ed25519.NewKeyFromSeed(keyBytes), env.Description), nil
	case ed25519.PrivateKeySize:
		// Seed + public key. Derive the public key from the seed rather
		// than trusting the file contents.
		key := ed25519.NewKeyFromSeed(keyBytes[:ed25519.SeedSize])
		if !bytes.Equal(key[ed25519.SeedSize:], keyBytes[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKeyLength)
		}
		return NewSigningKey(key, env.Description), nil
	default:
		return nil, fmt.Errorf(
			"%w: expected %d or %d, got %d",
			ErrInvalidKeyLength,
			ed25519.SeedSize,
			ed25519.PrivateKeySize,
			len(keyBytes),
		)
	}
}
