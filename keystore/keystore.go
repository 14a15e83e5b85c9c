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

// Package keystore loads and stores the ed25519 keys that sign ledger
// operations. Key files use a JSON envelope holding the CBOR encoded key in
// hex, and may be encrypted with sops.
package keystore

import (
	"crypto/ed25519"
	"errors"

	"github.com/blinklabs-io/taleledger/ledger"
)

var (
	ErrInsecureFileMode = errors.New("insecure file permissions")
	ErrUnknownKeyType   = errors.New("unknown key type")
	ErrInvalidKeyLength = errors.New("invalid key length")
)

// SigningKey is an ed25519 private key loaded from a key file
type SigningKey struct {
	key         ed25519.PrivateKey
	description string
}

// NewSigningKey wraps an existing private key
func NewSigningKey(key ed25519.PrivateKey, description string) *SigningKey {
	return &SigningKey{key: key, description: description}
}

// GenerateSigningKey creates a new random signing key
func GenerateSigningKey(description string) (*SigningKey, error) {
	_, key, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return NewSigningKey(key, description), nil
}

// Address returns the public key of the signing key
func (k *SigningKey) Address() ledger.Address {
	return ledger.PublicKeyAddress(k.key.Public().(ed25519.PublicKey))
}

func (k *SigningKey) Description() string {
	return k.description
}

// Sign signs msg
func (k *SigningKey) Sign(msg []byte) ledger.Signature {
	return ledger.Sign(k.key, msg)
}

// Signers returns a signer set holding only this key. The key is local, so
// no signature needs to be checked.
func (k *SigningKey) Signers() ledger.SignerSet {
	return ledger.NewSignerSet(k.Address())
}

func (k *SigningKey) seed() []byte {
	return k.key.Seed()
}
