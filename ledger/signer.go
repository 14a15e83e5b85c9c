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

package ledger

import (
	"crypto/ed25519"
	"slices"
)

// SignerSet holds the public keys whose signatures were verified for a
// transaction
type SignerSet struct {
	keys map[Address]struct{}
}

// NewSignerSet builds a signer set from keys the caller has already
// verified, such as keys loaded from a local key file
func NewSignerSet(keys ...Address) SignerSet {
	ret := SignerSet{keys: make(map[Address]struct{}, len(keys))}
	for _, key := range keys {
		ret.keys[key] = struct{}{}
	}
	return ret
}

// Signature pairs a public key with its signature over a message
type Signature struct {
	Signature []byte
	PublicKey Address
}

// VerifySigners checks every signature over msg and returns the set of
// signing keys. Any invalid signature fails the whole set.
func VerifySigners(msg []byte, sigs ...Signature) (SignerSet, error) {
	ret := NewSignerSet()
	for _, sig := range sigs {
		if len(sig.Signature) != ed25519.SignatureSize ||
			!ed25519.Verify(sig.PublicKey[:], msg, sig.Signature) {
			return SignerSet{}, ErrInvalidSignature.WithDetail(
				"%s",
				sig.PublicKey,
			)
		}
		ret.keys[sig.PublicKey] = struct{}{}
	}
	return ret, nil
}

// Sign signs msg with an ed25519 private key
func Sign(key ed25519.PrivateKey, msg []byte) Signature {
	return Signature{
		PublicKey: PublicKeyAddress(key.Public().(ed25519.PublicKey)),
		Signature: ed25519.Sign(key, msg),
	}
}

// PublicKeyAddress converts an ed25519 public key to an Address
func PublicKeyAddress(pub ed25519.PublicKey) Address {
	var ret Address
	copy(ret[:], pub)
	return ret
}

func (s SignerSet) Contains(key Address) bool {
	_, ok := s.keys[key]
	return ok
}

func (s SignerSet) Len() int {
	return len(s.keys)
}

// Keys returns the signing keys in byte order
func (s SignerSet) Keys() []Address {
	ret := make([]Address, 0, len(s.keys))
	for key := range s.keys {
		ret = append(ret, key)
	}
	slices.SortFunc(ret, func(a, b Address) int {
		return slices.Compare(a[:], b[:])
	})
	return ret
}
