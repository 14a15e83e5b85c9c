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
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	AddressLength = 32
	// MaxSeeds counts the domain tag as a seed
	MaxSeeds      = 16
	MaxSeedLength = 64

	derivationMarker = "taleledger derived address"
)

// Address identifies a record or a signing key. Derived addresses never
// decode as an ed25519 curve point, so no private key can exist for them.
type Address [AddressLength]byte

// ZeroAddress is the default value, used where an address is optional
var ZeroAddress Address

// ParseAddress decodes the base58 text form of an address
func ParseAddress(s string) (Address, error) {
	var ret Address
	raw, err := base58.Decode(s)
	if err != nil {
		return ret, ErrInvalidAddress.WithDetail("%q: %s", s, err)
	}
	if len(raw) != AddressLength {
		return ret, ErrInvalidAddress.WithDetail(
			"%q decodes to %d bytes",
			s,
			len(raw),
		)
	}
	copy(ret[:], raw)
	return ret, nil
}

// AddressFromBytes copies a 32-byte slice into an Address
func AddressFromBytes(b []byte) (Address, error) {
	var ret Address
	if len(b) != AddressLength {
		return ret, ErrInvalidAddress.WithDetail("length %d", len(b))
	}
	copy(ret[:], b)
	return ret, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// OnCurve reports whether the address is a valid ed25519 public key encoding
func (a Address) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	tmp, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

func (a Address) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(a[:])
}

func (a *Address) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if _, err := cbor.Decode(data, &raw); err != nil {
		return err
	}
	tmp, err := AddressFromBytes(raw)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

var errOnCurve = errors.New("derived address is on the ed25519 curve")

// DeriveAddress returns the unique off-curve address for a domain tag and
// seeds under a program, together with the nonce that produced it. The
// search starts at nonce 255 and counts down.
func DeriveAddress(
	program Address,
	domain string,
	seeds ...[]byte,
) (Address, uint8, error) {
	if err := checkSeeds(domain, seeds); err != nil {
		return Address{}, 0, err
	}
	for nonce := 255; nonce >= 0; nonce-- {
		addr, err := createDerivedAddress(program, domain, seeds, uint8(nonce))
		if err == nil {
			return addr, uint8(nonce), nil
		}
		if !errors.Is(err, errOnCurve) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableNonce.WithDetail("domain %s", domain)
}

// CreateDerivedAddress computes the address for an explicit nonce. It fails
// when the result lands on the curve.
func CreateDerivedAddress(
	program Address,
	domain string,
	seeds [][]byte,
	nonce uint8,
) (Address, error) {
	if err := checkSeeds(domain, seeds); err != nil {
		return Address{}, err
	}
	return createDerivedAddress(program, domain, seeds, nonce)
}

func checkSeeds(domain string, seeds [][]byte) error {
	if len(seeds)+1 > MaxSeeds {
		return ErrMaxSeedsExceeded.WithDetail(
			"%d seeds, max %d",
			len(seeds)+1,
			MaxSeeds,
		)
	}
	if len(domain) == 0 || len(domain) > MaxSeedLength {
		return ErrMaxSeedLengthExceeded.WithDetail("domain %q", domain)
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return ErrMaxSeedLengthExceeded.WithDetail(
				"seed %d is %d bytes, max %d",
				i,
				len(seed),
				MaxSeedLength,
			)
		}
	}
	return nil
}

func createDerivedAddress(
	program Address,
	domain string,
	seeds [][]byte,
	nonce uint8,
) (Address, error) {
	h, err := blake2b.New256(program[:])
	if err != nil {
		return Address{}, fmt.Errorf("blake2b: %w", err)
	}
	// Length prefixes keep ("ab","c") and ("a","bc") apart
	var lenBuf [2]byte
	writeSeed := func(seed []byte) {
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(seed))) //nolint:gosec // bounded by MaxSeedLength
		h.Write(lenBuf[:])
		h.Write(seed)
	}
	writeSeed([]byte(domain))
	for _, seed := range seeds {
		writeSeed(seed)
	}
	h.Write([]byte{nonce})
	h.Write([]byte(derivationMarker))
	var ret Address
	copy(ret[:], h.Sum(nil))
	if ret.OnCurve() {
		return Address{}, errOnCurve
	}
	return ret, nil
}
