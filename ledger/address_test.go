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
	"strings"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = ledger.Address{0x54, 0x61, 0x6c, 0x65}

func TestDeriveAddressDeterministic(t *testing.T) {
	creator := ledger.Address{1, 2, 3}
	a1, n1, err := ledger.DeriveAddress(testProgram, "vote", creator[:], []byte("poll-1"))
	require.NoError(t, err)
	a2, n2, err := ledger.DeriveAddress(testProgram, "vote", creator[:], []byte("poll-1"))
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, n1, n2)
	assert.False(t, a1.OnCurve(), "derived addresses must be off the curve")

	// the explicit-nonce form reproduces the search result
	a3, err := ledger.CreateDerivedAddress(testProgram, "vote", [][]byte{creator[:], []byte("poll-1")}, n1)
	require.NoError(t, err)
	assert.Equal(t, a1, a3)
}

func TestDeriveAddressSeparation(t *testing.T) {
	base, _, err := ledger.DeriveAddress(testProgram, "tale", []byte("ab"), []byte("c"))
	require.NoError(t, err)
	testCases := []struct {
		name    string
		program ledger.Address
		domain  string
		seeds   [][]byte
	}{
		{"shifted seed boundary", testProgram, "tale", [][]byte{[]byte("a"), []byte("bc")}},
		{"other domain", testProgram, "episode", [][]byte{[]byte("ab"), []byte("c")}},
		{"other program", ledger.Address{9}, "tale", [][]byte{[]byte("ab"), []byte("c")}},
		{"concatenated seeds", testProgram, "tale", [][]byte{[]byte("abc")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, _, err := ledger.DeriveAddress(tc.program, tc.domain, tc.seeds...)
			require.NoError(t, err)
			assert.NotEqual(t, base, addr)
		})
	}
}

func TestDeriveAddressLimits(t *testing.T) {
	_, _, err := ledger.DeriveAddress(testProgram, "tale", []byte(strings.Repeat("x", ledger.MaxSeedLength)))
	require.NoError(t, err)

	_, _, err = ledger.DeriveAddress(testProgram, "tale", []byte(strings.Repeat("x", ledger.MaxSeedLength+1)))
	assert.ErrorIs(t, err, ledger.ErrMaxSeedLengthExceeded)

	seeds := make([][]byte, ledger.MaxSeeds)
	_, _, err = ledger.DeriveAddress(testProgram, "tale", seeds...)
	assert.ErrorIs(t, err, ledger.ErrMaxSeedsExceeded)

	_, _, err = ledger.DeriveAddress(testProgram, "")
	assert.ErrorIs(t, err, ledger.ErrMaxSeedLengthExceeded)
}

func TestAddressTextForms(t *testing.T) {
	addr, _, err := ledger.DeriveAddress(testProgram, "user", []byte("wallet"))
	require.NoError(t, err)
	parsed, err := ledger.ParseAddress(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = ledger.ParseAddress("0OIl")
	assert.ErrorIs(t, err, ledger.ErrInvalidAddress)
	_, err = ledger.ParseAddress("3mJr7AoUXx2Wqd")
	assert.ErrorIs(t, err, ledger.ErrInvalidAddress)

	text, err := addr.MarshalText()
	require.NoError(t, err)
	var fromText ledger.Address
	require.NoError(t, fromText.UnmarshalText(text))
	assert.Equal(t, addr, fromText)
}

type addressHolder struct {
	cbor.StructAsArray
	Addr ledger.Address
	Name string
}

func TestAddressCborInStruct(t *testing.T) {
	in := addressHolder{Addr: ledger.Address{7, 7, 7}, Name: "n"}
	data, err := cbor.Encode(&in)
	require.NoError(t, err)
	var out addressHolder
	_, err = cbor.Decode(data, &out)
	require.NoError(t, err)
	assert.Equal(t, in.Addr, out.Addr)
	assert.Equal(t, in.Name, out.Name)
}
