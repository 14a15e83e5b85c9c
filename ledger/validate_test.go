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
	"math"
	"strings"
	"testing"

	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnum uint8

func (e testEnum) Valid() bool    { return e < 3 }
func (e testEnum) String() string { return "test" }

func TestValidateFields(t *testing.T) {
	testCases := []struct {
		name    string
		fn      func() error
		wantErr error
	}{
		{"at max", func() error { return ledger.ValidateLength("title", strings.Repeat("a", 100), 100) }, nil},
		{"over max", func() error { return ledger.ValidateLength("title", strings.Repeat("a", 101), 100) }, ledger.ErrFieldTooLong},
		{"multibyte counts bytes", func() error { return ledger.ValidateLength("name", "ééé", 5) }, ledger.ErrFieldTooLong},
		{"empty allowed by length", func() error { return ledger.ValidateLength("title", "", 100) }, nil},
		{"empty rejected", func() error { return ledger.ValidateNonEmpty("id", "") }, ledger.ErrFieldEmpty},
		{"bounded empty", func() error { return ledger.ValidateBounded("id", "", 32) }, ledger.ErrFieldEmpty},
		{"bounded ok", func() error { return ledger.ValidateBounded("id", "x", 32) }, nil},
		{"enum ok", func() error { return ledger.ValidateEnum("status", testEnum(2)) }, nil},
		{"enum bad", func() error { return ledger.ValidateEnum("status", testEnum(3)) }, ledger.ErrInvalidEnumValue},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			kind, ok := ledger.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, ledger.KindValidation, kind)
		})
	}
}

func TestCheckedArithmetic(t *testing.T) {
	sum, err := ledger.CheckedAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)
	_, err = ledger.CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ledger.ErrArithmeticOverflow)
	_, err = ledger.CheckedMul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ledger.ErrArithmeticOverflow)
	_, err = ledger.CheckedSub(1, 2)
	assert.ErrorIs(t, err, ledger.ErrArithmeticOverflow)
	kind, _ := ledger.KindOf(err)
	assert.Equal(t, ledger.KindArithmetic, kind)
}

func TestErrorDetailMatchesSentinel(t *testing.T) {
	err := ledger.ErrRecordNotFound.WithDetail("abc")
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
	assert.NotErrorIs(t, err, ledger.ErrAddressAlreadyInUse)
	assert.Equal(t, "record not found: abc", err.Error())
	assert.Equal(t, "RecordNotFound", ledger.CodeOf(err))
}
