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

import "math/bits"

// ValidateLength fails with ErrFieldTooLong when value is longer than max
// bytes
func ValidateLength(field string, value string, maxLen int) error {
	if len(value) > maxLen {
		return ErrFieldTooLong.WithDetail(
			"%s is %d bytes, max %d",
			field,
			len(value),
			maxLen,
		)
	}
	return nil
}

// ValidateNonEmpty fails with ErrFieldEmpty when value is empty
func ValidateNonEmpty(field string, value string) error {
	if value == "" {
		return ErrFieldEmpty.WithDetail("%s", field)
	}
	return nil
}

// ValidateBounded requires 1..maxLen bytes
func ValidateBounded(field string, value string, maxLen int) error {
	if err := ValidateNonEmpty(field, value); err != nil {
		return err
	}
	return ValidateLength(field, value, maxLen)
}

// Enum is implemented by the closed enumerations stored in records
type Enum interface {
	Valid() bool
	String() string
}

// ValidateEnum fails with ErrInvalidEnumValue for values outside the enum
func ValidateEnum(field string, value Enum) error {
	if !value.Valid() {
		return ErrInvalidEnumValue.WithDetail("%s", field)
	}
	return nil
}

// CheckedAdd adds two counters and fails closed on overflow
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow.WithDetail("%d + %d", a, b)
	}
	return sum, nil
}

// CheckedMul multiplies two counters and fails closed on overflow
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow.WithDetail("%d * %d", a, b)
	}
	return lo, nil
}

// CheckedSub subtracts b from a and fails closed on underflow
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow.WithDetail("%d - %d", a, b)
	}
	return diff, nil
}
