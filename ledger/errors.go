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
	"errors"
	"fmt"
)

// ErrorKind classifies ledger errors. Every kind is detected before any
// record is mutated.
type ErrorKind uint8

const (
	KindValidation ErrorKind = iota + 1
	KindAuthorization
	KindState
	KindArithmetic
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindArithmetic:
		return "arithmetic"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified ledger error. Two errors match under errors.Is when
// their codes are equal, so detailed copies still match the sentinel.
type Error struct {
	Err    error
	Code   string
	Msg    string
	Detail string
	Kind   ErrorKind
}

// NewError returns a sentinel error of the given kind
func NewError(kind ErrorKind, code string, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying extra context
func (e *Error) WithDetail(format string, args ...any) *Error {
	ret := *e
	ret.Detail = fmt.Sprintf(format, args...)
	return &ret
}

// Wrap returns a copy of the error wrapping a cause
func (e *Error) Wrap(err error) *Error {
	ret := *e
	ret.Err = err
	return &ret
}

// KindOf returns the kind of a ledger error, and false for any other error
func KindOf(err error) (ErrorKind, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind, true
	}
	return 0, false
}

// CodeOf returns the code of a ledger error, or an empty string
func CodeOf(err error) string {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return ""
}

// Validation
var (
	ErrFieldTooLong          = NewError(KindValidation, "FieldTooLong", "field too long")
	ErrFieldEmpty            = NewError(KindValidation, "FieldEmpty", "field must not be empty")
	ErrInvalidEnumValue      = NewError(KindValidation, "InvalidEnumValue", "invalid enum value")
	ErrMaxSeedsExceeded      = NewError(KindValidation, "MaxSeedsExceeded", "too many seeds")
	ErrMaxSeedLengthExceeded = NewError(KindValidation, "MaxSeedLengthExceeded", "seed too long")
	ErrAddressMismatch       = NewError(KindValidation, "AddressMismatch", "address does not match record seeds")
	ErrInvalidAddress        = NewError(KindValidation, "InvalidAddress", "invalid address")
	ErrRecordTooLarge        = NewError(KindValidation, "RecordTooLarge", "record exceeds allocated capacity")
)

// Authorization
var (
	ErrUnauthorized     = NewError(KindAuthorization, "Unauthorized", "unauthorized")
	ErrInvalidSignature = NewError(KindAuthorization, "InvalidSignature", "invalid signature")
)

// State
var (
	ErrAddressAlreadyInUse     = NewError(KindState, "AddressAlreadyInUse", "address already in use")
	ErrRecordNotFound          = NewError(KindState, "RecordNotFound", "record not found")
	ErrDiscriminatorMismatch   = NewError(KindState, "DiscriminatorMismatch", "record belongs to a different domain")
	ErrInsufficientFunds       = NewError(KindState, "InsufficientFunds", "insufficient funds for storage deposit")
	ErrNoViableNonce           = NewError(KindState, "NoViableNonce", "unable to find a viable nonce")
	ErrReadOnlyTransaction     = NewError(KindState, "ReadOnlyTransaction", "transaction is read-only")
	ErrUndeclaredRecordAccess  = NewError(KindState, "UndeclaredRecordAccess", "record was not declared by the operation")
	ErrUndeclaredBalanceAccess = NewError(KindState, "UndeclaredBalanceAccess", "balance was not declared by the operation")
)

// Arithmetic
var ErrArithmeticOverflow = NewError(KindArithmetic, "ArithmeticOverflow", "arithmetic overflow")

// Storage
var ErrStorage = NewError(KindStorage, "Storage", "storage failure")
