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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrBlobKeyNotFound is returned by blob reads when a key is missing
	ErrBlobKeyNotFound = errors.New("blob key not found")

	// ErrTxnWrongType is returned when a store is handed a transaction it
	// did not create
	ErrTxnWrongType = errors.New("invalid transaction type")

	ErrNilTxn      = errors.New("nil transaction")
	ErrTxnFinished = errors.New("transaction already finished")
)

// Txn is the commit/rollback handle of a single store. The database layer
// coordinates the blob and metadata handles of one ledger operation.
type Txn interface {
	Commit() error
	Rollback() error
}

// ScanFunc receives each key and value visited by a blob scan. The slices
// are copies owned by the callee.
type ScanFunc func(key []byte, value []byte) error

// Uint64 is an unsigned counter stored as decimal text. SQLite integers are
// signed 64-bit, so tallies and vote weights at or above 2^63 cannot be
// bound as integers.
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	var text string
	switch v := val.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative value %d for unsigned column", v)
		}
		*u = Uint64(v)
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmp, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(tmp)
	return nil
}
