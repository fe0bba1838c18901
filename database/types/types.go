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

	"github.com/holiman/uint256"
)

// Uint256 stores a 256-bit unsigned integer as a decimal string in the
// metadata store
//
//nolint:recvcheck
type Uint256 struct {
	Val uint256.Int
}

// NewUint256 copies the provided value into a Uint256. A nil value is zero
func NewUint256(v *uint256.Int) Uint256 {
	var ret Uint256
	if v != nil {
		ret.Val.Set(v)
	}
	return ret
}

// Int returns a copy of the stored value
func (u Uint256) Int() *uint256.Int {
	return new(uint256.Int).Set(&u.Val)
}

func (u Uint256) Value() (driver.Value, error) {
	return u.Val.Dec(), nil
}

func (u *Uint256) Scan(val any) error {
	var v string
	switch tmp := val.(type) {
	case string:
		v = tmp
	case []byte:
		v = string(tmp)
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if err := u.Val.SetFromDecimal(v); err != nil {
		return fmt.Errorf("failed to set uint256 value from string: %s", v)
	}
	return nil
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrReadOnlyTxn is returned when a write is attempted on a read-only transaction
var ErrReadOnlyTxn = errors.New("transaction is read-only")

// Error classes. Every component error wraps exactly one of these so callers
// can branch on the kind of failure without knowing each reason
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPrecondition = errors.New("state precondition failed")
	ErrVerification = errors.New("verification failed")
	ErrDownstream   = errors.New("downstream operation failed")
)

type classError struct {
	class  error
	reason string
}

func (e *classError) Error() string {
	return e.reason
}

func (e *classError) Unwrap() error {
	return e.class
}

// NewError returns a sentinel error with the given reason that also matches
// the provided error class with errors.Is
func NewError(class error, reason string) error {
	return &classError{class: class, reason: reason}
}

// Txn is a simple transaction handle for commit/rollback only.
// Database layer (Txn) coordinates metadata and blob operations separately.
type Txn interface {
	Commit() error
	Rollback() error
}
