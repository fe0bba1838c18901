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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address identifies an account or a token
//
//nolint:recvcheck
type Address [AddressLength]byte

// BytesToAddress uses the trailing AddressLength bytes of b
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// ParseAddress decodes a hex address with or without the 0x prefix
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf(
			"invalid address length: got %d, expected %d",
			len(b),
			AddressLength,
		)
	}
	copy(a[:], b)
	return a, nil
}

// DeriveAddress derives a deterministic address from a domain label and data
func DeriveAddress(domain string, data ...[]byte) Address {
	parts := append([][]byte{[]byte(domain)}, data...)
	h := Blake2b256(parts...)
	return BytesToAddress(h[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) Value() (driver.Value, error) {
	return a[:], nil
}

func (a *Address) Scan(val any) error {
	v, ok := val.([]byte)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted []byte, got %T",
			val,
		)
	}
	if len(v) != AddressLength {
		return fmt.Errorf("invalid address length: %d", len(v))
	}
	copy(a[:], v)
	return nil
}

// Hash is a blake2b-256 digest
//
//nolint:recvcheck
type Hash [HashLength]byte

// Blake2b256 hashes the concatenation of the provided byte slices
func Blake2b256(data ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible with an oversized key
		panic(err)
	}
	for _, d := range data {
		h.Write(d)
	}
	var ret Hash
	copy(ret[:], h.Sum(nil))
	return ret
}

// ParseHash decodes a 32-byte hex string with or without the 0x prefix
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != HashLength {
		return h, errors.New("invalid hash length")
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) Value() (driver.Value, error) {
	return h[:], nil
}

func (h *Hash) Scan(val any) error {
	v, ok := val.([]byte)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted []byte, got %T",
			val,
		)
	}
	if len(v) != HashLength {
		return fmt.Errorf("invalid hash length: %d", len(v))
	}
	copy(h[:], v)
	return nil
}
