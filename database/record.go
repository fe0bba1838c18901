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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/causeway/database/types"
	"github.com/fxamacker/cbor/v2"
)

var recordEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// GetRecord decodes the CBOR value stored under key into dst. It reports
// false without error when the key does not exist
func (d *Database) GetRecord(key []byte, dst any, txn *Txn) (bool, error) {
	var found bool
	err := d.View(txn, func(txn *Txn) error {
		val, err := d.Blob().Get(txn.Blob(), key)
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return nil
			}
			return err
		}
		if err := cbor.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("decode record %x: %w", key, err)
		}
		found = true
		return nil
	})
	return found, err
}

// SetRecord stores the CBOR encoding of src under key
func (d *Database) SetRecord(key []byte, src any, txn *Txn) error {
	val, err := recordEncMode.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode record %x: %w", key, err)
	}
	return d.Update(txn, func(txn *Txn) error {
		return d.Blob().Set(txn.Blob(), key, val)
	})
}

// DeleteRecord removes the value stored under key
func (d *Database) DeleteRecord(key []byte, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		return d.Blob().Delete(txn.Blob(), key)
	})
}

// IterateRecords calls fn with the key and raw value of every record under
// prefix, in key order. Returning an error from fn stops the iteration. The
// slices are only valid during the call
func (d *Database) IterateRecords(
	prefix []byte,
	fn func(key []byte, val []byte) error,
	txn *Txn,
) error {
	return d.View(txn, func(txn *Txn) error {
		return d.Blob().Scan(txn.Blob(), prefix, fn)
	})
}

// DecodeRecord decodes a raw value returned by IterateRecords
func DecodeRecord(val []byte, dst any) error {
	return cbor.Unmarshal(val, dst)
}

// Counter returns the current value of the named counter
func (d *Database) Counter(name string, txn *Txn) (uint64, error) {
	var ret uint64
	if _, err := d.GetRecord(types.CounterKey(name), &ret, txn); err != nil {
		return 0, err
	}
	return ret, nil
}

// NextCounter increments the named counter and returns the new value. The
// first value returned is 1
func (d *Database) NextCounter(name string, txn *Txn) (uint64, error) {
	var ret uint64
	err := d.Update(txn, func(txn *Txn) error {
		cur, err := d.Counter(name, txn)
		if err != nil {
			return err
		}
		ret = cur + 1
		return d.SetRecord(types.CounterKey(name), ret, txn)
	})
	return ret, err
}
