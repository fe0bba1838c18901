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

package badger

import (
	"errors"

	"github.com/blinklabs-io/causeway/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

var (
	errTxnFinished   = errors.New("transaction already finished")
	errTxnOtherStore = errors.New("transaction from different store")
)

type storeTxn struct {
	store    *Store
	tx       *badger.Txn
	finished bool
}

// txn unwraps a transaction opened by this store
func (s *Store) txn(txn types.Txn) (*storeTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*storeTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if t.store != s {
		return nil, errTxnOtherStore
	}
	if t.finished {
		return nil, errTxnFinished
	}
	return t, nil
}

func (t *storeTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Commit()
}

func (t *storeTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.tx.Discard()
	return nil
}
