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

package sqlite

import (
	"github.com/blinklabs-io/causeway/database/types"
	"gorm.io/gorm"
)

type sqliteTxn struct {
	tx *gorm.DB
}

func (t *sqliteTxn) Commit() error {
	return t.tx.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	return t.tx.Rollback().Error
}

// Transaction begins a metadata transaction, or returns nil if one cannot be
// started
func (s *Store) Transaction() types.Txn {
	tx := s.db.Begin()
	if tx.Error != nil {
		s.logger.Error(
			"failed to begin metadata transaction",
			"component", "database",
			"error", tx.Error,
		)
		return nil
	}
	return &sqliteTxn{tx: tx}
}

// handle returns the GORM handle for txn, or the base handle for a nil txn
func (s *Store) handle(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	t, ok := txn.(*sqliteTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	return t.tx, nil
}
