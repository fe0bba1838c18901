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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/causeway/database/types"
)

// GetCommitSequence returns the sequence number of the last coordinated
// commit, or zero for a new store. A nil txn reads the committed value
func (s *Store) GetCommitSequence(txn types.Txn) (uint64, error) {
	if txn == nil {
		txn = s.NewTransaction(false)
		defer txn.Rollback() //nolint:errcheck
	}
	val, err := s.Get(txn, []byte(types.CommitSequenceKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid commit sequence length: %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

func (s *Store) SetCommitSequence(seq uint64, txn types.Txn) error {
	return s.Set(txn, []byte(types.CommitSequenceKey), types.Uint64ToBytes(seq))
}
