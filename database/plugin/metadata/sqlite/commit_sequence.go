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
	"errors"

	"github.com/blinklabs-io/causeway/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommitSequence is the single-row table mirroring the blob store's commit
// sequence
type CommitSequence struct {
	ID       uint `gorm:"primarykey"`
	Sequence uint64
}

func (CommitSequence) TableName() string {
	return "commit_sequence"
}

func (s *Store) GetCommitSequence() (uint64, error) {
	var tmp CommitSequence
	if result := s.db.First(&tmp); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmp.Sequence, nil
}

func (s *Store) SetCommitSequence(seq uint64, txn types.Txn) error {
	db, err := s.handle(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sequence"}),
	}).Create(&CommitSequence{ID: 1, Sequence: seq}).Error
}
