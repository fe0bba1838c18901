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

	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"gorm.io/gorm"
)

// GetChildDao returns the conversion policy for a token, or nil if the token
// is not registered
func (s *Store) GetChildDao(
	token types.Address,
	txn types.Txn,
) (*models.ChildDao, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.ChildDao{}
	result := db.Where("token = ?", token).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetChildDaos returns all registered conversion policies
func (s *Store) GetChildDaos(
	txn types.Txn,
) ([]models.ChildDao, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ChildDao
	if result := db.Order("id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetChildDao creates or updates a conversion policy
func (s *Store) SetChildDao(
	childDao *models.ChildDao,
	txn types.Txn,
) error {
	db, err := s.handle(txn)
	if err != nil {
		return err
	}
	if result := db.Save(childDao); result.Error != nil {
		return result.Error
	}
	return nil
}
