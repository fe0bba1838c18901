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

// GetCustodialWallet returns the deployed custodial wallet for a cause and
// tag, or nil if it has not been deployed
func (s *Store) GetCustodialWallet(
	causeID uint64,
	tag types.Hash,
	txn types.Txn,
) (*models.CustodialWallet, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.CustodialWallet{}
	result := db.Preload("Owners").
		Where("cause_id = ? AND tag = ?", causeID, tag).
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetCustodialWallets returns the deployed custodial wallets for a cause
func (s *Store) GetCustodialWallets(
	causeID uint64,
	txn types.Txn,
) ([]models.CustodialWallet, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.CustodialWallet
	result := db.Preload("Owners").
		Where("cause_id = ?", causeID).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetCustodialWallet records a newly deployed custodial wallet along with its
// owners
func (s *Store) SetCustodialWallet(
	wallet *models.CustodialWallet,
	txn types.Txn,
) error {
	db, err := s.handle(txn)
	if err != nil {
		return err
	}
	if result := db.Create(wallet); result.Error != nil {
		return result.Error
	}
	return nil
}
