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
	"fmt"

	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"gorm.io/gorm"
)

// GetCause returns the cause with the given ID
func (s *Store) GetCause(
	causeID uint64,
	txn types.Txn,
) (*models.Cause, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Cause{}
	result := db.Where("id = ?", causeID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCauseNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetCauseByOwnerToken returns the cause registered by owner for the given
// tenant token
func (s *Store) GetCauseByOwnerToken(
	owner types.Address,
	tenantToken types.Address,
	txn types.Txn,
) (*models.Cause, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Cause{}
	result := db.Where(
		"owner = ? AND tenant_token = ?",
		owner,
		tenantToken,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCauseNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetCauseByTenantToken returns the earliest cause denominated in the given
// tenant token
func (s *Store) GetCauseByTenantToken(
	tenantToken types.Address,
	txn types.Txn,
) (*models.Cause, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Cause{}
	result := db.Where("tenant_token = ?", tenantToken).
		Order("id ASC").
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCauseNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetCauses returns every cause ordered by ID
func (s *Store) GetCauses(
	txn types.Txn,
) ([]models.Cause, error) {
	db, err := s.handle(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Cause
	result := db.Order("id ASC").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetCause creates or replaces a cause record
func (s *Store) SetCause(
	cause *models.Cause,
	txn types.Txn,
) error {
	db, err := s.handle(txn)
	if err != nil {
		return err
	}
	if result := db.Save(cause); result.Error != nil {
		return fmt.Errorf("failed to save cause %d: %w", cause.ID, result.Error)
	}
	return nil
}
