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

package metadata

import (
	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"gorm.io/gorm"
)

// MetadataStore holds the relational records
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitSequence() (uint64, error)
	SetCommitSequence(uint64, types.Txn) error
	Transaction() types.Txn

	// Causes
	GetCause(uint64, types.Txn) (*models.Cause, error)
	GetCauseByOwnerToken(
		types.Address, // owner
		types.Address, // tenantToken
		types.Txn,
	) (*models.Cause, error)
	GetCauseByTenantToken(types.Address, types.Txn) (*models.Cause, error)
	GetCauses(types.Txn) ([]models.Cause, error)
	SetCause(*models.Cause, types.Txn) error

	// Custodial wallets
	GetCustodialWallet(
		uint64, // causeID
		types.Hash, // tag
		types.Txn,
	) (*models.CustodialWallet, error)
	GetCustodialWallets(uint64, types.Txn) ([]models.CustodialWallet, error)
	SetCustodialWallet(*models.CustodialWallet, types.Txn) error

	// Child DAOs
	GetChildDao(types.Address, types.Txn) (*models.ChildDao, error)
	GetChildDaos(types.Txn) ([]models.ChildDao, error)
	SetChildDao(*models.ChildDao, types.Txn) error
}
