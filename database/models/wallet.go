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

package models

import (
	"github.com/blinklabs-io/causeway/database/types"
)

// CustodialWallet records a deployed per-cause custodial account. Undeployed
// accounts have no row; their address is still derivable
type CustodialWallet struct {
	Owners  []CustodialWalletOwner `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE"`
	Tag     types.Hash             `gorm:"uniqueIndex:idx_wallet_cause_tag;size:32"`
	Address types.Address          `gorm:"uniqueIndex;size:20"`
	ID      uint                   `gorm:"primarykey"`
	CauseID uint64                 `gorm:"uniqueIndex:idx_wallet_cause_tag"`
}

func (CustodialWallet) TableName() string {
	return "custodial_wallet"
}

type CustodialWalletOwner struct {
	Owner    types.Address `gorm:"size:20"`
	ID       uint          `gorm:"primarykey"`
	WalletID uint          `gorm:"index"`
}

func (CustodialWalletOwner) TableName() string {
	return "custodial_wallet_owner"
}
