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
	"errors"

	"github.com/blinklabs-io/causeway/database/types"
)

var ErrCauseNotFound = errors.New("cause not found")

// Cause is a registered beneficiary. The (owner, tenant token) pair is unique
type Cause struct {
	Owner         types.Address `gorm:"uniqueIndex:idx_cause_owner_token;size:20"`
	TenantToken   types.Address `gorm:"uniqueIndex:idx_cause_owner_token;index;size:20"`
	DefaultWallet types.Address `gorm:"size:20"`
	RewardShare   types.Uint256
	ID            uint64 `gorm:"primaryKey;autoIncrement:false"`
}

func (Cause) TableName() string {
	return "cause"
}
