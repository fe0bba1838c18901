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

package clearinghouse

import (
	"errors"

	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/registry"
	"github.com/holiman/uint256"
)

func (c *ClearingHouse) SetAutoStake(
	caller, tok types.Address,
	enabled bool,
	txn *database.Txn,
) error {
	return c.updatePolicy(caller, tok, "auto_staking", func(m *models.ChildDao) {
		m.AutoStaking = enabled
	}, txn)
}

func (c *ClearingHouse) SetKYCEnabled(
	caller, tok types.Address,
	enabled bool,
	txn *database.Txn,
) error {
	return c.updatePolicy(caller, tok, "kyc_required", func(m *models.ChildDao) {
		m.KycRequired = enabled
	}, txn)
}

func (c *ClearingHouse) SetMaxSupply(
	caller, tok types.Address,
	maxSupply *uint256.Int,
	txn *database.Txn,
) error {
	if maxSupply == nil || maxSupply.IsZero() {
		return ErrInvalidMaxSupply
	}
	return c.updatePolicy(caller, tok, "max_supply", func(m *models.ChildDao) {
		m.MaxSupply = types.NewUint256(maxSupply)
	}, txn)
}

func (c *ClearingHouse) SetMaxSwap(
	caller, tok types.Address,
	maxSwap *uint256.Int,
	txn *database.Txn,
) error {
	if maxSwap == nil || maxSwap.IsZero() {
		return ErrInvalidMaxSwap
	}
	return c.updatePolicy(caller, tok, "max_swap", func(m *models.ChildDao) {
		m.MaxSwap = types.NewUint256(maxSwap)
	}, txn)
}

// updatePolicy applies fn to a token's policy on behalf of the owner of the
// cause denominated in that token
func (c *ClearingHouse) updatePolicy(
	caller, tok types.Address,
	field string,
	fn func(*models.ChildDao),
	txn *database.Txn,
) error {
	return c.db.Update(txn, func(txn *database.Txn) error {
		if err := c.whenNotPaused(txn); err != nil {
			return err
		}
		if _, set, err := c.Governor(txn); err != nil {
			return err
		} else if !set {
			return ErrGovernorNotSet
		}
		tmpChildDao, err := c.childDao(tok, txn)
		if err != nil {
			return err
		}
		cause, err := c.config.Causes.CauseByTenantToken(tok, txn)
		if err != nil {
			if errors.Is(err, registry.ErrInvalidCause) {
				return ErrNotOwner
			}
			return err
		}
		if caller.IsZero() || caller != cause.Owner {
			return ErrNotOwner
		}
		fn(tmpChildDao)
		if err := c.db.Metadata().SetChildDao(tmpChildDao, txn.Metadata()); err != nil {
			return err
		}
		c.logger.Debug(
			"updated child dao policy",
			"component", "clearinghouse",
			"token", tok.String(),
			"field", field,
		)
		if c.metrics != nil {
			txn.OnCommit(c.metrics.policyUpdates.Inc)
		}
		c.publish(txn, PolicyUpdatedEventType, PolicyUpdatedEvent{
			Token:  tok,
			Caller: caller,
			Field:  field,
			Policy: policyFromModel(tmpChildDao),
		})
		return nil
	})
}
