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
	"fmt"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/holiman/uint256"
)

// checkMint enforces the release time, the per-transaction cap and the
// supply cap of the token being minted. The platform admin is exempt from
// the per-transaction cap only
func (c *ClearingHouse) checkMint(
	caller types.Address,
	dao *models.ChildDao,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if dao.Release != 0 && dao.Release > c.config.Clock.Now().Unix() {
		return ErrNotReleased
	}
	if amount.Gt(&dao.MaxSwap.Val) {
		privileged, err := auth.Allowed(c, caller, txn, auth.PlatformAdmin())
		if err != nil {
			return err
		}
		if !privileged {
			return ErrExceedsMaxSwap
		}
	}
	supply, err := c.tokens.TotalSupply(dao.Token, txn)
	if err != nil {
		return err
	}
	total, err := types.CheckedAdd(supply, amount)
	if err != nil || total.Gt(&dao.MaxSupply.Val) {
		return ErrExceedsMaxSupply
	}
	return nil
}

// mint issues amount of the token to the account, or stakes it on the
// account's behalf when the token auto-stakes. It reports whether the
// amount was staked
func (c *ClearingHouse) mint(
	account types.Address,
	dao *models.ChildDao,
	amount *uint256.Int,
	txn *database.Txn,
) (bool, error) {
	to := account
	if dao.AutoStaking {
		to = c.account
	}
	if err := c.tokens.Mint(c.account, dao.Token, to, amount, txn); err != nil {
		return false, fmt.Errorf("%w: %w", ErrMint, err)
	}
	if !dao.AutoStaking {
		return false, nil
	}
	if err := c.staking.StakeFor(c.account, account, dao.Token, amount, txn); err != nil {
		return false, fmt.Errorf("%w: %w", ErrAutoStake, err)
	}
	return true, nil
}

// SwapEarthForChildDao converts base tokens from the caller into the child
// DAO token. The caller must have approved the clearing house account.
// Tokens that require KYC need a trusted signer's approval
func (c *ClearingHouse) SwapEarthForChildDao(
	caller, tok types.Address,
	amount *uint256.Int,
	approval KycApproval,
	txn *database.Txn,
) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return c.db.Update(txn, func(txn *database.Txn) error {
		if err := c.whenNotPaused(txn); err != nil {
			return err
		}
		dao, err := c.childDao(tok, txn)
		if err != nil {
			return err
		}
		if err := c.checkMint(caller, dao, amount, txn); err != nil {
			return err
		}
		if dao.KycRequired {
			cause, err := c.config.Causes.CauseByTenantToken(tok, txn)
			if err != nil {
				return err
			}
			if err := c.checkKyc(approval, caller, cause.ID, amount, txn); err != nil {
				return err
			}
		}
		if err := c.tokens.TransferFrom(
			c.account,
			c.config.BaseToken,
			caller,
			c.account,
			amount,
			txn,
		); err != nil {
			return fmt.Errorf("%w: %w", ErrBaseTokenTransfer, err)
		}
		staked, err := c.mint(caller, dao, amount, txn)
		if err != nil {
			return err
		}
		c.swapped(txn, SwappedEvent{
			Kind:      SwapKindEarthToChild,
			Account:   caller,
			FromToken: c.config.BaseToken,
			ToToken:   tok,
			Amount:    new(uint256.Int).Set(amount),
			Staked:    staked,
		})
		return nil
	})
}

// SwapChildDaoForEarth burns the caller's child DAO tokens and pays out the
// same amount of base tokens from the reserve
func (c *ClearingHouse) SwapChildDaoForEarth(
	caller, tok types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return c.db.Update(txn, func(txn *database.Txn) error {
		if err := c.whenNotPaused(txn); err != nil {
			return err
		}
		if _, err := c.childDao(tok, txn); err != nil {
			return err
		}
		if err := c.requireBalance(caller, tok, amount, txn); err != nil {
			return err
		}
		if err := c.tokens.Burn(c.account, tok, caller, amount, txn); err != nil {
			return fmt.Errorf("%w: %w", ErrBurn, err)
		}
		if err := c.tokens.Transfer(
			c.account,
			c.config.BaseToken,
			caller,
			amount,
			txn,
		); err != nil {
			return fmt.Errorf("%w: %w", ErrBaseTokenTransfer, err)
		}
		c.swapped(txn, SwappedEvent{
			Kind:      SwapKindChildToEarth,
			Account:   caller,
			FromToken: tok,
			ToToken:   c.config.BaseToken,
			Amount:    new(uint256.Int).Set(amount),
		})
		return nil
	})
}

// SwapChildDaoForChildDao burns one child DAO token and mints another
// without touching the base token reserve
func (c *ClearingHouse) SwapChildDaoForChildDao(
	caller, fromToken, toToken types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if fromToken == toToken {
		return ErrSameToken
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return c.db.Update(txn, func(txn *database.Txn) error {
		if err := c.whenNotPaused(txn); err != nil {
			return err
		}
		if _, err := c.childDao(fromToken, txn); err != nil {
			return err
		}
		toDao, err := c.childDao(toToken, txn)
		if err != nil {
			return err
		}
		if err := c.checkMint(caller, toDao, amount, txn); err != nil {
			return err
		}
		if err := c.requireBalance(caller, fromToken, amount, txn); err != nil {
			return err
		}
		if err := c.tokens.Burn(c.account, fromToken, caller, amount, txn); err != nil {
			return fmt.Errorf("%w: %w", ErrBurn, err)
		}
		staked, err := c.mint(caller, toDao, amount, txn)
		if err != nil {
			return err
		}
		c.swapped(txn, SwappedEvent{
			Kind:      SwapKindChildToChild,
			Account:   caller,
			FromToken: fromToken,
			ToToken:   toToken,
			Amount:    new(uint256.Int).Set(amount),
			Staked:    staked,
		})
		return nil
	})
}

func (c *ClearingHouse) requireBalance(
	account, tok types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	bal, err := c.tokens.BalanceOf(tok, account, txn)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return ErrNotEnoughChildDao
	}
	return nil
}

func (c *ClearingHouse) swapped(txn *database.Txn, evt SwappedEvent) {
	c.logger.Debug(
		"swap",
		"component", "clearinghouse",
		"kind", string(evt.Kind),
		"account", evt.Account.String(),
		"from", evt.FromToken.String(),
		"to", evt.ToToken.String(),
		"amount", evt.Amount.Dec(),
	)
	if c.metrics != nil {
		kind := string(evt.Kind)
		txn.OnCommit(func() {
			c.metrics.swaps.WithLabelValues(kind).Inc()
		})
	}
	c.publish(txn, SwappedEventType, evt)
}
