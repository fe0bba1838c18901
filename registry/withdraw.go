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

package registry

import (
	"fmt"

	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/holiman/uint256"
)

type WithdrawRequest struct {
	Amount    *uint256.Int
	Token     types.Address
	Recipient types.Address
}

// split returns the fee and reward cut of a base token withdrawal
func split(amount, fee, rewardShare *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	feeAmount, err := types.MulDiv(amount, fee, types.Scale())
	if err != nil {
		return nil, nil, err
	}
	rewardAmount, err := types.MulDiv(amount, rewardShare, types.Scale())
	if err != nil {
		return nil, nil, err
	}
	return feeAmount, rewardAmount, nil
}

// WithdrawFromThinWallet pays out of a custodial wallet once the proposal
// sits at the head of the cause's queue. Base token withdrawals route the
// platform fee to the platform owner and the cause's reward share to the
// stakers of its tenant token
func (r *Registry) WithdrawFromThinWallet(
	caller types.Address,
	walletID WalletID,
	req WithdrawRequest,
	proposalID types.Hash,
	txn *database.Txn,
) error {
	if proposalID.IsZero() {
		return ErrInvalidProposalID
	}
	if req.Token.IsZero() {
		return ErrInvalidToken
	}
	if req.Recipient.IsZero() {
		return ErrInvalidRecipient
	}
	if req.Amount == nil || req.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return r.db.Update(txn, func(txn *database.Txn) error {
		cause, err := r.authorize(caller, walletID.CauseID, txn)
		if err != nil {
			return err
		}
		slot, err := r.popHead(walletID.CauseID, proposalID, txn)
		if err != nil {
			return err
		}
		if _, err := r.deploy(
			walletID.CauseID,
			walletID.Tag,
			[]types.Address{cause.Owner},
			txn,
		); err != nil {
			return err
		}
		wallet := CalculateCustodialAccount(walletID.CauseID, walletID.Tag)
		feeAmount := new(uint256.Int)
		rewardAmount := new(uint256.Int)
		remainder := new(uint256.Int).Set(req.Amount)
		if req.Token == r.config.BaseToken {
			fee, err := r.PlatformFee(txn)
			if err != nil {
				return err
			}
			feeAmount, rewardAmount, err = split(req.Amount, fee, cause.RewardShare)
			if err != nil {
				return err
			}
			cut, err := types.CheckedAdd(feeAmount, rewardAmount)
			if err != nil {
				return ErrShareExceedsScale
			}
			remainder, err = types.CheckedSub(req.Amount, cut)
			if err != nil {
				return ErrShareExceedsScale
			}
			if !feeAmount.IsZero() {
				if err := r.tokens.Transfer(
					wallet,
					req.Token,
					r.config.PlatformOwner,
					feeAmount,
					txn,
				); err != nil {
					return fmt.Errorf("%w: %w", ErrFeeTransfer, err)
				}
			}
			if !rewardAmount.IsZero() {
				if err := r.distribute(wallet, cause.TenantToken, rewardAmount, txn); err != nil {
					return fmt.Errorf("%w: %w", ErrRewardDistribution, err)
				}
			}
		}
		if !remainder.IsZero() {
			if err := r.tokens.Transfer(
				wallet,
				req.Token,
				req.Recipient,
				remainder,
				txn,
			); err != nil {
				return fmt.Errorf("%w: %w", ErrWithdrawTransfer, err)
			}
		}
		r.logger.Debug(
			"withdrew from custodial wallet",
			"component", "registry",
			"cause", walletID.CauseID,
			"wallet", wallet.String(),
			"token", req.Token.String(),
			"amount", req.Amount.Dec(),
			"fee", feeAmount.Dec(),
			"reward", rewardAmount.Dec(),
		)
		r.committed(txn, "withdraw", WithdrawnEventType, WithdrawnEvent{
			CauseID:    walletID.CauseID,
			Tag:        walletID.Tag,
			Slot:       slot,
			ProposalID: proposalID,
			Wallet:     wallet,
			Token:      req.Token,
			Recipient:  req.Recipient,
			Amount:     new(uint256.Int).Set(req.Amount),
			Fee:        feeAmount,
			Reward:     rewardAmount,
		})
		return nil
	})
}

// distribute hands the reward cut to the staking ledger, which pulls it from
// the wallet
func (r *Registry) distribute(
	wallet, tenantToken types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if err := r.tokens.Approve(
		wallet,
		r.config.BaseToken,
		r.staking.Account(),
		amount,
		txn,
	); err != nil {
		return err
	}
	return r.staking.DistributeRewards(wallet, tenantToken, amount, txn)
}
