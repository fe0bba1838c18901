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

// Package staking is the staking rewards ledger. Stakers lock tenant tokens
// and earn a pro-rata share of every reward distributed for that token,
// tracked with a reward-per-share accumulator so that no operation iterates
// over stakers.
package staking

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/blinklabs-io/causeway/token"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// AccountDomain seeds the derived address that holds staked tokens and
// undistributed rewards
const AccountDomain = "causeway/staking"

type StakingConfig struct {
	PromRegistry prometheus.Registerer
	// Resolver must resolve auth.PlatformAdmin
	Resolver    auth.Resolver
	Logger      *slog.Logger
	EventBus    *event.EventBus
	DB          *database.Database
	Tokens      *token.Ledger
	RewardToken types.Address
}

// RewardState is the per-token accumulator
type RewardState struct {
	TotalStake     uint256.Int
	RewardPerShare uint256.Int
	// Unallocated holds rewards distributed while nothing was staked
	Unallocated uint256.Int
}

type UserStake struct {
	StakedAmount   uint256.Int
	RewardEntry    uint256.Int
	PendingRewards uint256.Int
}

type settings struct {
	LockupPeriod time.Duration
}

type Staking struct {
	config   StakingConfig
	metrics  *stakingMetrics
	logger   *slog.Logger
	db       *database.Database
	tokens   *token.Ledger
	eventBus *event.EventBus
	account  types.Address
}

func NewStaking(config StakingConfig) (*Staking, error) {
	if config.DB == nil || config.Tokens == nil {
		return nil, errors.New("staking: database and token ledger are required")
	}
	if config.RewardToken.IsZero() {
		return nil, errors.New("staking: reward token is required")
	}
	if config.Resolver == nil {
		config.Resolver = auth.Static{}
	}
	s := &Staking{
		config:   config,
		logger:   config.Logger,
		db:       config.DB,
		tokens:   config.Tokens,
		eventBus: config.EventBus,
		account:  types.DeriveAddress(AccountDomain),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if config.PromRegistry != nil {
		s.metrics = &stakingMetrics{}
		s.metrics.init(config.PromRegistry)
	}
	return s, nil
}

// Account returns the address holding staked tokens and rewards. Stakers and
// distributors approve it as a spender
func (s *Staking) Account() types.Address {
	return s.account
}

// RewardToken returns the token rewards are paid in
func (s *Staking) RewardToken() types.Address {
	return s.config.RewardToken
}

func (s *Staking) DaoReward(tok types.Address, txn *database.Txn) (RewardState, error) {
	var ret RewardState
	_, err := s.db.GetRecord(types.RewardStateKey(tok), &ret, txn)
	return ret, err
}

func (s *Staking) UserStake(tok, account types.Address, txn *database.Txn) (UserStake, error) {
	var ret UserStake
	_, err := s.db.GetRecord(types.UserStakeKey(tok, account), &ret, txn)
	return ret, err
}

// PendingRewards returns what account could claim right now, including
// accrual that has not been settled yet
func (s *Staking) PendingRewards(
	tok, account types.Address,
	txn *database.Txn,
) (*uint256.Int, error) {
	var ret *uint256.Int
	err := s.db.View(txn, func(txn *database.Txn) error {
		rs, err := s.DaoReward(tok, txn)
		if err != nil {
			return err
		}
		us, err := s.UserStake(tok, account, txn)
		if err != nil {
			return err
		}
		if err := settle(&us, &rs); err != nil {
			return err
		}
		ret = new(uint256.Int).Set(&us.PendingRewards)
		return nil
	})
	return ret, err
}

// TotalStaked sums the staked amount of every account for a token. It walks
// every staker and is meant for audits, not for reward math
func (s *Staking) TotalStaked(tok types.Address, txn *database.Txn) (*uint256.Int, error) {
	total := new(uint256.Int)
	err := s.db.IterateRecords(
		types.UserStakePrefix(tok),
		func(_ []byte, val []byte) error {
			var us UserStake
			if err := database.DecodeRecord(val, &us); err != nil {
				return err
			}
			total.Add(total, &us.StakedAmount)
			return nil
		},
		txn,
	)
	return total, err
}

func (s *Staking) LockupPeriod(txn *database.Txn) (time.Duration, error) {
	var tmp settings
	_, err := s.db.GetRecord([]byte(types.StakingSettingsKey), &tmp, txn)
	return tmp.LockupPeriod, err
}

// SetLockupPeriod stores the lockup period. It is recorded for operators but
// does not gate any staking operation
func (s *Staking) SetLockupPeriod(
	caller types.Address,
	period time.Duration,
	txn *database.Txn,
) error {
	if period < 0 {
		return ErrInvalidLockupPeriod
	}
	return s.db.Update(txn, func(txn *database.Txn) error {
		ok, err := auth.Allowed(s.config.Resolver, caller, txn, auth.PlatformAdmin())
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAdmin
		}
		return s.db.SetRecord(
			[]byte(types.StakingSettingsKey),
			settings{LockupPeriod: period},
			txn,
		)
	})
}

func (s *Staking) load(
	tok, account types.Address,
	txn *database.Txn,
) (*RewardState, *UserStake, error) {
	rs, err := s.DaoReward(tok, txn)
	if err != nil {
		return nil, nil, err
	}
	us, err := s.UserStake(tok, account, txn)
	if err != nil {
		return nil, nil, err
	}
	return &rs, &us, nil
}

func (s *Staking) store(
	tok, account types.Address,
	rs *RewardState,
	us *UserStake,
	txn *database.Txn,
) error {
	if err := s.db.SetRecord(types.RewardStateKey(tok), rs, txn); err != nil {
		return err
	}
	key := types.UserStakeKey(tok, account)
	if us.StakedAmount.IsZero() && us.PendingRewards.IsZero() {
		return s.db.DeleteRecord(key, txn)
	}
	return s.db.SetRecord(key, us, txn)
}

// Stake locks amount of tok for the caller
func (s *Staking) Stake(
	caller, tok types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	return s.StakeFor(caller, caller, tok, amount, txn)
}

// StakeFor pulls amount of tok from payer and stakes it on behalf of
// beneficiary. The payer must have approved the staking account
func (s *Staking) StakeFor(
	payer, beneficiary, tok types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if tok.IsZero() {
		return ErrInvalidToken
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if beneficiary.IsZero() {
		return ErrInvalidDestination
	}
	return s.db.Update(txn, func(txn *database.Txn) error {
		rs, us, err := s.load(tok, beneficiary, txn)
		if err != nil {
			return err
		}
		if err := settle(us, rs); err != nil {
			return err
		}
		// The first stake after an empty period collects everything that was
		// distributed meanwhile
		if rs.TotalStake.IsZero() && !rs.Unallocated.IsZero() {
			if err := addTo(&us.PendingRewards, &rs.Unallocated); err != nil {
				return err
			}
			rs.Unallocated.Clear()
		}
		if err := addTo(&us.StakedAmount, amount); err != nil {
			return err
		}
		if err := addTo(&rs.TotalStake, amount); err != nil {
			return err
		}
		if err := s.tokens.TransferFrom(s.account, tok, payer, s.account, amount, txn); err != nil {
			return fmt.Errorf("%w: %w", ErrStakeTransfer, err)
		}
		if err := s.store(tok, beneficiary, rs, us, txn); err != nil {
			return err
		}
		s.committed(txn, "stake", StakedEventType, StakedEvent{
			Token:       tok,
			Payer:       payer,
			Beneficiary: beneficiary,
			Amount:      new(uint256.Int).Set(amount),
		})
		return nil
	})
}

// Unstake returns amount of the caller's staked tokens to destination.
// Pending rewards stay claimable
func (s *Staking) Unstake(
	caller, tok types.Address,
	amount *uint256.Int,
	destination types.Address,
	txn *database.Txn,
) error {
	if tok.IsZero() {
		return ErrInvalidToken
	}
	if destination.IsZero() {
		return ErrInvalidDestination
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidUnstakeAmount
	}
	return s.db.Update(txn, func(txn *database.Txn) error {
		rs, us, err := s.load(tok, caller, txn)
		if err != nil {
			return err
		}
		if amount.Gt(&us.StakedAmount) {
			return ErrInvalidUnstakeAmount
		}
		if err := settle(us, rs); err != nil {
			return err
		}
		us.StakedAmount.Sub(&us.StakedAmount, amount)
		rs.TotalStake.Sub(&rs.TotalStake, amount)
		if us.StakedAmount.IsZero() {
			us.RewardEntry.Clear()
		}
		if err := s.tokens.Transfer(s.account, tok, destination, amount, txn); err != nil {
			return fmt.Errorf("%w: %w", ErrStakeTransfer, err)
		}
		if err := s.store(tok, caller, rs, us, txn); err != nil {
			return err
		}
		s.committed(txn, "unstake", UnstakedEventType, UnstakedEvent{
			Token:       tok,
			Account:     caller,
			Destination: destination,
			Amount:      new(uint256.Int).Set(amount),
		})
		return nil
	})
}

// DistributeRewards pulls amount of the reward token from the caller and
// shares it across everyone staking tok. The caller must have approved the
// staking account
func (s *Staking) DistributeRewards(
	caller, tok types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if tok.IsZero() {
		return ErrInvalidToken
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return s.db.Update(txn, func(txn *database.Txn) error {
		rs, err := s.DaoReward(tok, txn)
		if err != nil {
			return err
		}
		unallocated := rs.TotalStake.IsZero()
		if unallocated {
			if err := addTo(&rs.Unallocated, amount); err != nil {
				return err
			}
		} else {
			delta, err := types.MulDiv(amount, types.RewardScale(), &rs.TotalStake)
			if err != nil {
				return err
			}
			if err := addTo(&rs.RewardPerShare, delta); err != nil {
				return err
			}
		}
		if err := s.tokens.TransferFrom(
			s.account,
			s.config.RewardToken,
			caller,
			s.account,
			amount,
			txn,
		); err != nil {
			return fmt.Errorf("%w: %w", ErrRewardTransfer, err)
		}
		if err := s.db.SetRecord(types.RewardStateKey(tok), &rs, txn); err != nil {
			return err
		}
		if unallocated && s.metrics != nil {
			txn.OnCommit(s.metrics.distributions.Inc)
		}
		s.committed(txn, "distribute", RewardsDistributedEventType, RewardsDistributedEvent{
			Token:       tok,
			From:        caller,
			Amount:      new(uint256.Int).Set(amount),
			Unallocated: unallocated,
		})
		return nil
	})
}

// ClaimRewards pays the caller's pending rewards to destination and returns
// the amount paid. A second claim with no accrual in between pays zero
func (s *Staking) ClaimRewards(
	caller, tok, destination types.Address,
	txn *database.Txn,
) (*uint256.Int, error) {
	if tok.IsZero() {
		return nil, ErrInvalidToken
	}
	if destination.IsZero() {
		return nil, ErrInvalidDestination
	}
	paid := new(uint256.Int)
	err := s.db.Update(txn, func(txn *database.Txn) error {
		rs, us, err := s.load(tok, caller, txn)
		if err != nil {
			return err
		}
		if err := settle(us, rs); err != nil {
			return err
		}
		paid.Set(&us.PendingRewards)
		us.PendingRewards.Clear()
		if !paid.IsZero() {
			if err := s.tokens.Transfer(
				s.account,
				s.config.RewardToken,
				destination,
				paid,
				txn,
			); err != nil {
				return fmt.Errorf("%w: %w", ErrRewardTransfer, err)
			}
		}
		if err := s.store(tok, caller, rs, us, txn); err != nil {
			return err
		}
		s.committed(txn, "claim", RewardsClaimedEventType, RewardsClaimedEvent{
			Token:       tok,
			Account:     caller,
			Destination: destination,
			Amount:      new(uint256.Int).Set(paid),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// EmergencyEject returns the caller's whole stake to destination and
// forfeits the caller's rewards to the remaining stakers. When the caller
// was the last staker the accumulator resets to zero and the forfeited
// rewards wait for the next staker
func (s *Staking) EmergencyEject(
	caller, tok, destination types.Address,
	txn *database.Txn,
) error {
	if tok.IsZero() {
		return ErrInvalidToken
	}
	if destination.IsZero() {
		return ErrInvalidDestination
	}
	return s.db.Update(txn, func(txn *database.Txn) error {
		rs, us, err := s.load(tok, caller, txn)
		if err != nil {
			return err
		}
		if us.StakedAmount.IsZero() {
			return ErrNothingStaked
		}
		if err := settle(us, rs); err != nil {
			return err
		}
		amount := new(uint256.Int).Set(&us.StakedAmount)
		forfeited := new(uint256.Int).Set(&us.PendingRewards)
		rs.TotalStake.Sub(&rs.TotalStake, amount)
		us.StakedAmount.Clear()
		us.PendingRewards.Clear()
		us.RewardEntry.Clear()
		if rs.TotalStake.IsZero() {
			rs.RewardPerShare.Clear()
			if err := addTo(&rs.Unallocated, forfeited); err != nil {
				return err
			}
		} else if !forfeited.IsZero() {
			delta, err := types.MulDiv(forfeited, types.RewardScale(), &rs.TotalStake)
			if err != nil {
				return err
			}
			if err := addTo(&rs.RewardPerShare, delta); err != nil {
				return err
			}
		}
		if err := s.tokens.Transfer(s.account, tok, destination, amount, txn); err != nil {
			return fmt.Errorf("%w: %w", ErrStakeTransfer, err)
		}
		if err := s.store(tok, caller, rs, us, txn); err != nil {
			return err
		}
		s.logger.Debug(
			"emergency eject",
			"component", "staking",
			"token", tok.String(),
			"account", caller.String(),
			"amount", amount.Dec(),
			"forfeited", forfeited.Dec(),
		)
		s.committed(txn, "eject", EjectedEventType, EjectedEvent{
			Token:       tok,
			Account:     caller,
			Destination: destination,
			Amount:      amount,
			Forfeited:   forfeited,
		})
		return nil
	})
}

// committed records the operation metric and publishes the event once the
// transaction commits
func (s *Staking) committed(
	txn *database.Txn,
	operation string,
	evtType event.EventType,
	evtData any,
) {
	txn.OnCommit(func() {
		if s.metrics != nil {
			s.metrics.operations.WithLabelValues(operation).Inc()
		}
		if s.eventBus != nil {
			s.eventBus.Publish(evtType, event.NewEvent(evtType, evtData))
		}
	})
}
