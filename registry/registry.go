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

// Package registry keeps the cause records, their custodial wallets and the
// per-cause withdrawal queues. A withdrawal is only released once the
// matching proposal reaches the head of its cause's queue.
package registry

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/blinklabs-io/causeway/staking"
	"github.com/blinklabs-io/causeway/token"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// CauseCounter names the counter that allocates cause IDs
const CauseCounter = "cause"

type RegistryConfig struct {
	PromRegistry prometheus.Registerer
	// Resolver resolves every role other than auth.RoleCauseOwner, which
	// the registry answers itself
	Resolver      auth.Resolver
	Logger        *slog.Logger
	EventBus      *event.EventBus
	DB            *database.Database
	Tokens        *token.Ledger
	Staking       *staking.Staking
	PlatformFee   *uint256.Int
	BaseToken     types.Address
	PlatformOwner types.Address
}

// Cause is a registered beneficiary
type Cause struct {
	RewardShare   *uint256.Int
	ID            uint64
	Owner         types.Address
	DefaultWallet types.Address
	TenantToken   types.Address
}

func causeFromModel(m *models.Cause) *Cause {
	return &Cause{
		ID:            m.ID,
		Owner:         m.Owner,
		DefaultWallet: m.DefaultWallet,
		TenantToken:   m.TenantToken,
		RewardShare:   m.RewardShare.Int(),
	}
}

type settings struct {
	PlatformFee uint256.Int
}

type Registry struct {
	config   RegistryConfig
	metrics  *registryMetrics
	logger   *slog.Logger
	db       *database.Database
	tokens   *token.Ledger
	staking  *staking.Staking
	eventBus *event.EventBus
}

func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DB == nil || config.Tokens == nil || config.Staking == nil {
		return nil, errors.New("registry: database, token ledger and staking are required")
	}
	if config.BaseToken.IsZero() {
		return nil, errors.New("registry: base token is required")
	}
	if config.PlatformOwner.IsZero() {
		return nil, errors.New("registry: platform owner is required")
	}
	if config.PlatformFee == nil {
		config.PlatformFee = new(uint256.Int)
	}
	if config.PlatformFee.Gt(types.Scale()) {
		return nil, ErrInvalidPlatformFee
	}
	if config.Resolver == nil {
		config.Resolver = auth.Static{}
	}
	r := &Registry{
		config:   config,
		logger:   config.Logger,
		db:       config.DB,
		tokens:   config.Tokens,
		staking:  config.Staking,
		eventBus: config.EventBus,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if config.PromRegistry != nil {
		r.metrics = &registryMetrics{}
		r.metrics.init(config.PromRegistry)
	}
	return r, nil
}

func (r *Registry) BaseToken() types.Address {
	return r.config.BaseToken
}

func (r *Registry) PlatformOwner() types.Address {
	return r.config.PlatformOwner
}

// ResolveRole answers auth.RoleCauseOwner from the cause records and hands
// every other role to the configured resolver
func (r *Registry) ResolveRole(
	role auth.Role,
	txn *database.Txn,
) (types.Address, bool, error) {
	if role.Kind != auth.RoleCauseOwner {
		return r.config.Resolver.ResolveRole(role, txn)
	}
	cause, err := r.Cause(role.CauseID, txn)
	if err != nil {
		if errors.Is(err, ErrInvalidCause) {
			return types.Address{}, false, nil
		}
		return types.Address{}, false, err
	}
	return cause.Owner, true, nil
}

// CauseID returns the most recently allocated cause ID, or 0 when no cause
// has been registered
func (r *Registry) CauseID(txn *database.Txn) (uint64, error) {
	return r.db.Counter(CauseCounter, txn)
}

// Cause returns the cause with the given ID or ErrInvalidCause
func (r *Registry) Cause(causeID uint64, txn *database.Txn) (*Cause, error) {
	if causeID == 0 {
		return nil, ErrInvalidCause
	}
	var ret *Cause
	err := r.db.View(txn, func(txn *database.Txn) error {
		tmp, err := r.db.Metadata().GetCause(causeID, txn.Metadata())
		if err != nil {
			if errors.Is(err, models.ErrCauseNotFound) {
				return ErrInvalidCause
			}
			return err
		}
		ret = causeFromModel(tmp)
		return nil
	})
	return ret, err
}

func (r *Registry) Causes(txn *database.Txn) ([]*Cause, error) {
	var ret []*Cause
	err := r.db.View(txn, func(txn *database.Txn) error {
		tmp, err := r.db.Metadata().GetCauses(txn.Metadata())
		if err != nil {
			return err
		}
		for i := range tmp {
			ret = append(ret, causeFromModel(&tmp[i]))
		}
		return nil
	})
	return ret, err
}

// CauseByTenantToken returns the earliest cause denominated in the token. It
// is the cause-ownership lookup used for conversion policy changes
func (r *Registry) CauseByTenantToken(
	tenantToken types.Address,
	txn *database.Txn,
) (*Cause, error) {
	var ret *Cause
	err := r.db.View(txn, func(txn *database.Txn) error {
		tmp, err := r.db.Metadata().GetCauseByTenantToken(tenantToken, txn.Metadata())
		if err != nil {
			if errors.Is(err, models.ErrCauseNotFound) {
				return ErrInvalidCause
			}
			return err
		}
		ret = causeFromModel(tmp)
		return nil
	})
	return ret, err
}

// RegisterCause records a new cause owned by caller and deploys its default
// custodial wallet
func (r *Registry) RegisterCause(
	caller, tenantToken types.Address,
	rewardShare *uint256.Int,
	txn *database.Txn,
) (uint64, error) {
	if caller.IsZero() {
		return 0, ErrInvalidOwner
	}
	if tenantToken.IsZero() {
		return 0, ErrInvalidToken
	}
	if rewardShare == nil {
		rewardShare = new(uint256.Int)
	}
	var causeID uint64
	err := r.db.Update(txn, func(txn *database.Txn) error {
		if err := r.checkRewardShare(rewardShare, txn); err != nil {
			return err
		}
		_, err := r.db.Metadata().GetCauseByOwnerToken(caller, tenantToken, txn.Metadata())
		if err == nil {
			return ErrCauseExists
		}
		if !errors.Is(err, models.ErrCauseNotFound) {
			return err
		}
		causeID, err = r.db.NextCounter(CauseCounter, txn)
		if err != nil {
			return err
		}
		tmpCause := &models.Cause{
			ID:            causeID,
			Owner:         caller,
			TenantToken:   tenantToken,
			DefaultWallet: CalculateCustodialAccount(causeID, types.Hash{}),
			RewardShare:   types.NewUint256(rewardShare),
		}
		if err := r.db.Metadata().SetCause(tmpCause, txn.Metadata()); err != nil {
			return err
		}
		if _, err := r.deploy(causeID, types.Hash{}, []types.Address{caller}, txn); err != nil {
			return err
		}
		r.logger.Debug(
			"registered cause",
			"component", "registry",
			"cause", causeID,
			"owner", caller.String(),
			"token", tenantToken.String(),
		)
		r.committed(txn, "register_cause", CauseRegisteredEventType, CauseRegisteredEvent{
			CauseID:       causeID,
			Owner:         caller,
			TenantToken:   tenantToken,
			DefaultWallet: tmpCause.DefaultWallet,
			RewardShare:   new(uint256.Int).Set(rewardShare),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return causeID, nil
}

// UpdateCause replaces the owner and reward share of a cause. The tenant
// token and default wallet never change
func (r *Registry) UpdateCause(
	caller types.Address,
	causeID uint64,
	newOwner types.Address,
	newRewardShare *uint256.Int,
	txn *database.Txn,
) error {
	if newOwner.IsZero() {
		return ErrInvalidOwner
	}
	if newRewardShare == nil {
		newRewardShare = new(uint256.Int)
	}
	return r.db.Update(txn, func(txn *database.Txn) error {
		tmpCause, err := r.db.Metadata().GetCause(causeID, txn.Metadata())
		if err != nil {
			if errors.Is(err, models.ErrCauseNotFound) {
				return ErrInvalidCause
			}
			return err
		}
		if caller != tmpCause.Owner {
			return ErrNotOwner
		}
		if err := r.checkRewardShare(newRewardShare, txn); err != nil {
			return err
		}
		if newOwner != tmpCause.Owner {
			_, err := r.db.Metadata().GetCauseByOwnerToken(
				newOwner,
				tmpCause.TenantToken,
				txn.Metadata(),
			)
			if err == nil {
				return ErrCauseExists
			}
			if !errors.Is(err, models.ErrCauseNotFound) {
				return err
			}
		}
		prevOwner := tmpCause.Owner
		tmpCause.Owner = newOwner
		tmpCause.RewardShare = types.NewUint256(newRewardShare)
		if err := r.db.Metadata().SetCause(tmpCause, txn.Metadata()); err != nil {
			return err
		}
		r.committed(txn, "update_cause", CauseUpdatedEventType, CauseUpdatedEvent{
			CauseID:       causeID,
			PreviousOwner: prevOwner,
			Owner:         newOwner,
			RewardShare:   new(uint256.Int).Set(newRewardShare),
		})
		return nil
	})
}

// PlatformFee returns the fee taken from base token withdrawals, scaled by
// 1e18
func (r *Registry) PlatformFee(txn *database.Txn) (*uint256.Int, error) {
	var tmp settings
	found, err := r.db.GetRecord([]byte(types.RegistrySettingsKey), &tmp, txn)
	if err != nil {
		return nil, err
	}
	if !found {
		return new(uint256.Int).Set(r.config.PlatformFee), nil
	}
	return new(uint256.Int).Set(&tmp.PlatformFee), nil
}

// SetPlatformFee changes the platform fee. The fee plus the reward share of
// any cause may not exceed 100%
func (r *Registry) SetPlatformFee(
	caller types.Address,
	fee *uint256.Int,
	txn *database.Txn,
) error {
	if fee == nil || fee.Gt(types.Scale()) {
		return ErrInvalidPlatformFee
	}
	return r.db.Update(txn, func(txn *database.Txn) error {
		ok, err := auth.Allowed(r, caller, txn, auth.PlatformAdmin())
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAdmin
		}
		causes, err := r.db.Metadata().GetCauses(txn.Metadata())
		if err != nil {
			return err
		}
		for _, tmpCause := range causes {
			sum, err := types.CheckedAdd(fee, &tmpCause.RewardShare.Val)
			if err != nil || sum.Gt(types.Scale()) {
				return ErrShareExceedsScale
			}
		}
		tmp := settings{}
		tmp.PlatformFee.Set(fee)
		if err := r.db.SetRecord([]byte(types.RegistrySettingsKey), &tmp, txn); err != nil {
			return err
		}
		r.committed(txn, "set_platform_fee", PlatformFeeUpdatedEventType, PlatformFeeUpdatedEvent{
			Fee: new(uint256.Int).Set(fee),
		})
		return nil
	})
}

func (r *Registry) checkRewardShare(share *uint256.Int, txn *database.Txn) error {
	if share.Gt(types.Scale()) {
		return ErrInvalidRewardShare
	}
	fee, err := r.PlatformFee(txn)
	if err != nil {
		return err
	}
	sum, err := types.CheckedAdd(fee, share)
	if err != nil || sum.Gt(types.Scale()) {
		return ErrShareExceedsScale
	}
	return nil
}

// authorize checks that caller owns the cause, reporting ErrInvalidCause for
// unknown causes
func (r *Registry) authorize(
	caller types.Address,
	causeID uint64,
	txn *database.Txn,
) (*Cause, error) {
	cause, err := r.Cause(causeID, txn)
	if err != nil {
		return nil, err
	}
	ok, err := auth.Allowed(r, caller, txn, auth.CauseOwner(causeID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOwner
	}
	return cause, nil
}

// committed records the operation metric and publishes the event once the
// transaction commits
func (r *Registry) committed(
	txn *database.Txn,
	operation string,
	evtType event.EventType,
	evtData any,
) {
	txn.OnCommit(func() {
		if r.metrics != nil {
			r.metrics.operations.WithLabelValues(operation).Inc()
		}
		if r.eventBus != nil {
			r.eventBus.Publish(evtType, event.NewEvent(evtType, evtData))
		}
	})
}
