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

// Package clearinghouse converts the platform base token into and out of
// tenant (child DAO) tokens under per-token supply, rate, release and KYC
// policy.
package clearinghouse

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/blinklabs-io/causeway/registry"
	"github.com/blinklabs-io/causeway/staking"
	"github.com/blinklabs-io/causeway/token"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// AccountDomain seeds the derived address that mints child DAO tokens and
// holds the base token reserve
const AccountDomain = "causeway/clearinghouse"

// CauseLookup finds the cause that owns a tenant token
type CauseLookup interface {
	CauseByTenantToken(types.Address, *database.Txn) (*registry.Cause, error)
}

type ClearingHouseConfig struct {
	PromRegistry prometheus.Registerer
	// Resolver must resolve auth.PlatformAdmin. The governor is tracked by
	// the clearing house itself
	Resolver      auth.Resolver
	Causes        CauseLookup
	Clock         clockwork.Clock
	Logger        *slog.Logger
	EventBus      *event.EventBus
	DB            *database.Database
	Tokens        *token.Ledger
	Staking       *staking.Staking
	TrustedSigner *secp256k1.PublicKey
	// KycAllowance caps the cumulative amount converted per (kycID, cause)
	KycAllowance *uint256.Int
	BaseToken    types.Address
	// Governor is used until SetGovernor stores another one
	Governor types.Address
}

// Policy is the conversion policy of a child DAO token
type Policy struct {
	Release     time.Time
	MaxSupply   *uint256.Int
	MaxSwap     *uint256.Int
	AutoStaking bool
	KycRequired bool
}

// CauseInformation is the registration state and policy of a token
type CauseInformation struct {
	Policy
	Token      types.Address
	Registered bool
}

func policyFromModel(m *models.ChildDao) Policy {
	ret := Policy{
		MaxSupply:   m.MaxSupply.Int(),
		MaxSwap:     m.MaxSwap.Int(),
		AutoStaking: m.AutoStaking,
		KycRequired: m.KycRequired,
	}
	if m.Release != 0 {
		ret.Release = time.Unix(m.Release, 0).UTC()
	}
	return ret
}

type settings struct {
	Governor    types.Address
	GovernorSet bool
	Paused      bool
}

type ClearingHouse struct {
	config   ClearingHouseConfig
	metrics  *clearingHouseMetrics
	logger   *slog.Logger
	db       *database.Database
	tokens   *token.Ledger
	staking  *staking.Staking
	eventBus *event.EventBus
	account  types.Address
}

func NewClearingHouse(config ClearingHouseConfig) (*ClearingHouse, error) {
	if config.DB == nil || config.Tokens == nil || config.Staking == nil {
		return nil, errors.New("clearinghouse: database, token ledger and staking are required")
	}
	if config.Causes == nil {
		return nil, errors.New("clearinghouse: cause lookup is required")
	}
	if config.BaseToken.IsZero() {
		return nil, errors.New("clearinghouse: base token is required")
	}
	if config.Resolver == nil {
		config.Resolver = auth.Static{}
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.KycAllowance == nil {
		config.KycAllowance = new(uint256.Int)
	}
	c := &ClearingHouse{
		config:   config,
		logger:   config.Logger,
		db:       config.DB,
		tokens:   config.Tokens,
		staking:  config.Staking,
		eventBus: config.EventBus,
		account:  types.DeriveAddress(AccountDomain),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if config.PromRegistry != nil {
		c.metrics = &clearingHouseMetrics{}
		c.metrics.init(config.PromRegistry)
	}
	return c, nil
}

// Account returns the address that must mint every child DAO token. Callers
// converting base tokens approve it as a spender
func (c *ClearingHouse) Account() types.Address {
	return c.account
}

func (c *ClearingHouse) settings(txn *database.Txn) (settings, error) {
	var ret settings
	found, err := c.db.GetRecord([]byte(types.ClearingHouseSettingsKey), &ret, txn)
	if err != nil {
		return ret, err
	}
	if !found && !c.config.Governor.IsZero() {
		ret.Governor = c.config.Governor
		ret.GovernorSet = true
	}
	return ret, nil
}

func (c *ClearingHouse) setSettings(s settings, txn *database.Txn) error {
	return c.db.SetRecord([]byte(types.ClearingHouseSettingsKey), &s, txn)
}

// Governor returns the current governor and whether one was ever set
func (c *ClearingHouse) Governor(txn *database.Txn) (types.Address, bool, error) {
	s, err := c.settings(txn)
	if err != nil {
		return types.Address{}, false, err
	}
	return s.Governor, s.GovernorSet, nil
}

func (c *ClearingHouse) Paused(txn *database.Txn) (bool, error) {
	s, err := c.settings(txn)
	return s.Paused, err
}

// ResolveRole answers auth.RoleGovernor from the stored settings and hands
// every other role to the configured resolver
func (c *ClearingHouse) ResolveRole(
	role auth.Role,
	txn *database.Txn,
) (types.Address, bool, error) {
	if role.Kind != auth.RoleGovernor {
		return c.config.Resolver.ResolveRole(role, txn)
	}
	s, err := c.settings(txn)
	if err != nil {
		return types.Address{}, false, err
	}
	if !s.GovernorSet || s.Governor.IsZero() {
		return types.Address{}, false, nil
	}
	return s.Governor, true, nil
}

func (c *ClearingHouse) whenNotPaused(txn *database.Txn) error {
	paused, err := c.Paused(txn)
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// SetGovernor replaces the governor. Only the platform admin may call it
func (c *ClearingHouse) SetGovernor(
	caller, governor types.Address,
	txn *database.Txn,
) error {
	if governor.IsZero() {
		return ErrInvalidGovernor
	}
	return c.db.Update(txn, func(txn *database.Txn) error {
		ok, err := auth.Allowed(c, caller, txn, auth.PlatformAdmin())
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAdmin
		}
		s, err := c.settings(txn)
		if err != nil {
			return err
		}
		prev := s.Governor
		s.Governor = governor
		s.GovernorSet = true
		if err := c.setSettings(s, txn); err != nil {
			return err
		}
		c.publish(txn, GovernorUpdatedEventType, GovernorUpdatedEvent{
			Previous: prev,
			Governor: governor,
		})
		return nil
	})
}

func (c *ClearingHouse) Pause(caller types.Address, txn *database.Txn) error {
	return c.setPaused(caller, true, txn)
}

func (c *ClearingHouse) Unpause(caller types.Address, txn *database.Txn) error {
	return c.setPaused(caller, false, txn)
}

func (c *ClearingHouse) setPaused(caller types.Address, paused bool, txn *database.Txn) error {
	return c.db.Update(txn, func(txn *database.Txn) error {
		ok, err := auth.Allowed(c, caller, txn, auth.Governor(), auth.PlatformAdmin())
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotGovernorOrAdmin
		}
		s, err := c.settings(txn)
		if err != nil {
			return err
		}
		if paused && s.Paused {
			return ErrPaused
		}
		if !paused && !s.Paused {
			return ErrNotPaused
		}
		s.Paused = paused
		if err := c.setSettings(s, txn); err != nil {
			return err
		}
		c.logger.Info(
			"conversion pause state changed",
			"component", "clearinghouse",
			"paused", paused,
			"caller", caller.String(),
		)
		evtType := UnpausedEventType
		if paused {
			evtType = PausedEventType
		}
		if c.metrics != nil {
			value := 0.0
			if paused {
				value = 1.0
			}
			txn.OnCommit(func() { c.metrics.paused.Set(value) })
		}
		c.publish(txn, evtType, PauseEvent{Caller: caller})
		return nil
	})
}

// CauseInformation returns the policy of a token. Registered is false for
// tokens that were never registered
func (c *ClearingHouse) CauseInformation(
	tok types.Address,
	txn *database.Txn,
) (*CauseInformation, error) {
	ret := &CauseInformation{Token: tok}
	err := c.db.View(txn, func(txn *database.Txn) error {
		tmp, err := c.db.Metadata().GetChildDao(tok, txn.Metadata())
		if err != nil {
			return err
		}
		if tmp != nil {
			ret.Registered = true
			ret.Policy = policyFromModel(tmp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// ChildDaos returns every registered token with its policy
func (c *ClearingHouse) ChildDaos(txn *database.Txn) ([]*CauseInformation, error) {
	var ret []*CauseInformation
	err := c.db.View(txn, func(txn *database.Txn) error {
		tmp, err := c.db.Metadata().GetChildDaos(txn.Metadata())
		if err != nil {
			return err
		}
		for i := range tmp {
			ret = append(ret, &CauseInformation{
				Token:      tmp[i].Token,
				Registered: true,
				Policy:     policyFromModel(&tmp[i]),
			})
		}
		return nil
	})
	return ret, err
}

func (c *ClearingHouse) childDao(tok types.Address, txn *database.Txn) (*models.ChildDao, error) {
	tmp, err := c.db.Metadata().GetChildDao(tok, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if tmp == nil {
		return nil, ErrNotRegistered
	}
	return tmp, nil
}

// RegisterChildDao enables conversions for a token minted by the clearing
// house. Only the governor may register tokens
func (c *ClearingHouse) RegisterChildDao(
	caller, tok types.Address,
	policy Policy,
	txn *database.Txn,
) error {
	if tok.IsZero() {
		return ErrInvalidToken
	}
	if tok == c.config.BaseToken {
		return ErrBaseToken
	}
	if policy.MaxSupply == nil || policy.MaxSupply.IsZero() {
		return ErrInvalidMaxSupply
	}
	if policy.MaxSwap == nil || policy.MaxSwap.IsZero() {
		return ErrInvalidMaxSwap
	}
	return c.db.Update(txn, func(txn *database.Txn) error {
		if err := c.whenNotPaused(txn); err != nil {
			return err
		}
		if err := c.requireGovernor(caller, txn); err != nil {
			return err
		}
		existing, err := c.db.Metadata().GetChildDao(tok, txn.Metadata())
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}
		minter, err := c.tokens.MinterOf(tok, txn)
		if err != nil {
			if errors.Is(err, token.ErrUnknownToken) {
				return ErrTokenNotOwned
			}
			return err
		}
		if minter != c.account {
			return ErrTokenNotOwned
		}
		tmpChildDao := &models.ChildDao{
			Token:       tok,
			MaxSupply:   types.NewUint256(policy.MaxSupply),
			MaxSwap:     types.NewUint256(policy.MaxSwap),
			AutoStaking: policy.AutoStaking,
			KycRequired: policy.KycRequired,
		}
		if !policy.Release.IsZero() {
			tmpChildDao.Release = policy.Release.Unix()
		}
		if err := c.db.Metadata().SetChildDao(tmpChildDao, txn.Metadata()); err != nil {
			return err
		}
		if err := c.tokens.Approve(
			c.account,
			tok,
			c.staking.Account(),
			types.MaxUint256(),
			txn,
		); err != nil {
			return fmt.Errorf("%w: %w", ErrStakingAllowance, err)
		}
		c.logger.Info(
			"registered child dao",
			"component", "clearinghouse",
			"token", tok.String(),
			"max_supply", policy.MaxSupply.Dec(),
			"max_swap", policy.MaxSwap.Dec(),
		)
		if c.metrics != nil {
			txn.OnCommit(c.metrics.policyUpdates.Inc)
		}
		c.publish(txn, ChildDaoRegisteredEventType, ChildDaoRegisteredEvent{
			Token:  tok,
			Policy: policyFromModel(tmpChildDao),
		})
		return nil
	})
}

func (c *ClearingHouse) requireGovernor(caller types.Address, txn *database.Txn) error {
	_, set, err := c.Governor(txn)
	if err != nil {
		return err
	}
	if !set {
		return ErrGovernorNotSet
	}
	ok, err := auth.Allowed(c, caller, txn, auth.Governor())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotGovernor
	}
	return nil
}

func (c *ClearingHouse) publish(txn *database.Txn, evtType event.EventType, evtData any) {
	if c.eventBus == nil {
		return
	}
	txn.OnCommit(func() {
		c.eventBus.Publish(evtType, event.NewEvent(evtType, evtData))
	})
}
