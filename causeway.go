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

// Package causeway wires the cause registry, staking ledger and clearing
// house around a shared token ledger and database.
package causeway

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/clearinghouse"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/event"
	"github.com/blinklabs-io/causeway/registry"
	"github.com/blinklabs-io/causeway/staking"
	"github.com/blinklabs-io/causeway/token"
)

type Engine struct {
	db            *database.Database
	eventBus      *event.EventBus
	tokens        *token.Ledger
	staking       *staking.Staking
	registry      *registry.Registry
	clearingHouse *clearinghouse.ClearingHouse
	config        Config
	closeOnce     sync.Once
}

func New(cfg Config) (*Engine, error) {
	e := &Engine{
		config: cfg,
	}
	if e.config.logger == nil {
		e.config.logger = NewConfig().logger
	}
	if err := e.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:       cfg.dataDir,
		Logger:        e.config.logger,
		PromRegistry:  cfg.promRegistry,
		BlobCacheSize: cfg.blobCacheSize,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		var dbErr database.CommitSequenceError
		if errors.As(err, &dbErr) {
			return nil, fmt.Errorf(
				"database is inconsistent, restore from backup: %w",
				err,
			)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	if err := e.init(); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) init() error {
	e.eventBus = event.NewEventBus(e.config.promRegistry, e.config.logger)
	e.tokens = token.New(e.db, e.config.logger)
	admins := auth.Static{auth.PlatformAdmin(): e.config.admin}
	var err error
	e.staking, err = staking.NewStaking(staking.StakingConfig{
		PromRegistry: e.config.promRegistry,
		Resolver:     admins,
		Logger:       e.config.logger,
		EventBus:     e.eventBus,
		DB:           e.db,
		Tokens:       e.tokens,
		RewardToken:  e.config.baseToken,
	})
	if err != nil {
		return fmt.Errorf("failed to load staking ledger: %w", err)
	}
	e.registry, err = registry.NewRegistry(registry.RegistryConfig{
		PromRegistry:  e.config.promRegistry,
		Resolver:      admins,
		Logger:        e.config.logger,
		EventBus:      e.eventBus,
		DB:            e.db,
		Tokens:        e.tokens,
		Staking:       e.staking,
		PlatformFee:   e.config.platformFee,
		BaseToken:     e.config.baseToken,
		PlatformOwner: e.config.platformOwner,
	})
	if err != nil {
		return fmt.Errorf("failed to load cause registry: %w", err)
	}
	e.clearingHouse, err = clearinghouse.NewClearingHouse(clearinghouse.ClearingHouseConfig{
		PromRegistry: e.config.promRegistry,
		// Cause owners come from the registry, which falls back to the
		// static admin assignment
		Resolver:      e.registry,
		Causes:        e.registry,
		Clock:         e.config.clock,
		Logger:        e.config.logger,
		EventBus:      e.eventBus,
		DB:            e.db,
		Tokens:        e.tokens,
		Staking:       e.staking,
		TrustedSigner: e.config.trustedSigner,
		KycAllowance:  e.config.kycAllowance,
		BaseToken:     e.config.baseToken,
		Governor:      e.config.governor,
	})
	if err != nil {
		return fmt.Errorf("failed to load clearing house: %w", err)
	}
	return e.db.Update(nil, func(txn *database.Txn) error {
		exists, err := e.tokens.Exists(e.config.baseToken, txn)
		if err != nil {
			return err
		}
		if !exists {
			if err := e.tokens.CreateToken(
				e.config.baseToken,
				e.config.platformOwner,
				txn,
			); err != nil {
				return fmt.Errorf("failed to create base token: %w", err)
			}
			e.config.logger.Info(
				"created base token",
				"component", "causeway",
				"token", e.config.baseToken.String(),
				"minter", e.config.platformOwner.String(),
			)
		}
		if e.config.lockupPeriod > 0 {
			if err := e.staking.SetLockupPeriod(
				e.config.admin,
				e.config.lockupPeriod,
				txn,
			); err != nil {
				return fmt.Errorf("failed to set lockup period: %w", err)
			}
		}
		return nil
	})
}

func (e *Engine) DB() *database.Database {
	return e.db
}

func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

func (e *Engine) Tokens() *token.Ledger {
	return e.tokens
}

func (e *Engine) Staking() *staking.Staking {
	return e.staking
}

func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

func (e *Engine) ClearingHouse() *clearinghouse.ClearingHouse {
	return e.clearingHouse
}

// Close stops event delivery and closes the database
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.eventBus != nil {
			e.eventBus.Stop()
		}
		if e.db != nil {
			err = e.db.Close()
		}
	})
	return err
}
