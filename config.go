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

package causeway

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/causeway/database/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry  prometheus.Registerer
	logger        *slog.Logger
	clock         clockwork.Clock
	trustedSigner *secp256k1.PublicKey
	platformFee   *uint256.Int
	kycAllowance  *uint256.Int
	dataDir       string
	blobCacheSize uint64
	lockupPeriod  time.Duration
	baseToken     types.Address
	platformOwner types.Address
	admin         types.Address
	governor      types.Address
}

func (e *Engine) configValidate() error {
	if e.config.baseToken.IsZero() {
		return errors.New("base token must be specified")
	}
	if e.config.platformOwner.IsZero() {
		return errors.New("platform owner must be specified")
	}
	if e.config.platformFee != nil && e.config.platformFee.Gt(types.Scale()) {
		return fmt.Errorf(
			"platform fee %s exceeds %s",
			e.config.platformFee.Dec(),
			types.Scale().Dec(),
		)
	}
	if e.config.lockupPeriod < 0 {
		return fmt.Errorf("invalid lockup period: %s", e.config.lockupPeriod)
	}
	if e.config.lockupPeriod > 0 && e.config.admin.IsZero() {
		return errors.New("a lockup period requires an admin")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new causeway config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		clock:  clockwork.NewRealClock(),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobCacheSize sets the badger block cache size in bytes
func WithBlobCacheSize(size uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.blobCacheSize = size
	}
}

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock overrides the clock used for release and expiry checks
func WithClock(clock clockwork.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithBaseToken specifies the platform base token. It is created with the
// platform owner as minter when it does not exist yet
func WithBaseToken(token types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.baseToken = token
	}
}

// WithPlatformOwner specifies the account that receives platform fees
func WithPlatformOwner(owner types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.platformOwner = owner
	}
}

// WithPlatformFee specifies the initial platform fee, scaled by 1e18
func WithPlatformFee(fee *uint256.Int) ConfigOptionFunc {
	return func(c *Config) {
		c.platformFee = fee
	}
}

// WithAdmin specifies the platform admin account
func WithAdmin(admin types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.admin = admin
	}
}

// WithGovernor specifies the initial clearing house governor
func WithGovernor(governor types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.governor = governor
	}
}

// WithTrustedSigner specifies the public key that signs KYC approvals
func WithTrustedSigner(key *secp256k1.PublicKey) ConfigOptionFunc {
	return func(c *Config) {
		c.trustedSigner = key
	}
}

// WithKycAllowance specifies the cumulative amount a single KYC approval
// may convert for one cause
func WithKycAllowance(allowance *uint256.Int) ConfigOptionFunc {
	return func(c *Config) {
		c.kycAllowance = allowance
	}
}

// WithLockupPeriod specifies the staking lockup period recorded at startup
func WithLockupPeriod(period time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.lockupPeriod = period
	}
}
