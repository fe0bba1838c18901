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

package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blinklabs-io/causeway/clearinghouse"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/keystore"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "causeway.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// Config holds operator settings. Addresses and keys are hex strings and
// amounts are base-10 integers on the 1e18 scale
type Config struct {
	DatabasePath      string `yaml:"databasePath" split_words:"true"`
	BaseToken         string `yaml:"baseToken" split_words:"true"`
	PlatformOwner     string `yaml:"platformOwner" split_words:"true"`
	Admin             string `yaml:"admin"`
	Governor          string `yaml:"governor"`
	PlatformFee       string `yaml:"platformFee" split_words:"true"`
	TrustedSigner     string `yaml:"trustedSigner" split_words:"true"`
	// TrustedSignerFile is a verification key file, used when TrustedSigner is empty
	TrustedSignerFile string `yaml:"trustedSignerFile" split_words:"true"`
	KycAllowance      string `yaml:"kycAllowance" split_words:"true"`
	LockupPeriod      string `yaml:"lockupPeriod" split_words:"true"`
	BadgerCacheSize   uint64 `yaml:"badgerCacheSize" split_words:"true"`
}

var globalConfig = &Config{
	DatabasePath:    ".causeway",
	PlatformFee:     "0",
	KycAllowance:    "0",
	LockupPeriod:    "0s",
	BadgerCacheSize: 268435456,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.causeway/causeway.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".causeway", "causeway.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/causeway/causeway.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("causeway", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Settings is the parsed form of Config
type Settings struct {
	TrustedSigner *secp256k1.PublicKey
	PlatformFee   *uint256.Int
	KycAllowance  *uint256.Int
	LockupPeriod  time.Duration
	BaseToken     types.Address
	PlatformOwner types.Address
	Admin         types.Address
	Governor      types.Address
}

// Parse decodes the string settings. Optional addresses and keys stay zero
// when empty
func (c *Config) Parse() (*Settings, error) {
	var err error
	ret := &Settings{}
	if c.BaseToken == "" {
		return nil, errors.New("baseToken is required")
	}
	if ret.BaseToken, err = types.ParseAddress(c.BaseToken); err != nil {
		return nil, fmt.Errorf("baseToken: %w", err)
	}
	if c.PlatformOwner == "" {
		return nil, errors.New("platformOwner is required")
	}
	if ret.PlatformOwner, err = types.ParseAddress(c.PlatformOwner); err != nil {
		return nil, fmt.Errorf("platformOwner: %w", err)
	}
	if c.Admin != "" {
		if ret.Admin, err = types.ParseAddress(c.Admin); err != nil {
			return nil, fmt.Errorf("admin: %w", err)
		}
	}
	if c.Governor != "" {
		if ret.Governor, err = types.ParseAddress(c.Governor); err != nil {
			return nil, fmt.Errorf("governor: %w", err)
		}
	}
	if ret.PlatformFee, err = parseAmount(c.PlatformFee); err != nil {
		return nil, fmt.Errorf("platformFee: %w", err)
	}
	if ret.KycAllowance, err = parseAmount(c.KycAllowance); err != nil {
		return nil, fmt.Errorf("kycAllowance: %w", err)
	}
	if c.LockupPeriod != "" {
		if ret.LockupPeriod, err = time.ParseDuration(c.LockupPeriod); err != nil {
			return nil, fmt.Errorf("lockupPeriod: %w", err)
		}
	}
	switch {
	case c.TrustedSigner != "":
		key, err := hexBytes(c.TrustedSigner)
		if err != nil {
			return nil, fmt.Errorf("trustedSigner: %w", err)
		}
		if ret.TrustedSigner, err = clearinghouse.ParseTrustedSigner(key); err != nil {
			return nil, fmt.Errorf("trustedSigner: %w", err)
		}
	case c.TrustedSignerFile != "":
		if ret.TrustedSigner, err = keystore.LoadVerificationKey(c.TrustedSignerFile); err != nil {
			return nil, fmt.Errorf("trustedSignerFile: %w", err)
		}
	}
	return ret, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
