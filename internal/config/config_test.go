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
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/keystore"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	testBaseToken     = types.DeriveAddress("test", []byte("earth"))
	testPlatformOwner = types.DeriveAddress("test", []byte("platform"))
	testGovernor      = types.DeriveAddress("test", []byte("governor"))
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DatabasePath:    ".causeway",
		PlatformFee:     "0",
		KycAllowance:    "0",
		LockupPeriod:    "0s",
		BadgerCacheSize: 268435456,
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test-causeway.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return tmpFile
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfig(t, `
databasePath: "/var/lib/causeway"
baseToken: "`+testBaseToken.String()+`"
platformOwner: "`+testPlatformOwner.String()+`"
governor: "`+testGovernor.String()+`"
platformFee: "30000000000000000"
kycAllowance: "1000"
lockupPeriod: "168h"
badgerCacheSize: 8388608
`)
	expected := &Config{
		DatabasePath:    "/var/lib/causeway",
		BaseToken:       testBaseToken.String(),
		PlatformOwner:   testPlatformOwner.String(),
		Governor:        testGovernor.String(),
		PlatformFee:     "30000000000000000",
		KycAllowance:    "1000",
		LockupPeriod:    "168h",
		BadgerCacheSize: 8388608,
	}
	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfig(t, "databasePath: \"/from/file\"\nadmin: \"0x00\"\n")
	t.Setenv("CAUSEWAY_DATABASE_PATH", "/from/env")
	t.Setenv("CAUSEWAY_ADMIN", testGovernor.String())
	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabasePath != "/from/env" {
		t.Errorf("expected env database path, got %q", cfg.DatabasePath)
	}
	if cfg.Admin != testGovernor.String() {
		t.Errorf("expected env admin, got %q", cfg.Admin)
	}
	if cfg.BadgerCacheSize != 268435456 {
		t.Errorf("expected default cache size, got %d", cfg.BadgerCacheSize)
	}
}

func TestLoad_InvalidYaml(t *testing.T) {
	resetGlobalConfig()
	tmpFile := writeConfig(t, "badgerCacheSize: [1, 2")
	if _, err := LoadConfig(tmpFile); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestParse(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	cfg := &Config{
		BaseToken:     testBaseToken.String(),
		PlatformOwner: testPlatformOwner.String(),
		Governor:      testGovernor.String(),
		PlatformFee:   "30000000000000000",
		KycAllowance:  "500",
		LockupPeriod:  "1h",
		TrustedSigner: hex.EncodeToString(key.PubKey().SerializeCompressed()),
	}
	settings, err := cfg.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.BaseToken != testBaseToken || settings.PlatformOwner != testPlatformOwner {
		t.Errorf("unexpected addresses: %+v", settings)
	}
	if !settings.Admin.IsZero() {
		t.Errorf("expected zero admin, got %s", settings.Admin)
	}
	if settings.PlatformFee.Uint64() != 30000000000000000 {
		t.Errorf("unexpected platform fee: %s", settings.PlatformFee.Dec())
	}
	if settings.KycAllowance.Uint64() != 500 {
		t.Errorf("unexpected kyc allowance: %s", settings.KycAllowance.Dec())
	}
	if settings.LockupPeriod != time.Hour {
		t.Errorf("unexpected lockup period: %s", settings.LockupPeriod)
	}
	if settings.TrustedSigner == nil || !settings.TrustedSigner.IsEqual(key.PubKey()) {
		t.Errorf("trusted signer did not round trip")
	}
}

func TestParseTrustedSignerFile(t *testing.T) {
	dir := t.TempDir()
	vkeyPath := filepath.Join(dir, "kyc.vkey")
	key, err := keystore.GenerateKeyPair(filepath.Join(dir, "kyc.skey"), vkeyPath)
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	cfg := &Config{
		BaseToken:         testBaseToken.String(),
		PlatformOwner:     testPlatformOwner.String(),
		TrustedSignerFile: vkeyPath,
	}
	settings, err := cfg.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !settings.TrustedSigner.IsEqual(key.PubKey()) {
		t.Errorf("trusted signer did not load from file")
	}
	cfg.TrustedSignerFile = filepath.Join(dir, "missing.vkey")
	if _, err := cfg.Parse(); err == nil {
		t.Fatal("expected error for missing key file")
	}
}

func TestParseErrors(t *testing.T) {
	valid := Config{
		BaseToken:     testBaseToken.String(),
		PlatformOwner: testPlatformOwner.String(),
	}
	testDefs := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base token", func(c *Config) { c.BaseToken = "" }},
		{"missing platform owner", func(c *Config) { c.PlatformOwner = "" }},
		{"bad governor", func(c *Config) { c.Governor = "0x1234" }},
		{"bad fee", func(c *Config) { c.PlatformFee = "3%" }},
		{"bad lockup", func(c *Config) { c.LockupPeriod = "a week" }},
		{"bad signer", func(c *Config) { c.TrustedSigner = "0x0102" }},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cfg := valid
			testDef.mutate(&cfg)
			if _, err := cfg.Parse(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil config from empty context")
	}
	cfg := &Config{DatabasePath: "x"}
	ctx := WithContext(context.Background(), cfg)
	if FromContext(ctx) != cfg {
		t.Fatal("config did not round trip through context")
	}
}
