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

package clearinghouse_test

import (
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/clearinghouse"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/blinklabs-io/causeway/internal/test/testutil"
	"github.com/blinklabs-io/causeway/registry"
	"github.com/blinklabs-io/causeway/staking"
	"github.com/blinklabs-io/causeway/token"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseToken  = types.DeriveAddress("test", []byte("earth"))
	childA     = types.DeriveAddress("test", []byte("child-a"))
	childB     = types.DeriveAddress("test", []byte("child-b"))
	minter     = types.DeriveAddress("test", []byte("minter"))
	admin      = types.DeriveAddress("test", []byte("admin"))
	governor   = types.DeriveAddress("test", []byte("governor"))
	causeOwner = types.DeriveAddress("test", []byte("cause-owner"))
	user       = types.DeriveAddress("test", []byte("user"))
	stranger   = types.DeriveAddress("test", []byte("stranger"))
	kycID      = types.Blake2b256([]byte("kyc"))
	startTime  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type testEnv struct {
	db       *database.Database
	tokens   *token.Ledger
	staking  *staking.Staking
	registry *registry.Registry
	ch       *clearinghouse.ClearingHouse
	eventBus *event.EventBus
	clock    *clockwork.FakeClock
	signer   *secp256k1.PrivateKey
	promReg  *prometheus.Registry
}

func newTestEnv(t *testing.T, gov types.Address) *testEnv {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	signer, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	env := &testEnv{
		db:       db,
		tokens:   token.New(db, nil),
		eventBus: event.NewEventBus(nil, nil),
		clock:    clockwork.NewFakeClockAt(startTime),
		signer:   signer,
		promReg:  prometheus.NewRegistry(),
	}
	t.Cleanup(env.eventBus.Stop)
	resolver := auth.Static{auth.PlatformAdmin(): admin}
	env.staking, err = staking.NewStaking(staking.StakingConfig{
		DB:          db,
		Tokens:      env.tokens,
		RewardToken: baseToken,
		Resolver:    resolver,
	})
	require.NoError(t, err)
	env.registry, err = registry.NewRegistry(registry.RegistryConfig{
		DB:            db,
		Tokens:        env.tokens,
		Staking:       env.staking,
		Resolver:      resolver,
		BaseToken:     baseToken,
		PlatformOwner: admin,
	})
	require.NoError(t, err)
	env.ch, err = clearinghouse.NewClearingHouse(clearinghouse.ClearingHouseConfig{
		DB:            db,
		Tokens:        env.tokens,
		Staking:       env.staking,
		Causes:        env.registry,
		EventBus:      env.eventBus,
		PromRegistry:  env.promReg,
		Resolver:      resolver,
		Clock:         env.clock,
		TrustedSigner: signer.PubKey(),
		KycAllowance:  uint256.NewInt(100),
		BaseToken:     baseToken,
		Governor:      gov,
	})
	require.NoError(t, err)
	require.NoError(t, env.tokens.CreateToken(baseToken, minter, nil))
	for _, tok := range []types.Address{childA, childB} {
		require.NoError(t, env.tokens.CreateToken(tok, env.ch.Account(), nil))
		_, err := env.registry.RegisterCause(causeOwner, tok, nil, nil)
		require.NoError(t, err)
	}
	return env
}

func policy(maxSupply, maxSwap uint64) clearinghouse.Policy {
	return clearinghouse.Policy{
		MaxSupply: uint256.NewInt(maxSupply),
		MaxSwap:   uint256.NewInt(maxSwap),
	}
}

// fund gives account base tokens and approves the clearing house to pull
// them
func (e *testEnv) fund(t *testing.T, account types.Address, amount uint64) {
	t.Helper()
	require.NoError(t, e.tokens.Mint(minter, baseToken, account, uint256.NewInt(amount), nil))
	require.NoError(t, e.tokens.Approve(account, baseToken, e.ch.Account(), types.MaxUint256(), nil))
}

func (e *testEnv) balance(t *testing.T, tok, account types.Address) uint64 {
	t.Helper()
	ret, err := e.tokens.BalanceOf(tok, account, nil)
	require.NoError(t, err)
	return ret.Uint64()
}

func (e *testEnv) swapIn(account, tok types.Address, amount uint64, approval clearinghouse.KycApproval) error {
	return e.ch.SwapEarthForChildDao(account, tok, uint256.NewInt(amount), approval, nil)
}

func (e *testEnv) approval(t *testing.T, account, tok types.Address, expiry uint64) clearinghouse.KycApproval {
	t.Helper()
	cause, err := e.registry.CauseByTenantToken(tok, nil)
	require.NoError(t, err)
	return clearinghouse.KycApproval{
		KycID:     kycID,
		Expiry:    expiry,
		Signature: clearinghouse.SignKyc(e.signer, kycID, account, cause.ID, expiry),
	}
}

func TestRegisterChildDao(t *testing.T) {
	env := newTestEnv(t, governor)
	_, evtCh := env.eventBus.Subscribe(clearinghouse.ChildDaoRegisteredEventType)
	unowned := types.DeriveAddress("test", []byte("unowned"))
	require.NoError(t, env.tokens.CreateToken(unowned, minter, nil))

	testDefs := []struct {
		name   string
		caller types.Address
		token  types.Address
		policy clearinghouse.Policy
		err    error
	}{
		{"not governor", stranger, childA, policy(100, 10), clearinghouse.ErrNotGovernor},
		{"base token", governor, baseToken, policy(100, 10), clearinghouse.ErrBaseToken},
		{"zero token", governor, types.Address{}, policy(100, 10), clearinghouse.ErrInvalidToken},
		{"minted elsewhere", governor, unowned, policy(100, 10), clearinghouse.ErrTokenNotOwned},
		{"unknown token", governor, stranger, policy(100, 10), clearinghouse.ErrTokenNotOwned},
		{"zero max supply", governor, childA, policy(0, 10), clearinghouse.ErrInvalidMaxSupply},
		{"zero max swap", governor, childA, policy(100, 0), clearinghouse.ErrInvalidMaxSwap},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := env.ch.RegisterChildDao(testDef.caller, testDef.token, testDef.policy, nil)
			require.ErrorIs(t, err, testDef.err)
		})
	}

	p := policy(100, 10)
	p.AutoStaking = true
	p.Release = startTime.Add(time.Hour)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, p, nil))
	evt := testutil.RequireEvent[clearinghouse.ChildDaoRegisteredEvent](t, evtCh, time.Second)
	assert.Equal(t, childA, evt.Token)

	info, err := env.ch.CauseInformation(childA, nil)
	require.NoError(t, err)
	assert.True(t, info.Registered)
	assert.True(t, info.AutoStaking)
	assert.False(t, info.KycRequired)
	assert.Equal(t, uint64(100), info.MaxSupply.Uint64())
	assert.Equal(t, uint64(10), info.MaxSwap.Uint64())
	assert.True(t, p.Release.Equal(info.Release))

	allowance, err := env.tokens.Allowance(childA, env.ch.Account(), env.staking.Account(), nil)
	require.NoError(t, err)
	assert.True(t, allowance.Eq(types.MaxUint256()))

	err = env.ch.RegisterChildDao(governor, childA, policy(100, 10), nil)
	require.ErrorIs(t, err, clearinghouse.ErrAlreadyRegistered)

	info, err = env.ch.CauseInformation(childB, nil)
	require.NoError(t, err)
	assert.False(t, info.Registered)
	daos, err := env.ch.ChildDaos(nil)
	require.NoError(t, err)
	assert.Len(t, daos, 1)
}

func TestGovernorNotSet(t *testing.T) {
	env := newTestEnv(t, types.Address{})
	err := env.ch.RegisterChildDao(governor, childA, policy(100, 10), nil)
	require.ErrorIs(t, err, clearinghouse.ErrGovernorNotSet)
	err = env.ch.SetMaxSwap(causeOwner, childA, uint256.NewInt(5), nil)
	require.ErrorIs(t, err, clearinghouse.ErrGovernorNotSet)

	require.ErrorIs(t, env.ch.SetGovernor(stranger, governor, nil), clearinghouse.ErrNotAdmin)
	require.ErrorIs(t, env.ch.SetGovernor(admin, types.Address{}, nil), clearinghouse.ErrInvalidGovernor)
	require.NoError(t, env.ch.SetGovernor(admin, governor, nil))
	gov, set, err := env.ch.Governor(nil)
	require.NoError(t, err)
	assert.True(t, set)
	assert.Equal(t, governor, gov)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, policy(100, 10), nil))
}

func TestSwapRoundTrip(t *testing.T) {
	env := newTestEnv(t, governor)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, policy(100, 50), nil))
	_, evtCh := env.eventBus.Subscribe(clearinghouse.SwappedEventType)

	err := env.swapIn(user, childA, 10, clearinghouse.KycApproval{})
	require.ErrorIs(t, err, clearinghouse.ErrBaseTokenTransfer)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	env.fund(t, user, 30)
	require.ErrorIs(t, env.swapIn(user, childB, 10, clearinghouse.KycApproval{}), clearinghouse.ErrNotRegistered)
	require.ErrorIs(t, env.swapIn(user, childA, 0, clearinghouse.KycApproval{}), clearinghouse.ErrInvalidAmount)

	require.NoError(t, env.swapIn(user, childA, 10, clearinghouse.KycApproval{}))
	evt := testutil.RequireEvent[clearinghouse.SwappedEvent](t, evtCh, time.Second)
	assert.Equal(t, clearinghouse.SwapKindEarthToChild, evt.Kind)
	assert.False(t, evt.Staked)
	assert.Equal(t, uint64(10), env.balance(t, childA, user))
	assert.Equal(t, uint64(20), env.balance(t, baseToken, user))
	assert.Equal(t, uint64(10), env.balance(t, baseToken, env.ch.Account()))

	require.NoError(t, env.ch.SwapChildDaoForEarth(user, childA, uint256.NewInt(4), nil))
	assert.Equal(t, uint64(6), env.balance(t, childA, user))
	assert.Equal(t, uint64(24), env.balance(t, baseToken, user))
	assert.Equal(t, uint64(6), env.balance(t, baseToken, env.ch.Account()))

	err = env.ch.SwapChildDaoForEarth(user, childA, uint256.NewInt(7), nil)
	require.ErrorIs(t, err, clearinghouse.ErrNotEnoughChildDao)
	err = env.ch.SwapChildDaoForEarth(user, childB, uint256.NewInt(1), nil)
	require.ErrorIs(t, err, clearinghouse.ErrNotRegistered)

	expected := `
# HELP causeway_clearinghouse_swaps_total total committed swaps by kind
# TYPE causeway_clearinghouse_swaps_total counter
causeway_clearinghouse_swaps_total{kind="child_to_earth"} 1
causeway_clearinghouse_swaps_total{kind="earth_to_child"} 1
`
	require.NoError(t, promtestutil.GatherAndCompare(
		env.promReg,
		strings.NewReader(expected),
		"causeway_clearinghouse_swaps_total",
	))
}

func TestSwapCaps(t *testing.T) {
	env := newTestEnv(t, governor)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, policy(25, 10), nil))
	env.fund(t, user, 100)
	env.fund(t, admin, 100)

	err := env.swapIn(user, childA, 11, clearinghouse.KycApproval{})
	require.ErrorIs(t, err, clearinghouse.ErrExceedsMaxSwap)
	require.ErrorIs(t, err, types.ErrPrecondition)

	// The privileged account skips the per-transaction cap but not the
	// supply cap
	require.NoError(t, env.swapIn(admin, childA, 20, clearinghouse.KycApproval{}))
	require.ErrorIs(t, env.swapIn(admin, childA, 6, clearinghouse.KycApproval{}), clearinghouse.ErrExceedsMaxSupply)
	require.ErrorIs(t, env.swapIn(user, childA, 6, clearinghouse.KycApproval{}), clearinghouse.ErrExceedsMaxSupply)
	require.NoError(t, env.swapIn(user, childA, 5, clearinghouse.KycApproval{}))
	supply, err := env.tokens.TotalSupply(childA, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), supply.Uint64())
}

func TestSwapRelease(t *testing.T) {
	env := newTestEnv(t, governor)
	p := policy(100, 10)
	p.Release = startTime.Add(time.Hour)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, p, nil))
	env.fund(t, user, 10)

	require.ErrorIs(t, env.swapIn(user, childA, 1, clearinghouse.KycApproval{}), clearinghouse.ErrNotReleased)
	env.clock.Advance(time.Hour)
	require.NoError(t, env.swapIn(user, childA, 1, clearinghouse.KycApproval{}))
}

func TestSwapKyc(t *testing.T) {
	env := newTestEnv(t, governor)
	p := policy(1000, 100)
	p.KycRequired = true
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, p, nil))
	env.fund(t, user, 500)
	env.fund(t, stranger, 500)
	now := uint64(startTime.Unix())

	otherSigner, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	cause, err := env.registry.CauseByTenantToken(childA, nil)
	require.NoError(t, err)

	testDefs := []struct {
		name     string
		approval clearinghouse.KycApproval
		err      error
	}{
		{"missing signature", clearinghouse.KycApproval{KycID: kycID}, clearinghouse.ErrInvalidSignature},
		{
			"wrong signer",
			clearinghouse.KycApproval{
				KycID:     kycID,
				Signature: clearinghouse.SignKyc(otherSigner, kycID, user, cause.ID, 0),
			},
			clearinghouse.ErrInvalidSignature,
		},
		{"signed for another account", env.approval(t, stranger, childA, 0), clearinghouse.ErrInvalidSignature},
		{"expired", env.approval(t, user, childA, now-1), clearinghouse.ErrApprovalExpired},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := env.swapIn(user, childA, 10, testDef.approval)
			require.ErrorIs(t, err, testDef.err)
			require.ErrorIs(t, err, types.ErrVerification)
		})
	}

	// Usage accumulates per approval up to the allowance
	approval := env.approval(t, user, childA, now+60)
	require.NoError(t, env.swapIn(user, childA, 60, approval))
	require.ErrorIs(t, env.swapIn(user, childA, 50, approval), clearinghouse.ErrUserAmountExceeded)
	used, err := env.ch.KycUsage(kycID, cause.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), used.Uint64())
	require.NoError(t, env.swapIn(user, childA, 40, approval))

	// An approval that expires while held stops working
	fresh := clearinghouse.KycApproval{
		KycID:     types.Blake2b256([]byte("kyc-2")),
		Expiry:    now + 60,
		Signature: clearinghouse.SignKyc(env.signer, types.Blake2b256([]byte("kyc-2")), user, cause.ID, now+60),
	}
	env.clock.Advance(2 * time.Minute)
	require.ErrorIs(t, env.swapIn(user, childA, 1, fresh), clearinghouse.ErrApprovalExpired)

	// A zero expiry never expires
	strangerKyc := types.Blake2b256([]byte("kyc-3"))
	require.NoError(t, env.swapIn(stranger, childA, 5, clearinghouse.KycApproval{
		KycID:     strangerKyc,
		Signature: clearinghouse.SignKyc(env.signer, strangerKyc, stranger, cause.ID, 0),
	}))
}

func TestSwapAutoStake(t *testing.T) {
	env := newTestEnv(t, governor)
	p := policy(100, 50)
	p.AutoStaking = true
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, p, nil))
	env.fund(t, user, 10)
	_, evtCh := env.eventBus.Subscribe(clearinghouse.SwappedEventType)

	require.NoError(t, env.swapIn(user, childA, 10, clearinghouse.KycApproval{}))
	evt := testutil.RequireEvent[clearinghouse.SwappedEvent](t, evtCh, time.Second)
	assert.True(t, evt.Staked)
	assert.Equal(t, uint64(0), env.balance(t, childA, user))
	assert.Equal(t, uint64(10), env.balance(t, childA, env.staking.Account()))
	us, err := env.staking.UserStake(childA, user, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), us.StakedAmount.Uint64())

	// The stake belongs to the user
	require.NoError(t, env.staking.Unstake(user, childA, uint256.NewInt(10), user, nil))
	assert.Equal(t, uint64(10), env.balance(t, childA, user))
}

func TestSwapChildDaoForChildDao(t *testing.T) {
	env := newTestEnv(t, governor)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, policy(100, 50), nil))
	require.NoError(t, env.ch.RegisterChildDao(governor, childB, policy(8, 6), nil))
	env.fund(t, user, 20)
	require.NoError(t, env.swapIn(user, childA, 20, clearinghouse.KycApproval{}))

	err := env.ch.SwapChildDaoForChildDao(user, childA, childA, uint256.NewInt(1), nil)
	require.ErrorIs(t, err, clearinghouse.ErrSameToken)
	unregistered := types.DeriveAddress("test", []byte("unregistered"))
	err = env.ch.SwapChildDaoForChildDao(user, childA, unregistered, uint256.NewInt(1), nil)
	require.ErrorIs(t, err, clearinghouse.ErrNotRegistered)
	err = env.ch.SwapChildDaoForChildDao(user, childA, childB, uint256.NewInt(7), nil)
	require.ErrorIs(t, err, clearinghouse.ErrExceedsMaxSwap)

	require.NoError(t, env.ch.SwapChildDaoForChildDao(user, childA, childB, uint256.NewInt(5), nil))
	assert.Equal(t, uint64(15), env.balance(t, childA, user))
	assert.Equal(t, uint64(5), env.balance(t, childB, user))
	// No base token leg
	assert.Equal(t, uint64(20), env.balance(t, baseToken, env.ch.Account()))

	err = env.ch.SwapChildDaoForChildDao(user, childA, childB, uint256.NewInt(4), nil)
	require.ErrorIs(t, err, clearinghouse.ErrExceedsMaxSupply)
	err = env.ch.SwapChildDaoForChildDao(user, childB, childA, uint256.NewInt(6), nil)
	require.ErrorIs(t, err, clearinghouse.ErrNotEnoughChildDao)
}

func TestPolicySetters(t *testing.T) {
	env := newTestEnv(t, governor)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, policy(100, 10), nil))
	_, evtCh := env.eventBus.Subscribe(clearinghouse.PolicyUpdatedEventType)

	err := env.ch.SetMaxSwap(stranger, childA, uint256.NewInt(20), nil)
	require.ErrorIs(t, err, clearinghouse.ErrNotOwner)
	require.ErrorIs(t, err, types.ErrUnauthorized)
	err = env.ch.SetMaxSwap(causeOwner, childB, uint256.NewInt(20), nil)
	require.ErrorIs(t, err, clearinghouse.ErrNotRegistered)
	err = env.ch.SetMaxSwap(causeOwner, childA, uint256.NewInt(0), nil)
	require.ErrorIs(t, err, clearinghouse.ErrInvalidMaxSwap)
	err = env.ch.SetMaxSupply(causeOwner, childA, nil, nil)
	require.ErrorIs(t, err, clearinghouse.ErrInvalidMaxSupply)

	require.NoError(t, env.ch.SetMaxSwap(causeOwner, childA, uint256.NewInt(20), nil))
	evt := testutil.RequireEvent[clearinghouse.PolicyUpdatedEvent](t, evtCh, time.Second)
	assert.Equal(t, "max_swap", evt.Field)
	require.NoError(t, env.ch.SetMaxSupply(causeOwner, childA, uint256.NewInt(200), nil))
	require.NoError(t, env.ch.SetAutoStake(causeOwner, childA, true, nil))
	require.NoError(t, env.ch.SetKYCEnabled(causeOwner, childA, true, nil))

	info, err := env.ch.CauseInformation(childA, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), info.MaxSwap.Uint64())
	assert.Equal(t, uint64(200), info.MaxSupply.Uint64())
	assert.True(t, info.AutoStaking)
	assert.True(t, info.KycRequired)

	// Ownership follows the cause record
	cause, err := env.registry.CauseByTenantToken(childA, nil)
	require.NoError(t, err)
	require.NoError(t, env.registry.UpdateCause(causeOwner, cause.ID, stranger, nil, nil))
	require.ErrorIs(t, env.ch.SetAutoStake(causeOwner, childA, false, nil), clearinghouse.ErrNotOwner)
	require.NoError(t, env.ch.SetAutoStake(stranger, childA, false, nil))
}

func TestPause(t *testing.T) {
	env := newTestEnv(t, governor)
	require.NoError(t, env.ch.RegisterChildDao(governor, childA, policy(100, 10), nil))
	env.fund(t, user, 10)

	require.ErrorIs(t, env.ch.Pause(stranger, nil), clearinghouse.ErrNotGovernorOrAdmin)
	require.ErrorIs(t, env.ch.Unpause(governor, nil), clearinghouse.ErrNotPaused)
	require.NoError(t, env.ch.Pause(governor, nil))
	require.ErrorIs(t, env.ch.Pause(admin, nil), clearinghouse.ErrPaused)
	paused, err := env.ch.Paused(nil)
	require.NoError(t, err)
	assert.True(t, paused)

	require.ErrorIs(t, env.swapIn(user, childA, 1, clearinghouse.KycApproval{}), clearinghouse.ErrPaused)
	require.ErrorIs(t, env.ch.SwapChildDaoForEarth(user, childA, uint256.NewInt(1), nil), clearinghouse.ErrPaused)
	require.ErrorIs(t, env.ch.SetMaxSwap(causeOwner, childA, uint256.NewInt(5), nil), clearinghouse.ErrPaused)
	require.ErrorIs(t, env.ch.RegisterChildDao(governor, childB, policy(100, 10), nil), clearinghouse.ErrPaused)
	expected := `
# HELP causeway_clearinghouse_paused whether conversions are paused
# TYPE causeway_clearinghouse_paused gauge
causeway_clearinghouse_paused 1
`
	require.NoError(t, promtestutil.GatherAndCompare(
		env.promReg,
		strings.NewReader(expected),
		"causeway_clearinghouse_paused",
	))

	require.NoError(t, env.ch.Unpause(admin, nil))
	require.NoError(t, env.swapIn(user, childA, 1, clearinghouse.KycApproval{}))
	require.NoError(t, env.ch.RegisterChildDao(governor, childB, policy(100, 10), nil))
}
