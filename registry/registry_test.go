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

package registry_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/blinklabs-io/causeway/internal/test/testutil"
	"github.com/blinklabs-io/causeway/registry"
	"github.com/blinklabs-io/causeway/staking"
	"github.com/blinklabs-io/causeway/token"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseToken     = types.DeriveAddress("test", []byte("earth"))
	tenantToken   = types.DeriveAddress("test", []byte("tenant"))
	otherToken    = types.DeriveAddress("test", []byte("other"))
	minter        = types.DeriveAddress("test", []byte("minter"))
	admin         = types.DeriveAddress("test", []byte("admin"))
	platformOwner = types.DeriveAddress("test", []byte("platform"))
	causeOwner    = types.DeriveAddress("test", []byte("cause-owner"))
	stranger      = types.DeriveAddress("test", []byte("stranger"))
	recipient     = types.DeriveAddress("test", []byte("recipient"))
	staker        = types.DeriveAddress("test", []byte("staker"))
)

// percent returns n% on the 1e18 scale
func percent(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(10_000_000_000_000_000))
}

func proposal(n byte) types.Hash {
	return types.Blake2b256([]byte("proposal"), []byte{n})
}

type testEnv struct {
	db       *database.Database
	tokens   *token.Ledger
	staking  *staking.Staking
	registry *registry.Registry
	eventBus *event.EventBus
}

func newTestEnv(t *testing.T, platformFee *uint256.Int) *testEnv {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	env := &testEnv{
		db:       db,
		tokens:   token.New(db, nil),
		eventBus: event.NewEventBus(nil, nil),
	}
	t.Cleanup(env.eventBus.Stop)
	resolver := auth.Static{auth.PlatformAdmin(): admin}
	env.staking, err = staking.NewStaking(staking.StakingConfig{
		DB:          db,
		Tokens:      env.tokens,
		EventBus:    env.eventBus,
		RewardToken: baseToken,
		Resolver:    resolver,
	})
	require.NoError(t, err)
	env.registry, err = registry.NewRegistry(registry.RegistryConfig{
		DB:            db,
		Tokens:        env.tokens,
		Staking:       env.staking,
		EventBus:      env.eventBus,
		PromRegistry:  prometheus.NewRegistry(),
		Resolver:      resolver,
		BaseToken:     baseToken,
		PlatformOwner: platformOwner,
		PlatformFee:   platformFee,
	})
	require.NoError(t, err)
	for _, tok := range []types.Address{baseToken, tenantToken, otherToken} {
		require.NoError(t, env.tokens.CreateToken(tok, minter, nil))
	}
	return env
}

func (e *testEnv) mint(t *testing.T, tok, to types.Address, amount uint64) {
	t.Helper()
	require.NoError(t, e.tokens.Mint(minter, tok, to, uint256.NewInt(amount), nil))
}

func (e *testEnv) balance(t *testing.T, tok, account types.Address) uint64 {
	t.Helper()
	ret, err := e.tokens.BalanceOf(tok, account, nil)
	require.NoError(t, err)
	return ret.Uint64()
}

func (e *testEnv) registerCause(t *testing.T, share *uint256.Int) uint64 {
	t.Helper()
	causeID, err := e.registry.RegisterCause(causeOwner, tenantToken, share, nil)
	require.NoError(t, err)
	return causeID
}

func TestRegisterCause(t *testing.T) {
	env := newTestEnv(t, nil)
	_, evtCh := env.eventBus.Subscribe(registry.CauseRegisteredEventType)
	causeID := env.registerCause(t, percent(1))
	assert.Equal(t, uint64(1), causeID)

	evt := testutil.RequireEvent[registry.CauseRegisteredEvent](t, evtCh, time.Second)
	assert.Equal(t, causeID, evt.CauseID)
	assert.Equal(t, registry.CalculateCustodialAccount(causeID, types.Hash{}), evt.DefaultWallet)

	cause, err := env.registry.Cause(causeID, nil)
	require.NoError(t, err)
	assert.Equal(t, causeOwner, cause.Owner)
	assert.Equal(t, tenantToken, cause.TenantToken)
	assert.True(t, cause.RewardShare.Eq(percent(1)))

	wallet, err := env.registry.CustodialWallet(causeID, types.Hash{}, nil)
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.Equal(t, cause.DefaultWallet, wallet.Address)
	assert.Equal(t, []types.Address{causeOwner}, wallet.Owners)

	// The same pair can never be registered twice
	_, err = env.registry.RegisterCause(causeOwner, tenantToken, nil, nil)
	require.ErrorIs(t, err, registry.ErrCauseExists)
	id, err := env.registry.CauseID(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	// Another owner may use the same token
	causeID, err = env.registry.RegisterCause(stranger, tenantToken, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), causeID)
	causes, err := env.registry.Causes(nil)
	require.NoError(t, err)
	assert.Len(t, causes, 2)

	byToken, err := env.registry.CauseByTenantToken(tenantToken, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), byToken.ID)
}

func TestRegisterCauseValidation(t *testing.T) {
	env := newTestEnv(t, percent(3))
	_, err := env.registry.RegisterCause(types.Address{}, tenantToken, nil, nil)
	require.ErrorIs(t, err, registry.ErrInvalidOwner)
	_, err = env.registry.RegisterCause(causeOwner, types.Address{}, nil, nil)
	require.ErrorIs(t, err, registry.ErrInvalidToken)
	_, err = env.registry.RegisterCause(causeOwner, tenantToken, percent(101), nil)
	require.ErrorIs(t, err, registry.ErrInvalidRewardShare)
	_, err = env.registry.RegisterCause(causeOwner, tenantToken, percent(98), nil)
	require.ErrorIs(t, err, registry.ErrShareExceedsScale)
	require.ErrorIs(t, err, types.ErrValidation)
	_, err = env.registry.CauseByTenantToken(tenantToken, nil)
	require.ErrorIs(t, err, registry.ErrInvalidCause)
}

func TestUpdateCause(t *testing.T) {
	env := newTestEnv(t, nil)
	causeID := env.registerCause(t, percent(1))
	before, err := env.registry.Cause(causeID, nil)
	require.NoError(t, err)

	err = env.registry.UpdateCause(stranger, causeID, stranger, nil, nil)
	require.ErrorIs(t, err, registry.ErrNotOwner)
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.ErrorIs(t, env.registry.UpdateCause(causeOwner, 0, stranger, nil, nil), registry.ErrInvalidCause)
	require.ErrorIs(t, env.registry.UpdateCause(causeOwner, 99, stranger, nil, nil), registry.ErrInvalidCause)
	require.ErrorIs(
		t,
		env.registry.UpdateCause(causeOwner, causeID, types.Address{}, nil, nil),
		registry.ErrInvalidOwner,
	)

	require.NoError(t, env.registry.UpdateCause(causeOwner, causeID, stranger, percent(5), nil))
	after, err := env.registry.Cause(causeID, nil)
	require.NoError(t, err)
	assert.Equal(t, stranger, after.Owner)
	assert.True(t, after.RewardShare.Eq(percent(5)))
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.TenantToken, after.TenantToken)
	assert.Equal(t, before.DefaultWallet, after.DefaultWallet)

	// The previous owner lost control
	_, err = env.registry.AddToQueue(causeOwner, causeID, proposal(1), nil)
	require.ErrorIs(t, err, registry.ErrNotOwner)
	addr, ok, err := env.registry.ResolveRole(auth.CauseOwner(causeID), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, stranger, addr)
	_, ok, err = env.registry.ResolveRole(auth.CauseOwner(42), nil)
	require.NoError(t, err)
	assert.False(t, ok)
	addr, ok, err = env.registry.ResolveRole(auth.PlatformAdmin(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, admin, addr)
}

func TestCustodialAccounts(t *testing.T) {
	env := newTestEnv(t, nil)
	tag := types.Blake2b256([]byte("grants"))

	// Computable before the cause exists
	precomputed := registry.CalculateCustodialAccount(1, tag)
	assert.NotEqual(t, precomputed, registry.CalculateCustodialAccount(1, types.Hash{}))
	assert.NotEqual(t, precomputed, registry.CalculateCustodialAccount(2, tag))

	causeID := env.registerCause(t, nil)
	_, evtCh := env.eventBus.Subscribe(registry.WalletDeployedEventType)

	_, err := env.registry.RegisterCustodialAccount(stranger, causeID, tag, []types.Address{stranger}, nil)
	require.ErrorIs(t, err, registry.ErrNotOwner)
	_, err = env.registry.RegisterCustodialAccount(causeOwner, 7, tag, []types.Address{causeOwner}, nil)
	require.ErrorIs(t, err, registry.ErrInvalidCause)
	_, err = env.registry.RegisterCustodialAccount(causeOwner, causeID, tag, nil, nil)
	require.ErrorIs(t, err, registry.ErrNoOwners)

	wallet, err := env.registry.CustodialWallet(causeID, tag, nil)
	require.NoError(t, err)
	assert.Nil(t, wallet)

	owners := []types.Address{causeOwner, stranger}
	addr, err := env.registry.RegisterCustodialAccount(causeOwner, causeID, tag, owners, nil)
	require.NoError(t, err)
	assert.Equal(t, precomputed, addr)
	evt := testutil.RequireEvent[registry.WalletDeployedEvent](t, evtCh, time.Second)
	assert.Equal(t, precomputed, evt.Address)

	wallet, err = env.registry.CustodialWallet(causeID, tag, nil)
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.Equal(t, owners, wallet.Owners)

	_, err = env.registry.RegisterCustodialAccount(causeOwner, causeID, tag, owners, nil)
	require.ErrorIs(t, err, registry.ErrAlreadyDeployed)
	_, err = env.registry.RegisterCustodialAccount(causeOwner, causeID, types.Hash{}, owners, nil)
	require.ErrorIs(t, err, registry.ErrAlreadyDeployed)
	testutil.RequireNoReceive(t, evtCh, 50*time.Millisecond, "redeploy event")

	wallets, err := env.registry.CustodialWallets(causeID, nil)
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
	assert.Equal(t, precomputed, registry.CalculateCustodialAccount(causeID, tag))
}

func TestQueue(t *testing.T) {
	env := newTestEnv(t, nil)
	causeID := env.registerCause(t, nil)

	_, err := env.registry.AddToQueue(causeOwner, causeID, types.Hash{}, nil)
	require.ErrorIs(t, err, registry.ErrInvalidProposalID)
	_, err = env.registry.AddToQueue(stranger, causeID, proposal(1), nil)
	require.ErrorIs(t, err, registry.ErrNotOwner)

	hdr, err := env.registry.QueueHeader(causeID, nil)
	require.NoError(t, err)
	assert.True(t, hdr.Empty())

	for i := byte(1); i <= 3; i++ {
		slot, err := env.registry.AddToQueue(causeOwner, causeID, proposal(i), nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), slot)
	}
	hdr, err = env.registry.QueueHeader(causeID, nil)
	require.NoError(t, err)
	assert.Equal(t, registry.QueueHeader{Head: 1, Tail: 3, NextSlot: 3, Length: 3}, hdr)

	// Removal checks the proposal against the slot
	err = env.registry.RemoveFromQueue(causeOwner, causeID, proposal(1), 2, nil)
	require.ErrorIs(t, err, registry.ErrIDMismatch)
	err = env.registry.RemoveFromQueue(causeOwner, causeID, proposal(2), 9, nil)
	require.ErrorIs(t, err, registry.ErrIDMismatch)

	require.NoError(t, env.registry.RemoveFromQueue(causeOwner, causeID, proposal(2), 2, nil))
	item, err := env.registry.QueueItem(causeID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, registry.QueueItem{}, item)
	first, err := env.registry.QueueItem(causeID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), first.Next)
	last, err := env.registry.QueueItem(causeID, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last.Previous)
	assert.Equal(t, registry.QueueItemID(causeID, proposal(3)), last.ID)
	assert.True(t, last.IsUnclaimed)

	require.NoError(t, env.registry.RemoveFromQueue(causeOwner, causeID, proposal(1), 1, nil))
	slot, err := env.registry.AddToQueue(causeOwner, causeID, proposal(4), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), slot)

	entries, err := env.registry.QueueItems(causeID, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].Slot)
	assert.Equal(t, uint64(4), entries[1].Slot)

	// Draining the queue returns it to empty, and it stays usable
	require.NoError(t, env.registry.RemoveFromQueue(causeOwner, causeID, proposal(3), 3, nil))
	require.NoError(t, env.registry.RemoveFromQueue(causeOwner, causeID, proposal(4), 4, nil))
	hdr, err = env.registry.QueueHeader(causeID, nil)
	require.NoError(t, err)
	assert.True(t, hdr.Empty())
	assert.Equal(t, uint64(0), hdr.Tail)
	assert.Equal(t, uint64(4), hdr.NextSlot)
	slot, err = env.registry.AddToQueue(causeOwner, causeID, proposal(5), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), slot)
	hdr, err = env.registry.QueueHeader(causeID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), hdr.Head)
	assert.Equal(t, uint64(5), hdr.Tail)
}

func TestWithdrawSplitsBaseToken(t *testing.T) {
	env := newTestEnv(t, percent(3))
	causeID := env.registerCause(t, percent(1))
	wallet := registry.CalculateCustodialAccount(causeID, types.Hash{})

	env.mint(t, tenantToken, staker, 10)
	require.NoError(t, env.tokens.Approve(staker, tenantToken, env.staking.Account(), uint256.NewInt(10), nil))
	require.NoError(t, env.staking.Stake(staker, tenantToken, uint256.NewInt(10), nil))

	env.mint(t, baseToken, wallet, 100)
	_, err := env.registry.AddToQueue(causeOwner, causeID, proposal(1), nil)
	require.NoError(t, err)
	_, evtCh := env.eventBus.Subscribe(registry.WithdrawnEventType)

	require.NoError(t, env.registry.WithdrawFromThinWallet(
		causeOwner,
		registry.WalletID{CauseID: causeID},
		registry.WithdrawRequest{Token: baseToken, Recipient: recipient, Amount: uint256.NewInt(100)},
		proposal(1),
		nil,
	))
	assert.Equal(t, uint64(96), env.balance(t, baseToken, recipient))
	assert.Equal(t, uint64(3), env.balance(t, baseToken, platformOwner))
	assert.Equal(t, uint64(1), env.balance(t, baseToken, env.staking.Account()))
	assert.Equal(t, uint64(0), env.balance(t, baseToken, wallet))
	pending, err := env.staking.PendingRewards(tenantToken, staker, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pending.Uint64())

	evt := testutil.RequireEvent[registry.WithdrawnEvent](t, evtCh, time.Second)
	assert.Equal(t, uint64(3), evt.Fee.Uint64())
	assert.Equal(t, uint64(1), evt.Reward.Uint64())
	assert.Equal(t, uint64(1), evt.Slot)

	hdr, err := env.registry.QueueHeader(causeID, nil)
	require.NoError(t, err)
	assert.True(t, hdr.Empty())
}

func TestWithdrawOtherTokenPaysInFull(t *testing.T) {
	env := newTestEnv(t, percent(3))
	causeID := env.registerCause(t, percent(1))
	wallet := registry.CalculateCustodialAccount(causeID, types.Hash{})
	env.mint(t, otherToken, wallet, 100)
	_, err := env.registry.AddToQueue(causeOwner, causeID, proposal(1), nil)
	require.NoError(t, err)
	require.NoError(t, env.registry.WithdrawFromThinWallet(
		causeOwner,
		registry.WalletID{CauseID: causeID},
		registry.WithdrawRequest{Token: otherToken, Recipient: recipient, Amount: uint256.NewInt(100)},
		proposal(1),
		nil,
	))
	assert.Equal(t, uint64(100), env.balance(t, otherToken, recipient))
	assert.Equal(t, uint64(0), env.balance(t, otherToken, platformOwner))
}

func TestWithdrawRequiresHeadOfQueue(t *testing.T) {
	env := newTestEnv(t, nil)
	causeID := env.registerCause(t, nil)
	wallet := registry.WalletID{CauseID: causeID}
	env.mint(t, baseToken, registry.CalculateCustodialAccount(causeID, types.Hash{}), 50)
	req := registry.WithdrawRequest{Token: baseToken, Recipient: recipient, Amount: uint256.NewInt(10)}

	// Empty queue
	err := env.registry.WithdrawFromThinWallet(causeOwner, wallet, req, proposal(1), nil)
	require.ErrorIs(t, err, registry.ErrNotHeadOfQueue)
	require.ErrorIs(t, err, types.ErrPrecondition)

	for i := byte(1); i <= 2; i++ {
		_, err := env.registry.AddToQueue(causeOwner, causeID, proposal(i), nil)
		require.NoError(t, err)
	}
	testDefs := []struct {
		name     string
		proposal types.Hash
	}{
		{"queued but not head", proposal(2)},
		{"never queued", proposal(9)},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := env.registry.WithdrawFromThinWallet(causeOwner, wallet, req, testDef.proposal, nil)
			require.ErrorIs(t, err, registry.ErrNotHeadOfQueue)
		})
	}
	err = env.registry.WithdrawFromThinWallet(stranger, wallet, req, proposal(1), nil)
	require.ErrorIs(t, err, registry.ErrNotOwner)
	assert.Equal(t, uint64(0), env.balance(t, baseToken, recipient))

	require.NoError(t, env.registry.WithdrawFromThinWallet(causeOwner, wallet, req, proposal(1), nil))
	require.NoError(t, env.registry.WithdrawFromThinWallet(causeOwner, wallet, req, proposal(2), nil))
	assert.Equal(t, uint64(20), env.balance(t, baseToken, recipient))
}

func TestWithdrawDeploysWalletOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	causeID := env.registerCause(t, nil)
	tag := types.Blake2b256([]byte("events"))
	addr := registry.CalculateCustodialAccount(causeID, tag)
	env.mint(t, otherToken, addr, 10)
	_, evtCh := env.eventBus.Subscribe(registry.WalletDeployedEventType)

	walletID := registry.WalletID{CauseID: causeID, Tag: tag}
	req := registry.WithdrawRequest{Token: otherToken, Recipient: recipient, Amount: uint256.NewInt(5)}
	for i := byte(1); i <= 2; i++ {
		_, err := env.registry.AddToQueue(causeOwner, causeID, proposal(i), nil)
		require.NoError(t, err)
	}
	require.NoError(t, env.registry.WithdrawFromThinWallet(causeOwner, walletID, req, proposal(1), nil))
	evt := testutil.RequireEvent[registry.WalletDeployedEvent](t, evtCh, time.Second)
	assert.Equal(t, addr, evt.Address)
	assert.Equal(t, []types.Address{causeOwner}, evt.Owners)

	require.NoError(t, env.registry.WithdrawFromThinWallet(causeOwner, walletID, req, proposal(2), nil))
	testutil.RequireNoReceive(t, evtCh, 50*time.Millisecond, "second deploy event")
	assert.Equal(t, uint64(10), env.balance(t, otherToken, recipient))
}

func TestFailedWithdrawRollsBack(t *testing.T) {
	env := newTestEnv(t, percent(3))
	causeID := env.registerCause(t, percent(1))
	tag := types.Blake2b256([]byte("empty"))
	_, err := env.registry.AddToQueue(causeOwner, causeID, proposal(1), nil)
	require.NoError(t, err)
	_, evtCh := env.eventBus.Subscribe(registry.WalletDeployedEventType)

	err = env.registry.WithdrawFromThinWallet(
		causeOwner,
		registry.WalletID{CauseID: causeID, Tag: tag},
		registry.WithdrawRequest{Token: baseToken, Recipient: recipient, Amount: uint256.NewInt(100)},
		proposal(1),
		nil,
	)
	require.ErrorIs(t, err, registry.ErrFeeTransfer)
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	require.ErrorIs(t, err, types.ErrDownstream)

	// The head was not consumed and the wallet was not deployed
	hdr, err := env.registry.QueueHeader(causeID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), hdr.Head)
	wallet, err := env.registry.CustodialWallet(causeID, tag, nil)
	require.NoError(t, err)
	assert.Nil(t, wallet)
	testutil.RequireNoReceive(t, evtCh, 50*time.Millisecond, "deploy event from failed withdraw")
}

func TestSetPlatformFee(t *testing.T) {
	env := newTestEnv(t, nil)
	env.registerCause(t, percent(10))

	require.ErrorIs(t, env.registry.SetPlatformFee(stranger, percent(1), nil), registry.ErrNotAdmin)
	require.ErrorIs(t, env.registry.SetPlatformFee(admin, percent(101), nil), registry.ErrInvalidPlatformFee)
	require.ErrorIs(t, env.registry.SetPlatformFee(admin, percent(91), nil), registry.ErrShareExceedsScale)

	require.NoError(t, env.registry.SetPlatformFee(admin, percent(90), nil))
	fee, err := env.registry.PlatformFee(nil)
	require.NoError(t, err)
	assert.True(t, fee.Eq(percent(90)))
}
