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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/blinklabs-io/causeway"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/internal/config"
	"github.com/spf13/cobra"
)

func openEngine(cmd *cobra.Command) (*causeway.Engine, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	logger := commonRun()
	settings, err := cfg.Parse()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return causeway.New(causeway.NewConfig(
		causeway.WithLogger(logger),
		causeway.WithDatabasePath(cfg.DatabasePath),
		causeway.WithBlobCacheSize(cfg.BadgerCacheSize),
		causeway.WithBaseToken(settings.BaseToken),
		causeway.WithPlatformOwner(settings.PlatformOwner),
		causeway.WithPlatformFee(settings.PlatformFee),
		causeway.WithAdmin(settings.Admin),
		causeway.WithGovernor(settings.Governor),
		causeway.WithTrustedSigner(settings.TrustedSigner),
		causeway.WithKycAllowance(settings.KycAllowance),
		causeway.WithLockupPeriod(settings.LockupPeriod),
	))
}

// engineCommand builds a subcommand that runs fn against an open engine
func engineCommand(
	use, short string,
	args cobra.PositionalArgs,
	fn func(*causeway.Engine, []string, io.Writer) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			return fn(e, args, cmd.OutOrStdout())
		},
	}
}

func causesCommand() *cobra.Command {
	return engineCommand("causes", "List registered causes", cobra.NoArgs, writeCauses)
}

func queueCommand() *cobra.Command {
	return engineCommand("queue <causeId>", "Walk a cause's withdrawal queue", cobra.ExactArgs(1), writeQueue)
}

func childDaosCommand() *cobra.Command {
	return engineCommand("child-daos", "List child DAO conversion policies", cobra.NoArgs, writeChildDaos)
}

func stakeCommand() *cobra.Command {
	return engineCommand(
		"stake <token> <account>",
		"Show an account's stake and pending rewards",
		cobra.ExactArgs(2),
		writeStake,
	)
}

type causeOutput struct {
	ID            uint64 `json:"id"`
	Owner         string `json:"owner"`
	TenantToken   string `json:"tenantToken"`
	DefaultWallet string `json:"defaultWallet"`
	RewardShare   string `json:"rewardShare"`
}

type queueOutput struct {
	CauseID uint64           `json:"causeId"`
	Head    uint64           `json:"head"`
	Tail    uint64           `json:"tail"`
	Length  uint64           `json:"length"`
	Items   []queueItemOutput `json:"items"`
}

type queueItemOutput struct {
	Slot     uint64 `json:"slot"`
	ID       string `json:"id"`
	Previous uint64 `json:"previous"`
	Next     uint64 `json:"next"`
}

type childDaoOutput struct {
	Token       string `json:"token"`
	Release     string `json:"release,omitempty"`
	MaxSupply   string `json:"maxSupply"`
	MaxSwap     string `json:"maxSwap"`
	AutoStaking bool   `json:"autoStaking"`
	KycRequired bool   `json:"kycRequired"`
}

type stakeOutput struct {
	Token          string `json:"token"`
	Account        string `json:"account"`
	Staked         string `json:"staked"`
	PendingRewards string `json:"pendingRewards"`
	TotalStaked    string `json:"totalStaked"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCauses(e *causeway.Engine, _ []string, w io.Writer) error {
	causes, err := e.Registry().Causes(nil)
	if err != nil {
		return err
	}
	ret := make([]causeOutput, 0, len(causes))
	for _, cause := range causes {
		ret = append(ret, causeOutput{
			ID:            cause.ID,
			Owner:         cause.Owner.String(),
			TenantToken:   cause.TenantToken.String(),
			DefaultWallet: cause.DefaultWallet.String(),
			RewardShare:   cause.RewardShare.Dec(),
		})
	}
	return writeJSON(w, ret)
}

func writeQueue(e *causeway.Engine, args []string, w io.Writer) error {
	causeID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid cause id %q: %w", args[0], err)
	}
	hdr, err := e.Registry().QueueHeader(causeID, nil)
	if err != nil {
		return err
	}
	items, err := e.Registry().QueueItems(causeID, nil)
	if err != nil {
		return err
	}
	ret := queueOutput{
		CauseID: causeID,
		Head:    hdr.Head,
		Tail:    hdr.Tail,
		Length:  hdr.Length,
		Items:   make([]queueItemOutput, 0, len(items)),
	}
	for _, item := range items {
		ret.Items = append(ret.Items, queueItemOutput{
			Slot:     item.Slot,
			ID:       item.ID.String(),
			Previous: item.Previous,
			Next:     item.Next,
		})
	}
	return writeJSON(w, ret)
}

func writeChildDaos(e *causeway.Engine, _ []string, w io.Writer) error {
	daos, err := e.ClearingHouse().ChildDaos(nil)
	if err != nil {
		return err
	}
	ret := make([]childDaoOutput, 0, len(daos))
	for _, dao := range daos {
		tmp := childDaoOutput{
			Token:       dao.Token.String(),
			MaxSupply:   dao.MaxSupply.Dec(),
			MaxSwap:     dao.MaxSwap.Dec(),
			AutoStaking: dao.AutoStaking,
			KycRequired: dao.KycRequired,
		}
		if !dao.Release.IsZero() {
			tmp.Release = dao.Release.UTC().Format(time.RFC3339)
		}
		ret = append(ret, tmp)
	}
	return writeJSON(w, ret)
}

func writeStake(e *causeway.Engine, args []string, w io.Writer) error {
	tok, err := types.ParseAddress(args[0])
	if err != nil {
		return err
	}
	account, err := types.ParseAddress(args[1])
	if err != nil {
		return err
	}
	us, err := e.Staking().UserStake(tok, account, nil)
	if err != nil {
		return err
	}
	pending, err := e.Staking().PendingRewards(tok, account, nil)
	if err != nil {
		return err
	}
	total, err := e.Staking().TotalStaked(tok, nil)
	if err != nil {
		return err
	}
	return writeJSON(w, stakeOutput{
		Token:          tok.String(),
		Account:        account.String(),
		Staked:         us.StakedAmount.Dec(),
		PendingRewards: pending.Dec(),
		TotalStaked:    total.Dec(),
	})
}
