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
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/blinklabs-io/causeway/clearinghouse"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/keystore"
	"github.com/spf13/cobra"
)

type kycApprovalOutput struct {
	KycID     string `json:"kycId"`
	Account   string `json:"account"`
	CauseID   uint64 `json:"causeId"`
	Expiry    uint64 `json:"expiry"`
	Signature string `json:"signature"`
}

func kycCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kyc",
		Short: "Manage trusted KYC signer keys and approvals",
		// Key handling does not need the engine config
		PersistentPreRun: func(*cobra.Command, []string) {},
	}
	cmd.AddCommand(kycKeygenCommand())
	cmd.AddCommand(kycSignCommand())
	return cmd
}

func kycKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <dir>",
		Short: "Generate a KYC signing key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skeyPath := filepath.Join(args[0], "kyc.skey")
			vkeyPath := filepath.Join(args[0], "kyc.vkey")
			key, err := keystore.GenerateKeyPair(skeyPath, vkeyPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(
				cmd.OutOrStdout(),
				hex.EncodeToString(key.PubKey().SerializeCompressed()),
			)
			return nil
		},
	}
}

func kycSignCommand() *cobra.Command {
	var keyFile string
	var expiry uint64
	cmd := &cobra.Command{
		Use:   "sign <kycId> <account> <causeId>",
		Short: "Sign a KYC approval for an account and cause",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signKycApproval(keyFile, expiry, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "kyc.skey", "signing key file")
	cmd.Flags().Uint64Var(&expiry, "expiry", 0, "unix expiry time in seconds, 0 never expires")
	return cmd
}

func signKycApproval(keyFile string, expiry uint64, args []string, w io.Writer) error {
	kycID, err := types.ParseHash(args[0])
	if err != nil {
		return err
	}
	account, err := types.ParseAddress(args[1])
	if err != nil {
		return err
	}
	causeID, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid cause id %q: %w", args[2], err)
	}
	key, err := keystore.LoadSigningKey(keyFile)
	if err != nil {
		return err
	}
	sig := clearinghouse.SignKyc(key, kycID, account, causeID, expiry)
	return writeJSON(w, kycApprovalOutput{
		KycID:     kycID.String(),
		Account:   account.String(),
		CauseID:   causeID,
		Expiry:    expiry,
		Signature: hex.EncodeToString(sig),
	})
}
