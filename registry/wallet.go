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

package registry

import (
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/models"
	"github.com/blinklabs-io/causeway/database/types"
)

// WalletDomain seeds custodial wallet address derivation
const WalletDomain = "causeway/wallet"

// WalletID names a custodial wallet. The zero tag is the cause's default
// wallet
type WalletID struct {
	Tag     types.Hash
	CauseID uint64
}

// CustodialWallet is a deployed custodial wallet
type CustodialWallet struct {
	Owners  []types.Address
	Tag     types.Hash
	Address types.Address
	CauseID uint64
}

func walletFromModel(m *models.CustodialWallet) *CustodialWallet {
	ret := &CustodialWallet{
		CauseID: m.CauseID,
		Tag:     m.Tag,
		Address: m.Address,
	}
	for _, owner := range m.Owners {
		ret.Owners = append(ret.Owners, owner.Owner)
	}
	return ret
}

// CalculateCustodialAccount returns the address of the custodial wallet for
// a cause and tag. The cause does not need to exist and the wallet does not
// need to be deployed
func CalculateCustodialAccount(causeID uint64, tag types.Hash) types.Address {
	return types.DeriveAddress(
		WalletDomain,
		types.Uint64ToBytes(causeID),
		tag[:],
	)
}

func (r *Registry) CalculateCustodialAccount(causeID uint64, tag types.Hash) types.Address {
	return CalculateCustodialAccount(causeID, tag)
}

// CustodialWallet returns the deployed wallet for a cause and tag, or nil
// if it has not been deployed yet
func (r *Registry) CustodialWallet(
	causeID uint64,
	tag types.Hash,
	txn *database.Txn,
) (*CustodialWallet, error) {
	var ret *CustodialWallet
	err := r.db.View(txn, func(txn *database.Txn) error {
		tmp, err := r.db.Metadata().GetCustodialWallet(causeID, tag, txn.Metadata())
		if err != nil {
			return err
		}
		if tmp != nil {
			ret = walletFromModel(tmp)
		}
		return nil
	})
	return ret, err
}

func (r *Registry) CustodialWallets(
	causeID uint64,
	txn *database.Txn,
) ([]*CustodialWallet, error) {
	var ret []*CustodialWallet
	err := r.db.View(txn, func(txn *database.Txn) error {
		tmp, err := r.db.Metadata().GetCustodialWallets(causeID, txn.Metadata())
		if err != nil {
			return err
		}
		for i := range tmp {
			ret = append(ret, walletFromModel(&tmp[i]))
		}
		return nil
	})
	return ret, err
}

// RegisterCustodialAccount deploys the wallet for a cause and tag ahead of
// its first withdrawal
func (r *Registry) RegisterCustodialAccount(
	caller types.Address,
	causeID uint64,
	tag types.Hash,
	owners []types.Address,
	txn *database.Txn,
) (types.Address, error) {
	if len(owners) == 0 {
		return types.Address{}, ErrNoOwners
	}
	for _, owner := range owners {
		if owner.IsZero() {
			return types.Address{}, ErrInvalidOwner
		}
	}
	err := r.db.Update(txn, func(txn *database.Txn) error {
		if _, err := r.authorize(caller, causeID, txn); err != nil {
			return err
		}
		deployed, err := r.deploy(causeID, tag, owners, txn)
		if err != nil {
			return err
		}
		if !deployed {
			return ErrAlreadyDeployed
		}
		return nil
	})
	if err != nil {
		return types.Address{}, err
	}
	return CalculateCustodialAccount(causeID, tag), nil
}

// deploy materializes a wallet unless it already exists. It reports whether
// a deployment happened
func (r *Registry) deploy(
	causeID uint64,
	tag types.Hash,
	owners []types.Address,
	txn *database.Txn,
) (bool, error) {
	existing, err := r.db.Metadata().GetCustodialWallet(causeID, tag, txn.Metadata())
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	addr := CalculateCustodialAccount(causeID, tag)
	tmpWallet := &models.CustodialWallet{
		CauseID: causeID,
		Tag:     tag,
		Address: addr,
	}
	for _, owner := range owners {
		tmpWallet.Owners = append(
			tmpWallet.Owners,
			models.CustodialWalletOwner{Owner: owner},
		)
	}
	if err := r.db.Metadata().SetCustodialWallet(tmpWallet, txn.Metadata()); err != nil {
		return false, err
	}
	r.logger.Debug(
		"deployed custodial wallet",
		"component", "registry",
		"cause", causeID,
		"tag", tag.String(),
		"address", addr.String(),
	)
	if r.metrics != nil {
		txn.OnCommit(r.metrics.deployments.Inc)
	}
	r.committed(txn, "deploy_wallet", WalletDeployedEventType, WalletDeployedEvent{
		CauseID: causeID,
		Tag:     tag,
		Address: addr,
		Owners:  append([]types.Address(nil), owners...),
	})
	return true, nil
}
