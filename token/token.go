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

// Package token is the fungible token balance ledger. Every balance lives in
// the shared database so that transfers commit or roll back together with the
// operation that caused them.
package token

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/holiman/uint256"
)

type tokenInfo struct {
	Minter      types.Address
	TotalSupply uint256.Int
}

type Ledger struct {
	db     *database.Database
	logger *slog.Logger
}

func New(db *database.Database, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ledger{
		db:     db,
		logger: logger,
	}
}

func (l *Ledger) getInfo(tok types.Address, txn *database.Txn) (*tokenInfo, error) {
	var info tokenInfo
	found, err := l.db.GetRecord(types.TokenInfoKey(tok), &info, txn)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, tok)
	}
	return &info, nil
}

// CreateToken registers a token with zero supply. Only the minter may mint
// or burn it
func (l *Ledger) CreateToken(tok, minter types.Address, txn *database.Txn) error {
	if tok.IsZero() || minter.IsZero() {
		return ErrZeroAddress
	}
	return l.db.Update(txn, func(txn *database.Txn) error {
		found, err := l.db.GetRecord(types.TokenInfoKey(tok), &tokenInfo{}, txn)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: %s", ErrTokenExists, tok)
		}
		return l.db.SetRecord(
			types.TokenInfoKey(tok),
			tokenInfo{Minter: minter},
			txn,
		)
	})
}

// Exists reports whether the token has been created
func (l *Ledger) Exists(tok types.Address, txn *database.Txn) (bool, error) {
	return l.db.GetRecord(types.TokenInfoKey(tok), &tokenInfo{}, txn)
}

func (l *Ledger) MinterOf(tok types.Address, txn *database.Txn) (types.Address, error) {
	info, err := l.getInfo(tok, txn)
	if err != nil {
		return types.Address{}, err
	}
	return info.Minter, nil
}

// TransferMinter hands mint and burn rights to a new account
func (l *Ledger) TransferMinter(
	caller, tok, newMinter types.Address,
	txn *database.Txn,
) error {
	if newMinter.IsZero() {
		return ErrZeroAddress
	}
	return l.db.Update(txn, func(txn *database.Txn) error {
		info, err := l.getInfo(tok, txn)
		if err != nil {
			return err
		}
		if info.Minter != caller {
			return ErrNotMinter
		}
		info.Minter = newMinter
		return l.db.SetRecord(types.TokenInfoKey(tok), info, txn)
	})
}

func (l *Ledger) TotalSupply(tok types.Address, txn *database.Txn) (*uint256.Int, error) {
	info, err := l.getInfo(tok, txn)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(&info.TotalSupply), nil
}

func (l *Ledger) BalanceOf(
	tok, account types.Address,
	txn *database.Txn,
) (*uint256.Int, error) {
	var ret uint256.Int
	if _, err := l.db.GetRecord(types.TokenBalanceKey(tok, account), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (l *Ledger) setBalance(
	tok, account types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	key := types.TokenBalanceKey(tok, account)
	if amount.IsZero() {
		return l.db.DeleteRecord(key, txn)
	}
	return l.db.SetRecord(key, amount, txn)
}

func (l *Ledger) Allowance(
	tok, owner, spender types.Address,
	txn *database.Txn,
) (*uint256.Int, error) {
	var ret uint256.Int
	if _, err := l.db.GetRecord(types.TokenAllowanceKey(tok, owner, spender), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// Approve sets the amount spender may pull from caller. The maximum uint256
// value is an unlimited allowance
func (l *Ledger) Approve(
	caller, tok, spender types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if spender.IsZero() {
		return ErrZeroAddress
	}
	return l.db.Update(txn, func(txn *database.Txn) error {
		if _, err := l.getInfo(tok, txn); err != nil {
			return err
		}
		key := types.TokenAllowanceKey(tok, caller, spender)
		if amount.IsZero() {
			return l.db.DeleteRecord(key, txn)
		}
		return l.db.SetRecord(key, amount, txn)
	})
}

// Transfer moves amount of tok from caller to the destination account
func (l *Ledger) Transfer(
	caller, tok, to types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	return l.db.Update(txn, func(txn *database.Txn) error {
		return l.move(tok, caller, to, amount, txn)
	})
}

// TransferFrom moves amount of tok from an owner to the destination account,
// consuming the allowance granted to spender
func (l *Ledger) TransferFrom(
	spender, tok, from, to types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	return l.db.Update(txn, func(txn *database.Txn) error {
		allowance, err := l.Allowance(tok, from, spender, txn)
		if err != nil {
			return err
		}
		if !allowance.Eq(types.MaxUint256()) {
			remaining, err := types.CheckedSub(allowance, amount)
			if err != nil {
				return fmt.Errorf(
					"%w: spender %s has %s, needs %s",
					ErrInsufficientAllowance,
					spender,
					allowance.Dec(),
					amount.Dec(),
				)
			}
			key := types.TokenAllowanceKey(tok, from, spender)
			if remaining.IsZero() {
				err = l.db.DeleteRecord(key, txn)
			} else {
				err = l.db.SetRecord(key, remaining, txn)
			}
			if err != nil {
				return err
			}
		}
		return l.move(tok, from, to, amount, txn)
	})
}

func (l *Ledger) move(
	tok, from, to types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if _, err := l.getInfo(tok, txn); err != nil {
		return err
	}
	if amount.IsZero() || from == to {
		// Nothing moves, but the sender must still cover the amount
		bal, err := l.BalanceOf(tok, from, txn)
		if err != nil {
			return err
		}
		if bal.Lt(amount) {
			return ErrInsufficientBalance
		}
		return nil
	}
	fromBal, err := l.BalanceOf(tok, from, txn)
	if err != nil {
		return err
	}
	newFromBal, err := types.CheckedSub(fromBal, amount)
	if err != nil {
		return fmt.Errorf(
			"%w: %s holds %s, needs %s",
			ErrInsufficientBalance,
			from,
			fromBal.Dec(),
			amount.Dec(),
		)
	}
	toBal, err := l.BalanceOf(tok, to, txn)
	if err != nil {
		return err
	}
	// Cannot overflow while the total supply fits in 256 bits
	newToBal := new(uint256.Int).Add(toBal, amount)
	if err := l.setBalance(tok, from, newFromBal, txn); err != nil {
		return err
	}
	return l.setBalance(tok, to, newToBal, txn)
}

// Mint creates amount of tok for the destination account. Only the minter
// may mint
func (l *Ledger) Mint(
	caller, tok, to types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	return l.db.Update(txn, func(txn *database.Txn) error {
		info, err := l.getInfo(tok, txn)
		if err != nil {
			return err
		}
		if info.Minter != caller {
			return ErrNotMinter
		}
		supply, err := types.CheckedAdd(&info.TotalSupply, amount)
		if err != nil {
			return ErrSupplyOverflow
		}
		info.TotalSupply = *supply
		if err := l.db.SetRecord(types.TokenInfoKey(tok), info, txn); err != nil {
			return err
		}
		bal, err := l.BalanceOf(tok, to, txn)
		if err != nil {
			return err
		}
		if err := l.setBalance(tok, to, new(uint256.Int).Add(bal, amount), txn); err != nil {
			return err
		}
		l.logger.Debug(
			"minted tokens",
			"component", "token",
			"token", tok.String(),
			"to", to.String(),
			"amount", amount.Dec(),
		)
		return nil
	})
}

// Burn destroys amount of tok held by the given account. Only the minter may
// burn
func (l *Ledger) Burn(
	caller, tok, from types.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	return l.db.Update(txn, func(txn *database.Txn) error {
		info, err := l.getInfo(tok, txn)
		if err != nil {
			return err
		}
		if info.Minter != caller {
			return ErrNotMinter
		}
		bal, err := l.BalanceOf(tok, from, txn)
		if err != nil {
			return err
		}
		newBal, err := types.CheckedSub(bal, amount)
		if err != nil {
			return fmt.Errorf(
				"%w: %s holds %s, needs %s",
				ErrInsufficientBalance,
				from,
				bal.Dec(),
				amount.Dec(),
			)
		}
		// Supply always covers every balance
		info.TotalSupply.Sub(&info.TotalSupply, amount)
		if err := l.db.SetRecord(types.TokenInfoKey(tok), info, txn); err != nil {
			return err
		}
		if err := l.setBalance(tok, from, newBal, txn); err != nil {
			return err
		}
		l.logger.Debug(
			"burned tokens",
			"component", "token",
			"token", tok.String(),
			"from", from.String(),
			"amount", amount.Dec(),
		)
		return nil
	})
}
