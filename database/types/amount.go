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

package types

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrDivideByZero       = errors.New("division by zero")
)

// Scale returns the 1e18 fixed-point unit, where 1e18 represents 100%
func Scale() *uint256.Int {
	return uint256.NewInt(1_000_000_000_000_000_000)
}

// RewardScale returns the 1e36 reward-per-share accumulator unit
func RewardScale() *uint256.Int {
	return new(uint256.Int).Mul(Scale(), Scale())
}

// MaxUint256 returns 2^256-1
func MaxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// MulDiv returns x*y/d using a 512-bit intermediate product
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivideByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// CheckedAdd returns x+y or an error on overflow
func CheckedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// CheckedSub returns x-y or an error when y > x
func CheckedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}
