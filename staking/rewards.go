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

package staking

import (
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/holiman/uint256"
)

// settle moves the accrual since the account's last entry into its pending
// rewards and brings the entry up to date. Every change to a staked amount
// must be preceded by a settle
func settle(us *UserStake, rs *RewardState) error {
	if !us.StakedAmount.IsZero() && rs.RewardPerShare.Gt(&us.RewardEntry) {
		delta := new(uint256.Int).Sub(&rs.RewardPerShare, &us.RewardEntry)
		accrued, err := types.MulDiv(&us.StakedAmount, delta, types.RewardScale())
		if err != nil {
			return err
		}
		if err := addTo(&us.PendingRewards, accrued); err != nil {
			return err
		}
	}
	us.RewardEntry.Set(&rs.RewardPerShare)
	return nil
}

// addTo adds y to x in place
func addTo(x *uint256.Int, y *uint256.Int) error {
	sum, err := types.CheckedAdd(x, y)
	if err != nil {
		return err
	}
	x.Set(sum)
	return nil
}
