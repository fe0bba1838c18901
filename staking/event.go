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
	"github.com/blinklabs-io/causeway/event"
	"github.com/holiman/uint256"
)

const (
	StakedEventType             event.EventType = "staking.staked"
	UnstakedEventType           event.EventType = "staking.unstaked"
	RewardsDistributedEventType event.EventType = "staking.rewards_distributed"
	RewardsClaimedEventType     event.EventType = "staking.rewards_claimed"
	EjectedEventType            event.EventType = "staking.ejected"
)

type StakedEvent struct {
	Amount      *uint256.Int
	Token       types.Address
	Payer       types.Address
	Beneficiary types.Address
}

type UnstakedEvent struct {
	Amount      *uint256.Int
	Token       types.Address
	Account     types.Address
	Destination types.Address
}

// RewardsDistributedEvent reports a distribution. Unallocated is set when no
// tokens were staked and the amount was held for the next staker
type RewardsDistributedEvent struct {
	Amount      *uint256.Int
	Token       types.Address
	From        types.Address
	Unallocated bool
}

type RewardsClaimedEvent struct {
	Amount      *uint256.Int
	Token       types.Address
	Account     types.Address
	Destination types.Address
}

type EjectedEvent struct {
	Amount      *uint256.Int
	Forfeited   *uint256.Int
	Token       types.Address
	Account     types.Address
	Destination types.Address
}
