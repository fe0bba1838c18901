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

package clearinghouse

import (
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/holiman/uint256"
)

const (
	ChildDaoRegisteredEventType event.EventType = "clearinghouse.child_dao_registered"
	PolicyUpdatedEventType      event.EventType = "clearinghouse.policy_updated"
	SwappedEventType            event.EventType = "clearinghouse.swapped"
	PausedEventType             event.EventType = "clearinghouse.paused"
	UnpausedEventType           event.EventType = "clearinghouse.unpaused"
	GovernorUpdatedEventType    event.EventType = "clearinghouse.governor_updated"
)

// SwapKind names the direction of a conversion
type SwapKind string

const (
	SwapKindEarthToChild SwapKind = "earth_to_child"
	SwapKindChildToEarth SwapKind = "child_to_earth"
	SwapKindChildToChild SwapKind = "child_to_child"
)

type ChildDaoRegisteredEvent struct {
	Policy Policy
	Token  types.Address
}

// PolicyUpdatedEvent carries the full policy after a setter ran
type PolicyUpdatedEvent struct {
	Policy Policy
	Field  string
	Token  types.Address
	Caller types.Address
}

type SwappedEvent struct {
	Kind      SwapKind
	Amount    *uint256.Int
	Account   types.Address
	FromToken types.Address
	ToToken   types.Address
	Staked    bool
}

type PauseEvent struct {
	Caller types.Address
}

type GovernorUpdatedEvent struct {
	Previous types.Address
	Governor types.Address
}
