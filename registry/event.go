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
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/blinklabs-io/causeway/event"
	"github.com/holiman/uint256"
)

const (
	CauseRegisteredEventType    event.EventType = "registry.cause_registered"
	CauseUpdatedEventType       event.EventType = "registry.cause_updated"
	WalletDeployedEventType     event.EventType = "registry.wallet_deployed"
	QueueItemAddedEventType     event.EventType = "registry.queue_item_added"
	QueueItemRemovedEventType   event.EventType = "registry.queue_item_removed"
	WithdrawnEventType          event.EventType = "registry.withdrawn"
	PlatformFeeUpdatedEventType event.EventType = "registry.platform_fee_updated"
)

type CauseRegisteredEvent struct {
	Owner         types.Address
	TenantToken   types.Address
	DefaultWallet types.Address
	RewardShare   *uint256.Int
	CauseID       uint64
}

type CauseUpdatedEvent struct {
	PreviousOwner types.Address
	Owner         types.Address
	RewardShare   *uint256.Int
	CauseID       uint64
}

type WalletDeployedEvent struct {
	Owners  []types.Address
	Tag     types.Hash
	Address types.Address
	CauseID uint64
}

type QueueItemAddedEvent struct {
	ProposalID types.Hash
	ID         types.Hash
	CauseID    uint64
	Slot       uint64
}

type QueueItemRemovedEvent struct {
	ProposalID types.Hash
	ID         types.Hash
	CauseID    uint64
	Slot       uint64
}

// WithdrawnEvent describes a completed withdrawal. Fee and Reward are zero
// for tokens other than the base token
type WithdrawnEvent struct {
	ProposalID types.Hash
	Tag        types.Hash
	Wallet     types.Address
	Token      types.Address
	Recipient  types.Address
	Amount     *uint256.Int
	Fee        *uint256.Int
	Reward     *uint256.Int
	CauseID    uint64
	Slot       uint64
}

type PlatformFeeUpdatedEvent struct {
	Fee *uint256.Int
}
