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
)

var (
	ErrInvalidOwner       = types.NewError(types.ErrValidation, "invalid owner")
	ErrInvalidToken       = types.NewError(types.ErrValidation, "invalid token")
	ErrInvalidCause       = types.NewError(types.ErrValidation, "invalid cause")
	ErrCauseExists        = types.NewError(types.ErrValidation, "cause exists")
	ErrInvalidRewardShare = types.NewError(types.ErrValidation, "invalid reward share")
	ErrInvalidPlatformFee = types.NewError(types.ErrValidation, "invalid platform fee")
	ErrShareExceedsScale  = types.NewError(types.ErrValidation, "platform fee and reward share exceed 100%")
	ErrNoOwners           = types.NewError(types.ErrValidation, "owners required")
	ErrInvalidProposalID  = types.NewError(types.ErrValidation, "invalid proposal id")
	ErrInvalidRecipient   = types.NewError(types.ErrValidation, "invalid recipient")
	ErrInvalidAmount      = types.NewError(types.ErrValidation, "invalid amount")
	ErrNotOwner           = types.NewError(types.ErrUnauthorized, "sender not owner")
	ErrNotAdmin           = types.NewError(types.ErrUnauthorized, "caller is not the admin")
	ErrAlreadyDeployed    = types.NewError(types.ErrPrecondition, "already deployed")
	ErrIDMismatch         = types.NewError(types.ErrPrecondition, "id does not match index item")
	ErrNotHeadOfQueue     = types.NewError(types.ErrPrecondition, "not head of queue")
	ErrFeeTransfer        = types.NewError(types.ErrDownstream, "fee transfer failed")
	ErrRewardDistribution = types.NewError(types.ErrDownstream, "reward distribution failed")
	ErrWithdrawTransfer   = types.NewError(types.ErrDownstream, "withdraw transfer failed")
)
