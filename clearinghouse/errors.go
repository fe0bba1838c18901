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
)

var (
	ErrInvalidToken       = types.NewError(types.ErrValidation, "invalid token")
	ErrInvalidAmount      = types.NewError(types.ErrValidation, "invalid amount")
	ErrInvalidGovernor    = types.NewError(types.ErrValidation, "invalid governor")
	ErrBaseToken          = types.NewError(types.ErrValidation, "cannot register base token")
	ErrAlreadyRegistered  = types.NewError(types.ErrValidation, "child dao already registered")
	ErrNotRegistered      = types.NewError(types.ErrValidation, "child dao not registered")
	ErrInvalidMaxSupply   = types.NewError(types.ErrValidation, "invalid max supply")
	ErrInvalidMaxSwap     = types.NewError(types.ErrValidation, "invalid max swap")
	ErrSameToken          = types.NewError(types.ErrValidation, "cannot swap the same token")
	ErrNotEnoughChildDao  = types.NewError(types.ErrValidation, "not enough child dao tokens")
	ErrTokenNotOwned      = types.NewError(types.ErrPrecondition, "token not owned by contract")
	ErrNotReleased        = types.NewError(types.ErrPrecondition, "cause release has not passed")
	ErrExceedsMaxSwap     = types.NewError(types.ErrPrecondition, "exceeds max swap per tx")
	ErrExceedsMaxSupply   = types.NewError(types.ErrPrecondition, "exceeds max supply")
	ErrGovernorNotSet     = types.NewError(types.ErrPrecondition, "governor not set")
	ErrPaused             = types.NewError(types.ErrPrecondition, "pausable: paused")
	ErrNotPaused          = types.NewError(types.ErrPrecondition, "pausable: not paused")
	ErrNotGovernor        = types.NewError(types.ErrUnauthorized, "caller is not the governor")
	ErrNotGovernorOrAdmin = types.NewError(types.ErrUnauthorized, "caller is not the governor or admin")
	ErrNotAdmin           = types.NewError(types.ErrUnauthorized, "caller is not the admin")
	ErrNotOwner           = types.NewError(types.ErrUnauthorized, "sender not owner")
	ErrInvalidSignature   = types.NewError(types.ErrVerification, "InvalidSignature")
	ErrApprovalExpired    = types.NewError(types.ErrVerification, "ApprovalExpired")
	ErrUserAmountExceeded = types.NewError(types.ErrVerification, "UserAmountExceeded")
	ErrBaseTokenTransfer  = types.NewError(types.ErrDownstream, "base token transfer failed")
	ErrMint               = types.NewError(types.ErrDownstream, "child dao token mint error")
	ErrBurn               = types.NewError(types.ErrDownstream, "child dao token burn error")
	ErrAutoStake          = types.NewError(types.ErrDownstream, "auto stake failed")
	ErrStakingAllowance   = types.NewError(types.ErrDownstream, "staking allowance failed")
)
