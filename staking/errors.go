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
)

var (
	ErrInvalidToken         = types.NewError(types.ErrValidation, "invalid token")
	ErrInvalidAmount        = types.NewError(types.ErrValidation, "invalid amount")
	ErrInvalidDestination   = types.NewError(types.ErrValidation, "invalid destination")
	ErrInvalidUnstakeAmount = types.NewError(types.ErrValidation, "invalid unstake amount")
	ErrInvalidLockupPeriod  = types.NewError(types.ErrValidation, "invalid lockup period")
	ErrNothingStaked        = types.NewError(types.ErrPrecondition, "nothing staked")
	ErrNotAdmin             = types.NewError(types.ErrUnauthorized, "caller is not the admin")
	ErrStakeTransfer        = types.NewError(types.ErrDownstream, "stake transfer failed")
	ErrRewardTransfer       = types.NewError(types.ErrDownstream, "reward transfer failed")
)
