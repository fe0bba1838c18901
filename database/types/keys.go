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
	"encoding/binary"
	"slices"
)

const (
	CounterKeyPrefix         = "c"
	TokenInfoKeyPrefix       = "ti"
	TokenBalanceKeyPrefix    = "tb"
	TokenAllowanceKeyPrefix  = "ta"
	QueueHeaderKeyPrefix     = "qh"
	QueueItemKeyPrefix       = "qi"
	RewardStateKeyPrefix     = "sr"
	UserStakeKeyPrefix       = "su"
	StakingSettingsKey       = "ss"
	KycUsageKeyPrefix        = "ku"
	ClearingHouseSettingsKey = "ch"
	RegistrySettingsKey      = "rs"
	CommitSequenceKey        = "sq"
)

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func CounterKey(name string) []byte {
	return slices.Concat([]byte(CounterKeyPrefix), []byte(name))
}

func TokenInfoKey(token Address) []byte {
	return slices.Concat([]byte(TokenInfoKeyPrefix), token[:])
}

func TokenBalanceKey(token, account Address) []byte {
	return slices.Concat([]byte(TokenBalanceKeyPrefix), token[:], account[:])
}

func TokenAllowanceKey(token, owner, spender Address) []byte {
	return slices.Concat(
		[]byte(TokenAllowanceKeyPrefix),
		token[:],
		owner[:],
		spender[:],
	)
}

func QueueHeaderKey(causeID uint64) []byte {
	return slices.Concat([]byte(QueueHeaderKeyPrefix), Uint64ToBytes(causeID))
}

func QueueItemKey(causeID, slot uint64) []byte {
	return slices.Concat(
		[]byte(QueueItemKeyPrefix),
		Uint64ToBytes(causeID),
		Uint64ToBytes(slot),
	)
}

func RewardStateKey(token Address) []byte {
	return slices.Concat([]byte(RewardStateKeyPrefix), token[:])
}

func UserStakeKey(token, account Address) []byte {
	return slices.Concat([]byte(UserStakeKeyPrefix), token[:], account[:])
}

// UserStakePrefix covers every staker of a token
func UserStakePrefix(token Address) []byte {
	return slices.Concat([]byte(UserStakeKeyPrefix), token[:])
}

func KycUsageKey(kycID Hash, causeID uint64) []byte {
	return slices.Concat(
		[]byte(KycUsageKeyPrefix),
		kycID[:],
		Uint64ToBytes(causeID),
	)
}
