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

// Package auth evaluates the role predicates that gate privileged
// operations. Each operation names the roles allowed to perform it and a
// Resolver maps those roles to accounts.
package auth

import (
	"fmt"

	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
)

type RoleKind uint8

const (
	RoleCauseOwner RoleKind = iota + 1
	RoleGovernor
	RolePlatformAdmin
)

func (k RoleKind) String() string {
	switch k {
	case RoleCauseOwner:
		return "cause-owner"
	case RoleGovernor:
		return "governor"
	case RolePlatformAdmin:
		return "platform-admin"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Role is a tagged role. CauseID is only meaningful for RoleCauseOwner
type Role struct {
	Kind    RoleKind
	CauseID uint64
}

func CauseOwner(causeID uint64) Role {
	return Role{Kind: RoleCauseOwner, CauseID: causeID}
}

func Governor() Role {
	return Role{Kind: RoleGovernor}
}

func PlatformAdmin() Role {
	return Role{Kind: RolePlatformAdmin}
}

func (r Role) String() string {
	if r.Kind == RoleCauseOwner {
		return fmt.Sprintf("%s(%d)", r.Kind, r.CauseID)
	}
	return r.Kind.String()
}

// Resolver maps a role to the account currently holding it. ok is false
// when the role is unknown to the resolver or currently unassigned
type Resolver interface {
	ResolveRole(role Role, txn *database.Txn) (account types.Address, ok bool, err error)
}

// Static resolves roles from a fixed assignment
type Static map[Role]types.Address

func (s Static) ResolveRole(role Role, _ *database.Txn) (types.Address, bool, error) {
	addr, ok := s[role]
	if !ok || addr.IsZero() {
		return types.Address{}, false, nil
	}
	return addr, true, nil
}

// Chain tries each resolver in order and returns the first assignment found
type Chain []Resolver

func (c Chain) ResolveRole(role Role, txn *database.Txn) (types.Address, bool, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		addr, ok, err := r.ResolveRole(role, txn)
		if err != nil {
			return types.Address{}, false, err
		}
		if ok {
			return addr, true, nil
		}
	}
	return types.Address{}, false, nil
}

// Allowed reports whether caller holds any of the given roles
func Allowed(
	resolver Resolver,
	caller types.Address,
	txn *database.Txn,
	roles ...Role,
) (bool, error) {
	if caller.IsZero() {
		return false, nil
	}
	for _, role := range roles {
		addr, ok, err := resolver.ResolveRole(role, txn)
		if err != nil {
			return false, fmt.Errorf("resolve %s: %w", role, err)
		}
		if ok && addr == caller {
			return true, nil
		}
	}
	return false, nil
}
