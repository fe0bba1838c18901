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

package auth_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/causeway/auth"
	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingResolver struct{}

func (failingResolver) ResolveRole(auth.Role, *database.Txn) (types.Address, bool, error) {
	return types.Address{}, false, errors.New("lookup failed")
}

func TestAllowed(t *testing.T) {
	admin := types.DeriveAddress("test", []byte("admin"))
	governor := types.DeriveAddress("test", []byte("governor"))
	owner := types.DeriveAddress("test", []byte("owner"))
	resolver := auth.Chain{
		auth.Static{auth.CauseOwner(1): owner},
		auth.Static{
			auth.PlatformAdmin(): admin,
			auth.Governor():      governor,
		},
	}
	testDefs := []struct {
		name     string
		caller   types.Address
		roles    []auth.Role
		expected bool
	}{
		{"admin as admin", admin, []auth.Role{auth.PlatformAdmin()}, true},
		{"governor or admin", governor, []auth.Role{auth.Governor(), auth.PlatformAdmin()}, true},
		{"owner of cause", owner, []auth.Role{auth.CauseOwner(1)}, true},
		{"owner of other cause", owner, []auth.Role{auth.CauseOwner(2)}, false},
		{"admin as governor", admin, []auth.Role{auth.Governor()}, false},
		{"zero caller", types.Address{}, []auth.Role{auth.CauseOwner(3)}, false},
		{"no roles", admin, nil, false},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			ok, err := auth.Allowed(resolver, testDef.caller, nil, testDef.roles...)
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, ok)
		})
	}
}

func TestAllowedResolverError(t *testing.T) {
	caller := types.DeriveAddress("test", []byte("caller"))
	_, err := auth.Allowed(
		auth.Chain{auth.Static{}, failingResolver{}},
		caller,
		nil,
		auth.Governor(),
	)
	require.ErrorContains(t, err, "resolve governor")
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "cause-owner(7)", auth.CauseOwner(7).String())
	assert.Equal(t, "platform-admin", auth.PlatformAdmin().String())
}
