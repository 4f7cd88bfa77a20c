// Copyright 2026 Gavel Labs Software
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

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanGrant(t *testing.T) {
	testCases := []struct {
		name     string
		held     []Role
		target   Role
		expected bool
	}{
		{
			name:     "admin grants governance",
			held:     []Role{RoleAdmin},
			target:   RoleGovernance,
			expected: true,
		},
		{
			name:     "governance grants manufacturer",
			held:     []Role{RoleGovernance},
			target:   RoleManufacturer,
			expected: true,
		},
		{
			name:     "manufacturer grants repair agent",
			held:     []Role{RoleManufacturer},
			target:   RoleRepairAgent,
			expected: true,
		},
		{
			name:     "admin grants admin",
			held:     []Role{RoleAdmin},
			target:   RoleAdmin,
			expected: true,
		},
		{
			name:     "admin may grant any tier",
			held:     []Role{RoleAdmin},
			target:   RoleRepairAgent,
			expected: true,
		},
		{
			name:     "governance cannot grant repair agent",
			held:     []Role{RoleGovernance},
			target:   RoleRepairAgent,
			expected: false,
		},
		{
			name:     "manufacturer cannot grant manufacturer",
			held:     []Role{RoleManufacturer},
			target:   RoleManufacturer,
			expected: false,
		},
		{
			name:     "repair agent cannot grant anything",
			held:     []Role{RoleRepairAgent},
			target:   RoleRepairAgent,
			expected: false,
		},
		{
			name:     "governance cannot grant admin",
			held:     []Role{RoleGovernance},
			target:   RoleAdmin,
			expected: false,
		},
		{
			name:     "no roles cannot grant",
			held:     nil,
			target:   RoleRepairAgent,
			expected: false,
		},
		{
			name:     "parent role among several suffices",
			held:     []Role{RoleRepairAgent, RoleGovernance},
			target:   RoleManufacturer,
			expected: true,
		},
		{
			name:     "unknown target role",
			held:     []Role{RoleAdmin},
			target:   Role(99),
			expected: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(
				t,
				tc.expected,
				CanGrant(tc.held, tc.target),
			)
		})
	}
}

func TestCanMarkCompromised(t *testing.T) {
	testCases := []struct {
		name     string
		reporter Role
		target   Role
		expected bool
	}{
		{
			name:     "governance marks manufacturer",
			reporter: RoleGovernance,
			target:   RoleManufacturer,
			expected: true,
		},
		{
			name:     "admin marks manufacturer",
			reporter: RoleAdmin,
			target:   RoleManufacturer,
			expected: true,
		},
		{
			name:     "manufacturer cannot mark manufacturer",
			reporter: RoleManufacturer,
			target:   RoleManufacturer,
			expected: false,
		},
		{
			name:     "manufacturer marks repair agent",
			reporter: RoleManufacturer,
			target:   RoleRepairAgent,
			expected: true,
		},
		{
			name:     "repair agent cannot mark repair agent",
			reporter: RoleRepairAgent,
			target:   RoleRepairAgent,
			expected: false,
		},
		{
			name:     "manufacturer marks roleless identity",
			reporter: RoleManufacturer,
			target:   RoleNone,
			expected: true,
		},
		{
			name:     "repair agent cannot mark roleless identity",
			reporter: RoleRepairAgent,
			target:   RoleNone,
			expected: false,
		},
		{
			name:     "only admin marks governance",
			reporter: RoleGovernance,
			target:   RoleGovernance,
			expected: false,
		},
		{
			name:     "admin marks governance",
			reporter: RoleAdmin,
			target:   RoleGovernance,
			expected: true,
		},
		{
			name:     "admin marks admin",
			reporter: RoleAdmin,
			target:   RoleAdmin,
			expected: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(
				t,
				tc.expected,
				CanMarkCompromised(tc.reporter, tc.target),
			)
		})
	}
}

func TestHighest(t *testing.T) {
	assert.Equal(t, RoleNone, Highest(nil))
	assert.Equal(
		t,
		RoleGovernance,
		Highest([]Role{RoleRepairAgent, RoleGovernance}),
	)
	assert.Equal(
		t,
		RoleAdmin,
		Highest([]Role{RoleAdmin, RoleManufacturer}),
	)
}

func TestAtLeast(t *testing.T) {
	held := []Role{RoleRepairAgent, RoleManufacturer}
	assert.True(t, AtLeast(held, RoleManufacturer))
	assert.True(t, AtLeast(held, RoleRepairAgent))
	assert.False(t, AtLeast(held, RoleGovernance))
	assert.False(t, AtLeast(nil, RoleRepairAgent))
}

func TestParseRole(t *testing.T) {
	for _, role := range []Role{
		RoleRepairAgent,
		RoleManufacturer,
		RoleGovernance,
		RoleAdmin,
	} {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
	parsed, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, parsed)
	_, err = ParseRole("operator")
	require.Error(t, err)
	_, err = ParseRole("")
	require.Error(t, err)
}

func TestParseCapability(t *testing.T) {
	for _, capability := range []Capability{
		CapabilitySubmit,
		CapabilityRead,
		CapabilityVerify,
	} {
		parsed, err := ParseCapability(capability.String())
		require.NoError(t, err)
		assert.Equal(t, capability, parsed)
	}
	_, err := ParseCapability("execute")
	require.Error(t, err)
}
