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

// Package authz defines the role hierarchy, delegated capability kinds,
// and error taxonomy shared by the participant registry, the governance
// engine, and the permission authority.
package authz

import (
	"fmt"
	"strings"
)

// Role is a tier in the fixed participant hierarchy. Higher values
// outrank lower ones.
type Role uint8

const (
	RoleNone         Role = 0
	RoleRepairAgent  Role = 1
	RoleManufacturer Role = 2
	RoleGovernance   Role = 3
	RoleAdmin        Role = 4
)

func (r Role) String() string {
	switch r {
	case RoleRepairAgent:
		return "repair_agent"
	case RoleManufacturer:
		return "manufacturer"
	case RoleGovernance:
		return "governance"
	case RoleAdmin:
		return "admin"
	}
	return "none"
}

// ParseRole converts a role name into a Role. Names match
// Role.String() output.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "repair_agent":
		return RoleRepairAgent, nil
	case "manufacturer":
		return RoleManufacturer, nil
	case "governance":
		return RoleGovernance, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleNone, fmt.Errorf("unknown role: %q", s)
}

// granterFor maps each role to the tier that administers it. Admin
// administers itself, which keeps the top of the chain closed.
var granterFor = map[Role]Role{
	RoleAdmin:        RoleAdmin,
	RoleGovernance:   RoleAdmin,
	RoleManufacturer: RoleGovernance,
	RoleRepairAgent:  RoleManufacturer,
}

// markerTier maps the highest role held by a compromise target to the
// minimum role a reporter needs to mark it. Identities holding no role
// still require at least a Manufacturer to mark them.
var markerTier = map[Role]Role{
	RoleNone:         RoleManufacturer,
	RoleRepairAgent:  RoleManufacturer,
	RoleManufacturer: RoleGovernance,
	RoleGovernance:   RoleAdmin,
	RoleAdmin:        RoleAdmin,
}

// CanGrant reports whether an identity holding the given roles may
// grant or revoke the target role. The caller must hold the role's
// administering tier exactly, or hold Admin.
func CanGrant(held []Role, target Role) bool {
	granter, ok := granterFor[target]
	if !ok {
		return false
	}
	for _, r := range held {
		if r == granter || r == RoleAdmin {
			return true
		}
	}
	return false
}

// CanMarkCompromised reports whether a reporter whose highest role is
// reporterHighest may mark a target whose highest role is
// targetHighest.
func CanMarkCompromised(reporterHighest Role, targetHighest Role) bool {
	tier, ok := markerTier[targetHighest]
	if !ok {
		return false
	}
	return reporterHighest >= tier
}

// Highest returns the highest-ranked role in the set, or RoleNone for
// an empty set.
func Highest(held []Role) Role {
	highest := RoleNone
	for _, r := range held {
		if r > highest {
			highest = r
		}
	}
	return highest
}

// AtLeast reports whether any held role meets or outranks the
// required tier.
func AtLeast(held []Role, required Role) bool {
	return Highest(held) >= required
}

// Capability is a delegated permission kind granted to non-role
// holders through the permission authority.
type Capability uint8

const (
	CapabilitySubmit Capability = 1
	CapabilityRead   Capability = 2
	CapabilityVerify Capability = 3
)

func (c Capability) String() string {
	switch c {
	case CapabilitySubmit:
		return "submit"
	case CapabilityRead:
		return "read"
	case CapabilityVerify:
		return "verify"
	}
	return "unknown"
}

// ParseCapability converts a capability name into a Capability.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "submit":
		return CapabilitySubmit, nil
	case "read":
		return CapabilityRead, nil
	case "verify":
		return CapabilityVerify, nil
	}
	return 0, fmt.Errorf("unknown capability: %q", s)
}
