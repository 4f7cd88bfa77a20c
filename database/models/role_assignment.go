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

package models

import "time"

// RoleAssignment records that an identity currently holds a role tier.
// A revoked role is deleted outright rather than soft-deleted, so the
// table always reflects the live set of assignments. An identity may
// hold several tiers at once, one row per tier.
type RoleAssignment struct {
	ID        uint      `gorm:"primarykey"`
	Identity  string    `gorm:"uniqueIndex:idx_role_identity_role,priority:1;size:128;not null"`
	Role      uint8     `gorm:"uniqueIndex:idx_role_identity_role,priority:2;index;not null"`
	GrantedBy string    `gorm:"size:128;not null"`
	GrantedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (RoleAssignment) TableName() string {
	return "role_assignment"
}
