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

import (
	"errors"
	"time"
)

var ErrCapabilityGrantNotFound = errors.New("capability grant not found")

// CapabilityGrant records a delegated capability held by an identity.
// Submit grants are scoped to a single asset via SubjectID; read and
// verify grants apply identity-wide and leave SubjectID null. A grant
// stops counting once revoked or past its expiry, but the row is kept
// for the audit trail.
type CapabilityGrant struct {
	ID         uint    `gorm:"primarykey"`
	Identity   string  `gorm:"index;size:128;not null"`
	SubjectID  *uint64 `gorm:"index"`
	Capability uint8   `gorm:"index;not null"` // 1=submit, 2=read, 3=verify
	GrantedBy  string  `gorm:"size:128;not null"`
	GrantedAt  time.Time
	ExpiresAt  *time.Time
	RevokedAt  *time.Time
	RevokedBy  string `gorm:"size:128"`
}

// TableName returns the table name
func (CapabilityGrant) TableName() string {
	return "capability_grant"
}
