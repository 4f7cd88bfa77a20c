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

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal represents a governance action submitted for council approval.
// Proposals are append-only: rows are never updated after execution apart
// from the vote tally and the Executed flag, which flips false to true
// exactly once. The ID is assigned by the governance engine from its own
// monotonic counter rather than by the database.
type Proposal struct {
	ID          uint64  `gorm:"primarykey"`
	Proposer    string  `gorm:"index;size:128;not null"`
	Description string  `gorm:"size:512"`
	Category    uint8   `gorm:"index;not null"` // 1=routine, 2=critical
	SubjectID   *uint64 `gorm:"index"`
	ForVotes    uint32  `gorm:"not null"`
	Executed    bool    `gorm:"index;not null"`
	ExecutedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}
