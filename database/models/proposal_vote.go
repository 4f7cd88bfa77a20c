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

// ProposalVote records an approval vote on a proposal. The unique
// index enforces one vote per voter per proposal at the storage layer,
// backing up the engine's own double-vote check.
type ProposalVote struct {
	ID         uint      `gorm:"primarykey"`
	ProposalID uint64    `gorm:"index:idx_vote_proposal;uniqueIndex:idx_vote_proposal_voter,priority:1;not null"`
	Voter      string    `gorm:"uniqueIndex:idx_vote_proposal_voter,priority:2;size:128;not null"`
	VotedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name
func (ProposalVote) TableName() string {
	return "proposal_vote"
}
