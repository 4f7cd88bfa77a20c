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

package governance

import (
	"time"

	"github.com/gavel-io/gavel/event"
)

const (
	ProposalSubmittedEventType event.EventType = "governance.proposal.submitted"
	VoteCastEventType          event.EventType = "governance.vote.cast"
	ProposalExecutedEventType  event.EventType = "governance.proposal.executed"
)

// ProposalSubmittedEvent is published after a proposal commits
type ProposalSubmittedEvent struct {
	ProposalID uint64
	Proposer   string
	Category   Category
	CallCount  int
	Timestamp  time.Time
}

// VoteCastEvent is published after a vote commits. Votes rolled back by
// a failed execution never produce an event.
type VoteCastEvent struct {
	ProposalID uint64
	Voter      string
	ForVotes   uint32
	Executed   bool
	Timestamp  time.Time
}

// ProposalExecutedEvent is published after the vote that pushed a
// proposal over threshold commits together with its executed call batch
type ProposalExecutedEvent struct {
	ProposalID uint64
	CallCount  int
	Timestamp  time.Time
}
