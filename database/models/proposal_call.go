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

import "github.com/gavel-io/gavel/database/types"

// ProposalCall is one entry in a proposal's ordered call batch. The
// encoded payload itself lives in the blob store keyed by proposal ID
// and call index; the metadata row carries the payload hash and size
// so the blob can be verified on read.
type ProposalCall struct {
	ID          uint   `gorm:"primarykey"`
	ProposalID  uint64 `gorm:"uniqueIndex:idx_call_proposal_index,priority:1;not null"`
	CallIndex   uint32 `gorm:"uniqueIndex:idx_call_proposal_index,priority:2;not null"`
	Target      string `gorm:"size:32;not null"`
	AuxValue    types.Uint64
	PayloadHash []byte `gorm:"size:32;not null"`
	PayloadSize uint32 `gorm:"not null"`
}

// TableName returns the table name
func (ProposalCall) TableName() string {
	return "proposal_call"
}
