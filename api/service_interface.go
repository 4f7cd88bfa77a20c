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

package api

import (
	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/governance"
)

// Engine defines the governance engine methods used by the API
type Engine interface {
	Propose(
		proposer string,
		calls []governance.Call,
		description string,
		category governance.Category,
		subjectID *uint64,
	) (uint64, error)
	CastVote(proposalID uint64, voter string) (governance.VoteResult, error)
	ProposalByID(id uint64) (*models.Proposal, error)
	Proposals(
		executed *bool,
		limit int,
		offset int,
		order string,
	) ([]models.Proposal, error)
	Count(executed *bool) (int64, error)
	VoteStatus(id uint64) (uint32, bool, error)
	Votes(id uint64) ([]models.ProposalVote, error)
	Calls(id uint64) ([]models.ProposalCall, error)
}

// Registry defines the participant registry methods used by the API
type Registry interface {
	GrantRole(caller string, role authz.Role, identity string) error
	RevokeRole(caller string, role authz.Role, identity string) error
	MarkCompromised(target string, reporter string, reason string) error
	Restore(caller string, identity string) error
	RolesOf(identity string) ([]authz.Role, error)
	IsCompromised(identity string) (bool, error)
	CompromiseHistory(identity string) ([]models.CompromiseRecord, error)
}

// Authority defines the permission authority methods used by the API
type Authority interface {
	GrantsFor(identity string) ([]models.CapabilityGrant, error)
}

// AssetDirectory defines the asset registry methods used by the API
type AssetDirectory interface {
	AssetByID(id uint64) (*models.Asset, error)
	AssetBySerial(serial string) (*models.Asset, error)
	Assets(limit int, offset int, order string) ([]models.Asset, error)
	Count() (int64, error)
	History(assetID uint64) ([]models.AssetEvent, error)
}
