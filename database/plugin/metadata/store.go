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

package metadata

import (
	"log/slog"
	"time"

	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/plugin/metadata/sqlite"
	"github.com/gavel-io/gavel/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Participants
	GetRoleAssignments(
		string, // identity
		types.Txn,
	) ([]models.RoleAssignment, error)
	GetRoleAssignmentsByRole(
		uint8, // role
		types.Txn,
	) ([]models.RoleAssignment, error)
	GetRoleAssignment(
		string, // identity
		uint8, // role
		types.Txn,
	) (*models.RoleAssignment, error)
	SetRoleAssignment(*models.RoleAssignment, types.Txn) error
	DeleteRoleAssignment(
		string, // identity
		uint8, // role
		types.Txn,
	) error
	CountRoleAssignments(types.Txn) (int64, error)
	GetActiveCompromise(
		string, // identity
		types.Txn,
	) (*models.CompromiseRecord, error)
	GetCompromiseRecords(
		string, // identity
		types.Txn,
	) ([]models.CompromiseRecord, error)
	SetCompromiseRecord(*models.CompromiseRecord, types.Txn) error

	// Governance
	GetProposal(uint64, types.Txn) (*models.Proposal, error)
	GetProposals(
		*bool, // executed filter, nil for all
		int, // limit
		int, // offset
		string, // order
		types.Txn,
	) ([]models.Proposal, error)
	CountProposals(
		*bool, // executed filter, nil for all
		types.Txn,
	) (int64, error)
	GetMaxProposalID(types.Txn) (uint64, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetProposalCalls(uint64, types.Txn) ([]models.ProposalCall, error)
	SetProposalCall(*models.ProposalCall, types.Txn) error
	GetProposalVote(
		uint64, // proposal ID
		string, // voter
		types.Txn,
	) (*models.ProposalVote, error)
	GetProposalVotes(uint64, types.Txn) ([]models.ProposalVote, error)
	SetProposalVote(*models.ProposalVote, types.Txn) error

	// Capability grants
	GetCapabilityGrant(uint, types.Txn) (*models.CapabilityGrant, error)
	GetCapabilityGrants(
		string, // identity
		types.Txn,
	) ([]models.CapabilityGrant, error)
	GetActiveCapabilityGrants(
		string, // identity
		time.Time, // as-of time for expiry checks
		types.Txn,
	) ([]models.CapabilityGrant, error)
	SetCapabilityGrant(*models.CapabilityGrant, types.Txn) error

	// Assets
	GetAsset(uint64, types.Txn) (*models.Asset, error)
	GetAssetBySerial(string, types.Txn) (*models.Asset, error)
	GetAssets(
		int, // limit
		int, // offset
		string, // order
		types.Txn,
	) ([]models.Asset, error)
	CountAssets(types.Txn) (int64, error)
	GetMaxAssetID(types.Txn) (uint64, error)
	SetAsset(*models.Asset, types.Txn) error
	GetAssetEvents(uint64, types.Txn) ([]models.AssetEvent, error)
	SetAssetEvent(*models.AssetEvent, types.Txn) error
}

// For now, this always returns a sqlite plugin
func New(
	pluginName, dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	maxConnections int,
) (MetadataStore, error) {
	return sqlite.NewWithOptions(
		sqlite.WithDataDir(dataDir),
		sqlite.WithLogger(logger),
		sqlite.WithPromRegistry(promRegistry),
		sqlite.WithMaxConnections(maxConnections),
	)
}
