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

package sqlite

import (
	"errors"
	"strings"

	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProposal returns the proposal with the given ID, or nil when no such
// proposal exists
func (d *MetadataStoreSqlite) GetProposal(
	id uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	var proposal models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("id = ?", id).
		First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetProposals returns proposals ordered by ID, optionally filtered on
// the executed flag. Order is "asc" or "desc", limit and offset of zero
// are ignored.
func (d *MetadataStoreSqlite) GetProposals(
	executed *bool,
	limit int,
	offset int,
	order string,
	txn types.Txn,
) ([]models.Proposal, error) {
	var ret []models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}
	query := db.Order("id " + direction)
	if executed != nil {
		query = query.Where("executed = ?", *executed)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountProposals returns the number of proposals, optionally filtered on
// the executed flag
func (d *MetadataStoreSqlite) CountProposals(
	executed *bool,
	txn types.Txn,
) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := db.Model(&models.Proposal{})
	if executed != nil {
		query = query.Where("executed = ?", *executed)
	}
	if result := query.Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GetMaxProposalID returns the highest proposal ID on record, or zero when
// no proposals exist
func (d *MetadataStoreSqlite) GetMaxProposalID(txn types.Txn) (uint64, error) {
	var maxId uint64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.
		Model(&models.Proposal{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxId); result.Error != nil {
		return 0, result.Error
	}
	return maxId, nil
}

// SetProposal creates or updates a proposal. Proposal IDs are assigned by
// the governance engine, and only the vote tally and execution fields may
// change after the row is first written.
func (d *MetadataStoreSqlite) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"for_votes",
			"executed",
			"executed_at",
		}),
	}
	if result := db.Clauses(onConflict).Create(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetProposalCalls returns the calls attached to a proposal in submission
// order
func (d *MetadataStoreSqlite) GetProposalCalls(
	proposalId uint64,
	txn types.Txn,
) ([]models.ProposalCall, error) {
	var ret []models.ProposalCall
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("proposal_id = ?", proposalId).
		Order("call_index ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetProposalCall records a call attached to a proposal. Calls are written
// once at proposal creation and never modified.
func (d *MetadataStoreSqlite) SetProposalCall(
	call *models.ProposalCall,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "call_index"},
		},
		DoNothing: true,
	}
	if result := db.Clauses(onConflict).Create(call); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetProposalVote returns the vote cast by a voter on a proposal, or nil
// when the voter has not voted
func (d *MetadataStoreSqlite) GetProposalVote(
	proposalId uint64,
	voter string,
	txn types.Txn,
) (*models.ProposalVote, error) {
	var vote models.ProposalVote
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("proposal_id = ? AND voter = ?", proposalId, voter).
		First(&vote); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &vote, nil
}

// GetProposalVotes returns all votes cast on a proposal, oldest first
func (d *MetadataStoreSqlite) GetProposalVotes(
	proposalId uint64,
	txn types.Txn,
) ([]models.ProposalVote, error) {
	var ret []models.ProposalVote
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("proposal_id = ?", proposalId).
		Order("id ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetProposalVote records a vote. The unique index on proposal and voter
// backs the one-vote-per-voter rule enforced by the engine.
func (d *MetadataStoreSqlite) SetProposalVote(
	vote *models.ProposalVote,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(vote); result.Error != nil {
		return result.Error
	}
	return nil
}
