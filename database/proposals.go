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

package database

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
)

// ErrPayloadHashMismatch is returned when a call payload read from the
// blob store does not match the hash recorded in the metadata row
var ErrPayloadHashMismatch = errors.New(
	"call payload does not match recorded hash",
)

// GetProposal returns a proposal by ID
func (d *Database) GetProposal(
	proposalId uint64,
	txn *Txn,
) (*models.Proposal, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	proposal, err := d.metadata.GetProposal(proposalId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	if proposal == nil {
		return nil, models.ErrProposalNotFound
	}
	return proposal, nil
}

// GetProposals returns proposals ordered by ID, optionally filtered on
// the executed flag. A zero limit returns all proposals.
func (d *Database) GetProposals(
	executed *bool,
	limit int,
	offset int,
	order string,
	txn *Txn,
) ([]models.Proposal, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	proposals, err := d.metadata.GetProposals(
		executed,
		limit,
		offset,
		order,
		txn.Metadata(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposals: %w", err)
	}
	return proposals, nil
}

// CountProposals returns the number of proposals, optionally filtered on
// the executed flag
func (d *Database) CountProposals(executed *bool, txn *Txn) (int64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	count, err := d.metadata.CountProposals(executed, txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf("failed to count proposals: %w", err)
	}
	return count, nil
}

// GetMaxProposalID returns the highest proposal ID in use, or zero when
// no proposals exist. The governance engine seeds its counter from this
// at startup.
func (d *Database) GetMaxProposalID(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	maxId, err := d.metadata.GetMaxProposalID(txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf("failed to get max proposal ID: %w", err)
	}
	return maxId, nil
}

// SetProposal creates or updates a proposal. On conflict only the vote
// tally and execution fields are written, so the proposer, description,
// and call batch of an existing proposal cannot be altered.
func (d *Database) SetProposal(
	proposal *models.Proposal,
	txn *Txn,
) error {
	if proposal == nil {
		return errors.New("proposal cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetProposal(proposal, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set proposal: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit proposal: %w", err)
		}
	}
	return nil
}

// GetProposalCalls returns the ordered call batch for a proposal
func (d *Database) GetProposalCalls(
	proposalId uint64,
	txn *Txn,
) ([]models.ProposalCall, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	calls, err := d.metadata.GetProposalCalls(proposalId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal calls: %w", err)
	}
	return calls, nil
}

// SetProposalCall stores one call of a proposal's batch. The encoded
// payload goes to the blob store keyed by proposal ID and call index,
// and the metadata row records its hash and size for verification on
// read. Requires a transaction spanning both stores.
func (d *Database) SetProposalCall(
	call *models.ProposalCall,
	payload []byte,
	txn *Txn,
) error {
	if call == nil {
		return errors.New("call cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Release()
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return types.ErrNilTxn
	}
	blob := txn.DB().Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}
	payloadHash := sha256.Sum256(payload)
	call.PayloadHash = payloadHash[:]
	if len(payload) > int(^uint32(0)) {
		return fmt.Errorf("call payload too large: %d bytes", len(payload))
	}
	call.PayloadSize = uint32(len(payload))
	key := types.PayloadBlobKey(call.ProposalID, call.CallIndex)
	if err := blob.Set(blobTxn, key, payload); err != nil {
		return fmt.Errorf("failed to set call payload: %w", err)
	}
	if err := d.metadata.SetProposalCall(call, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set proposal call: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit proposal call: %w", err)
		}
	}
	return nil
}

// GetProposalCallPayload reads a call's encoded payload from the blob
// store and verifies it against the hash recorded in the metadata row
func (d *Database) GetProposalCallPayload(
	call *models.ProposalCall,
	txn *Txn,
) ([]byte, error) {
	if call == nil {
		return nil, errors.New("call cannot be nil")
	}
	if txn == nil {
		txn = d.BlobTxn(false)
		defer txn.Release()
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		return nil, types.ErrNilTxn
	}
	blob := txn.DB().Blob()
	if blob == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	key := types.PayloadBlobKey(call.ProposalID, call.CallIndex)
	payload, err := blob.Get(blobTxn, key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to get call payload: %w", err)
	}
	payloadHash := sha256.Sum256(payload)
	if !bytes.Equal(payloadHash[:], call.PayloadHash) {
		return nil, ErrPayloadHashMismatch
	}
	return payload, nil
}

// GetProposalVote returns an identity's vote on a proposal, or nil when
// the identity has not voted
func (d *Database) GetProposalVote(
	proposalId uint64,
	voter string,
	txn *Txn,
) (*models.ProposalVote, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	vote, err := d.metadata.GetProposalVote(proposalId, voter, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal vote: %w", err)
	}
	return vote, nil
}

// GetProposalVotes returns all votes cast on a proposal, oldest first
func (d *Database) GetProposalVotes(
	proposalId uint64,
	txn *Txn,
) ([]models.ProposalVote, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	votes, err := d.metadata.GetProposalVotes(proposalId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal votes: %w", err)
	}
	return votes, nil
}

// SetProposalVote records a vote on a proposal. A second vote by the
// same identity fails on the storage unique index.
func (d *Database) SetProposalVote(
	vote *models.ProposalVote,
	txn *Txn,
) error {
	if vote == nil {
		return errors.New("vote cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetProposalVote(vote, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set proposal vote: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit proposal vote: %w", err)
		}
	}
	return nil
}
