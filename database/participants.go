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
	"errors"
	"fmt"

	"github.com/gavel-io/gavel/database/models"
)

// GetRoleAssignments returns all role assignments held by an identity,
// ordered by role tier
func (d *Database) GetRoleAssignments(
	identity string,
	txn *Txn,
) ([]models.RoleAssignment, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	assignments, err := d.metadata.GetRoleAssignments(identity, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get role assignments: %w", err)
	}
	return assignments, nil
}

// GetRoleAssignmentsByRole returns all identities holding the given role
func (d *Database) GetRoleAssignmentsByRole(
	role uint8,
	txn *Txn,
) ([]models.RoleAssignment, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	assignments, err := d.metadata.GetRoleAssignmentsByRole(
		role,
		txn.Metadata(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get role assignments: %w", err)
	}
	return assignments, nil
}

// GetRoleAssignment returns a single role assignment, or nil when the
// identity does not hold the role
func (d *Database) GetRoleAssignment(
	identity string,
	role uint8,
	txn *Txn,
) (*models.RoleAssignment, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	assignment, err := d.metadata.GetRoleAssignment(
		identity,
		role,
		txn.Metadata(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get role assignment: %w", err)
	}
	return assignment, nil
}

// SetRoleAssignment records a role grant. Granting a role the identity
// already holds leaves the existing row untouched.
func (d *Database) SetRoleAssignment(
	assignment *models.RoleAssignment,
	txn *Txn,
) error {
	if assignment == nil {
		return errors.New("assignment cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetRoleAssignment(assignment, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set role assignment: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit role assignment: %w", err)
		}
	}
	return nil
}

// DeleteRoleAssignment removes a role grant. Revoking a role the
// identity does not hold is a no-op.
func (d *Database) DeleteRoleAssignment(
	identity string,
	role uint8,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.DeleteRoleAssignment(identity, role, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to delete role assignment: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit role removal: %w", err)
		}
	}
	return nil
}

// CountRoleAssignments returns the total number of role assignments
func (d *Database) CountRoleAssignments(txn *Txn) (int64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	count, err := d.metadata.CountRoleAssignments(txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf("failed to count role assignments: %w", err)
	}
	return count, nil
}

// GetActiveCompromise returns the active compromise record for an
// identity, or nil when the identity is not currently compromised
func (d *Database) GetActiveCompromise(
	identity string,
	txn *Txn,
) (*models.CompromiseRecord, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	record, err := d.metadata.GetActiveCompromise(identity, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get compromise record: %w", err)
	}
	return record, nil
}

// GetCompromiseRecords returns the full compromise history for an
// identity, oldest first
func (d *Database) GetCompromiseRecords(
	identity string,
	txn *Txn,
) ([]models.CompromiseRecord, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	records, err := d.metadata.GetCompromiseRecords(identity, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get compromise records: %w", err)
	}
	return records, nil
}

// SetCompromiseRecord creates or updates a compromise record. A restore
// updates the existing row in place so the original reporter and reason
// survive in the audit trail.
func (d *Database) SetCompromiseRecord(
	record *models.CompromiseRecord,
	txn *Txn,
) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetCompromiseRecord(record, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set compromise record: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit compromise record: %w", err)
		}
	}
	return nil
}
