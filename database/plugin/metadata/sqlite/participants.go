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

	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetRoleAssignments returns all role assignments held by an identity,
// lowest tier first
func (d *MetadataStoreSqlite) GetRoleAssignments(
	identity string,
	txn types.Txn,
) ([]models.RoleAssignment, error) {
	var ret []models.RoleAssignment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("identity = ?", identity).
		Order("role ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetRoleAssignmentsByRole returns all assignments of the given role tier
func (d *MetadataStoreSqlite) GetRoleAssignmentsByRole(
	role uint8,
	txn types.Txn,
) ([]models.RoleAssignment, error) {
	var ret []models.RoleAssignment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("role = ?", role).
		Order("identity ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetRoleAssignment returns the assignment row for an identity at the given
// tier, or nil when the identity does not hold that role
func (d *MetadataStoreSqlite) GetRoleAssignment(
	identity string,
	role uint8,
	txn types.Txn,
) (*models.RoleAssignment, error) {
	var assignment models.RoleAssignment
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("identity = ? AND role = ?", identity, role).
		First(&assignment); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &assignment, nil
}

// SetRoleAssignment records a role assignment. Granting a role the identity
// already holds is a no-op.
func (d *MetadataStoreSqlite) SetRoleAssignment(
	assignment *models.RoleAssignment,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "identity"},
			{Name: "role"},
		},
		DoNothing: true,
	}
	if result := db.Clauses(onConflict).Create(assignment); result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteRoleAssignment removes a role assignment. Revoking a role the
// identity does not hold is a no-op.
func (d *MetadataStoreSqlite) DeleteRoleAssignment(
	identity string,
	role uint8,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.
		Where("identity = ? AND role = ?", identity, role).
		Delete(&models.RoleAssignment{}); result.Error != nil {
		return result.Error
	}
	return nil
}

// CountRoleAssignments returns the total number of role assignment rows
func (d *MetadataStoreSqlite) CountRoleAssignments(
	txn types.Txn,
) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.
		Model(&models.RoleAssignment{}).
		Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GetActiveCompromise returns the active compromise record for an identity,
// or nil when the identity is not currently marked as compromised
func (d *MetadataStoreSqlite) GetActiveCompromise(
	identity string,
	txn types.Txn,
) (*models.CompromiseRecord, error) {
	var record models.CompromiseRecord
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("identity = ? AND active = ?", identity, true).
		First(&record); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// GetCompromiseRecords returns all compromise records for an identity,
// oldest first
func (d *MetadataStoreSqlite) GetCompromiseRecords(
	identity string,
	txn types.Txn,
) ([]models.CompromiseRecord, error) {
	var ret []models.CompromiseRecord
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("identity = ?", identity).
		Order("id ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetCompromiseRecord creates or updates a compromise record. Records are
// never deleted, a restore updates the row in place.
func (d *MetadataStoreSqlite) SetCompromiseRecord(
	record *models.CompromiseRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if record.ID == 0 {
		if result := db.Create(record); result.Error != nil {
			return result.Error
		}
	} else {
		if result := db.Save(record); result.Error != nil {
			return result.Error
		}
	}
	return nil
}
