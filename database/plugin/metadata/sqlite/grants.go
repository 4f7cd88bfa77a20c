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
	"time"

	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
	"gorm.io/gorm"
)

// GetCapabilityGrant returns a capability grant by ID, or nil when no such
// grant exists
func (d *MetadataStoreSqlite) GetCapabilityGrant(
	id uint,
	txn types.Txn,
) (*models.CapabilityGrant, error) {
	var grant models.CapabilityGrant
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("id = ?", id).
		First(&grant); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &grant, nil
}

// GetCapabilityGrants returns all capability grants for an identity,
// oldest first, including revoked and expired grants
func (d *MetadataStoreSqlite) GetCapabilityGrants(
	identity string,
	txn types.Txn,
) ([]models.CapabilityGrant, error) {
	var ret []models.CapabilityGrant
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

// GetActiveCapabilityGrants returns grants for an identity that have not
// been revoked and have not expired as of the given time
func (d *MetadataStoreSqlite) GetActiveCapabilityGrants(
	identity string,
	now time.Time,
	txn types.Txn,
) ([]models.CapabilityGrant, error) {
	var ret []models.CapabilityGrant
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where(
			"identity = ? AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at > ?)",
			identity,
			now,
		).
		Order("id ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetCapabilityGrant creates or updates a capability grant. Revocation
// updates the row in place so the grant history survives.
func (d *MetadataStoreSqlite) SetCapabilityGrant(
	grant *models.CapabilityGrant,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if grant.ID == 0 {
		if result := db.Create(grant); result.Error != nil {
			return result.Error
		}
	} else {
		if result := db.Save(grant); result.Error != nil {
			return result.Error
		}
	}
	return nil
}
