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
	"time"

	"github.com/gavel-io/gavel/database/models"
)

// GetCapabilityGrant returns a capability grant by ID
func (d *Database) GetCapabilityGrant(
	grantId uint,
	txn *Txn,
) (*models.CapabilityGrant, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	grant, err := d.metadata.GetCapabilityGrant(grantId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get capability grant: %w", err)
	}
	if grant == nil {
		return nil, models.ErrCapabilityGrantNotFound
	}
	return grant, nil
}

// GetCapabilityGrants returns every capability grant ever issued to an
// identity, including revoked and expired ones
func (d *Database) GetCapabilityGrants(
	identity string,
	txn *Txn,
) ([]models.CapabilityGrant, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	grants, err := d.metadata.GetCapabilityGrants(identity, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get capability grants: %w", err)
	}
	return grants, nil
}

// GetActiveCapabilityGrants returns the grants counting for an identity
// as of the given time, excluding revoked and expired rows
func (d *Database) GetActiveCapabilityGrants(
	identity string,
	now time.Time,
	txn *Txn,
) ([]models.CapabilityGrant, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	grants, err := d.metadata.GetActiveCapabilityGrants(
		identity,
		now,
		txn.Metadata(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get active capability grants: %w", err)
	}
	return grants, nil
}

// SetCapabilityGrant creates or updates a capability grant. A revocation
// updates the existing row in place so the grant history survives.
func (d *Database) SetCapabilityGrant(
	grant *models.CapabilityGrant,
	txn *Txn,
) error {
	if grant == nil {
		return errors.New("grant cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetCapabilityGrant(grant, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set capability grant: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit capability grant: %w", err)
		}
	}
	return nil
}
