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

// GetAsset returns an asset by ID
func (d *Database) GetAsset(
	assetId uint64,
	txn *Txn,
) (*models.Asset, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	asset, err := d.metadata.GetAsset(assetId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	if asset == nil {
		return nil, models.ErrAssetNotFound
	}
	return asset, nil
}

// GetAssetBySerial returns an asset by its serial number
func (d *Database) GetAssetBySerial(
	serial string,
	txn *Txn,
) (*models.Asset, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	asset, err := d.metadata.GetAssetBySerial(serial, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get asset by serial: %w", err)
	}
	if asset == nil {
		return nil, models.ErrAssetNotFound
	}
	return asset, nil
}

// GetAssets returns assets ordered by ID. A zero limit returns all
// assets.
func (d *Database) GetAssets(
	limit int,
	offset int,
	order string,
	txn *Txn,
) ([]models.Asset, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	assets, err := d.metadata.GetAssets(limit, offset, order, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	return assets, nil
}

// CountAssets returns the total number of assets
func (d *Database) CountAssets(txn *Txn) (int64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	count, err := d.metadata.CountAssets(txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return count, nil
}

// GetMaxAssetID returns the highest asset ID in use, or zero when no
// assets exist. Minting derives the next ID from this inside the
// minting transaction, so a rolled-back execution never burns an ID.
// Asset IDs live in their own space separate from proposal IDs.
func (d *Database) GetMaxAssetID(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	maxId, err := d.metadata.GetMaxAssetID(txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf("failed to get max asset ID: %w", err)
	}
	return maxId, nil
}

// SetAsset creates or updates an asset. On conflict only the model,
// status, custodian, and update time are written, so the serial number
// and maker recorded at mint cannot be altered.
func (d *Database) SetAsset(
	asset *models.Asset,
	txn *Txn,
) error {
	if asset == nil {
		return errors.New("asset cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetAsset(asset, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set asset: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit asset: %w", err)
		}
	}
	return nil
}

// GetAssetEvents returns an asset's history, oldest first
func (d *Database) GetAssetEvents(
	assetId uint64,
	txn *Txn,
) ([]models.AssetEvent, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	events, err := d.metadata.GetAssetEvents(assetId, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to get asset events: %w", err)
	}
	return events, nil
}

// SetAssetEvent appends an entry to an asset's history
func (d *Database) SetAssetEvent(
	event *models.AssetEvent,
	txn *Txn,
) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer txn.Release()
	}
	if err := d.metadata.SetAssetEvent(event, txn.Metadata()); err != nil {
		return fmt.Errorf("failed to set asset event: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("failed to commit asset event: %w", err)
		}
	}
	return nil
}
