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

// GetAsset returns the asset with the given ID, or nil when no such asset
// exists
func (d *MetadataStoreSqlite) GetAsset(
	id uint64,
	txn types.Txn,
) (*models.Asset, error) {
	var asset models.Asset
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("id = ?", id).
		First(&asset); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &asset, nil
}

// GetAssetBySerial returns the asset with the given serial number, or nil
// when no such asset exists
func (d *MetadataStoreSqlite) GetAssetBySerial(
	serial string,
	txn types.Txn,
) (*models.Asset, error) {
	var asset models.Asset
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("serial = ?", serial).
		First(&asset); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &asset, nil
}

// GetAssets returns assets ordered by ID. Order is "asc" or "desc", limit
// and offset of zero are ignored.
func (d *MetadataStoreSqlite) GetAssets(
	limit int,
	offset int,
	order string,
	txn types.Txn,
) ([]models.Asset, error) {
	var ret []models.Asset
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}
	query := db.Order("id " + direction)
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

// CountAssets returns the total number of assets
func (d *MetadataStoreSqlite) CountAssets(txn types.Txn) (int64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.
		Model(&models.Asset{}).
		Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GetMaxAssetID returns the highest asset ID on record, or zero when no
// assets exist
func (d *MetadataStoreSqlite) GetMaxAssetID(txn types.Txn) (uint64, error) {
	var maxId uint64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.
		Model(&models.Asset{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxId); result.Error != nil {
		return 0, result.Error
	}
	return maxId, nil
}

// SetAsset creates or updates an asset. Asset IDs are assigned by the asset
// registry, and the serial and maker are fixed at mint time.
func (d *MetadataStoreSqlite) SetAsset(
	asset *models.Asset,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"model",
			"status",
			"custodian",
			"updated_at",
		}),
	}
	if result := db.Clauses(onConflict).Create(asset); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetAssetEvents returns the event history for an asset, oldest first
func (d *MetadataStoreSqlite) GetAssetEvents(
	assetId uint64,
	txn types.Txn,
) ([]models.AssetEvent, error) {
	var ret []models.AssetEvent
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.
		Where("asset_id = ?", assetId).
		Order("id ASC").
		Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetAssetEvent appends an entry to an asset's event history
func (d *MetadataStoreSqlite) SetAssetEvent(
	event *models.AssetEvent,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(event); result.Error != nil {
		return result.Error
	}
	return nil
}
