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

// Package assets implements the asset registry: physical items with
// unique serial numbers, a status lifecycle, and an append-only history
// that links every change back to the governance proposal approving it.
// All mutations arrive as governance calls; the package's own surface
// is read-only.
package assets

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CollaboratorName is the target name proposals use to address the
// asset registry
const CollaboratorName = "assets"

// Status is an asset's lifecycle state
type Status uint8

const (
	StatusActive      Status = 1
	StatusUnderRepair Status = 2
	StatusRetired     Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusUnderRepair:
		return "under_repair"
	case StatusRetired:
		return "retired"
	}
	return "unknown"
}

// ParseStatus converts a status name into a Status. Names match
// Status.String() output.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, nil
	case "under_repair":
		return StatusUnderRepair, nil
	case "retired":
		return StatusRetired, nil
	}
	return 0, fmt.Errorf("unknown asset status: %q", s)
}

// EventKind classifies entries in an asset's history log
type EventKind uint8

const (
	EventMinted             EventKind = 1
	EventStatusChanged      EventKind = 2
	EventCustodyTransferred EventKind = 3
	EventServiceRecorded    EventKind = 4
)

func (k EventKind) String() string {
	switch k {
	case EventMinted:
		return "minted"
	case EventStatusChanged:
		return "status_changed"
	case EventCustodyTransferred:
		return "custody_transferred"
	case EventServiceRecorded:
		return "service_recorded"
	}
	return "unknown"
}

type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DB           *database.Database
	// EngineIdentity is the only caller Apply accepts. Asset state
	// changes happen through governance or not at all.
	EngineIdentity string
}

type AssetRegistry struct {
	config  Config
	metrics struct {
		appliesTotal *prometheus.CounterVec
		assetsTotal  prometheus.Gauge
	}
	logger *slog.Logger
	db     *database.Database
}

// New creates an asset registry backed by the given database
func New(config Config) (*AssetRegistry, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("asset registry requires a database")
	}
	if config.EngineIdentity == "" {
		return nil, fmt.Errorf("asset registry requires an engine identity")
	}
	a := &AssetRegistry{
		config: config,
		db:     config.DB,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		a.logger = config.Logger.With("component", "assets")
	}
	a.initMetrics()
	count, err := a.db.CountAssets(nil)
	if err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}
	a.metrics.assetsTotal.Set(float64(count))
	return a, nil
}

func (a *AssetRegistry) initMetrics() {
	promautoFactory := promauto.With(a.config.PromRegistry)
	a.metrics.appliesTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_assets_applies_total",
			Help: "asset registry calls applied by operation",
		},
		[]string{"op"},
	)
	a.metrics.assetsTotal = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "gavel_assets_total",
			Help: "number of assets in the registry",
		},
	)
}

// AssetByID returns an asset by its registry ID
func (a *AssetRegistry) AssetByID(id uint64) (*models.Asset, error) {
	return a.db.GetAsset(id, nil)
}

// AssetBySerial returns an asset by its serial number
func (a *AssetRegistry) AssetBySerial(
	serial string,
) (*models.Asset, error) {
	return a.db.GetAssetBySerial(serial, nil)
}

// Assets returns a page of assets ordered by ID
func (a *AssetRegistry) Assets(
	limit int,
	offset int,
	order string,
) ([]models.Asset, error) {
	return a.db.GetAssets(limit, offset, order, nil)
}

// Count returns the total number of assets
func (a *AssetRegistry) Count() (int64, error) {
	return a.db.CountAssets(nil)
}

// History returns an asset's history log, oldest first. An unknown
// asset returns models.ErrAssetNotFound rather than an empty history.
func (a *AssetRegistry) History(
	assetID uint64,
) ([]models.AssetEvent, error) {
	if _, err := a.db.GetAsset(assetID, nil); err != nil {
		return nil, err
	}
	return a.db.GetAssetEvents(assetID, nil)
}
