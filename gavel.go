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

// Package gavel assembles the asset governance service: the participant
// registry, permission authority, asset registry, and governance engine
// over a shared database, fronted by the REST API.
package gavel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gavel-io/gavel/api"
	"github.com/gavel-io/gavel/assets"
	"github.com/gavel-io/gavel/authority"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/event"
	"github.com/gavel-io/gavel/governance"
	"github.com/gavel-io/gavel/registry"
)

type Gavel struct {
	eventBus      *event.EventBus
	db            *database.Database
	registry      *registry.Registry
	authority     *authority.Authority
	assets        *assets.AssetRegistry
	engine        *governance.GovernanceEngine
	api           *api.API
	apiCancel     context.CancelFunc
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Gavel, error) {
	g := &Gavel{
		config: cfg,
		done:   make(chan struct{}),
	}
	g.configPopulateEngineIdentity()
	if err := g.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	g.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	return g, nil
}

func (g *Gavel) Run() error {
	// Configure tracing
	if g.config.tracing {
		if err := g.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		DataDir:        g.config.dataDir,
		Logger:         g.config.logger,
		PromRegistry:   g.config.promRegistry,
		BlobPlugin:     g.config.blobPlugin,
		MetadataPlugin: g.config.metadataPlugin,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		g.config.logger.Error(
			"failed to create database",
			"error",
			"empty database returned",
		)
		return errors.New("empty database returned")
	}
	g.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		g.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		// A timestamp skew means the blob store committed ahead of the
		// metadata store. Orphan payloads are unreachable without a call
		// row, so the stores can be realigned once every recorded call
		// still has its payload bytes.
		if err := g.db.RecoverCommitTimestampConflict(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Load participant registry
	reg, err := registry.New(registry.Config{
		Logger:         g.config.logger,
		EventBus:       g.eventBus,
		PromRegistry:   g.config.promRegistry,
		DB:             g.db,
		BootstrapAdmin: g.config.bootstrapAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to load participant registry: %w", err)
	}
	g.registry = reg
	if err := g.registry.Bootstrap(); err != nil {
		return fmt.Errorf("failed to bootstrap participant registry: %w", err)
	}
	// Load permission authority
	auth, err := authority.New(authority.Config{
		Logger:         g.config.logger,
		PromRegistry:   g.config.promRegistry,
		DB:             g.db,
		Compromise:     g.registry,
		EngineIdentity: g.config.engineIdentity,
	})
	if err != nil {
		return fmt.Errorf("failed to load permission authority: %w", err)
	}
	g.authority = auth
	// Load asset registry
	assetRegistry, err := assets.New(assets.Config{
		Logger:         g.config.logger,
		PromRegistry:   g.config.promRegistry,
		DB:             g.db,
		EngineIdentity: g.config.engineIdentity,
	})
	if err != nil {
		return fmt.Errorf("failed to load asset registry: %w", err)
	}
	g.assets = assetRegistry
	// Load governance engine
	engine, err := governance.New(governance.Config{
		Logger:       g.config.logger,
		EventBus:     g.eventBus,
		PromRegistry: g.config.promRegistry,
		DB:           g.db,
		Participants: g.registry,
		Delegations:  g.authority,
		Collaborators: []governance.Collaborator{
			g.authority,
			g.assets,
		},
		Identity:          g.config.engineIdentity,
		VotingSeats:       g.config.votingSeats,
		CriticalThreshold: g.config.criticalThreshold,
		RoutineThreshold:  g.config.routineThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to load governance engine: %w", err)
	}
	g.engine = engine
	// Start API listener
	g.api = api.New(api.Config{
		Logger:        g.config.logger,
		ListenAddress: g.config.apiListenAddress,
		Engine:        g.engine,
		Registry:      g.registry,
		Authority:     g.authority,
		Assets:        g.assets,
	})
	apiCtx, apiCancel := context.WithCancel(context.Background())
	g.apiCancel = apiCancel
	if err := g.api.Start(apiCtx); err != nil {
		apiCancel()
		return fmt.Errorf("failed to start API server: %w", err)
	}

	// Wait for shutdown signal
	<-g.done
	return nil
}

func (g *Gavel) Stop() error {
	var err error
	g.shutdownOnce.Do(func() {
		err = g.shutdown()
	})
	return err
}

func (g *Gavel) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if g.config.shutdownTimeout > 0 {
		shutdownTimeout = g.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	g.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	g.config.logger.Debug("shutdown phase 1: stopping new work")

	if g.api != nil {
		if stopErr := g.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if g.apiCancel != nil {
		g.apiCancel()
	}

	// Phase 2: Flush state and close database
	g.config.logger.Debug("shutdown phase 2: flushing state")

	if g.db != nil {
		if closeErr := g.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Phase 3: Cleanup resources
	g.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range g.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	g.shutdownFuncs = nil

	if g.eventBus != nil {
		g.eventBus.Stop()
	}

	g.config.logger.Debug("graceful shutdown complete")
	close(g.done)
	return err
}
