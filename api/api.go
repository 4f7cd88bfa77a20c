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

// Package api implements the REST surface over the governance engine,
// participant registry, permission authority, and asset registry.
// Authentication terminates at a fronting proxy; the acting identity
// arrives in the X-Gavel-Actor header.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// ActorHeader carries the authenticated identity set by the fronting
// proxy
const ActorHeader = "X-Gavel-Actor"

type Config struct {
	Logger        *slog.Logger
	ListenAddress string
	Engine        Engine
	Registry      Registry
	Authority     Authority
	Assets        AssetDirectory
}

// API is the REST API server
type API struct {
	config     Config
	logger     *slog.Logger
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance
func New(config Config) *API {
	a := &API{
		config: config,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		a.logger = config.Logger.With("component", "api")
	}
	if a.config.ListenAddress == "" {
		a.config.ListenAddress = ":4800"
	}
	return a
}

// Start starts the HTTP server in a background goroutine. The listening
// socket is bound before Start returns, so port conflicts surface
// immediately.
func (a *API) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /v1/proposals", a.handlePropose)
	mux.HandleFunc("GET /v1/proposals", a.handleListProposals)
	mux.HandleFunc("GET /v1/proposals/{id}", a.handleProposal)
	mux.HandleFunc("GET /v1/proposals/{id}/status", a.handleProposalStatus)
	mux.HandleFunc("GET /v1/proposals/{id}/votes", a.handleProposalVotes)
	mux.HandleFunc("POST /v1/proposals/{id}/votes", a.handleCastVote)
	mux.HandleFunc("POST /v1/registry/roles", a.handleGrantRole)
	mux.HandleFunc("POST /v1/registry/roles/revoke", a.handleRevokeRole)
	mux.HandleFunc(
		"GET /v1/registry/participants/{identity}",
		a.handleParticipant,
	)
	mux.HandleFunc("POST /v1/registry/compromises", a.handleMarkCompromised)
	mux.HandleFunc(
		"POST /v1/registry/participants/{identity}/restore",
		a.handleRestore,
	)
	mux.HandleFunc(
		"GET /v1/registry/participants/{identity}/compromises",
		a.handleCompromiseHistory,
	)
	mux.HandleFunc(
		"GET /v1/authority/capabilities/{identity}",
		a.handleCapabilities,
	)
	mux.HandleFunc("GET /v1/assets", a.handleAssets)
	mux.HandleFunc("GET /v1/assets/{id}", a.handleAsset)
	mux.HandleFunc("GET /v1/assets/{id}/history", a.handleAssetHistory)

	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			a.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket, then serves in a background
// goroutine
func (a *API) startServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}
