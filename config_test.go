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

package gavel

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gavel-io/gavel/governance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger, "default logger should be set")
	assert.Empty(t, cfg.dataDir)
	assert.Empty(t, cfg.apiListenAddress)
	assert.Empty(t, cfg.engineIdentity)
	assert.Empty(t, cfg.bootstrapAdmin)
	assert.Zero(t, cfg.votingSeats)
	assert.Zero(t, cfg.criticalThreshold)
	assert.Zero(t, cfg.routineThreshold)
	assert.False(t, cfg.tracing)
	assert.Zero(t, cfg.shutdownTimeout)
}

func TestNewConfigOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	promRegistry := prometheus.NewRegistry()
	cfg := NewConfig(
		WithApiListenAddress("127.0.0.1:4801"),
		WithBlobPlugin("badger"),
		WithBootstrapAdmin("root-admin"),
		WithCriticalThreshold(3),
		WithDatabasePath("/tmp/gavel-test"),
		WithEngineIdentity("custom-engine"),
		WithLogger(logger),
		WithMetadataPlugin("sqlite"),
		WithPrometheusRegistry(promRegistry),
		WithRoutineThreshold(2),
		WithShutdownTimeout(5*time.Second),
		WithTracing(true),
		WithTracingStdout(true),
		WithVotingSeats(5),
	)
	assert.Equal(t, "127.0.0.1:4801", cfg.apiListenAddress)
	assert.Equal(t, "badger", cfg.blobPlugin)
	assert.Equal(t, "root-admin", cfg.bootstrapAdmin)
	assert.Equal(t, uint32(3), cfg.criticalThreshold)
	assert.Equal(t, "/tmp/gavel-test", cfg.dataDir)
	assert.Equal(t, "custom-engine", cfg.engineIdentity)
	assert.Equal(t, logger, cfg.logger)
	assert.Equal(t, "sqlite", cfg.metadataPlugin)
	assert.Equal(t, prometheus.Registerer(promRegistry), cfg.promRegistry)
	assert.Equal(t, uint32(2), cfg.routineThreshold)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, uint32(5), cfg.votingSeats)
}

func TestNewValidatesThresholds(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOptionFunc
		wantErr string
	}{
		{
			name: "critical above seats",
			opts: []ConfigOptionFunc{
				WithVotingSeats(2),
				WithCriticalThreshold(3),
			},
			wantErr: "critical threshold 3 exceeds voting seats 2",
		},
		{
			name: "routine above seats",
			opts: []ConfigOptionFunc{
				WithVotingSeats(2),
				WithCriticalThreshold(2),
				WithRoutineThreshold(3),
			},
			wantErr: "routine threshold 3 exceeds voting seats 2",
		},
		{
			// A single seat needs explicit thresholds because the
			// default critical threshold is two
			name: "single seat with default thresholds",
			opts: []ConfigOptionFunc{
				WithVotingSeats(1),
			},
			wantErr: "critical threshold 2 exceeds voting seats 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(NewConfig(tt.opts...))
			require.Error(t, err)
			assert.Nil(t, g)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewValidConfigurations(t *testing.T) {
	tests := []struct {
		name string
		opts []ConfigOptionFunc
	}{
		{
			name: "defaults",
			opts: nil,
		},
		{
			name: "single seat with explicit thresholds",
			opts: []ConfigOptionFunc{
				WithVotingSeats(1),
				WithCriticalThreshold(1),
				WithRoutineThreshold(1),
			},
		},
		{
			name: "wide voting body",
			opts: []ConfigOptionFunc{
				WithVotingSeats(9),
				WithCriticalThreshold(6),
				WithRoutineThreshold(3),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(NewConfig(tt.opts...))
			require.NoError(t, err)
			require.NotNil(t, g)
			assert.NoError(t, g.Stop())
		})
	}
}

func TestNewPopulatesEngineIdentity(t *testing.T) {
	g, err := New(NewConfig())
	require.NoError(t, err)
	assert.Equal(
		t,
		governance.DefaultEngineIdentity,
		g.config.engineIdentity,
	)
	assert.NoError(t, g.Stop())

	g, err = New(NewConfig(WithEngineIdentity("bespoke-engine")))
	require.NoError(t, err)
	assert.Equal(t, "bespoke-engine", g.config.engineIdentity)
	assert.NoError(t, g.Stop())
}
