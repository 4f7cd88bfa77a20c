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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gavel-io/gavel/governance"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	dataDir           string
	blobPlugin        string
	metadataPlugin    string
	apiListenAddress  string
	engineIdentity    string
	bootstrapAdmin    string
	votingSeats       uint32
	criticalThreshold uint32
	routineThreshold  uint32
	tracing           bool
	tracingStdout     bool
	shutdownTimeout   time.Duration
}

// configPopulateEngineIdentity applies the default engine identity when none
// is specified. The authority and asset registry need the value before the
// engine itself is constructed, so it cannot be left for the engine to default
func (g *Gavel) configPopulateEngineIdentity() {
	if g.config.engineIdentity == "" {
		g.config.engineIdentity = governance.DefaultEngineIdentity
	}
}

func (g *Gavel) configValidate() error {
	// Mirror the engine's own defaulting so threshold problems surface
	// here rather than halfway through startup
	seats := g.config.votingSeats
	if seats == 0 {
		seats = governance.DefaultVotingSeats
	}
	critical := g.config.criticalThreshold
	if critical == 0 {
		critical = governance.DefaultCriticalThreshold
	}
	routine := g.config.routineThreshold
	if routine == 0 {
		routine = governance.DefaultRoutineThreshold
	}
	if critical > seats {
		return fmt.Errorf(
			"critical threshold %d exceeds voting seats %d",
			critical,
			seats,
		)
	}
	if routine > seats {
		return fmt.Errorf(
			"routine threshold %d exceeds voting seats %d",
			routine,
			seats,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the service config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new gavel config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithApiListenAddress specifies the listen address for the REST API server. This defaults to :4800
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithBootstrapAdmin specifies the identity seeded with the admin role when the
// role table is empty at startup. The default is to seed nothing, which leaves a
// fresh deployment without a usable granter
func WithBootstrapAdmin(identity string) ConfigOptionFunc {
	return func(c *Config) {
		c.bootstrapAdmin = identity
	}
}

// WithCriticalThreshold specifies the number of votes required to execute a
// critical proposal. This defaults to 2
func WithCriticalThreshold(threshold uint32) ConfigOptionFunc {
	return func(c *Config) {
		c.criticalThreshold = threshold
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithEngineIdentity specifies the caller name the governance engine presents
// to collaborators during execution. This defaults to "governance-engine"
func WithEngineIdentity(identity string) ConfigOptionFunc {
	return func(c *Config) {
		c.engineIdentity = identity
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithRoutineThreshold specifies the number of votes required to execute a
// routine proposal. This defaults to 1
func WithRoutineThreshold(threshold uint32) ConfigOptionFunc {
	return func(c *Config) {
		c.routineThreshold = threshold
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithVotingSeats specifies the size of the voting body used to bound vote
// counting. This defaults to 3
func WithVotingSeats(seats uint32) ConfigOptionFunc {
	return func(c *Config) {
		c.votingSeats = seats
	}
}
