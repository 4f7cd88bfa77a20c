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

// Package authority implements the permission authority: delegated
// capability grants held by identities outside the role hierarchy.
// Grants change only through approved governance calls; the queries
// here are consumed by the governance engine and the API layer. A
// compromised identity keeps its grant rows but none of them count.
package authority

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CollaboratorName is the target name proposals use to address the
// authority
const CollaboratorName = "authority"

// CompromiseChecker reports whether an identity is under an active
// compromise record. The participant registry satisfies this.
type CompromiseChecker interface {
	IsCompromised(identity string) (bool, error)
}

type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DB           *database.Database
	Compromise   CompromiseChecker
	// EngineIdentity is the only caller Apply accepts. Capability
	// changes happen through governance or not at all.
	EngineIdentity string
}

type Authority struct {
	config  Config
	metrics struct {
		grantsTotal  *prometheus.CounterVec
		revokesTotal *prometheus.CounterVec
		checksTotal  *prometheus.CounterVec
	}
	logger     *slog.Logger
	db         *database.Database
	compromise CompromiseChecker
}

// New creates a permission authority backed by the given database
func New(config Config) (*Authority, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("authority requires a database")
	}
	if config.Compromise == nil {
		return nil, fmt.Errorf("authority requires a compromise checker")
	}
	if config.EngineIdentity == "" {
		return nil, fmt.Errorf("authority requires an engine identity")
	}
	a := &Authority{
		config:     config,
		db:         config.DB,
		compromise: config.Compromise,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		a.logger = config.Logger.With("component", "authority")
	}
	a.initMetrics()
	return a, nil
}

func (a *Authority) initMetrics() {
	promautoFactory := promauto.With(a.config.PromRegistry)
	a.metrics.grantsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_authority_capability_grants_total",
			Help: "total capability grants applied by capability kind",
		},
		[]string{"capability"},
	)
	a.metrics.revokesTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_authority_capability_revocations_total",
			Help: "total capability revocations applied by capability kind",
		},
		[]string{"capability"},
	)
	a.metrics.checksTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_authority_capability_checks_total",
			Help: "capability checks by capability kind and outcome",
		},
		[]string{"capability", "outcome"},
	)
}

func (a *Authority) recordCheck(capability string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	a.metrics.checksTotal.WithLabelValues(capability, outcome).Inc()
}

// HasSubmitCapability reports whether an identity holds a live submit
// grant scoped to the given subject. Revoked and expired grants do not
// count, and a compromised identity has no live grants at all.
func (a *Authority) HasSubmitCapability(
	identity string,
	subjectID uint64,
) (bool, error) {
	compromised, err := a.compromise.IsCompromised(identity)
	if err != nil {
		return false, err
	}
	if compromised {
		a.recordCheck("submit", false)
		return false, nil
	}
	grants, err := a.db.GetActiveCapabilityGrants(identity, time.Now(), nil)
	if err != nil {
		return false, err
	}
	for _, grant := range grants {
		if authz.Capability(grant.Capability) != authz.CapabilitySubmit {
			continue
		}
		if grant.SubjectID != nil && *grant.SubjectID == subjectID {
			a.recordCheck("submit", true)
			return true, nil
		}
	}
	a.recordCheck("submit", false)
	return false, nil
}

// HasReadOrVerifyCapability reports whether an identity holds any live
// read or verify grant. These grants are identity-wide rather than
// subject-scoped.
func (a *Authority) HasReadOrVerifyCapability(
	identity string,
) (bool, error) {
	compromised, err := a.compromise.IsCompromised(identity)
	if err != nil {
		return false, err
	}
	if compromised {
		a.recordCheck("read_or_verify", false)
		return false, nil
	}
	grants, err := a.db.GetActiveCapabilityGrants(identity, time.Now(), nil)
	if err != nil {
		return false, err
	}
	for _, grant := range grants {
		switch authz.Capability(grant.Capability) {
		case authz.CapabilityRead, authz.CapabilityVerify:
			a.recordCheck("read_or_verify", true)
			return true, nil
		}
	}
	a.recordCheck("read_or_verify", false)
	return false, nil
}

// GrantsFor returns every grant ever issued to an identity, including
// revoked and expired rows, for audit listings
func (a *Authority) GrantsFor(
	identity string,
) ([]models.CapabilityGrant, error) {
	return a.db.GetCapabilityGrants(identity, nil)
}
