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

// Package registry implements the participant registry: role
// assignments along the fixed grant hierarchy and compromise records
// with a preserved audit history. All state-changing operations run
// single-writer under the registry mutex and persist through a
// database transaction, so a failed check never leaves partial state.
package registry

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BootstrapGrantedBy is recorded as the granter of the seeded
// bootstrap admin role
const BootstrapGrantedBy = "genesis"

// grantableRoles lists every role in the hierarchy, used for gauge
// seeding and input validation
var grantableRoles = []authz.Role{
	authz.RoleRepairAgent,
	authz.RoleManufacturer,
	authz.RoleGovernance,
	authz.RoleAdmin,
}

type Config struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	DB           *database.Database
	// BootstrapAdmin is seeded with the Admin role when the role table
	// is empty at startup. Without a first admin no grant could ever
	// succeed.
	BootstrapAdmin string
}

type Registry struct {
	config  Config
	metrics struct {
		grantsTotal   *prometheus.CounterVec
		revokesTotal  *prometheus.CounterVec
		marksTotal    prometheus.Counter
		restoresTotal prometheus.Counter
		roleHolders   *prometheus.GaugeVec
	}
	logger   *slog.Logger
	eventBus *event.EventBus
	db       *database.Database
	sync.RWMutex
}

// New creates a participant registry backed by the given database
func New(config Config) (*Registry, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("registry requires a database")
	}
	r := &Registry{
		config:   config,
		eventBus: config.EventBus,
		db:       config.DB,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger.With("component", "registry")
	}
	r.initMetrics()
	if err := r.syncRoleHolderGauges(); err != nil {
		return nil, fmt.Errorf("seeding role holder gauges: %w", err)
	}
	return r, nil
}

func (r *Registry) initMetrics() {
	promautoFactory := promauto.With(r.config.PromRegistry)
	r.metrics.grantsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_registry_role_grants_total",
			Help: "total role grants by role",
		},
		[]string{"role"},
	)
	r.metrics.revokesTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_registry_role_revocations_total",
			Help: "total role revocations by role",
		},
		[]string{"role"},
	)
	r.metrics.marksTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_registry_compromise_marks_total",
			Help: "total identities marked compromised",
		},
	)
	r.metrics.restoresTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_registry_compromise_restores_total",
			Help: "total compromised identities restored",
		},
	)
	r.metrics.roleHolders = promautoFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gavel_registry_role_holders",
			Help: "current number of identities holding each role",
		},
		[]string{"role"},
	)
}

// syncRoleHolderGauges seeds the per-role holder gauges from the
// current table contents
func (r *Registry) syncRoleHolderGauges() error {
	for _, role := range grantableRoles {
		assignments, err := r.db.GetRoleAssignmentsByRole(uint8(role), nil)
		if err != nil {
			return err
		}
		r.metrics.roleHolders.WithLabelValues(role.String()).
			Set(float64(len(assignments)))
	}
	return nil
}

// Bootstrap seeds the configured bootstrap admin when the role table
// is empty. It runs once at startup before any other mutation.
func (r *Registry) Bootstrap() error {
	r.Lock()
	defer r.Unlock()
	count, err := r.db.CountRoleAssignments(nil)
	if err != nil {
		return fmt.Errorf("counting role assignments: %w", err)
	}
	if count > 0 {
		return nil
	}
	if r.config.BootstrapAdmin == "" {
		r.logger.Warn(
			"role table is empty and no bootstrap admin is configured",
		)
		return nil
	}
	now := time.Now()
	if err := r.db.SetRoleAssignment(
		&models.RoleAssignment{
			Identity:  r.config.BootstrapAdmin,
			Role:      uint8(authz.RoleAdmin),
			GrantedBy: BootstrapGrantedBy,
			GrantedAt: now,
		},
		nil,
	); err != nil {
		return fmt.Errorf("seeding bootstrap admin: %w", err)
	}
	r.logger.Info(
		"seeded bootstrap admin",
		"identity", r.config.BootstrapAdmin,
	)
	r.metrics.grantsTotal.WithLabelValues(authz.RoleAdmin.String()).Inc()
	r.metrics.roleHolders.WithLabelValues(authz.RoleAdmin.String()).Inc()
	r.publish(RoleGrantedEventType, RoleGrantedEvent{
		Identity:  r.config.BootstrapAdmin,
		Role:      authz.RoleAdmin,
		GrantedBy: BootstrapGrantedBy,
		Timestamp: now,
	})
	return nil
}

func (r *Registry) publish(eventType event.EventType, data any) {
	if r.eventBus == nil {
		return
	}
	r.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}

// rolesOfTxn returns the roles held by an identity within the given
// transaction
func (r *Registry) rolesOfTxn(
	identity string,
	txn *database.Txn,
) ([]authz.Role, error) {
	assignments, err := r.db.GetRoleAssignments(identity, txn)
	if err != nil {
		return nil, err
	}
	roles := make([]authz.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, authz.Role(a.Role))
	}
	return roles, nil
}

// isCompromisedTxn reports whether an identity has an active
// compromise record within the given transaction
func (r *Registry) isCompromisedTxn(
	identity string,
	txn *database.Txn,
) (bool, error) {
	record, err := r.db.GetActiveCompromise(identity, txn)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

func validRole(role authz.Role) bool {
	return role >= authz.RoleRepairAgent && role <= authz.RoleAdmin
}

// GrantRole adds a role to an identity's set. The caller must hold the
// role's administering tier (or Admin) and must not be compromised.
// Granting a role the identity already holds is a no-op.
func (r *Registry) GrantRole(
	caller string,
	role authz.Role,
	identity string,
) error {
	if caller == "" || identity == "" {
		return authz.ValidationError{Reason: "identity cannot be blank"}
	}
	if !validRole(role) {
		return authz.ValidationError{
			Reason: fmt.Sprintf("unknown role: %d", role),
		}
	}
	r.Lock()
	defer r.Unlock()
	granted := false
	now := time.Now()
	txn := r.db.MetadataTxn(true)
	err := txn.Do(func(txn *database.Txn) error {
		compromised, err := r.isCompromisedTxn(caller, txn)
		if err != nil {
			return err
		}
		if compromised {
			return authz.ComplianceError{Identity: caller}
		}
		callerRoles, err := r.rolesOfTxn(caller, txn)
		if err != nil {
			return err
		}
		if !authz.CanGrant(callerRoles, role) {
			return authz.AuthorizationError{
				Identity: caller,
				Reason: fmt.Sprintf(
					"cannot administer role %s",
					role,
				),
			}
		}
		existing, err := r.db.GetRoleAssignment(identity, uint8(role), txn)
		if err != nil {
			return err
		}
		if existing != nil {
			// Already held, nothing to do
			return nil
		}
		granted = true
		return r.db.SetRoleAssignment(
			&models.RoleAssignment{
				Identity:  identity,
				Role:      uint8(role),
				GrantedBy: caller,
				GrantedAt: now,
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	if granted {
		r.logger.Info(
			"role granted",
			"identity", identity,
			"role", role.String(),
			"granted_by", caller,
		)
		r.metrics.grantsTotal.WithLabelValues(role.String()).Inc()
		r.metrics.roleHolders.WithLabelValues(role.String()).Inc()
		r.publish(RoleGrantedEventType, RoleGrantedEvent{
			Identity:  identity,
			Role:      role,
			GrantedBy: caller,
			Timestamp: now,
		})
	}
	return nil
}

// RevokeRole removes a role from an identity's set under the same
// authorization rule as GrantRole. Revoking a role the identity does
// not hold is a no-op.
func (r *Registry) RevokeRole(
	caller string,
	role authz.Role,
	identity string,
) error {
	if caller == "" || identity == "" {
		return authz.ValidationError{Reason: "identity cannot be blank"}
	}
	if !validRole(role) {
		return authz.ValidationError{
			Reason: fmt.Sprintf("unknown role: %d", role),
		}
	}
	r.Lock()
	defer r.Unlock()
	revoked := false
	now := time.Now()
	txn := r.db.MetadataTxn(true)
	err := txn.Do(func(txn *database.Txn) error {
		compromised, err := r.isCompromisedTxn(caller, txn)
		if err != nil {
			return err
		}
		if compromised {
			return authz.ComplianceError{Identity: caller}
		}
		callerRoles, err := r.rolesOfTxn(caller, txn)
		if err != nil {
			return err
		}
		if !authz.CanGrant(callerRoles, role) {
			return authz.AuthorizationError{
				Identity: caller,
				Reason: fmt.Sprintf(
					"cannot administer role %s",
					role,
				),
			}
		}
		existing, err := r.db.GetRoleAssignment(identity, uint8(role), txn)
		if err != nil {
			return err
		}
		if existing == nil {
			// Not held, nothing to do
			return nil
		}
		revoked = true
		return r.db.DeleteRoleAssignment(identity, uint8(role), txn)
	})
	if err != nil {
		return err
	}
	if revoked {
		r.logger.Info(
			"role revoked",
			"identity", identity,
			"role", role.String(),
			"revoked_by", caller,
		)
		r.metrics.revokesTotal.WithLabelValues(role.String()).Inc()
		r.metrics.roleHolders.WithLabelValues(role.String()).Dec()
		r.publish(RoleRevokedEventType, RoleRevokedEvent{
			Identity:  identity,
			Role:      role,
			RevokedBy: caller,
			Timestamp: now,
		})
	}
	return nil
}

// MarkCompromised creates an active compromise record for the target.
// The reporter's required tier depends on the target's highest role,
// and a reporter under an active mark cannot report others.
func (r *Registry) MarkCompromised(
	target string,
	reporter string,
	reason string,
) error {
	if target == "" || reporter == "" {
		return authz.ValidationError{Reason: "identity cannot be blank"}
	}
	if reason == "" {
		return authz.ValidationError{Reason: "reason cannot be blank"}
	}
	r.Lock()
	defer r.Unlock()
	now := time.Now()
	txn := r.db.MetadataTxn(true)
	err := txn.Do(func(txn *database.Txn) error {
		compromised, err := r.isCompromisedTxn(reporter, txn)
		if err != nil {
			return err
		}
		if compromised {
			return authz.ComplianceError{Identity: reporter}
		}
		reporterRoles, err := r.rolesOfTxn(reporter, txn)
		if err != nil {
			return err
		}
		targetRoles, err := r.rolesOfTxn(target, txn)
		if err != nil {
			return err
		}
		if !authz.CanMarkCompromised(
			authz.Highest(reporterRoles),
			authz.Highest(targetRoles),
		) {
			return authz.AuthorizationError{
				Identity: reporter,
				Reason: fmt.Sprintf(
					"cannot mark %s holder compromised",
					authz.Highest(targetRoles),
				),
			}
		}
		active, err := r.isCompromisedTxn(target, txn)
		if err != nil {
			return err
		}
		if active {
			return authz.StateError{
				Reason: "identity is already marked compromised",
			}
		}
		return r.db.SetCompromiseRecord(
			&models.CompromiseRecord{
				Identity:   target,
				Reporter:   reporter,
				Reason:     reason,
				Active:     true,
				ReportedAt: now,
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	r.logger.Info(
		"identity marked compromised",
		"identity", target,
		"reporter", reporter,
		"reason", reason,
	)
	r.metrics.marksTotal.Inc()
	r.publish(CompromiseMarkedEventType, CompromiseMarkedEvent{
		Identity:  target,
		Reporter:  reporter,
		Reason:    reason,
		Timestamp: now,
	})
	return nil
}

// Restore deactivates an identity's active compromise record. Only an
// Admin may restore, and the record's reporter, reason, and report
// time are preserved for audit. Role memberships are untouched.
func (r *Registry) Restore(caller string, identity string) error {
	if caller == "" || identity == "" {
		return authz.ValidationError{Reason: "identity cannot be blank"}
	}
	r.Lock()
	defer r.Unlock()
	now := time.Now()
	txn := r.db.MetadataTxn(true)
	err := txn.Do(func(txn *database.Txn) error {
		compromised, err := r.isCompromisedTxn(caller, txn)
		if err != nil {
			return err
		}
		if compromised {
			return authz.ComplianceError{Identity: caller}
		}
		callerRoles, err := r.rolesOfTxn(caller, txn)
		if err != nil {
			return err
		}
		if !authz.AtLeast(callerRoles, authz.RoleAdmin) {
			return authz.AuthorizationError{
				Identity: caller,
				Reason:   "restore requires the admin role",
			}
		}
		record, err := r.db.GetActiveCompromise(identity, txn)
		if err != nil {
			return err
		}
		if record == nil {
			return authz.StateError{
				Reason: "identity is not marked compromised",
			}
		}
		record.Active = false
		record.RestoredAt = &now
		record.RestoredBy = caller
		return r.db.SetCompromiseRecord(record, txn)
	})
	if err != nil {
		return err
	}
	r.logger.Info(
		"identity restored",
		"identity", identity,
		"restored_by", caller,
	)
	r.metrics.restoresTotal.Inc()
	r.publish(CompromiseRestoredEventType, CompromiseRestoredEvent{
		Identity:   identity,
		RestoredBy: caller,
		Timestamp:  now,
	})
	return nil
}

// HasRole reports whether an identity holds the given role
func (r *Registry) HasRole(
	identity string,
	role authz.Role,
) (bool, error) {
	r.RLock()
	defer r.RUnlock()
	assignment, err := r.db.GetRoleAssignment(identity, uint8(role), nil)
	if err != nil {
		return false, err
	}
	return assignment != nil, nil
}

// RolesOf returns all roles held by an identity, lowest tier first
func (r *Registry) RolesOf(identity string) ([]authz.Role, error) {
	r.RLock()
	defer r.RUnlock()
	return r.rolesOfTxn(identity, nil)
}

// HighestRole returns the highest-ranked role held by an identity, or
// RoleNone when it holds none
func (r *Registry) HighestRole(identity string) (authz.Role, error) {
	roles, err := r.RolesOf(identity)
	if err != nil {
		return authz.RoleNone, err
	}
	return authz.Highest(roles), nil
}

// HasRoleAtLeast reports whether any role held by the identity meets
// or outranks the required tier
func (r *Registry) HasRoleAtLeast(
	identity string,
	required authz.Role,
) (bool, error) {
	roles, err := r.RolesOf(identity)
	if err != nil {
		return false, err
	}
	return authz.AtLeast(roles, required), nil
}

// IsCompromised reports whether an identity has an active compromise
// record
func (r *Registry) IsCompromised(identity string) (bool, error) {
	r.RLock()
	defer r.RUnlock()
	return r.isCompromisedTxn(identity, nil)
}

// CompromiseHistory returns every compromise record for an identity,
// including restored ones, oldest first
func (r *Registry) CompromiseHistory(
	identity string,
) ([]models.CompromiseRecord, error) {
	r.RLock()
	defer r.RUnlock()
	return r.db.GetCompromiseRecords(identity, nil)
}
