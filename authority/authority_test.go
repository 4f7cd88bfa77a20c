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

package authority

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/codec"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/governance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEngineIdentity = "engine-test"

// stubCompromiseChecker marks identities compromised from a fixed map
type stubCompromiseChecker struct {
	compromised map[string]bool
}

func (s *stubCompromiseChecker) IsCompromised(
	identity string,
) (bool, error) {
	return s.compromised[identity], nil
}

func newTestAuthority(
	t *testing.T,
) (*Authority, *database.Database, *stubCompromiseChecker) {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: ""})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	checker := &stubCompromiseChecker{compromised: map[string]bool{}}
	a, err := New(Config{
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PromRegistry:   prometheus.NewRegistry(),
		DB:             db,
		Compromise:     checker,
		EngineIdentity: testEngineIdentity,
	})
	require.NoError(t, err)
	return a, db, checker
}

// applyEnvelope runs a single authority call inside its own transaction
// the way the engine does during execution
func applyEnvelope(
	t *testing.T,
	a *Authority,
	db *database.Database,
	caller string,
	op string,
	body any,
) error {
	t.Helper()
	payload, err := codec.EncodeEnvelope(op, body)
	require.NoError(t, err)
	txn := db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		return a.Apply(txn, caller, governance.Call{
			Target:     CollaboratorName,
			Payload:    payload,
			ProposalID: 1,
		})
	})
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func TestApplyRequiresEngineCaller(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	err := applyEnvelope(t, a, db, "auth-intruder", OpGrantCapability,
		GrantCapabilityPayload{
			Identity:   "auth-holder",
			SubjectID:  uint64Ptr(7),
			Capability: "submit",
		})
	var authErr authz.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "auth-intruder", authErr.Identity)

	// The rejected call must leave no grant behind
	grants, err := a.GrantsFor("auth-holder")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestGrantAndCheckSubmitCapability(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "sub-holder",
				SubjectID:  uint64Ptr(7),
				Capability: "submit",
			}),
	)

	ok, err := a.HasSubmitCapability("sub-holder", 7)
	require.NoError(t, err)
	assert.True(t, ok)

	// Submit grants are scoped to their subject
	ok, err = a.HasSubmitCapability("sub-holder", 8)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.HasSubmitCapability("sub-other", 7)
	require.NoError(t, err)
	assert.False(t, ok)

	// Submit grants never satisfy read or verify checks
	ok, err = a.HasReadOrVerifyCapability("sub-holder")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantTTLSetsExpiry(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "ttl-holder",
				SubjectID:  uint64Ptr(3),
				Capability: "submit",
				TTLSeconds: 3600,
			}),
	)

	grants, err := a.GrantsFor("ttl-holder")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.NotNil(t, grants[0].ExpiresAt)
	assert.WithinDuration(
		t,
		time.Now().Add(time.Hour),
		*grants[0].ExpiresAt,
		time.Minute,
	)

	ok, err := a.HasSubmitCapability("ttl-holder", 3)
	require.NoError(t, err)
	assert.True(t, ok, "grant should be live before its expiry")
}

func TestExpiredGrantDoesNotCount(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, db.SetCapabilityGrant(&models.CapabilityGrant{
		Identity:   "exp-holder",
		SubjectID:  uint64Ptr(5),
		Capability: uint8(authz.CapabilitySubmit),
		GrantedBy:  testEngineIdentity,
		GrantedAt:  expired.Add(-time.Hour),
		ExpiresAt:  &expired,
	}, nil))

	ok, err := a.HasSubmitCapability("exp-holder", 5)
	require.NoError(t, err)
	assert.False(t, ok, "expired grant should not count")

	// The expired row still shows in the audit listing
	grants, err := a.GrantsFor("exp-holder")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestRevokeCapability(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "rev-holder",
				SubjectID:  uint64Ptr(9),
				Capability: "submit",
			}),
	)
	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpRevokeCapability,
			RevokeCapabilityPayload{
				Identity:   "rev-holder",
				SubjectID:  uint64Ptr(9),
				Capability: "submit",
			}),
	)

	ok, err := a.HasSubmitCapability("rev-holder", 9)
	require.NoError(t, err)
	assert.False(t, ok, "revoked grant should not count")

	// The revoked row keeps its audit fields
	grants, err := a.GrantsFor("rev-holder")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.NotNil(t, grants[0].RevokedAt)
	assert.Equal(t, testEngineIdentity, grants[0].RevokedBy)

	// Revoking again is a state conflict
	err = applyEnvelope(t, a, db, testEngineIdentity, OpRevokeCapability,
		RevokeCapabilityPayload{
			Identity:   "rev-holder",
			SubjectID:  uint64Ptr(9),
			Capability: "submit",
		})
	var stateErr authz.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestRevokeUnknownGrant(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	err := applyEnvelope(t, a, db, testEngineIdentity, OpRevokeCapability,
		RevokeCapabilityPayload{
			Identity:   "nobody",
			SubjectID:  uint64Ptr(1),
			Capability: "submit",
		})
	var stateErr authz.StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestCompromiseExcludesGrants(t *testing.T) {
	a, db, checker := newTestAuthority(t)

	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "comp-holder",
				SubjectID:  uint64Ptr(4),
				Capability: "submit",
			}),
	)
	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "comp-holder",
				Capability: "read",
			}),
	)

	ok, err := a.HasSubmitCapability("comp-holder", 4)
	require.NoError(t, err)
	require.True(t, ok)

	checker.compromised["comp-holder"] = true

	ok, err = a.HasSubmitCapability("comp-holder", 4)
	require.NoError(t, err)
	assert.False(t, ok, "compromised identity should have no live grants")

	ok, err = a.HasReadOrVerifyCapability("comp-holder")
	require.NoError(t, err)
	assert.False(t, ok)

	// Restoring the identity brings the grants back without re-issuing
	checker.compromised["comp-holder"] = false
	ok, err = a.HasSubmitCapability("comp-holder", 4)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReadAndVerifyCapabilities(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "rv-reader",
				Capability: "read",
			}),
	)
	require.NoError(
		t,
		applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
			GrantCapabilityPayload{
				Identity:   "rv-verifier",
				Capability: "verify",
				TTLSeconds: 7200,
			}),
	)

	for _, identity := range []string{"rv-reader", "rv-verifier"} {
		ok, err := a.HasReadOrVerifyCapability(identity)
		require.NoError(t, err)
		assert.True(t, ok, "%s should have a live read or verify grant", identity)
	}

	// Read and verify grants never confer submit capability
	ok, err := a.HasSubmitCapability("rv-reader", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyValidation(t *testing.T) {
	a, db, _ := newTestAuthority(t)

	var validationErr authz.ValidationError

	// Garbage payload bytes
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		return a.Apply(txn, testEngineIdentity, governance.Call{
			Target:  CollaboratorName,
			Payload: []byte("not cbor"),
		})
	})
	require.ErrorAs(t, err, &validationErr)

	// Unknown operation name
	err = applyEnvelope(t, a, db, testEngineIdentity, "promote_identity",
		map[string]any{})
	require.ErrorAs(t, err, &validationErr)

	// Submit grants need a subject
	err = applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
		GrantCapabilityPayload{
			Identity:   "val-holder",
			Capability: "submit",
		})
	require.ErrorAs(t, err, &validationErr)

	// Read grants are identity-wide
	err = applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
		GrantCapabilityPayload{
			Identity:   "val-holder",
			SubjectID:  uint64Ptr(2),
			Capability: "read",
		})
	require.ErrorAs(t, err, &validationErr)

	// Unknown capability kind
	err = applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
		GrantCapabilityPayload{
			Identity:   "val-holder",
			Capability: "fly",
		})
	require.ErrorAs(t, err, &validationErr)

	// Blank identity
	err = applyEnvelope(t, a, db, testEngineIdentity, OpGrantCapability,
		GrantCapabilityPayload{
			Identity:   "",
			SubjectID:  uint64Ptr(2),
			Capability: "submit",
		})
	require.ErrorAs(t, err, &validationErr)

	// None of the rejected calls may leave rows behind
	grants, err := a.GrantsFor("val-holder")
	require.NoError(t, err)
	assert.Empty(t, grants)
}
