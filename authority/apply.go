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
	"fmt"
	"time"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/codec"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/governance"
)

// Operation names accepted in authority call envelopes
const (
	OpGrantCapability  = "grant_capability"
	OpRevokeCapability = "revoke_capability"
)

// GrantCapabilityPayload is the envelope body for grant_capability.
// TTLSeconds of zero means the grant never expires.
type GrantCapabilityPayload struct {
	Identity   string  `cbor:"identity"`
	SubjectID  *uint64 `cbor:"subject_id"`
	Capability string  `cbor:"capability"`
	TTLSeconds uint64  `cbor:"ttl_seconds"`
}

// RevokeCapabilityPayload is the envelope body for revoke_capability
type RevokeCapabilityPayload struct {
	Identity   string  `cbor:"identity"`
	SubjectID  *uint64 `cbor:"subject_id"`
	Capability string  `cbor:"capability"`
}

// Name returns the collaborator name proposals address
func (a *Authority) Name() string {
	return CollaboratorName
}

// Apply executes an approved governance call against the grant table.
// It runs inside the voting transaction, so any error rolls the whole
// vote back.
func (a *Authority) Apply(
	txn *database.Txn,
	caller string,
	call governance.Call,
) error {
	if caller != a.config.EngineIdentity {
		return authz.AuthorizationError{
			Identity: caller,
			Reason:   "capability changes are made only through governance",
		}
	}
	envelope, err := codec.DecodeEnvelope(call.Payload)
	if err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed call payload: %v", err),
		}
	}
	switch envelope.Op {
	case OpGrantCapability:
		return a.applyGrant(txn, caller, envelope, call)
	case OpRevokeCapability:
		return a.applyRevoke(txn, caller, envelope, call)
	default:
		return authz.ValidationError{
			Reason: fmt.Sprintf(
				"unknown authority operation: %q",
				envelope.Op,
			),
		}
	}
}

func (a *Authority) applyGrant(
	txn *database.Txn,
	caller string,
	envelope codec.Envelope,
	call governance.Call,
) error {
	var payload GrantCapabilityPayload
	if err := envelope.DecodeBody(&payload); err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed grant_capability body: %v", err),
		}
	}
	if payload.Identity == "" {
		return authz.ValidationError{Reason: "identity cannot be blank"}
	}
	capability, err := authz.ParseCapability(payload.Capability)
	if err != nil {
		return authz.ValidationError{Reason: err.Error()}
	}
	if capability == authz.CapabilitySubmit && payload.SubjectID == nil {
		return authz.ValidationError{
			Reason: "submit capability requires a subject id",
		}
	}
	if capability != authz.CapabilitySubmit && payload.SubjectID != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf(
				"%s capability is identity-wide and takes no subject id",
				capability,
			),
		}
	}
	now := time.Now()
	grant := &models.CapabilityGrant{
		Identity:   payload.Identity,
		SubjectID:  payload.SubjectID,
		Capability: uint8(capability),
		GrantedBy:  caller,
		GrantedAt:  now,
	}
	if payload.TTLSeconds > 0 {
		expires := now.Add(time.Duration(payload.TTLSeconds) * time.Second)
		grant.ExpiresAt = &expires
	}
	if err := a.db.SetCapabilityGrant(grant, txn); err != nil {
		return err
	}
	a.logger.Info(
		"capability granted",
		"identity", payload.Identity,
		"capability", capability.String(),
		"proposal_id", call.ProposalID,
	)
	a.metrics.grantsTotal.WithLabelValues(capability.String()).Inc()
	return nil
}

func (a *Authority) applyRevoke(
	txn *database.Txn,
	caller string,
	envelope codec.Envelope,
	call governance.Call,
) error {
	var payload RevokeCapabilityPayload
	if err := envelope.DecodeBody(&payload); err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed revoke_capability body: %v", err),
		}
	}
	if payload.Identity == "" {
		return authz.ValidationError{Reason: "identity cannot be blank"}
	}
	capability, err := authz.ParseCapability(payload.Capability)
	if err != nil {
		return authz.ValidationError{Reason: err.Error()}
	}
	now := time.Now()
	grants, err := a.db.GetActiveCapabilityGrants(payload.Identity, now, txn)
	if err != nil {
		return err
	}
	// Revoke every live grant matching the capability and subject so
	// the capability is gone after a single revocation call
	revoked := 0
	for i := range grants {
		grant := &grants[i]
		if authz.Capability(grant.Capability) != capability {
			continue
		}
		if !subjectMatches(grant.SubjectID, payload.SubjectID) {
			continue
		}
		grant.RevokedAt = &now
		grant.RevokedBy = caller
		if err := a.db.SetCapabilityGrant(grant, txn); err != nil {
			return err
		}
		revoked++
	}
	if revoked == 0 {
		return authz.StateError{
			Reason: fmt.Sprintf(
				"no live %s grant to revoke for %s",
				capability,
				payload.Identity,
			),
		}
	}
	a.logger.Info(
		"capability revoked",
		"identity", payload.Identity,
		"capability", capability.String(),
		"grants", revoked,
		"proposal_id", call.ProposalID,
	)
	a.metrics.revokesTotal.WithLabelValues(capability.String()).
		Add(float64(revoked))
	return nil
}

func subjectMatches(a *uint64, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
