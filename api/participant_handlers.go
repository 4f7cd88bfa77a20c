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

package api

import (
	"net/http"
	"time"

	"github.com/gavel-io/gavel/authz"
)

// handleGrantRole handles POST /v1/registry/roles. The granting
// identity is the acting identity from the request header.
func (a *API) handleGrantRole(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, err := requestActor(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	var req RoleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeServiceError(w, err)
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		a.writeServiceError(
			w,
			authz.ValidationError{Reason: err.Error()},
		)
		return
	}
	if err := a.config.Registry.GrantRole(actor, role, req.Identity); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeParticipant(w, req.Identity)
}

// handleRevokeRole handles POST /v1/registry/roles/revoke.
func (a *API) handleRevokeRole(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, err := requestActor(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	var req RoleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeServiceError(w, err)
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		a.writeServiceError(
			w,
			authz.ValidationError{Reason: err.Error()},
		)
		return
	}
	if err := a.config.Registry.RevokeRole(actor, role, req.Identity); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeParticipant(w, req.Identity)
}

// handleParticipant handles GET /v1/registry/participants/{identity}.
// Identities are free-form, so an identity with no roles and no
// compromise record reports an empty standing rather than 404.
func (a *API) handleParticipant(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.writeParticipant(w, r.PathValue("identity"))
}

// handleMarkCompromised handles POST /v1/registry/compromises. The
// reporter is the acting identity from the request header.
func (a *API) handleMarkCompromised(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, err := requestActor(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	var req MarkCompromisedRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeServiceError(w, err)
		return
	}
	err = a.config.Registry.MarkCompromised(req.Identity, actor, req.Reason)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeParticipant(w, req.Identity)
}

// handleRestore handles
// POST /v1/registry/participants/{identity}/restore.
func (a *API) handleRestore(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, err := requestActor(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	identity := r.PathValue("identity")
	if err := a.config.Registry.Restore(actor, identity); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeParticipant(w, identity)
}

// handleCompromiseHistory handles
// GET /v1/registry/participants/{identity}/compromises and returns
// every compromise report for the identity, restored ones included.
func (a *API) handleCompromiseHistory(
	w http.ResponseWriter,
	r *http.Request,
) {
	records, err := a.config.Registry.CompromiseHistory(
		r.PathValue("identity"),
	)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	response := make([]CompromiseRecordResponse, 0, len(records))
	for _, record := range records {
		response = append(response, CompromiseRecordResponse{
			Identity:   record.Identity,
			Reporter:   record.Reporter,
			Reason:     record.Reason,
			Active:     record.Active,
			ReportedAt: record.ReportedAt,
			RestoredAt: record.RestoredAt,
			RestoredBy: record.RestoredBy,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// handleCapabilities handles
// GET /v1/authority/capabilities/{identity} and returns the
// identity's grants with per-grant live flags.
func (a *API) handleCapabilities(
	w http.ResponseWriter,
	r *http.Request,
) {
	identity := r.PathValue("identity")
	grants, err := a.config.Authority.GrantsFor(identity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	compromised, err := a.config.Registry.IsCompromised(identity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	now := time.Now()
	response := CapabilitiesResponse{
		Identity:    identity,
		Compromised: compromised,
		Grants:      make([]CapabilityGrantResponse, 0, len(grants)),
	}
	for _, grant := range grants {
		live := grant.RevokedAt == nil &&
			(grant.ExpiresAt == nil || grant.ExpiresAt.After(now))
		response.Grants = append(
			response.Grants,
			CapabilityGrantResponse{
				Capability: authz.Capability(grant.Capability).String(),
				SubjectID:  grant.SubjectID,
				GrantedBy:  grant.GrantedBy,
				GrantedAt:  grant.GrantedAt,
				ExpiresAt:  grant.ExpiresAt,
				RevokedAt:  grant.RevokedAt,
				RevokedBy:  grant.RevokedBy,
				Live:       live,
			},
		)
	}
	writeJSON(w, http.StatusOK, response)
}

// writeParticipant writes an identity's current registry standing
func (a *API) writeParticipant(w http.ResponseWriter, identity string) {
	roles, err := a.config.Registry.RolesOf(identity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	compromised, err := a.config.Registry.IsCompromised(identity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.String())
	}
	writeJSON(w, http.StatusOK, ParticipantResponse{
		Identity:    identity,
		Roles:       roleNames,
		Compromised: compromised,
	})
}
