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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database/models"
)

const apiVersion = "0.1.0"

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeServiceError maps a service error onto an HTTP status:
// validation 400, authorization and compliance 403, state conflict
// 409, execution failure 502, unknown record 404, anything else 500.
// Execution failures are checked before the not-found sentinels so a
// rolled-back vote whose cause was a missing record still reports as
// an execution failure.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr    authz.ValidationError
		authorizationErr authz.AuthorizationError
		complianceErr    authz.ComplianceError
		stateErr         authz.StateError
		executionErr     authz.ExecutionError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.As(err, &authorizationErr):
		writeError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &complianceErr):
		writeError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &executionErr):
		writeError(w, http.StatusBadGateway, "Bad Gateway", err.Error())
	case errors.Is(err, models.ErrProposalNotFound),
		errors.Is(err, models.ErrAssetNotFound),
		errors.Is(err, models.ErrCompromiseRecordNotFound),
		errors.Is(err, models.ErrCapabilityGrantNotFound):
		writeError(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		a.logger.Error("request failed", "error", err)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"unexpected error",
		)
	}
}

// requestActor extracts the acting identity from the actor header
func requestActor(r *http.Request) (string, error) {
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		return "", authz.ValidationError{
			Reason: "missing " + ActorHeader + " header",
		}
	}
	return actor, nil
}

// decodeJSON decodes a request body into v
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return authz.ValidationError{Reason: "malformed request body"}
	}
	return nil
}

// pathID parses the {id} path segment as a numeric ID
func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, authz.ValidationError{Reason: "invalid id in path"}
	}
	return id, nil
}

// handleRoot handles GET / and returns API metadata.
func (a *API) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Service: "gavel",
		Version: apiVersion,
	})
}

// handleHealth handles GET /health and returns service health
// status.
func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}
