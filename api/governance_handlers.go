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
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/governance"
)

// handlePropose handles POST /v1/proposals. The call batch arrives as
// parallel arrays and is rejected here on any length mismatch before
// it reaches the engine.
func (a *API) handlePropose(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, err := requestActor(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	var req ProposeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeServiceError(w, err)
		return
	}
	if len(req.Targets) != len(req.AuxValues) ||
		len(req.Targets) != len(req.Payloads) {
		a.writeServiceError(w, authz.ValidationError{
			Reason: fmt.Sprintf(
				"mismatched call arrays: %d targets, %d aux_values, %d payloads",
				len(req.Targets),
				len(req.AuxValues),
				len(req.Payloads),
			),
		})
		return
	}
	category, err := governance.ParseCategory(req.Category)
	if err != nil {
		a.writeServiceError(
			w,
			authz.ValidationError{Reason: err.Error()},
		)
		return
	}
	calls := make([]governance.Call, 0, len(req.Targets))
	for i := range req.Targets {
		calls = append(calls, governance.Call{
			Target:   req.Targets[i],
			AuxValue: req.AuxValues[i],
			Payload:  req.Payloads[i],
		})
	}
	proposalID, err := a.config.Engine.Propose(
		actor,
		calls,
		req.Description,
		category,
		req.SubjectID,
	)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProposeResponse{
		ProposalID: proposalID,
	})
}

// handleListProposals handles GET /v1/proposals with pagination and an
// optional executed=true|false filter.
func (a *API) handleListProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var executed *bool
	if executedParam := r.URL.Query().Get("executed"); executedParam != "" {
		value, err := strconv.ParseBool(executedParam)
		if err != nil {
			writeError(
				w,
				http.StatusBadRequest,
				"Bad Request",
				"invalid executed filter",
			)
			return
		}
		executed = &value
	}
	total, err := a.config.Engine.Count(executed)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	proposals, err := a.config.Engine.Proposals(
		executed,
		params.Limit(),
		params.Offset(),
		params.Order,
	)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	response := make([]ProposalResponse, 0, len(proposals))
	for i := range proposals {
		response = append(
			response,
			proposalResponse(&proposals[i], nil),
		)
	}
	SetPaginationHeaders(w, int(total), params)
	writeJSON(w, http.StatusOK, response)
}

// handleProposal handles GET /v1/proposals/{id} and returns the
// proposal with its call batch.
func (a *API) handleProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	proposal, err := a.config.Engine.ProposalByID(id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	calls, err := a.config.Engine.Calls(id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(proposal, calls))
}

// handleProposalStatus handles GET /v1/proposals/{id}/status.
func (a *API) handleProposalStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	forVotes, executed, err := a.config.Engine.VoteStatus(id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProposalStatusResponse{
		ProposalID: id,
		ForVotes:   forVotes,
		Executed:   executed,
	})
}

// handleProposalVotes handles GET /v1/proposals/{id}/votes.
func (a *API) handleProposalVotes(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	votes, err := a.config.Engine.Votes(id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	response := make([]ProposalVoteResponse, 0, len(votes))
	for _, vote := range votes {
		response = append(response, ProposalVoteResponse{
			Voter:   vote.Voter,
			VotedAt: vote.VotedAt,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// handleCastVote handles POST /v1/proposals/{id}/votes. The voter is
// the acting identity from the request header.
func (a *API) handleCastVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, err := requestActor(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	result, err := a.config.Engine.CastVote(id, actor)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VoteResponse{
		ProposalID: result.ProposalID,
		ForVotes:   result.ForVotes,
		Executed:   result.Executed,
	})
}

// proposalResponse maps a proposal row, with optional call rows, onto
// the wire shape
func proposalResponse(
	proposal *models.Proposal,
	calls []models.ProposalCall,
) ProposalResponse {
	response := ProposalResponse{
		ID:          proposal.ID,
		Proposer:    proposal.Proposer,
		Description: proposal.Description,
		Category:    governance.Category(proposal.Category).String(),
		SubjectID:   proposal.SubjectID,
		ForVotes:    proposal.ForVotes,
		Executed:    proposal.Executed,
		ExecutedAt:  proposal.ExecutedAt,
		CreatedAt:   proposal.CreatedAt,
	}
	for i := range calls {
		call := &calls[i]
		response.Calls = append(response.Calls, CallResponse{
			CallIndex:   call.CallIndex,
			Target:      call.Target,
			AuxValue:    uint64(call.AuxValue),
			PayloadHash: hex.EncodeToString(call.PayloadHash),
			PayloadSize: call.PayloadSize,
		})
	}
	return response
}
