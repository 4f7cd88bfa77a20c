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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gavel-io/gavel/assets"
	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
	"github.com/gavel-io/gavel/governance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// mockEngine implements Engine for testing.
type mockEngine struct {
	proposalID   uint64
	proposeErr   error
	voteResult   governance.VoteResult
	voteErr      error
	proposal     *models.Proposal
	proposalErr  error
	proposals    []models.Proposal
	proposalsErr error
	count        int64
	countErr     error
	forVotes     uint32
	executed     bool
	statusErr    error
	votes        []models.ProposalVote
	votesErr     error
	calls        []models.ProposalCall
	callsErr     error

	proposedBy       string
	proposedCalls    []governance.Call
	proposedCategory governance.Category
	proposedSubject  *uint64
	votedProposal    uint64
	votedBy          string
	listExecuted     *bool
	listLimit        int
	listOffset       int
	listOrder        string
}

func (m *mockEngine) Propose(
	proposer string,
	calls []governance.Call,
	description string,
	category governance.Category,
	subjectID *uint64,
) (uint64, error) {
	m.proposedBy = proposer
	m.proposedCalls = calls
	m.proposedCategory = category
	m.proposedSubject = subjectID
	return m.proposalID, m.proposeErr
}

func (m *mockEngine) CastVote(
	proposalID uint64,
	voter string,
) (governance.VoteResult, error) {
	m.votedProposal = proposalID
	m.votedBy = voter
	return m.voteResult, m.voteErr
}

func (m *mockEngine) ProposalByID(id uint64) (*models.Proposal, error) {
	return m.proposal, m.proposalErr
}

func (m *mockEngine) Proposals(
	executed *bool,
	limit int,
	offset int,
	order string,
) ([]models.Proposal, error) {
	m.listExecuted = executed
	m.listLimit = limit
	m.listOffset = offset
	m.listOrder = order
	return m.proposals, m.proposalsErr
}

func (m *mockEngine) Count(executed *bool) (int64, error) {
	return m.count, m.countErr
}

func (m *mockEngine) VoteStatus(id uint64) (uint32, bool, error) {
	return m.forVotes, m.executed, m.statusErr
}

func (m *mockEngine) Votes(id uint64) ([]models.ProposalVote, error) {
	return m.votes, m.votesErr
}

func (m *mockEngine) Calls(id uint64) ([]models.ProposalCall, error) {
	return m.calls, m.callsErr
}

// mockRegistry implements Registry for testing.
type mockRegistry struct {
	roles          []authz.Role
	rolesErr       error
	compromised    bool
	compromisedErr error
	history        []models.CompromiseRecord
	historyErr     error
	grantErr       error
	revokeErr      error
	markErr        error
	restoreErr     error

	grantedCaller    string
	grantedRole      authz.Role
	grantedIdentity  string
	revokedCaller    string
	revokedRole      authz.Role
	revokedIdentity  string
	markedTarget     string
	markedReporter   string
	markedReason     string
	restoredCaller   string
	restoredIdentity string
}

func (m *mockRegistry) GrantRole(
	caller string,
	role authz.Role,
	identity string,
) error {
	m.grantedCaller = caller
	m.grantedRole = role
	m.grantedIdentity = identity
	return m.grantErr
}

func (m *mockRegistry) RevokeRole(
	caller string,
	role authz.Role,
	identity string,
) error {
	m.revokedCaller = caller
	m.revokedRole = role
	m.revokedIdentity = identity
	return m.revokeErr
}

func (m *mockRegistry) MarkCompromised(
	target string,
	reporter string,
	reason string,
) error {
	m.markedTarget = target
	m.markedReporter = reporter
	m.markedReason = reason
	return m.markErr
}

func (m *mockRegistry) Restore(caller string, identity string) error {
	m.restoredCaller = caller
	m.restoredIdentity = identity
	return m.restoreErr
}

func (m *mockRegistry) RolesOf(identity string) ([]authz.Role, error) {
	return m.roles, m.rolesErr
}

func (m *mockRegistry) IsCompromised(identity string) (bool, error) {
	return m.compromised, m.compromisedErr
}

func (m *mockRegistry) CompromiseHistory(
	identity string,
) ([]models.CompromiseRecord, error) {
	return m.history, m.historyErr
}

// mockAuthority implements Authority for testing.
type mockAuthority struct {
	grants    []models.CapabilityGrant
	grantsErr error
}

func (m *mockAuthority) GrantsFor(
	identity string,
) ([]models.CapabilityGrant, error) {
	return m.grants, m.grantsErr
}

// mockAssets implements AssetDirectory for testing.
type mockAssets struct {
	asset       *models.Asset
	assetErr    error
	bySerial    *models.Asset
	bySerialErr error
	records     []models.Asset
	recordsErr  error
	count       int64
	countErr    error
	history     []models.AssetEvent
	historyErr  error

	serialArg string
}

func (m *mockAssets) AssetByID(id uint64) (*models.Asset, error) {
	return m.asset, m.assetErr
}

func (m *mockAssets) AssetBySerial(serial string) (*models.Asset, error) {
	m.serialArg = serial
	return m.bySerial, m.bySerialErr
}

func (m *mockAssets) Assets(
	limit int,
	offset int,
	order string,
) ([]models.Asset, error) {
	return m.records, m.recordsErr
}

func (m *mockAssets) Count() (int64, error) {
	return m.count, m.countErr
}

func (m *mockAssets) History(assetID uint64) ([]models.AssetEvent, error) {
	return m.history, m.historyErr
}

func newTestAPI(
	engine Engine,
	registry Registry,
	authority Authority,
	directory AssetDirectory,
) *API {
	return New(Config{
		ListenAddress: ":0",
		Engine:        engine,
		Registry:      registry,
		Authority:     authority,
		Assets:        directory,
	})
}

func postJSON(target string, actor string, body any) *http.Request {
	encoded, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	req := httptest.NewRequest(
		http.MethodPost,
		target,
		bytes.NewReader(encoded),
	)
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	return req
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := a.Start(ctx)
	require.NoError(t, err)

	// Verify server is running
	a.mu.Lock()
	assert.NotNil(t, a.httpServer)
	a.mu.Unlock()

	// Stop the server
	stopCtx, stopCancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer stopCancel()
	err = a.Stop(stopCtx)
	require.NoError(t, err)

	// Verify server is stopped
	a.mu.Lock()
	assert.Nil(t, a.httpServer)
	a.mu.Unlock()
}

func TestStartAlreadyStarted(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	ctx := t.Context()
	err := a.Start(ctx)
	require.NoError(t, err)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer stopCancel()
		_ = a.Stop(stopCtx)
	}()

	// Starting again should error
	err = a.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestStopIdempotent(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	// Stop without starting should not error
	ctx, cancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer cancel()
	err := a.Stop(ctx)
	require.NoError(t, err)
}

func TestNilLogger(t *testing.T) {
	a := New(Config{ListenAddress: ":0"})
	assert.NotNil(t, a.logger)
}

func TestDefaultListenAddress(t *testing.T) {
	a := New(Config{})
	assert.Equal(t, ":4800", a.config.ListenAddress)
}

func TestHandleRoot(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	a.handleRoot(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(
		t,
		"application/json",
		w.Header().Get("Content-Type"),
	)

	var resp RootResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "gavel", resp.Service)
	assert.Equal(t, "0.1.0", resp.Version)
}

func TestHandleHealth(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.True(t, resp.IsHealthy)
}

func TestHandlePropose(t *testing.T) {
	mock := &mockEngine{proposalID: 42}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	subject := uint64(7)
	req := postJSON("/v1/proposals", "maker-1", ProposeRequest{
		Description: "repair batch",
		Category:    "routine",
		SubjectID:   &subject,
		Targets:     []string{"assets", "authority"},
		AuxValues:   []uint64{3, 0},
		Payloads:    [][]byte{[]byte("fix"), []byte("grant")},
	})
	w := httptest.NewRecorder()
	a.handlePropose(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp ProposeResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), resp.ProposalID)

	assert.Equal(t, "maker-1", mock.proposedBy)
	assert.Equal(t, governance.CategoryRoutine, mock.proposedCategory)
	require.NotNil(t, mock.proposedSubject)
	assert.Equal(t, uint64(7), *mock.proposedSubject)
	require.Len(t, mock.proposedCalls, 2)
	assert.Equal(t, "assets", mock.proposedCalls[0].Target)
	assert.Equal(t, uint64(3), mock.proposedCalls[0].AuxValue)
	assert.Equal(t, []byte("fix"), mock.proposedCalls[0].Payload)
	assert.Equal(t, "authority", mock.proposedCalls[1].Target)
	assert.Equal(t, []byte("grant"), mock.proposedCalls[1].Payload)
}

func TestHandleProposeMissingActor(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := postJSON("/v1/proposals", "", ProposeRequest{})
	w := httptest.NewRecorder()
	a.handlePropose(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, ActorHeader)
}

func TestHandleProposeMismatchedArrays(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := postJSON("/v1/proposals", "maker-1", ProposeRequest{
		Description: "bad batch",
		Category:    "routine",
		Targets:     []string{"assets", "authority"},
		AuxValues:   []uint64{1},
		Payloads:    [][]byte{[]byte("x"), []byte("y")},
	})
	w := httptest.NewRecorder()
	a.handlePropose(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "mismatched call arrays")
}

func TestHandleProposeBadCategory(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := postJSON("/v1/proposals", "maker-1", ProposeRequest{
		Description: "bad category",
		Category:    "urgent",
		Targets:     []string{"assets"},
		AuxValues:   []uint64{1},
		Payloads:    [][]byte{[]byte("x")},
	})
	w := httptest.NewRecorder()
	a.handlePropose(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "unknown category")
}

func TestHandleProposeMalformedBody(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/proposals",
		strings.NewReader("{not json"),
	)
	req.Header.Set(ActorHeader, "maker-1")
	w := httptest.NewRecorder()
	a.handlePropose(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "malformed request body")
}

func TestHandleProposeEngineRejection(t *testing.T) {
	mock := &mockEngine{
		proposeErr: authz.AuthorizationError{
			Identity: "viewer-1",
			Reason:   "proposing requires the manufacturer role or a delegated submit capability",
		},
	}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := postJSON("/v1/proposals", "viewer-1", ProposeRequest{
		Description: "denied",
		Category:    "routine",
		Targets:     []string{"assets"},
		AuxValues:   []uint64{1},
		Payloads:    [][]byte{[]byte("x")},
	})
	w := httptest.NewRecorder()
	a.handlePropose(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "viewer-1")
}

func TestHandleListProposals(t *testing.T) {
	mock := &mockEngine{
		proposals: []models.Proposal{
			{
				ID:          3,
				Proposer:    "maker-1",
				Description: "first",
				Category:    uint8(governance.CategoryRoutine),
				ForVotes:    1,
				Executed:    true,
			},
			{
				ID:          4,
				Proposer:    "maker-2",
				Description: "second",
				Category:    uint8(governance.CategoryCritical),
				ForVotes:    2,
				Executed:    true,
			},
		},
		count: 5,
	}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/proposals?count=2&page=2&order=desc&executed=true",
		nil,
	)
	w := httptest.NewRecorder()
	a.handleListProposals(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(
		t,
		"5",
		w.Header().Get("X-Pagination-Count-Total"),
	)
	assert.Equal(
		t,
		"3",
		w.Header().Get("X-Pagination-Page-Total"),
	)

	require.NotNil(t, mock.listExecuted)
	assert.True(t, *mock.listExecuted)
	assert.Equal(t, 2, mock.listLimit)
	assert.Equal(t, 2, mock.listOffset)
	assert.Equal(t, "desc", mock.listOrder)

	var resp []ProposalResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, uint64(3), resp[0].ID)
	assert.Equal(t, "routine", resp[0].Category)
	assert.Equal(t, "critical", resp[1].Category)
	// Call batches are detail-endpoint only
	assert.Empty(t, resp[0].Calls)
}

func TestHandleListProposalsEmpty(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals", nil)
	w := httptest.NewRecorder()
	a.handleListProposals(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []ProposalResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	// Should return empty array, not null
	assert.NotNil(t, resp)
	assert.Empty(t, resp)
}

func TestHandleListProposalsInvalidFilters(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	tests := []struct {
		name string
		url  string
	}{
		{name: "bad executed", url: "/v1/proposals?executed=banana"},
		{name: "bad count", url: "/v1/proposals?count=abc"},
		{name: "bad order", url: "/v1/proposals?order=sideways"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(
				http.MethodGet,
				test.url,
				nil,
			)
			w := httptest.NewRecorder()
			a.handleListProposals(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleProposal(t *testing.T) {
	subject := uint64(12)
	mock := &mockEngine{
		proposal: &models.Proposal{
			ID:          9,
			Proposer:    "maker-1",
			Description: "with calls",
			Category:    uint8(governance.CategoryCritical),
			SubjectID:   &subject,
			ForVotes:    1,
		},
		calls: []models.ProposalCall{
			{
				ProposalID:  9,
				CallIndex:   0,
				Target:      "assets",
				AuxValue:    types.Uint64(3),
				PayloadHash: []byte{0xde, 0xad, 0xbe, 0xef},
				PayloadSize: 16,
			},
			{
				ProposalID: 9,
				CallIndex:  1,
				Target:     "authority",
				AuxValue:   types.Uint64(0),
			},
		},
	}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/9", nil)
	req.SetPathValue("id", "9")
	w := httptest.NewRecorder()
	a.handleProposal(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ProposalResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), resp.ID)
	assert.Equal(t, "critical", resp.Category)
	require.NotNil(t, resp.SubjectID)
	assert.Equal(t, uint64(12), *resp.SubjectID)
	require.Len(t, resp.Calls, 2)
	assert.Equal(t, "assets", resp.Calls[0].Target)
	assert.Equal(t, uint64(3), resp.Calls[0].AuxValue)
	assert.Equal(t, "deadbeef", resp.Calls[0].PayloadHash)
	assert.Equal(t, uint32(16), resp.Calls[0].PayloadSize)
	assert.Equal(t, uint32(1), resp.Calls[1].CallIndex)
}

func TestHandleProposalNotFound(t *testing.T) {
	mock := &mockEngine{proposalErr: models.ErrProposalNotFound}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/999", nil)
	req.SetPathValue("id", "999")
	w := httptest.NewRecorder()
	a.handleProposal(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "Not Found", resp.Error)
}

func TestHandleProposalBadID(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/abc", nil)
	req.SetPathValue("id", "abc")
	w := httptest.NewRecorder()
	a.handleProposal(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleProposalStatus(t *testing.T) {
	mock := &mockEngine{forVotes: 2, executed: true}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/proposals/5/status",
		nil,
	)
	req.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	a.handleProposalStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ProposalStatusResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), resp.ProposalID)
	assert.Equal(t, uint32(2), resp.ForVotes)
	assert.True(t, resp.Executed)
}

func TestHandleProposalVotes(t *testing.T) {
	votedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock := &mockEngine{
		votes: []models.ProposalVote{
			{ProposalID: 5, Voter: "maker-1", VotedAt: votedAt},
			{
				ProposalID: 5,
				Voter:      "maker-2",
				VotedAt:    votedAt.Add(time.Minute),
			},
		},
	}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/proposals/5/votes",
		nil,
	)
	req.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	a.handleProposalVotes(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []ProposalVoteResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, "maker-1", resp[0].Voter)
	assert.True(t, resp[0].VotedAt.Equal(votedAt))
	assert.Equal(t, "maker-2", resp[1].Voter)
}

func TestHandleProposalVotesEmpty(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/proposals/5/votes",
		nil,
	)
	req.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	a.handleProposalVotes(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []ProposalVoteResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	// Should return empty array, not null
	assert.NotNil(t, resp)
	assert.Empty(t, resp)
}

func TestHandleCastVote(t *testing.T) {
	mock := &mockEngine{
		voteResult: governance.VoteResult{
			ProposalID: 5,
			ForVotes:   2,
			Executed:   true,
		},
	}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := postJSON("/v1/proposals/5/votes", "maker-2", nil)
	req.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	a.handleCastVote(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(5), mock.votedProposal)
	assert.Equal(t, "maker-2", mock.votedBy)

	var resp VoteResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), resp.ProposalID)
	assert.Equal(t, uint32(2), resp.ForVotes)
	assert.True(t, resp.Executed)
}

func TestHandleCastVoteErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name: "double vote",
			err: authz.StateError{
				Reason: "maker-2 has already voted on proposal 5",
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "unauthorized voter",
			err: authz.AuthorizationError{
				Identity: "viewer-1",
				Reason:   "voting requires the manufacturer role or above",
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "compromised voter",
			err:        authz.ComplianceError{Identity: "maker-2"},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "execution failure",
			err: authz.ExecutionError{
				ProposalID: 5,
				CallIndex:  1,
				Target:     "assets",
				Err:        assert.AnError,
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			// The rolled-back vote reports as an execution failure
			// even when the cause was a missing record
			name: "execution failure on missing record",
			err: authz.ExecutionError{
				ProposalID: 5,
				CallIndex:  0,
				Target:     "assets",
				Err:        models.ErrAssetNotFound,
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unknown proposal",
			err:        models.ErrProposalNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mock := &mockEngine{voteErr: test.err}
			a := newTestAPI(mock, &mockRegistry{}, nil, nil)

			req := postJSON("/v1/proposals/5/votes", "maker-2", nil)
			req.SetPathValue("id", "5")
			w := httptest.NewRecorder()
			a.handleCastVote(w, req)

			assert.Equal(t, test.wantStatus, w.Code)

			var resp ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&resp)
			require.NoError(t, err)
			assert.Equal(t, test.wantStatus, resp.StatusCode)
		})
	}
}

func TestInternalErrorMasked(t *testing.T) {
	mock := &mockEngine{proposalErr: assert.AnError}
	a := newTestAPI(mock, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals/5", nil)
	req.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	a.handleProposal(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "Internal Server Error", resp.Error)
	// Internal details stay out of the response
	assert.Equal(t, "unexpected error", resp.Message)
}

func TestHandleGrantRole(t *testing.T) {
	registry := &mockRegistry{
		roles: []authz.Role{authz.RoleManufacturer},
	}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := postJSON("/v1/registry/roles", "admin-1", RoleRequest{
		Role:     "manufacturer",
		Identity: "maker-9",
	})
	w := httptest.NewRecorder()
	a.handleGrantRole(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", registry.grantedCaller)
	assert.Equal(t, authz.RoleManufacturer, registry.grantedRole)
	assert.Equal(t, "maker-9", registry.grantedIdentity)

	var resp ParticipantResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "maker-9", resp.Identity)
	assert.Equal(t, []string{"manufacturer"}, resp.Roles)
	assert.False(t, resp.Compromised)
}

func TestHandleGrantRoleBadRole(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := postJSON("/v1/registry/roles", "admin-1", RoleRequest{
		Role:     "emperor",
		Identity: "maker-9",
	})
	w := httptest.NewRecorder()
	a.handleGrantRole(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "unknown role")
}

func TestHandleGrantRoleDenied(t *testing.T) {
	registry := &mockRegistry{
		grantErr: authz.AuthorizationError{
			Identity: "viewer-1",
			Reason:   "granting manufacturer requires the manufacturer role or admin",
		},
	}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := postJSON("/v1/registry/roles", "viewer-1", RoleRequest{
		Role:     "manufacturer",
		Identity: "maker-9",
	})
	w := httptest.NewRecorder()
	a.handleGrantRole(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleRevokeRole(t *testing.T) {
	registry := &mockRegistry{}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := postJSON("/v1/registry/roles/revoke", "admin-1", RoleRequest{
		Role:     "repair_agent",
		Identity: "repair-3",
	})
	w := httptest.NewRecorder()
	a.handleRevokeRole(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", registry.revokedCaller)
	assert.Equal(t, authz.RoleRepairAgent, registry.revokedRole)
	assert.Equal(t, "repair-3", registry.revokedIdentity)
}

func TestHandleParticipant(t *testing.T) {
	registry := &mockRegistry{
		roles: []authz.Role{
			authz.RoleManufacturer,
			authz.RoleGovernance,
		},
		compromised: true,
	}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/registry/participants/maker-1",
		nil,
	)
	req.SetPathValue("identity", "maker-1")
	w := httptest.NewRecorder()
	a.handleParticipant(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ParticipantResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "maker-1", resp.Identity)
	assert.Equal(t, []string{"manufacturer", "governance"}, resp.Roles)
	assert.True(t, resp.Compromised)
}

func TestHandleParticipantUnknown(t *testing.T) {
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/registry/participants/stranger",
		nil,
	)
	req.SetPathValue("identity", "stranger")
	w := httptest.NewRecorder()
	a.handleParticipant(w, req)

	// Unknown identities report an empty standing
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ParticipantResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "stranger", resp.Identity)
	assert.Empty(t, resp.Roles)
	assert.False(t, resp.Compromised)
}

func TestHandleMarkCompromised(t *testing.T) {
	registry := &mockRegistry{compromised: true}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := postJSON(
		"/v1/registry/compromises",
		"gov-1",
		MarkCompromisedRequest{
			Identity: "maker-2",
			Reason:   "stolen credentials",
		},
	)
	w := httptest.NewRecorder()
	a.handleMarkCompromised(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "maker-2", registry.markedTarget)
	assert.Equal(t, "gov-1", registry.markedReporter)
	assert.Equal(t, "stolen credentials", registry.markedReason)

	var resp ParticipantResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.True(t, resp.Compromised)
}

func TestHandleRestore(t *testing.T) {
	registry := &mockRegistry{}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := postJSON(
		"/v1/registry/participants/maker-2/restore",
		"admin-1",
		nil,
	)
	req.SetPathValue("identity", "maker-2")
	w := httptest.NewRecorder()
	a.handleRestore(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", registry.restoredCaller)
	assert.Equal(t, "maker-2", registry.restoredIdentity)
}

func TestHandleRestoreConflict(t *testing.T) {
	registry := &mockRegistry{
		restoreErr: authz.StateError{
			Reason: "maker-2 has no active compromise record",
		},
	}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := postJSON(
		"/v1/registry/participants/maker-2/restore",
		"admin-1",
		nil,
	)
	req.SetPathValue("identity", "maker-2")
	w := httptest.NewRecorder()
	a.handleRestore(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleCompromiseHistory(t *testing.T) {
	reportedAt := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	restoredAt := reportedAt.Add(48 * time.Hour)
	registry := &mockRegistry{
		history: []models.CompromiseRecord{
			{
				Identity:   "maker-2",
				Reporter:   "gov-1",
				Reason:     "stolen credentials",
				Active:     false,
				ReportedAt: reportedAt,
				RestoredAt: &restoredAt,
				RestoredBy: "admin-1",
			},
			{
				Identity:   "maker-2",
				Reporter:   "gov-2",
				Reason:     "phishing report",
				Active:     true,
				ReportedAt: restoredAt.Add(time.Hour),
			},
		},
	}
	a := newTestAPI(&mockEngine{}, registry, nil, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/registry/participants/maker-2/compromises",
		nil,
	)
	req.SetPathValue("identity", "maker-2")
	w := httptest.NewRecorder()
	a.handleCompromiseHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []CompromiseRecordResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.False(t, resp[0].Active)
	assert.Equal(t, "admin-1", resp[0].RestoredBy)
	require.NotNil(t, resp[0].RestoredAt)
	assert.True(t, resp[1].Active)
	assert.Nil(t, resp[1].RestoredAt)
}

func TestHandleCapabilities(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	subject := uint64(7)
	authority := &mockAuthority{
		grants: []models.CapabilityGrant{
			{
				Identity:   "courier-1",
				SubjectID:  &subject,
				Capability: uint8(authz.CapabilitySubmit),
				GrantedBy:  "maker-1",
				GrantedAt:  past,
				ExpiresAt:  &future,
			},
			{
				Identity:   "courier-1",
				Capability: uint8(authz.CapabilityRead),
				GrantedBy:  "maker-1",
				GrantedAt:  past,
				ExpiresAt:  &past,
			},
			{
				Identity:   "courier-1",
				Capability: uint8(authz.CapabilityVerify),
				GrantedBy:  "maker-1",
				GrantedAt:  past,
				RevokedAt:  &past,
				RevokedBy:  "maker-1",
			},
		},
	}
	registry := &mockRegistry{compromised: true}
	a := newTestAPI(&mockEngine{}, registry, authority, nil)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/authority/capabilities/courier-1",
		nil,
	)
	req.SetPathValue("identity", "courier-1")
	w := httptest.NewRecorder()
	a.handleCapabilities(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp CapabilitiesResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "courier-1", resp.Identity)
	assert.True(t, resp.Compromised)
	require.Len(t, resp.Grants, 3)

	assert.Equal(t, "submit", resp.Grants[0].Capability)
	require.NotNil(t, resp.Grants[0].SubjectID)
	assert.Equal(t, uint64(7), *resp.Grants[0].SubjectID)
	assert.True(t, resp.Grants[0].Live)

	// Expired grant
	assert.Equal(t, "read", resp.Grants[1].Capability)
	assert.False(t, resp.Grants[1].Live)

	// Revoked grant
	assert.Equal(t, "verify", resp.Grants[2].Capability)
	assert.False(t, resp.Grants[2].Live)
	assert.Equal(t, "maker-1", resp.Grants[2].RevokedBy)
}

func TestHandleAssetsList(t *testing.T) {
	directory := &mockAssets{
		records: []models.Asset{
			{
				ID:        1,
				Serial:    "SN-0001",
				Maker:     "maker-1",
				Model:     "wx-100",
				Status:    uint8(assets.StatusActive),
				Custodian: "maker-1",
			},
			{
				ID:        2,
				Serial:    "SN-0002",
				Maker:     "maker-1",
				Model:     "wx-100",
				Status:    uint8(assets.StatusRetired),
				Custodian: "courier-1",
			},
		},
		count: 2,
	}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(http.MethodGet, "/v1/assets", nil)
	w := httptest.NewRecorder()
	a.handleAssets(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(
		t,
		"2",
		w.Header().Get("X-Pagination-Count-Total"),
	)

	var resp []AssetResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, "SN-0001", resp[0].Serial)
	assert.Equal(t, "active", resp[0].Status)
	assert.Equal(t, "retired", resp[1].Status)
	assert.Equal(t, "courier-1", resp[1].Custodian)
}

func TestHandleAssetsBySerial(t *testing.T) {
	directory := &mockAssets{
		bySerial: &models.Asset{
			ID:        2,
			Serial:    "SN-0002",
			Maker:     "maker-1",
			Status:    uint8(assets.StatusUnderRepair),
			Custodian: "maker-1",
		},
	}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/assets?serial=SN-0002",
		nil,
	)
	w := httptest.NewRecorder()
	a.handleAssets(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SN-0002", directory.serialArg)

	var resp AssetResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), resp.ID)
	assert.Equal(t, "under_repair", resp.Status)
}

func TestHandleAssetsBySerialNotFound(t *testing.T) {
	directory := &mockAssets{bySerialErr: models.ErrAssetNotFound}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/assets?serial=SN-9999",
		nil,
	)
	w := httptest.NewRecorder()
	a.handleAssets(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleAsset(t *testing.T) {
	directory := &mockAssets{
		asset: &models.Asset{
			ID:        3,
			Serial:    "SN-0003",
			Maker:     "maker-2",
			Model:     "wx-200",
			Status:    uint8(assets.StatusActive),
			Custodian: "maker-2",
		},
	}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(http.MethodGet, "/v1/assets/3", nil)
	req.SetPathValue("id", "3")
	w := httptest.NewRecorder()
	a.handleAsset(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AssetResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), resp.ID)
	assert.Equal(t, "SN-0003", resp.Serial)
	assert.Equal(t, "maker-2", resp.Maker)
	assert.Equal(t, "active", resp.Status)
}

func TestHandleAssetNotFound(t *testing.T) {
	directory := &mockAssets{assetErr: models.ErrAssetNotFound}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(http.MethodGet, "/v1/assets/99", nil)
	req.SetPathValue("id", "99")
	w := httptest.NewRecorder()
	a.handleAsset(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleAssetHistory(t *testing.T) {
	createdAt := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	directory := &mockAssets{
		history: []models.AssetEvent{
			{
				AssetID:    3,
				Kind:       uint8(assets.EventMinted),
				Actor:      "governance-engine",
				ProposalID: 11,
				CreatedAt:  createdAt,
			},
			{
				AssetID:    3,
				Kind:       uint8(assets.EventStatusChanged),
				Actor:      "governance-engine",
				Note:       "active to under_repair",
				ProposalID: 12,
				CreatedAt:  createdAt.Add(time.Hour),
			},
		},
	}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/assets/3/history",
		nil,
	)
	req.SetPathValue("id", "3")
	w := httptest.NewRecorder()
	a.handleAssetHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []AssetEventResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, "minted", resp[0].Kind)
	assert.Equal(t, uint64(11), resp[0].ProposalID)
	assert.Equal(t, "status_changed", resp[1].Kind)
	assert.Equal(t, "active to under_repair", resp[1].Note)
}

func TestHandleAssetHistoryNotFound(t *testing.T) {
	directory := &mockAssets{historyErr: models.ErrAssetNotFound}
	a := newTestAPI(&mockEngine{}, &mockRegistry{}, nil, directory)

	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/assets/99/history",
		nil,
	)
	req.SetPathValue("id", "99")
	w := httptest.NewRecorder()
	a.handleAssetHistory(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
