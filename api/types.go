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

import "time"

// RootResponse is returned by GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ProposeRequest is the body of POST /v1/proposals. The call batch
// arrives as parallel arrays; payloads are base64 in transit.
type ProposeRequest struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	SubjectID   *uint64  `json:"subject_id"`
	Targets     []string `json:"targets"`
	AuxValues   []uint64 `json:"aux_values"`
	Payloads    [][]byte `json:"payloads"`
}

// ProposeResponse is returned by POST /v1/proposals.
type ProposeResponse struct {
	ProposalID uint64 `json:"proposal_id"`
}

// VoteResponse is returned by POST /v1/proposals/{id}/votes.
type VoteResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	ForVotes   uint32 `json:"for_votes"`
	Executed   bool   `json:"executed"`
}

// ProposalResponse represents a proposal record. Calls is populated on
// the detail endpoint only.
type ProposalResponse struct {
	ID          uint64         `json:"id"`
	Proposer    string         `json:"proposer"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	SubjectID   *uint64        `json:"subject_id"`
	ForVotes    uint32         `json:"for_votes"`
	Executed    bool           `json:"executed"`
	ExecutedAt  *time.Time     `json:"executed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	Calls       []CallResponse `json:"calls,omitempty"`
}

// CallResponse represents one call in a proposal's batch. The payload
// itself stays in blob storage; the hash is hex.
type CallResponse struct {
	CallIndex   uint32 `json:"call_index"`
	Target      string `json:"target"`
	AuxValue    uint64 `json:"aux_value"`
	PayloadHash string `json:"payload_hash"`
	PayloadSize uint32 `json:"payload_size"`
}

// ProposalStatusResponse is returned by GET /v1/proposals/{id}/status.
type ProposalStatusResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	ForVotes   uint32 `json:"for_votes"`
	Executed   bool   `json:"executed"`
}

// ProposalVoteResponse represents one cast vote.
type ProposalVoteResponse struct {
	Voter   string    `json:"voter"`
	VotedAt time.Time `json:"voted_at"`
}

// RoleRequest is the body of the role grant and revoke endpoints.
type RoleRequest struct {
	Role     string `json:"role"`
	Identity string `json:"identity"`
}

// MarkCompromisedRequest is the body of POST /v1/registry/compromises.
type MarkCompromisedRequest struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
}

// ParticipantResponse represents a participant's registry standing.
type ParticipantResponse struct {
	Identity    string   `json:"identity"`
	Roles       []string `json:"roles"`
	Compromised bool     `json:"compromised"`
}

// CompromiseRecordResponse represents one compromise report.
type CompromiseRecordResponse struct {
	Identity   string     `json:"identity"`
	Reporter   string     `json:"reporter"`
	Reason     string     `json:"reason"`
	Active     bool       `json:"active"`
	ReportedAt time.Time  `json:"reported_at"`
	RestoredAt *time.Time `json:"restored_at"`
	RestoredBy string     `json:"restored_by,omitempty"`
}

// CapabilitiesResponse is returned by
// GET /v1/authority/capabilities/{identity}.
type CapabilitiesResponse struct {
	Identity    string                    `json:"identity"`
	Compromised bool                      `json:"compromised"`
	Grants      []CapabilityGrantResponse `json:"grants"`
}

// CapabilityGrantResponse represents one capability grant. Live is
// computed at read time: not revoked and not expired.
type CapabilityGrantResponse struct {
	Capability string     `json:"capability"`
	SubjectID  *uint64    `json:"subject_id"`
	GrantedBy  string     `json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
	RevokedBy  string     `json:"revoked_by,omitempty"`
	Live       bool       `json:"live"`
}

// AssetResponse represents an asset record.
type AssetResponse struct {
	ID        uint64    `json:"id"`
	Serial    string    `json:"serial"`
	Maker     string    `json:"maker"`
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	Custodian string    `json:"custodian"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetEventResponse represents one entry in an asset's history log.
type AssetEventResponse struct {
	AssetID    uint64    `json:"asset_id"`
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	ProposalID uint64    `json:"proposal_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
