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

package governance

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
)

// executeProposal runs a proposal's call batch in order inside the
// caller's transaction. The first failing call aborts the batch with an
// ExecutionError naming the call, which rolls the whole transaction
// back. Returns the number of executed calls.
func (e *GovernanceEngine) executeProposal(
	txn *database.Txn,
	proposal *models.Proposal,
) (int, error) {
	calls, err := e.db.GetProposalCalls(proposal.ID, txn)
	if err != nil {
		return 0, fmt.Errorf("loading proposal calls: %w", err)
	}
	for i := range calls {
		row := &calls[i]
		payload, err := e.callPayload(row, txn)
		if err != nil {
			return 0, authz.ExecutionError{
				ProposalID: proposal.ID,
				CallIndex:  int(row.CallIndex),
				Target:     row.Target,
				Err:        err,
			}
		}
		collaborator, ok := e.collaborators[row.Target]
		if !ok {
			// Targets are validated at propose time, but the registered
			// collaborator set can differ across restarts
			return 0, authz.ExecutionError{
				ProposalID: proposal.ID,
				CallIndex:  int(row.CallIndex),
				Target:     row.Target,
				Err: fmt.Errorf(
					"no collaborator registered as %q",
					row.Target,
				),
			}
		}
		err = collaborator.Apply(txn, e.identity, Call{
			Target:     row.Target,
			AuxValue:   uint64(row.AuxValue),
			Payload:    payload,
			ProposalID: proposal.ID,
			CallIndex:  row.CallIndex,
		})
		if err != nil {
			return 0, authz.ExecutionError{
				ProposalID: proposal.ID,
				CallIndex:  int(row.CallIndex),
				Target:     row.Target,
				Err:        err,
			}
		}
		e.logger.Debug(
			"executed proposal call",
			"proposal_id", proposal.ID,
			"call_index", row.CallIndex,
			"target", row.Target,
		)
	}
	return len(calls), nil
}

// callPayload fetches one call's payload, preferring the hot cache. A
// cached entry is only served if it matches the hash recorded at
// propose time; anything else falls through to the verified blob read.
func (e *GovernanceEngine) callPayload(
	call *models.ProposalCall,
	txn *database.Txn,
) ([]byte, error) {
	key := types.PayloadBlobKey(call.ProposalID, call.CallIndex)
	if cached, ok := e.payloadCache.Get(key); ok {
		hash := sha256.Sum256(cached)
		if bytes.Equal(hash[:], call.PayloadHash) {
			e.metrics.payloadCacheHits.Inc()
			return cached, nil
		}
	}
	e.metrics.payloadCacheMiss.Inc()
	payload, err := e.db.GetProposalCallPayload(call, txn)
	if err != nil {
		return nil, err
	}
	e.payloadCache.Put(key, payload)
	return payload, nil
}
