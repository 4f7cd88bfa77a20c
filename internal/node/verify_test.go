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

package node

import (
	"context"
	"testing"
	"time"

	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifyTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: ""})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func storeProposalWithCalls(
	t *testing.T,
	db *database.Database,
	proposalId uint64,
	payloads [][]byte,
) {
	t.Helper()
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := db.SetProposal(
			&models.Proposal{
				ID:        proposalId,
				Proposer:  "maker-1",
				Category:  1,
				CreatedAt: time.Now(),
			},
			txn,
		); err != nil {
			return err
		}
		for i, payload := range payloads {
			call := &models.ProposalCall{
				ProposalID: proposalId,
				CallIndex:  uint32(i), // #nosec G115
				Target:     "assets",
			}
			if err := db.SetProposalCall(call, payload, txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// setBlobPayload writes raw bytes directly to a payload key, bypassing
// the facade, to simulate corruption and orphaned entries
func setBlobPayload(
	t *testing.T,
	db *database.Database,
	proposalId uint64,
	callIndex uint32,
	value []byte,
) {
	t.Helper()
	blob := db.Blob()
	txn := blob.NewTransaction(true)
	key := types.PayloadBlobKey(proposalId, callIndex)
	require.NoError(t, blob.Set(txn, key, value))
	require.NoError(t, txn.Commit())
}

func TestVerifierCleanStore(t *testing.T) {
	db := newVerifyTestDB(t)
	storeProposalWithCalls(t, db, 1, [][]byte{
		[]byte("mint asset SN-1"),
		[]byte("grant read capability"),
	})
	storeProposalWithCalls(t, db, 2, [][]byte{
		[]byte("update status"),
	})

	v := NewVerifier(db, nil)
	require.NoError(t, v.Run(context.Background()))
	assert.Equal(t, 3, v.verifiedPayloads)
	assert.Zero(t, v.missingPayloads)
	assert.Zero(t, v.corruptPayloads)
	assert.Zero(t, v.orphanPayloads)
}

func TestVerifierEmptyStore(t *testing.T) {
	db := newVerifyTestDB(t)
	v := NewVerifier(db, nil)
	require.NoError(t, v.Run(context.Background()))
	assert.Zero(t, v.verifiedPayloads)
}

func TestVerifierCorruptPayload(t *testing.T) {
	db := newVerifyTestDB(t)
	storeProposalWithCalls(t, db, 1, [][]byte{
		[]byte("mint asset SN-1"),
	})
	setBlobPayload(t, db, 1, 0, []byte("tampered bytes"))

	v := NewVerifier(db, nil)
	err := v.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 corrupt")
	assert.Equal(t, 1, v.corruptPayloads)
}

func TestVerifierMissingPayload(t *testing.T) {
	db := newVerifyTestDB(t)
	storeProposalWithCalls(t, db, 1, [][]byte{
		[]byte("mint asset SN-1"),
	})
	blob := db.Blob()
	txn := blob.NewTransaction(true)
	require.NoError(
		t,
		blob.Delete(txn, types.PayloadBlobKey(1, 0)),
	)
	require.NoError(t, txn.Commit())

	v := NewVerifier(db, nil)
	err := v.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 missing")
	assert.Equal(t, 1, v.missingPayloads)
}

func TestVerifierOrphanPayload(t *testing.T) {
	db := newVerifyTestDB(t)
	storeProposalWithCalls(t, db, 1, [][]byte{
		[]byte("mint asset SN-1"),
	})
	// A payload at a call index beyond the recorded batch and one for
	// an unknown proposal are both orphans
	setBlobPayload(t, db, 1, 5, []byte("stray call payload"))
	setBlobPayload(t, db, 9, 0, []byte("stray proposal payload"))

	v := NewVerifier(db, nil)
	err := v.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 orphaned")
	assert.Equal(t, 2, v.orphanPayloads)
	assert.Equal(t, 1, v.verifiedPayloads)
}

func TestVerifierCancelled(t *testing.T) {
	db := newVerifyTestDB(t)
	storeProposalWithCalls(t, db, 1, [][]byte{
		[]byte("mint asset SN-1"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewVerifier(db, nil)
	err := v.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}
