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

package database

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/gavel-io/gavel/database/types"
)

const (
	// payloadIteratorBatchSize controls how many payload keys are fetched
	// per batch from the blob iterator. This avoids loading every payload
	// key into memory while keeping I/O efficient.
	payloadIteratorBatchSize = 1000
)

// blobPayloadEntry holds a payload key discovered during batch scanning.
type blobPayloadEntry struct {
	key        []byte
	proposalId uint64
	callIndex  uint32
}

// PayloadIterator iterates call payloads from the blob store in
// proposal order. The blob store keys are formatted as "pp" +
// big-endian(proposal ID) + big-endian(call index), so forward
// iteration naturally yields payloads ordered by proposal ID and then
// call index.
//
// The iterator fetches payload keys in batches to avoid loading the
// entire payload index into memory, and retrieves payload bytes on
// demand for each call to NextRaw.
type PayloadIterator struct {
	db            *Database
	startProposal uint64
	endProposal   uint64
	hasEnd        bool

	// internal state
	mu              sync.Mutex
	batch           []blobPayloadEntry
	batchIdx        int
	currentProposal uint64
	exhausted       bool
	closed          bool

	// resumeKey is the blob key to seek past when fetching the next batch.
	// nil means start from the beginning (or from startProposal).
	resumeKey []byte
}

// PayloadsFromProposal returns an iterator that yields call payloads
// starting from the given proposal ID, continuing through all
// subsequent payloads in the blob store.
func (d *Database) PayloadsFromProposal(
	startProposal uint64,
) *PayloadIterator {
	return &PayloadIterator{
		db:            d,
		startProposal: startProposal,
	}
}

// PayloadsInRange returns an iterator for a specific proposal ID range
// [start, end]. Both endpoints are inclusive.
func (d *Database) PayloadsInRange(
	startProposal, endProposal uint64,
) *PayloadIterator {
	return &PayloadIterator{
		db:            d,
		startProposal: startProposal,
		endProposal:   endProposal,
		hasEnd:        true,
	}
}

// PayloadResult holds the data returned by PayloadIterator.NextRaw.
type PayloadResult struct {
	ProposalID uint64
	CallIndex  uint32
	Payload    []byte
}

// NextRaw returns the next call payload along with the proposal ID and
// call index parsed from its key. When iteration is complete, it
// returns (nil, nil). Keys whose payload cannot be fetched from the
// blob store are skipped with a warning log.
func (it *PayloadIterator) NextRaw() (*PayloadResult, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil, nil
	}

	for {
		// Refill batch if needed
		if it.batchIdx >= len(it.batch) {
			if it.exhausted {
				return nil, nil
			}
			if err := it.fetchBatch(); err != nil {
				return nil, err
			}
			if len(it.batch) == 0 {
				it.exhausted = true
				return nil, nil
			}
		}

		entry := it.batch[it.batchIdx]
		it.batchIdx++
		it.currentProposal = entry.proposalId

		// Fetch payload bytes from blob store
		payload, fetchErr := it.fetchPayload(entry.key)
		if fetchErr != nil {
			if errors.Is(fetchErr, types.ErrBlobKeyNotFound) {
				it.db.logger.Warn(
					"payload iterator: skipping key with missing payload",
					"proposal_id", entry.proposalId,
					"call_index", entry.callIndex,
					"error", fetchErr,
				)
				continue
			}
			return nil, fmt.Errorf(
				"fetching payload for proposal %d call %d: %w",
				entry.proposalId, entry.callIndex, fetchErr,
			)
		}

		return &PayloadResult{
			ProposalID: entry.proposalId,
			CallIndex:  entry.callIndex,
			Payload:    payload,
		}, nil
	}
}

// Progress returns the proposal ID currently being iterated and the end
// proposal ID. If no end was specified (iterate to the latest payload),
// end returns 0.
func (it *PayloadIterator) Progress() (current, end uint64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.currentProposal, it.endProposal
}

// Close releases any resources held by the iterator. It is safe to call
// Close multiple times.
func (it *PayloadIterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.batch = nil
	it.resumeKey = nil
}

// fetchBatch retrieves the next batch of payload keys from the blob
// store. Must be called with it.mu held.
func (it *PayloadIterator) fetchBatch() error {
	blob := it.db.Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}

	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	iterOpts := types.BlobIteratorOptions{
		Prefix: []byte(types.PayloadBlobKeyPrefix),
	}
	blobIter := blob.NewIterator(txn, iterOpts)
	if blobIter == nil {
		return errors.New("blob iterator is nil")
	}
	defer blobIter.Close()

	// Determine seek position
	var seekKey []byte
	if it.resumeKey != nil {
		// Seek past the last key we processed
		seekKey = it.resumeKey
	} else {
		// Start from the configured start proposal
		seekKey = types.ProposalPayloadBlobKeyPrefix(it.startProposal)
	}

	// Build end prefix for range limiting.
	// When endProposal is max uint64, all proposals are in range so we
	// skip the prefix check to avoid overflow on endProposal+1.
	var endPrefix []byte
	if it.hasEnd && it.endProposal < ^uint64(0) {
		endPrefix = types.ProposalPayloadBlobKeyPrefix(it.endProposal + 1)
	}

	batch := make([]blobPayloadEntry, 0, payloadIteratorBatchSize)
	prefix := []byte(types.PayloadBlobKeyPrefix)

	resuming := it.resumeKey != nil

	for blobIter.Seek(seekKey); blobIter.ValidForPrefix(prefix); blobIter.Next() {
		item := blobIter.Item()
		if item == nil {
			continue
		}
		key := item.Key()
		if key == nil {
			continue
		}

		// When resuming, skip the exact key we left off at.
		// If resumeKey was deleted (compaction), Seek lands on the
		// next key which should be included, so we only continue
		// when there is an exact match.
		if resuming {
			resuming = false
			if bytes.Equal(key, it.resumeKey) {
				continue
			}
		}

		// Check end range
		if endPrefix != nil && bytes.Compare(key, endPrefix) >= 0 {
			break
		}

		// Parse proposal ID and call index from key
		proposalId, callIndex, parseErr := types.PayloadBlobKeyToIDs(key)
		if parseErr != nil {
			it.db.logger.Warn(
				"payload iterator: skipping unparseable key",
				"error", parseErr,
			)
			continue
		}

		entry := blobPayloadEntry{
			key:        make([]byte, len(key)),
			proposalId: proposalId,
			callIndex:  callIndex,
		}
		copy(entry.key, key)

		batch = append(batch, entry)
		if len(batch) >= payloadIteratorBatchSize {
			break
		}
	}

	if err := blobIter.Err(); err != nil {
		return fmt.Errorf("scanning payload keys: %w", err)
	}

	it.batch = batch
	it.batchIdx = 0

	if len(batch) > 0 {
		it.resumeKey = batch[len(batch)-1].key
	}

	// If we got fewer than a full batch, we've exhausted the range
	if len(batch) < payloadIteratorBatchSize {
		it.exhausted = true
	}

	return nil
}

// fetchPayload retrieves the raw payload bytes for a key.
// Must be called with it.mu held.
func (it *PayloadIterator) fetchPayload(key []byte) ([]byte, error) {
	blob := it.db.Blob()
	if blob == nil {
		return nil, types.ErrBlobStoreUnavailable
	}

	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	return blob.Get(txn, key)
}
