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
	"fmt"
)

type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	// Get value from metadata
	metadataTimestamp, metadataErr := d.Metadata().GetCommitTimestamp()
	if metadataErr != nil {
		return fmt.Errorf(
			"failed to get metadata timestamp from plugin: %w",
			metadataErr,
		)
	}
	// No timestamp in the database
	if metadataTimestamp <= 0 {
		return nil
	}
	// Get value from blob
	blobTimestamp, blobErr := d.Blob().GetCommitTimestamp()
	if blobErr != nil {
		return fmt.Errorf(
			"failed to get blob timestamp from plugin: %w",
			blobErr,
		)
	}
	// Compare values
	if blobTimestamp != metadataTimestamp {
		return CommitTimestampError{
			MetadataTimestamp: metadataTimestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
	return nil
}

func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	// Update metadata
	if err := d.Metadata().SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return err
	}
	// Update blob
	if err := d.Blob().SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return err
	}
	return nil
}

// RecoverCommitTimestampConflict realigns the blob and metadata commit
// timestamps after a partial commit. Dual-store commits write the blob
// store first, so a crash between the two commits leaves the blob store
// ahead with payloads that no call row references. Those orphans are
// unreachable and get overwritten when their proposal ID is reused, so
// the stores are consistent as long as every recorded call still has
// payload bytes matching its hash. Recovery verifies that and then
// commits an empty dual-store transaction, which rewrites both
// timestamps to a common value.
func (d *Database) RecoverCommitTimestampConflict() error {
	maxId, err := d.GetMaxProposalID(nil)
	if err != nil {
		return fmt.Errorf("reading max proposal ID: %w", err)
	}
	for proposalId := uint64(1); proposalId <= maxId; proposalId++ {
		calls, err := d.GetProposalCalls(proposalId, nil)
		if err != nil {
			return fmt.Errorf(
				"reading calls for proposal %d: %w",
				proposalId,
				err,
			)
		}
		for i := range calls {
			if _, err := d.GetProposalCallPayload(&calls[i], nil); err != nil {
				return fmt.Errorf(
					"verifying payload for proposal %d call %d: %w",
					proposalId,
					calls[i].CallIndex,
					err,
				)
			}
		}
	}
	d.logger.Info(
		"payloads verified, realigning commit timestamps",
		"proposals", maxId,
	)
	// Any dual-store commit rewrites both timestamps, so an empty
	// transaction is enough to realign them
	txn := d.Transaction(true)
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("realigning commit timestamps: %w", err)
	}
	return nil
}
