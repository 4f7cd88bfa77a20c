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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/internal/config"
)

// Verify opens the configured database and runs a payload verification
// sweep. A commit timestamp conflict on open is reported but does not
// stop the sweep, since verification is the tool for diagnosing that
// state.
func Verify(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) error {
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		MaxConnections: 1,
	})
	if err != nil {
		var timestampErr database.CommitTimestampError
		if db == nil || !errors.As(err, &timestampErr) {
			return fmt.Errorf("opening database: %w", err)
		}
		logger.Warn(
			"commit timestamp conflict detected, verifying anyway",
			"component", "verify",
			"error", err,
		)
	}
	defer db.Close()
	return NewVerifier(db, logger).Run(ctx)
}

// Verifier audits the payload blob store against the proposal call
// metadata. Every call row must have a payload whose hash matches the
// recorded digest, and every stored payload must belong to a recorded
// call row.
type Verifier struct {
	db     *database.Database
	logger *slog.Logger

	// Sweep results tracked across proposals.
	verifiedPayloads int
	missingPayloads  int
	corruptPayloads  int
	orphanPayloads   int

	// knownCalls maps a proposal ID to its call count so the blob
	// sweep can recognize payloads without a matching call row. Call
	// indexes are assigned contiguously from zero, so a count is
	// enough to decide membership.
	knownCalls map[uint64]uint32
}

// NewVerifier creates a new Verifier instance.
func NewVerifier(
	db *database.Database,
	logger *slog.Logger,
) *Verifier {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Verifier{
		db:     db,
		logger: logger,
	}
}

// Run executes the verification sweep. Blocks until complete or context
// cancelled. Returns an error when any payload is missing, corrupt, or
// orphaned.
func (v *Verifier) Run(ctx context.Context) error {
	maxId, err := v.db.GetMaxProposalID(nil)
	if err != nil {
		return fmt.Errorf("reading max proposal ID: %w", err)
	}
	if maxId == 0 {
		v.logger.Info(
			"no proposals recorded, nothing to verify",
			"component", "verify",
		)
		return nil
	}

	startTime := time.Now()
	v.logger.Info(
		"starting payload verification",
		"component", "verify",
		"proposals", maxId,
	)

	if err := v.sweepCalls(ctx, maxId); err != nil {
		return err
	}
	if err := v.sweepPayloads(ctx); err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	v.logger.Info(
		"payload verification complete",
		"component", "verify",
		"verified", v.verifiedPayloads,
		"missing", v.missingPayloads,
		"corrupt", v.corruptPayloads,
		"orphaned", v.orphanPayloads,
		"elapsed", elapsed.Round(time.Second),
	)

	if v.missingPayloads+v.corruptPayloads+v.orphanPayloads > 0 {
		return fmt.Errorf(
			"payload verification failed: %d missing, %d corrupt, %d orphaned",
			v.missingPayloads,
			v.corruptPayloads,
			v.orphanPayloads,
		)
	}
	return nil
}

// sweepCalls walks every recorded call row and fetches its payload from
// the blob store, which also checks the stored digest.
func (v *Verifier) sweepCalls(ctx context.Context, maxId uint64) error {
	v.knownCalls = make(map[uint64]uint32)
	lastLogTime := time.Now()
	for proposalId := uint64(1); proposalId <= maxId; proposalId++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		calls, err := v.db.GetProposalCalls(proposalId, nil)
		if err != nil {
			return fmt.Errorf(
				"reading calls for proposal %d: %w",
				proposalId,
				err,
			)
		}
		v.knownCalls[proposalId] = uint32(len(calls)) // #nosec G115
		for i := range calls {
			_, err := v.db.GetProposalCallPayload(&calls[i], nil)
			switch {
			case err == nil:
				v.verifiedPayloads++
			case errors.Is(err, models.ErrProposalNotFound):
				v.missingPayloads++
				v.logger.Warn(
					"call payload missing from blob store",
					"component", "verify",
					"proposal_id", proposalId,
					"call_index", calls[i].CallIndex,
				)
			case errors.Is(err, database.ErrPayloadHashMismatch):
				v.corruptPayloads++
				v.logger.Warn(
					"call payload does not match recorded digest",
					"component", "verify",
					"proposal_id", proposalId,
					"call_index", calls[i].CallIndex,
				)
			default:
				return fmt.Errorf(
					"reading payload for proposal %d call %d: %w",
					proposalId,
					calls[i].CallIndex,
					err,
				)
			}
		}
		v.maybeLogProgress(proposalId, maxId, &lastLogTime)
	}
	return nil
}

// sweepPayloads walks every payload in the blob store and flags entries
// with no matching call row.
func (v *Verifier) sweepPayloads(ctx context.Context) error {
	it := v.db.PayloadsFromProposal(0)
	defer it.Close()
	lastLogTime := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		result, err := it.NextRaw()
		if err != nil {
			return fmt.Errorf("scanning payload store: %w", err)
		}
		if result == nil {
			break // iteration complete
		}
		callCount, ok := v.knownCalls[result.ProposalID]
		if !ok || result.CallIndex >= callCount {
			v.orphanPayloads++
			v.logger.Warn(
				"payload has no matching call row",
				"component", "verify",
				"proposal_id", result.ProposalID,
				"call_index", result.CallIndex,
				"payload_size", len(result.Payload),
			)
		}
		current, _ := it.Progress()
		v.maybeLogProgress(current, 0, &lastLogTime)
	}
	return nil
}

// maybeLogProgress logs sweep progress, throttled to at most once every
// 10 seconds.
func (v *Verifier) maybeLogProgress(
	current, end uint64,
	lastLogTime *time.Time,
) {
	now := time.Now()
	if now.Sub(*lastLogTime) < 10*time.Second {
		return
	}
	*lastLogTime = now

	attrs := []any{
		"component", "verify",
		"proposal_id", current,
		"verified", v.verifiedPayloads,
	}
	if end > 0 {
		pct := float64(current) / float64(end) * 100
		attrs = append(attrs, "progress", fmt.Sprintf("%.1f%%", pct))
	}
	v.logger.Info("verification progress", attrs...)
}
