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

// Package governance implements the proposal and voting engine.
// Proposals carry an ordered batch of collaborator calls; votes
// accumulate until the category threshold is reached, at which point
// the engine executes the batch inside the voting transaction. A
// failed execution rolls the triggering vote back in full, so the
// proposal ledger never records a vote whose execution did not stick.
package governance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/database/types"
	"github.com/gavel-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultEngineIdentity    = "governance-engine"
	DefaultVotingSeats       = 3
	DefaultCriticalThreshold = 2
	DefaultRoutineThreshold  = 1

	// Call payloads are immutable once proposed, so cached entries can
	// never go stale. The byte cap bounds worst-case memory.
	payloadCacheMaxEntries = 1024
	payloadCacheMaxBytes   = 16 * 1024 * 1024
)

// ParticipantDirectory is the slice of the participant registry the
// engine consults for proposer and voter checks
type ParticipantDirectory interface {
	HasRoleAtLeast(identity string, required authz.Role) (bool, error)
	IsCompromised(identity string) (bool, error)
}

// SubmitDelegationChecker reports whether an identity holds a live
// delegated submit capability for a subject. The permission authority
// satisfies this.
type SubmitDelegationChecker interface {
	HasSubmitCapability(identity string, subjectID uint64) (bool, error)
}

type Config struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	DB           *database.Database
	Participants ParticipantDirectory
	// Delegations may be nil, in which case routine proposals can only
	// be submitted by role holders
	Delegations   SubmitDelegationChecker
	Collaborators []Collaborator
	// Identity is the caller name the engine presents to collaborators
	// during execution
	Identity          string
	VotingSeats       uint32
	CriticalThreshold uint32
	RoutineThreshold  uint32
}

// VoteResult reports the committed outcome of a cast vote
type VoteResult struct {
	ProposalID uint64
	ForVotes   uint32
	Executed   bool
}

type GovernanceEngine struct {
	config  Config
	metrics struct {
		proposalsTotal   *prometheus.CounterVec
		votesTotal       prometheus.Counter
		executionsTotal  *prometheus.CounterVec
		payloadCacheHits prometheus.Counter
		payloadCacheMiss prometheus.Counter
	}
	logger            *slog.Logger
	eventBus          *event.EventBus
	db                *database.Database
	participants      ParticipantDirectory
	delegations       SubmitDelegationChecker
	collaborators     map[string]Collaborator
	payloadCache      *database.HotCache
	identity          string
	votingSeats       uint32
	criticalThreshold uint32
	routineThreshold  uint32
	nextProposalId    uint64
	sync.RWMutex
}

// New creates a governance engine backed by the given database. The
// proposal ID counter is seeded from the highest committed ID.
func New(config Config) (*GovernanceEngine, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("governance engine requires a database")
	}
	if config.Participants == nil {
		return nil, fmt.Errorf(
			"governance engine requires a participant directory",
		)
	}
	e := &GovernanceEngine{
		config:        config,
		eventBus:      config.EventBus,
		db:            config.DB,
		participants:  config.Participants,
		delegations:   config.Delegations,
		collaborators: make(map[string]Collaborator),
		payloadCache: database.NewHotCache(
			payloadCacheMaxEntries,
			payloadCacheMaxBytes,
		),
		identity:          config.Identity,
		votingSeats:       config.VotingSeats,
		criticalThreshold: config.CriticalThreshold,
		routineThreshold:  config.RoutineThreshold,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		e.logger = config.Logger.With("component", "governance")
	}
	if e.identity == "" {
		e.identity = DefaultEngineIdentity
	}
	if e.votingSeats == 0 {
		e.votingSeats = DefaultVotingSeats
	}
	if e.criticalThreshold == 0 {
		e.criticalThreshold = DefaultCriticalThreshold
	}
	if e.routineThreshold == 0 {
		e.routineThreshold = DefaultRoutineThreshold
	}
	// A threshold of zero would execute proposals nobody voted for,
	// and one above the seat count could never be reached
	if e.criticalThreshold > e.votingSeats {
		return nil, fmt.Errorf(
			"critical threshold %d exceeds voting seats %d",
			e.criticalThreshold,
			e.votingSeats,
		)
	}
	if e.routineThreshold > e.votingSeats {
		return nil, fmt.Errorf(
			"routine threshold %d exceeds voting seats %d",
			e.routineThreshold,
			e.votingSeats,
		)
	}
	for _, collaborator := range config.Collaborators {
		name := collaborator.Name()
		if name == "" {
			return nil, fmt.Errorf("collaborator with empty name")
		}
		if _, ok := e.collaborators[name]; ok {
			return nil, fmt.Errorf("duplicate collaborator name: %q", name)
		}
		e.collaborators[name] = collaborator
	}
	maxId, err := e.db.GetMaxProposalID(nil)
	if err != nil {
		return nil, fmt.Errorf("seeding proposal ID counter: %w", err)
	}
	e.nextProposalId = maxId + 1
	e.initMetrics()
	return e, nil
}

func (e *GovernanceEngine) initMetrics() {
	promautoFactory := promauto.With(e.config.PromRegistry)
	e.metrics.proposalsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_governance_proposals_total",
			Help: "total proposals submitted by category",
		},
		[]string{"category"},
	)
	e.metrics.votesTotal = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_governance_votes_total",
			Help: "total committed votes",
		},
	)
	e.metrics.executionsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_governance_executions_total",
			Help: "proposal executions by outcome",
		},
		[]string{"outcome"},
	)
	e.metrics.payloadCacheHits = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_governance_payload_cache_hits_total",
			Help: "call payload reads served from the hot cache",
		},
	)
	e.metrics.payloadCacheMiss = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_governance_payload_cache_misses_total",
			Help: "call payload reads that fell through to the blob store",
		},
	)
}

func (e *GovernanceEngine) publish(eventType event.EventType, data any) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func (e *GovernanceEngine) threshold(category Category) uint32 {
	if category == CategoryCritical {
		return e.criticalThreshold
	}
	return e.routineThreshold
}

// Identity returns the caller name the engine presents to collaborators
func (e *GovernanceEngine) Identity() string {
	return e.identity
}

// Propose validates and persists a new proposal with its call batch and
// returns the assigned ID. The proposal starts Pending with no votes.
func (e *GovernanceEngine) Propose(
	proposer string,
	calls []Call,
	description string,
	category Category,
	subjectID *uint64,
) (uint64, error) {
	e.Lock()
	defer e.Unlock()
	if proposer == "" {
		return 0, authz.ValidationError{Reason: "proposer cannot be blank"}
	}
	if description == "" {
		return 0, authz.ValidationError{Reason: "description cannot be blank"}
	}
	if category != CategoryRoutine && category != CategoryCritical {
		return 0, authz.ValidationError{
			Reason: fmt.Sprintf("unknown category: %d", category),
		}
	}
	if len(calls) == 0 {
		return 0, authz.ValidationError{Reason: "call list cannot be empty"}
	}
	for i, call := range calls {
		if _, ok := e.collaborators[call.Target]; !ok {
			return 0, authz.ValidationError{
				Reason: fmt.Sprintf(
					"call %d targets unknown collaborator %q",
					i,
					call.Target,
				),
			}
		}
		if len(call.Payload) == 0 {
			return 0, authz.ValidationError{
				Reason: fmt.Sprintf("call %d has an empty payload", i),
			}
		}
	}
	compromised, err := e.participants.IsCompromised(proposer)
	if err != nil {
		return 0, err
	}
	if compromised {
		return 0, authz.ComplianceError{Identity: proposer}
	}
	authorized, err := e.participants.HasRoleAtLeast(
		proposer,
		authz.RoleManufacturer,
	)
	if err != nil {
		return 0, err
	}
	if !authorized &&
		category == CategoryRoutine &&
		subjectID != nil &&
		e.delegations != nil {
		// Delegated submission covers routine proposals with a concrete
		// subject only; critical proposals always take a role holder
		authorized, err = e.delegations.HasSubmitCapability(
			proposer,
			*subjectID,
		)
		if err != nil {
			return 0, err
		}
	}
	if !authorized {
		return 0, authz.AuthorizationError{
			Identity: proposer,
			Reason:   "proposing requires the manufacturer role or a delegated submit capability",
		}
	}
	proposalId := e.nextProposalId
	now := time.Now()
	txn := e.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := e.db.SetProposal(&models.Proposal{
			ID:          proposalId,
			Proposer:    proposer,
			Description: description,
			Category:    uint8(category),
			SubjectID:   subjectID,
			CreatedAt:   now,
		}, txn); err != nil {
			return err
		}
		for i, call := range calls {
			if err := e.db.SetProposalCall(&models.ProposalCall{
				ProposalID: proposalId,
				CallIndex:  uint32(i),
				Target:     call.Target,
				AuxValue:   types.Uint64(call.AuxValue),
			}, call.Payload, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	// The counter only moves on a committed proposal, so a storage
	// failure never burns an ID
	e.nextProposalId++
	for i, call := range calls {
		e.payloadCache.Put(
			types.PayloadBlobKey(proposalId, uint32(i)),
			call.Payload,
		)
	}
	e.logger.Info(
		"proposal submitted",
		"proposal_id", proposalId,
		"proposer", proposer,
		"category", category.String(),
		"calls", len(calls),
	)
	e.metrics.proposalsTotal.WithLabelValues(category.String()).Inc()
	e.publish(ProposalSubmittedEventType, ProposalSubmittedEvent{
		ProposalID: proposalId,
		Proposer:   proposer,
		Category:   category,
		CallCount:  len(calls),
		Timestamp:  now,
	})
	return proposalId, nil
}

// CastVote records a vote and, once the category threshold is reached,
// executes the proposal's call batch inside the same transaction. On
// execution failure the vote is rolled back in full and the returned
// ExecutionError is retryable.
func (e *GovernanceEngine) CastVote(
	proposalID uint64,
	voter string,
) (VoteResult, error) {
	if voter == "" {
		return VoteResult{}, authz.ValidationError{
			Reason: "voter cannot be blank",
		}
	}
	e.Lock()
	defer e.Unlock()
	proposal, err := e.db.GetProposal(proposalID, nil)
	if err != nil {
		return VoteResult{}, err
	}
	if proposal.Executed {
		return VoteResult{}, authz.StateError{
			Reason: fmt.Sprintf("proposal %d is already executed", proposalID),
		}
	}
	existingVote, err := e.db.GetProposalVote(proposalID, voter, nil)
	if err != nil {
		return VoteResult{}, err
	}
	if existingVote != nil {
		return VoteResult{}, authz.StateError{
			Reason: fmt.Sprintf(
				"%s has already voted on proposal %d",
				voter,
				proposalID,
			),
		}
	}
	compromised, err := e.participants.IsCompromised(voter)
	if err != nil {
		return VoteResult{}, err
	}
	if compromised {
		return VoteResult{}, authz.ComplianceError{Identity: voter}
	}
	authorized, err := e.participants.HasRoleAtLeast(
		voter,
		authz.RoleManufacturer,
	)
	if err != nil {
		return VoteResult{}, err
	}
	if !authorized {
		// Delegated capabilities never confer voting rights
		return VoteResult{}, authz.AuthorizationError{
			Identity: voter,
			Reason:   "voting requires the manufacturer role or above",
		}
	}
	now := time.Now()
	executed := false
	executedCalls := 0
	txn := e.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := e.db.SetProposalVote(&models.ProposalVote{
			ProposalID: proposalID,
			Voter:      voter,
			VotedAt:    now,
		}, txn); err != nil {
			return err
		}
		proposal.ForVotes++
		if proposal.ForVotes >= e.threshold(Category(proposal.Category)) {
			calls, err := e.executeProposal(txn, proposal)
			if err != nil {
				return err
			}
			executed = true
			executedCalls = calls
			proposal.Executed = true
			proposal.ExecutedAt = &now
		}
		return e.db.SetProposal(proposal, txn)
	})
	if err != nil {
		var execErr authz.ExecutionError
		if errors.As(err, &execErr) {
			e.logger.Warn(
				"proposal execution failed, vote rolled back",
				"proposal_id", proposalID,
				"voter", voter,
				"call_index", execErr.CallIndex,
				"target", execErr.Target,
				"error", execErr.Err,
			)
			e.metrics.executionsTotal.WithLabelValues("failed").Inc()
		}
		return VoteResult{}, err
	}
	e.logger.Info(
		"vote cast",
		"proposal_id", proposalID,
		"voter", voter,
		"for_votes", proposal.ForVotes,
		"executed", executed,
	)
	e.metrics.votesTotal.Inc()
	e.publish(VoteCastEventType, VoteCastEvent{
		ProposalID: proposalID,
		Voter:      voter,
		ForVotes:   proposal.ForVotes,
		Executed:   executed,
		Timestamp:  now,
	})
	if executed {
		e.metrics.executionsTotal.WithLabelValues("executed").Inc()
		e.publish(ProposalExecutedEventType, ProposalExecutedEvent{
			ProposalID: proposalID,
			CallCount:  executedCalls,
			Timestamp:  now,
		})
		e.logger.Info(
			"proposal executed",
			"proposal_id", proposalID,
			"calls", executedCalls,
		)
	}
	return VoteResult{
		ProposalID: proposalID,
		ForVotes:   proposal.ForVotes,
		Executed:   executed,
	}, nil
}

// ProposalByID returns a proposal by ID
func (e *GovernanceEngine) ProposalByID(
	id uint64,
) (*models.Proposal, error) {
	e.RLock()
	defer e.RUnlock()
	return e.db.GetProposal(id, nil)
}

// Proposals returns a page of proposals ordered by ID, optionally
// filtered on the executed flag
func (e *GovernanceEngine) Proposals(
	executed *bool,
	limit int,
	offset int,
	order string,
) ([]models.Proposal, error) {
	e.RLock()
	defer e.RUnlock()
	return e.db.GetProposals(executed, limit, offset, order, nil)
}

// Count returns the number of proposals, optionally filtered on the
// executed flag
func (e *GovernanceEngine) Count(executed *bool) (int64, error) {
	e.RLock()
	defer e.RUnlock()
	return e.db.CountProposals(executed, nil)
}

// VoteStatus returns a proposal's committed tally and execution flag
func (e *GovernanceEngine) VoteStatus(
	id uint64,
) (uint32, bool, error) {
	e.RLock()
	defer e.RUnlock()
	proposal, err := e.db.GetProposal(id, nil)
	if err != nil {
		return 0, false, err
	}
	return proposal.ForVotes, proposal.Executed, nil
}

// Votes returns the votes cast on a proposal, oldest first. An unknown
// proposal returns models.ErrProposalNotFound rather than an empty set.
func (e *GovernanceEngine) Votes(
	id uint64,
) ([]models.ProposalVote, error) {
	e.RLock()
	defer e.RUnlock()
	if _, err := e.db.GetProposal(id, nil); err != nil {
		return nil, err
	}
	return e.db.GetProposalVotes(id, nil)
}

// Calls returns a proposal's call metadata rows in batch order. An
// unknown proposal returns models.ErrProposalNotFound.
func (e *GovernanceEngine) Calls(
	id uint64,
) ([]models.ProposalCall, error) {
	e.RLock()
	defer e.RUnlock()
	if _, err := e.db.GetProposal(id, nil); err != nil {
		return nil, err
	}
	return e.db.GetProposalCalls(id, nil)
}

// CallPayload returns the encoded payload of one call, verified against
// the hash recorded at propose time
func (e *GovernanceEngine) CallPayload(
	proposalID uint64,
	callIndex uint32,
) ([]byte, error) {
	e.RLock()
	defer e.RUnlock()
	if _, err := e.db.GetProposal(proposalID, nil); err != nil {
		return nil, err
	}
	calls, err := e.db.GetProposalCalls(proposalID, nil)
	if err != nil {
		return nil, err
	}
	for i := range calls {
		if calls[i].CallIndex == callIndex {
			return e.callPayload(&calls[i], nil)
		}
	}
	return nil, models.ErrProposalNotFound
}
