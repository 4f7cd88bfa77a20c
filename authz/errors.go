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

package authz

import "fmt"

// ValidationError indicates malformed operation input, such as an
// empty call list or an unparseable payload.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// AuthorizationError indicates the acting identity lacks the role or
// delegated capability the operation requires.
type AuthorizationError struct {
	Identity string
	Reason   string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf(
		"identity %s not authorized: %s",
		e.Identity,
		e.Reason,
	)
}

// ComplianceError indicates the acting identity has an active
// compromise record and is barred from the operation regardless of
// held roles.
type ComplianceError struct {
	Identity string
}

func (e ComplianceError) Error() string {
	return fmt.Sprintf(
		"identity %s is marked compromised",
		e.Identity,
	)
}

// StateError indicates the operation conflicts with current state,
// such as voting twice, acting on an executed proposal, marking an
// already-compromised identity, or restoring one that is not
// compromised.
type StateError struct {
	Reason string
}

func (e StateError) Error() string {
	return "conflicting state: " + e.Reason
}

// ExecutionError indicates a downstream collaborator call failed
// during threshold-triggered proposal execution. The triggering vote
// is rolled back in full and the caller may retry once the underlying
// condition is fixed.
type ExecutionError struct {
	ProposalID uint64
	CallIndex  int
	Target     string
	Err        error
}

func (e ExecutionError) Error() string {
	return fmt.Sprintf(
		"proposal %d execution failed at call %d (%s): %v",
		e.ProposalID,
		e.CallIndex,
		e.Target,
		e.Err,
	)
}

func (e ExecutionError) Unwrap() error {
	return e.Err
}
