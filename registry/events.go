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

package registry

import (
	"time"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/event"
)

const (
	// RoleGrantedEventType is the event type for role grants
	RoleGrantedEventType = event.EventType("registry.role.granted")
	// RoleRevokedEventType is the event type for role revocations
	RoleRevokedEventType = event.EventType("registry.role.revoked")
	// CompromiseMarkedEventType is the event type for compromise marks
	CompromiseMarkedEventType = event.EventType("registry.compromise.marked")
	// CompromiseRestoredEventType is the event type for compromise
	// restorations
	CompromiseRestoredEventType = event.EventType(
		"registry.compromise.restored",
	)
)

// RoleGrantedEvent is emitted when an identity newly receives a role.
// Idempotent re-grants of a held role do not emit.
type RoleGrantedEvent struct {
	Identity  string
	Role      authz.Role
	GrantedBy string
	Timestamp time.Time
}

// RoleRevokedEvent is emitted when a held role is removed from an
// identity
type RoleRevokedEvent struct {
	Identity  string
	Role      authz.Role
	RevokedBy string
	Timestamp time.Time
}

// CompromiseMarkedEvent is emitted when an identity is marked
// compromised
type CompromiseMarkedEvent struct {
	Identity  string
	Reporter  string
	Reason    string
	Timestamp time.Time
}

// CompromiseRestoredEvent is emitted when a compromised identity is
// restored to good standing
type CompromiseRestoredEvent struct {
	Identity   string
	RestoredBy string
	Timestamp  time.Time
}
