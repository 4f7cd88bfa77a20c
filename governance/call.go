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
	"fmt"
	"strings"

	"github.com/gavel-io/gavel/database"
)

// Category classifies a proposal by the approval bar it must clear
type Category uint8

const (
	CategoryRoutine  Category = 1
	CategoryCritical Category = 2
)

func (c Category) String() string {
	switch c {
	case CategoryRoutine:
		return "routine"
	case CategoryCritical:
		return "critical"
	}
	return "unknown"
}

// ParseCategory converts a category name into a Category. Names match
// Category.String() output.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "routine":
		return CategoryRoutine, nil
	case "critical":
		return CategoryCritical, nil
	}
	return 0, fmt.Errorf("unknown category: %q", s)
}

// Call is a single operation in a proposal's call list: a collaborator
// name, an auxiliary value the collaborator is free to interpret, and
// an opaque operation payload. ProposalID and CallIndex locate the call
// within its proposal; the engine assigns them, and values supplied at
// propose time are ignored.
type Call struct {
	Target     string
	AuxValue   uint64
	Payload    []byte
	ProposalID uint64
	CallIndex  uint32
}

// Collaborator applies approved governance calls against its own state.
// Apply runs inside the voting transaction, so returning an error rolls
// back the entire vote that triggered execution.
type Collaborator interface {
	Name() string
	Apply(txn *database.Txn, caller string, call Call) error
}
