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

package models

import (
	"errors"
	"time"
)

var ErrCompromiseRecordNotFound = errors.New("compromise record not found")

// CompromiseRecord marks an identity as compromised. A restore flips
// Active to false but keeps the row, so the original reporter and
// reason stay in the audit trail. An identity accumulates one row per
// mark/restore cycle.
type CompromiseRecord struct {
	ID         uint   `gorm:"primarykey"`
	Identity   string `gorm:"index;size:128;not null"`
	Reporter   string `gorm:"size:128;not null"`
	Reason     string `gorm:"size:512"`
	Active     bool   `gorm:"index;not null"`
	ReportedAt time.Time
	RestoredAt *time.Time
	RestoredBy string `gorm:"size:128"`
}

// TableName returns the table name
func (CompromiseRecord) TableName() string {
	return "compromise_record"
}
