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

import "time"

// AssetEvent is one entry in an asset's history. Every mutation the
// asset registry applies appends a row linking back to the proposal
// that authorized it.
type AssetEvent struct {
	ID         uint   `gorm:"primarykey"`
	AssetID    uint64 `gorm:"index;not null"`
	Kind       uint8  `gorm:"index;not null"` // 1=minted, 2=status, 3=custody, 4=service
	Actor      string `gorm:"size:128;not null"`
	Note       string `gorm:"size:512"`
	ProposalID uint64 `gorm:"index;not null"`
	CreatedAt  time.Time
}

// TableName returns the table name
func (AssetEvent) TableName() string {
	return "asset_event"
}
