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

var ErrAssetNotFound = errors.New("asset not found")

// Asset is a physical item tracked by the registry. Rows are only
// ever written through approved governance calls. The ID comes from
// the asset registry's own counter, kept separate from the proposal
// ID space.
type Asset struct {
	ID        uint64 `gorm:"primarykey"`
	Serial    string `gorm:"uniqueIndex;size:64;not null"`
	Maker     string `gorm:"index;size:128;not null"`
	Model     string `gorm:"size:128"`
	Status    uint8  `gorm:"index;not null"` // 1=active, 2=under_repair, 3=retired
	Custodian string `gorm:"index;size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name
func (Asset) TableName() string {
	return "asset"
}
