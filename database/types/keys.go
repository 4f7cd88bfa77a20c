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

package types

import (
	"encoding/binary"
	"fmt"
)

const (
	// PayloadBlobKeyPrefix namespaces proposal call payload blobs
	PayloadBlobKeyPrefix = "pp"
)

func PayloadBlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// PayloadBlobKey builds the blob key for a single proposal call
// payload. Keys sort by proposal id, then call index.
func PayloadBlobKey(proposalID uint64, callIndex uint32) []byte {
	key := ProposalPayloadBlobKeyPrefix(proposalID)
	idxBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idxBytes, callIndex)
	key = append(key, idxBytes...)
	return key
}

// ProposalPayloadBlobKeyPrefix builds the key prefix covering every
// call payload of one proposal, for prefix iteration.
func ProposalPayloadBlobKeyPrefix(proposalID uint64) []byte {
	key := []byte(PayloadBlobKeyPrefix)
	key = append(key, PayloadBlobKeyUint64ToBytes(proposalID)...)
	return key
}

// PayloadBlobKeyToIDs parses a payload blob key back into its proposal
// ID and call index
func PayloadBlobKeyToIDs(key []byte) (uint64, uint32, error) {
	if len(key) != len(PayloadBlobKeyPrefix)+12 {
		return 0, 0, fmt.Errorf(
			"unexpected payload blob key length: %d",
			len(key),
		)
	}
	offset := len(PayloadBlobKeyPrefix)
	proposalId := binary.BigEndian.Uint64(key[offset : offset+8])
	callIndex := binary.BigEndian.Uint32(key[offset+8 : offset+12])
	return proposalId, callIndex, nil
}
