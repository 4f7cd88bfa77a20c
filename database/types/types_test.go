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

package types_test

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"math"
	"reflect"
	"testing"

	"github.com/gavel-io/gavel/database/types"
)

func TestUint64ScanValue(t *testing.T) {
	testDefs := []struct {
		origValue     types.Uint64
		expectedValue string
	}{
		{
			origValue:     types.Uint64(123),
			expectedValue: "123",
		},
		{
			origValue:     types.Uint64(math.MaxUint64),
			expectedValue: "18446744073709551615",
		},
	}
	for _, testDef := range testDefs {
		origValue := testDef.origValue
		var tmpValuer driver.Valuer = origValue
		valueOut, err := tmpValuer.Value()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !reflect.DeepEqual(valueOut, testDef.expectedValue) {
			t.Fatalf(
				"did not get expected value from Value(): got %#v, expected %#v",
				valueOut,
				testDef.expectedValue,
			)
		}
		var scanned types.Uint64
		var tmpScanner sql.Scanner = &scanned
		if err := tmpScanner.Scan(valueOut); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if scanned != origValue {
			t.Fatalf(
				"did not get expected value after Scan(): got %#v, expected %#v",
				scanned,
				origValue,
			)
		}
	}
}

func TestUint64ScanWrongType(t *testing.T) {
	var scanned types.Uint64
	if err := scanned.Scan(int64(5)); err == nil {
		t.Fatalf("expected error scanning non-string value")
	}
}

func TestPayloadBlobKeyOrdering(t *testing.T) {
	// Keys must sort by proposal id, then call index
	keyA := types.PayloadBlobKey(1, 2)
	keyB := types.PayloadBlobKey(1, 3)
	keyC := types.PayloadBlobKey(2, 0)
	if bytes.Compare(keyA, keyB) >= 0 {
		t.Fatalf("expected key %x < %x", keyA, keyB)
	}
	if bytes.Compare(keyB, keyC) >= 0 {
		t.Fatalf("expected key %x < %x", keyB, keyC)
	}
}

func TestPayloadBlobKeyPrefix(t *testing.T) {
	prefix := types.ProposalPayloadBlobKeyPrefix(7)
	key := types.PayloadBlobKey(7, 0)
	if !bytes.HasPrefix(key, prefix) {
		t.Fatalf(
			"expected key %x to have prefix %x",
			key,
			prefix,
		)
	}
	other := types.PayloadBlobKey(8, 0)
	if bytes.HasPrefix(other, prefix) {
		t.Fatalf(
			"did not expect key %x to have prefix %x",
			other,
			prefix,
		)
	}
}
