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

package aws

import (
	"testing"
)

func TestNewFromCmdlineOptions(t *testing.T) {
	// Save original options
	cmdlineOptionsMutex.Lock()
	originalOptions := cmdlineOptions
	cmdlineOptions.bucket = "test-bucket"
	cmdlineOptions.region = "us-east-1"
	cmdlineOptions.prefix = "test-prefix"
	cmdlineOptionsMutex.Unlock()

	// This should succeed, AWS config loading is deferred to Start()
	p := NewFromCmdlineOptions()
	if p == nil {
		t.Error("Expected plugin to be created, got nil")
	}

	// Restore original options
	cmdlineOptionsMutex.Lock()
	cmdlineOptions = originalOptions
	cmdlineOptionsMutex.Unlock()
}

func TestNewRequiresS3Path(t *testing.T) {
	if _, err := New("/local/path", nil, nil); err == nil {
		t.Error("Expected error for non-s3 dataDir, got nil")
	}
	if _, err := New("s3://", nil, nil); err == nil {
		t.Error("Expected error for missing bucket, got nil")
	}
}

func TestNewParsesBucketAndPrefix(t *testing.T) {
	store, err := New("s3://my-bucket/some/prefix", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if store.Bucket() != "my-bucket" {
		t.Errorf("Expected bucket 'my-bucket', got %q", store.Bucket())
	}
	if store.fullKey("x") != "some/prefix/x" {
		t.Errorf("Expected prefixed key 'some/prefix/x', got %q", store.fullKey("x"))
	}
}
