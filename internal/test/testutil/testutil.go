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

// Package testutil provides deterministic synchronization helpers for
// tests that wait on asynchronous deliveries. It replaces ad-hoc
// time.Sleep patterns with bounded waits.
package testutil

import (
	"testing"
	"time"

	"github.com/gavel-io/gavel/event"
	"github.com/stretchr/testify/require"
)

// WaitForCondition polls the given condition function until it returns true
// or the timeout expires. This replaces the common pattern of
// time.Sleep followed by an assertion check.
func WaitForCondition(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	require.Eventually(
		t,
		condition,
		timeout,
		10*time.Millisecond,
		msg,
	)
}

// RequireEvent waits for an event bus delivery on the given channel and
// asserts that its payload is of type T, returning the decoded payload.
// This replaces the common select-assert dance around Subscribe channels.
func RequireEvent[T any](
	t *testing.T,
	ch <-chan event.Event,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case evt := <-ch:
		data, ok := evt.Data.(T)
		if !ok {
			t.Fatalf(
				"unexpected event payload type %T: %s",
				evt.Data,
				msg,
			)
		}
		return data
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for event: %s", msg)
		var zero T
		return zero // unreachable
	}
}

// RequireNoReceive verifies that no value is received on the given channel
// within the specified duration. This confirms that an operation which
// should not publish actually published nothing.
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf(
			"unexpected value received on channel: %v: %s",
			v,
			msg,
		)
	case <-time.After(duration):
		// Expected: nothing received
	}
}
