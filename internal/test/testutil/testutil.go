// Copyright 2025 Blink Labs Software
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

// Package testutil holds helpers for asserting on event bus delivery
package testutil

import (
	"testing"
	"time"

	"github.com/blinklabs-io/causeway/event"
)

// RequireEvent waits up to timeout for the next event on ch and returns its
// payload, failing the test if nothing arrives or the payload is not a T
func RequireEvent[T any](
	t *testing.T,
	ch <-chan event.Event,
	timeout time.Duration,
) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case evt := <-ch:
		data, ok := evt.Data.(T)
		if !ok {
			t.Fatalf(
				"event %s carried %T, expected %T",
				evt.Type,
				evt.Data,
				*new(T),
			)
		}
		return data
	case <-timer.C:
		t.Fatalf("no event received within %s", timeout)
	}
	panic("unreachable")
}

// RequireNoReceive fails the test if anything arrives on ch within window
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	window time.Duration,
	msg string,
) {
	t.Helper()
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case v := <-ch:
		t.Fatalf("%s: unexpected receive: %v", msg, v)
	case <-timer.C:
	}
}
