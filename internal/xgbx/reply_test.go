// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package xgbx

import "testing"

type fakeConfigureNotifyEvent struct{}

func TestEventNameStripsPackageAndEventSuffix(t *testing.T) {
	got := EventName(fakeConfigureNotifyEvent{})
	want := "fakeConfigureNotify"
	if got != want {
		t.Errorf("EventName() = %q, want %q", got, want)
	}
}

func TestEventNameHandlesNoSuffix(t *testing.T) {
	got := EventName(42)
	if got != "int" {
		t.Errorf("EventName(42) = %q, want %q", got, "int")
	}
}
