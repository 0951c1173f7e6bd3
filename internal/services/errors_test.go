package services_test

import (
	"errors"
	"strings"
	"testing"

	"eccorun/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrLedger, "ledger", "append", "completed log", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrLedger) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ledger", "append", "completed log"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"input", services.Wrap(services.ErrInput, "source", "decode", "bad json", nil), true},
		{"ledger", services.Wrap(services.ErrLedger, "ledger", "sync", "", errors.New("eio")), true},
		{"configuration", services.Wrap(services.ErrConfiguration, "attempt", "", "", nil), true},
		{"processing", services.Wrap(services.ErrProcessing, "correction", "invoke", "", nil), false},
		{"plain", errors.New("other"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := services.IsFatal(tc.err); got != tc.want {
			t.Fatalf("%s: IsFatal = %v, want %v", tc.name, got, tc.want)
		}
	}
}
