package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	got, err := parseInstant("2025-01-06T13:00:00Z")
	if err != nil {
		t.Fatalf("parseInstant failed: %v", err)
	}
	want := time.Date(2025, 1, 6, 13, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if _, err := parseInstant("tomorrow at 7"); err == nil {
		t.Error("Expected an error for a non-RFC3339 value")
	}

	before := time.Now()
	now, err := parseInstant("")
	if err != nil || now.Before(before) {
		t.Errorf("Expected current time, got %v (%v)", now, err)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"sweep", "migrate", "simulate"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %q to be registered", name)
		}
	}
}

func TestSimulateCmd_RequiresSender(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"simulate", "--body", "START"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--from") {
		t.Errorf("Expected missing --from error, got %v", err)
	}
}

func TestSweepCmd_RejectsBadInstant(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"sweep", "--at", "yesterday"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "RFC3339") {
		t.Errorf("Expected RFC3339 error, got %v", err)
	}
}
