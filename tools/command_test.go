package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunSuccess(t *testing.T) {
	r := NewRunner(nil, nil)
	res := r.Run(context.Background(), "echo hello")

	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("output = %q, want %q", res.Output, "hello")
	}
}

func TestRunMergesStderr(t *testing.T) {
	r := NewRunner(nil, nil)
	res := r.Run(context.Background(), "echo out; echo err 1>&2")

	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("output %q should merge stdout and stderr", res.Output)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := NewRunner(nil, nil)
	res := r.Run(context.Background(), "echo not found; exit 2")

	if res.OK() {
		t.Fatal("expected failure outcome")
	}
	if res.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", res.ExitCode)
	}
	if !strings.HasPrefix(res.Output, "[Command failed with exit code 2]") {
		t.Errorf("output %q missing failure marker", res.Output)
	}
	if !strings.Contains(res.Output, "not found") {
		t.Errorf("output %q should retain the command's own output", res.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(nil, nil)
	r.Timeout = 50 * time.Millisecond
	res := r.Run(context.Background(), "sleep 5")

	if !res.TimedOut {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if res.OK() {
		t.Error("a timed-out command must not classify as success")
	}
	if !strings.Contains(res.Output, "timed out") {
		t.Errorf("output %q should carry the synthetic timeout notice", res.Output)
	}
}

func TestRunSurvivesCallerCancellation(t *testing.T) {
	r := NewRunner(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// An authorized command keeps running after the turn is cancelled.
	res := r.Run(ctx, "sleep 0.2; echo survived")
	if !res.OK() {
		t.Fatalf("expected completion despite cancellation, got %+v", res)
	}
	if !strings.Contains(res.Output, "survived") {
		t.Errorf("output = %q, want the command's full output", res.Output)
	}
}

func TestIsAutoApproved(t *testing.T) {
	r := NewRunner([]string{"ls*", "git status"}, nil)

	testCases := []struct {
		command string
		want    bool
	}{
		{"ls -la", true},
		{"git status", true},
		{"rm -rf /", false},
		{"git push", false},
	}

	for _, tc := range testCases {
		if got := r.IsAutoApproved(tc.command); got != tc.want {
			t.Errorf("IsAutoApproved(%q) = %v, want %v", tc.command, got, tc.want)
		}
	}
}

func TestIsAutoApprovedEmptyList(t *testing.T) {
	r := NewRunner(nil, nil)
	if r.IsAutoApproved("echo hi") {
		t.Error("no patterns configured, nothing should auto-approve")
	}
}
