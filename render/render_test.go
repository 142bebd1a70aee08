package render

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// newTestLive builds a live region with markdown rendering disabled so
// assertions can look at raw text, and with throttling neutralized.
func newTestLive(out *bytes.Buffer) *Live {
	l := NewLive(out, 80, "")
	l.md = nil
	base := time.Now()
	// Every call advances well past the refresh interval.
	l.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return l
}

func TestLiveRevealsPlainContent(t *testing.T) {
	var out bytes.Buffer
	l := newTestLive(&out)

	if l.Feed("Hello, ") {
		t.Fatal("no directive yet")
	}
	l.Feed("world.")
	l.Finish()

	if l.Displayed() != "Hello, world." {
		t.Errorf("displayed = %q", l.Displayed())
	}
	if !strings.Contains(out.String(), "Hello, world.") {
		t.Errorf("output %q missing content", out.String())
	}
}

func TestLiveWithholdsPossibleTag(t *testing.T) {
	var out bytes.Buffer
	l := newTestLive(&out)

	l.Feed("Sure, ")
	l.Feed("let me check. ")
	if l.Displayed() != "Sure, let me check. " {
		t.Fatalf("displayed after safe chunks = %q", l.Displayed())
	}

	// A possible tag start at the tail must freeze disclosure.
	l.Feed("[RUN:ls -")
	if l.Displayed() != "Sure, let me check. " {
		t.Errorf("displayed advanced past possible tag start: %q", l.Displayed())
	}

	// The completing chunk halts the region entirely.
	if !l.Feed("la]") {
		t.Fatal("expected directive detection on completing chunk")
	}
	if !l.Halted() {
		t.Fatal("renderer should be halted")
	}
	if strings.Contains(out.String(), "[RUN") {
		t.Errorf("directive markup leaked to the display: %q", out.String())
	}
	if l.Buffer() != "Sure, let me check. [RUN:ls -la]" {
		t.Errorf("buffer = %q", l.Buffer())
	}
}

func TestLiveNeverDisclosesPastPrefixStart(t *testing.T) {
	var out bytes.Buffer
	l := newTestLive(&out)

	chunks := []string{"alpha ", "beta [", "R", "U", "N"}
	for _, c := range chunks {
		l.Feed(c)
	}
	if got := l.Displayed(); got != "alpha beta " {
		t.Errorf("displayed = %q, want %q", got, "alpha beta ")
	}
}

func TestLiveFalseAlarmResolves(t *testing.T) {
	var out bytes.Buffer
	l := newTestLive(&out)

	l.Feed("see [")
	if l.Displayed() != "see " {
		t.Fatalf("bracket should be withheld, displayed = %q", l.Displayed())
	}
	// The bracket turns out to be ordinary text.
	l.Feed("1] for details")
	l.Finish()
	if l.Displayed() != "see [1] for details" {
		t.Errorf("displayed = %q", l.Displayed())
	}
}

func TestLiveDirectiveOnFinalChunk(t *testing.T) {
	var out bytes.Buffer
	l := newTestLive(&out)

	// The tag completes exactly at stream end; Finish must not reveal it.
	l.Feed("checking")
	l.buffer += " [RUN:date]" // arrives as part of the final flush path
	l.Finish()
	if !l.Halted() {
		t.Fatal("Finish should detect a directive completing at stream end")
	}
	if strings.Contains(out.String(), "[RUN") {
		t.Errorf("directive leaked on final flush: %q", out.String())
	}
}

func TestLiveForwardOnlyDisclosure(t *testing.T) {
	var out bytes.Buffer
	l := newTestLive(&out)

	l.Feed("first ")
	shown := l.Displayed()
	l.Feed("second")
	if !strings.HasPrefix(l.Displayed(), shown) {
		t.Errorf("disclosure went backwards: %q then %q", shown, l.Displayed())
	}
}

func TestFormatStatsRightAligned(t *testing.T) {
	line := FormatStats(1500*time.Millisecond, 42, 0, 40)
	if !strings.Contains(line, "1.50s | 42 tokens") {
		t.Errorf("stats line = %q", line)
	}
	if strings.Contains(line, "$") {
		t.Errorf("zero cost should be omitted: %q", line)
	}
	if !strings.HasPrefix(line, " ") {
		t.Errorf("stats line should be padded for right alignment: %q", line)
	}
}

func TestFormatStatsWithCost(t *testing.T) {
	line := FormatStats(2*time.Second, 10, 0.0042, 80)
	if !strings.Contains(line, "$0.0042") {
		t.Errorf("stats line = %q, want cost", line)
	}
}

func TestSpinnerStartStop(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out)
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if out.Len() == 0 {
		t.Error("spinner wrote nothing")
	}
	// Stop on a stopped spinner must not panic.
	s.Stop()
}
