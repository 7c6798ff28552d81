package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blackwell-systems/adbprune/internal/session"
)

func TestProgressBar_NonTTYEmitsOnlyCompletion(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(4)
	p.SetWriter(buf)

	p.Update(session.Progress{Pending: 3, Succeeded: 1})
	if buf.Len() != 0 {
		t.Errorf("partial progress should be silent on non-TTY, got %q", buf.String())
	}

	p.Finish(session.Progress{Succeeded: 3, Failed: 1})
	out := buf.String()
	if !strings.Contains(out, "100%") {
		t.Errorf("completion line missing percentage: %q", out)
	}
	if !strings.Contains(out, "4/4") {
		t.Errorf("completion line missing counts: %q", out)
	}
	if !strings.Contains(out, "1 failed") {
		t.Errorf("completion line missing failure count: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", out)
	}
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(0)
	p.SetWriter(buf)

	p.Finish(session.Progress{})
	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("empty batch should render complete: %q", buf.String())
	}
}

func TestSpinner_NonTTYPrintsOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Waiting for device authorization")
	s.SetWriter(buf)

	s.Start()
	s.Stop()

	out := buf.String()
	if out != "Waiting for device authorization...\n" {
		t.Errorf("spinner output = %q", out)
	}
}

func TestSpinner_StopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Waiting")
	s.SetWriter(buf)

	s.Start()
	s.StopWithMessage("Device authorized.")

	if !strings.Contains(buf.String(), "Device authorized.") {
		t.Errorf("final message missing: %q", buf.String())
	}
}

func TestSpinner_DoubleStartIsSafe(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Working")
	s.SetWriter(buf)

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	if got := strings.Count(buf.String(), "Working..."); got != 1 {
		t.Errorf("message printed %d times, want 1", got)
	}
}
