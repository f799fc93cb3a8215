package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressAdvanceToCompletionPrintsNewline(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(2, &out)

	p.Advance("a.c")
	p.Advance("b.c")

	if p.Current != 2 {
		t.Fatalf("Current = %d, want 2", p.Current)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Errorf("output %q should end with a newline once complete", out.String())
	}
	if !strings.Contains(out.String(), "100") {
		t.Errorf("output %q should reach 100%%", out.String())
	}
}

func TestProgressSingleStepReachesHundredPercent(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(1, &out)
	p.Advance("only.c")
	if !strings.Contains(out.String(), "only.c") {
		t.Errorf("output %q should mention the label", out.String())
	}
	if !strings.Contains(out.String(), "100") {
		t.Errorf("output %q should reach 100%%", out.String())
	}
}
