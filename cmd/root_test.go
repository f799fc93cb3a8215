package cmd

import "testing"

func TestTargetDirDefaultsToCurrentDirectory(t *testing.T) {
	if got := targetDir(nil); got != "." {
		t.Errorf("targetDir(nil) = %q, want .", got)
	}
	if got := targetDir([]string{"sub/project"}); got != "sub/project" {
		t.Errorf("targetDir([sub/project]) = %q, want sub/project", got)
	}
}

func TestParseSubsRepeatableForm(t *testing.T) {
	subs, err := parseSubs([]string{"target:arm", "variant:debug"})
	if err != nil {
		t.Fatalf("parseSubs() error: %v", err)
	}
	if len(subs) != 2 || subs[0].Key != "target" || subs[0].Value != "arm" {
		t.Fatalf("parseSubs() = %v, want [target:arm variant:debug]", subs)
	}
}

func TestParseSubsSemicolonDelimitedForm(t *testing.T) {
	subs, err := parseSubs([]string{"target:arm;variant:debug"})
	if err != nil {
		t.Fatalf("parseSubs() error: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("parseSubs() = %v, want 2 entries", subs)
	}
}

func TestParseSubsMissingColonIsUsageError(t *testing.T) {
	if _, err := parseSubs([]string{"nocolon"}); err == nil {
		t.Fatal("expected a usage error for a -s entry with no colon")
	}
}
