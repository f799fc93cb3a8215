package exec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cbld/cbld/internal/compose"
	"github.com/cbld/cbld/internal/diag"
)

func TestRunSucceeds(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(compose.Command{Argv: []string{"/bin/sh", "-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out.String() != "hello\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "hello\n")
	}
}

func TestRunFailurePropagatesExitCode(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(compose.Command{Argv: []string{"/bin/sh", "-c", "exit 7"}})
	if err == nil {
		t.Fatal("expected an error for a nonzero exit code")
	}
	var de *diag.Err
	if !errors.As(err, &de) {
		t.Fatalf("error is not a *diag.Err: %v", err)
	}
	if de.ExitCode() != 7 {
		t.Errorf("ExitCode() = %d, want 7", de.ExitCode())
	}
}

func TestRunShellInvokesShC(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}
	if err := r.RunShell("echo via-shell"); err != nil {
		t.Fatalf("RunShell() error: %v", err)
	}
	if out.String() != "via-shell\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "via-shell\n")
	}
}

func TestIndentedPrefixesEachLine(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}
	nested := r.Indented("[prebuild] ")

	if err := nested.RunShell("printf 'a\\nb\\n'"); err != nil {
		t.Fatalf("RunShell() error: %v", err)
	}
	want := "[prebuild] a\n[prebuild] b\n"
	if out.String() != want {
		t.Errorf("stdout = %q, want %q", out.String(), want)
	}
}
