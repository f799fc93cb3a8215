// Package exec runs the build pipeline's actions one at a time: pre-ops,
// prebuilds, compiles, link/archive, post-ops, short-circuiting and
// propagating the child's exit code on first failure.
package exec

import (
	"io"
	"os"
	osexec "os/exec"

	"github.com/cbld/cbld/internal/compose"
	"github.com/cbld/cbld/internal/diag"
)

// Runner executes composed commands. Stdout/Stderr are where child
// process output is mirrored to; Indented returns a Runner that wraps
// them so nested (recursive prebuild) invocations are visually
// distinguishable.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewRunner() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Indented returns a Runner whose output is prefixed, for use while
// recursing into a prebuild.
func (r *Runner) Indented(prefix string) *Runner {
	return &Runner{
		Stdout: &diag.IndentWriter{Indent: prefix, W: r.Stdout},
		Stderr: &diag.IndentWriter{Indent: prefix, W: r.Stderr},
	}
}

// Run invokes cmd, passing its exit code through on failure as a
// diag.ChildFailure. A non-executable command (e.g. compiler not
// found) also surfaces as ChildFailure with code 1.
func (r *Runner) Run(cmd compose.Command) error {
	c := osexec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	err := c.Run()
	if err == nil {
		return nil
	}

	code := 1
	if exitErr, ok := err.(*osexec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	return diag.ChildFailure(compose.Describe(cmd), code, err)
}

// RunShell invokes text through /bin/sh -c, for pre_op/post_op strings
// that may contain shell constructs.
func (r *Runner) RunShell(text string) error {
	return r.Run(compose.ShellCommand(text))
}
