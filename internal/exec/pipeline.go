package exec

import (
	"os"

	"github.com/cbld/cbld/internal/compose"
	"github.com/cbld/cbld/internal/diag"
	"github.com/cbld/cbld/internal/model"
)

// RunOps runs a list of already-substituted pre_op/post_op command
// strings in document order, aborting on the first failure.
func RunOps(r *Runner, ops []string) error {
	for _, op := range ops {
		if err := r.RunShell(op); err != nil {
			return err
		}
	}
	return nil
}

// RunCompiles compiles every stale source in document order, stopping
// at the first failure.
func RunCompiles(r *Runner, proj *model.Project, stale []model.SourceEntry) error {
	for _, src := range stale {
		cmd, err := compose.CompileCommand(proj, src)
		if err != nil {
			return err
		}
		if err := r.Run(cmd); err != nil {
			return err
		}
	}
	return nil
}

// RunLink executes a compose.LinkPlan's commands in order.
func RunLink(r *Runner, plan compose.LinkPlan) error {
	for _, cmd := range plan.Commands {
		if err := r.Run(cmd); err != nil {
			return err
		}
	}
	return nil
}

// EnsureOutputDir creates proj.OutputDir (and parents) if missing.
func EnsureOutputDir(proj *model.Project) error {
	if err := os.MkdirAll(proj.OutputDir, 0o755); err != nil {
		return diag.IOError(proj.OutputDir, err)
	}
	return nil
}
