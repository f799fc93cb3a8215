package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cbld/cbld/internal/build"
)

var buildCmd = &cobra.Command{
	Use:   "build [target path]",
	Short: "Resolve and build the project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	dir := targetDir(args)
	inv, err := invocationFromFlags(dir)
	if err != nil {
		return err
	}
	return build.Build(dir, inv)
}
