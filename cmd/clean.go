package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cbld/cbld/internal/build"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [target path]",
	Short: "Remove the active configuration's output directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	dir := targetDir(args)
	inv, err := invocationFromFlags(dir)
	if err != nil {
		return err
	}
	return build.Clean(dir, inv)
}
