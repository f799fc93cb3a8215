package cmd

import (
	"fmt"
	"os"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/cbld/cbld/internal/build"
	"github.com/cbld/cbld/internal/diag"
)

// dumpPhase is the config.DumpHook invoked by "-x": it prints the
// document as it stands after each evaluation phase.
func dumpPhase(phase string, doc *etree.Document) {
	fmt.Fprintf(os.Stderr, "--- %s ---\n", phase)
	doc.Indent(2)
	if _, err := doc.WriteTo(os.Stderr); err != nil {
		diag.Warn("failed to dump document: %v", err)
	}
	fmt.Fprintln(os.Stderr)
}

var dumpCmd = &cobra.Command{
	Use:   "dump [target path]",
	Short: "Resolve the project and print the fully substituted, guard-pruned document",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	dir := targetDir(args)
	inv, err := invocationFromFlags(dir)
	if err != nil {
		return err
	}
	inv.Dump = dumpPhase

	proj, err := build.Resolve(dir, inv)
	if err != nil {
		return err
	}

	fmt.Printf("--- resolved project ---\n")
	fmt.Printf("artifact:   %s\n", proj.ArtifactFullName())
	fmt.Printf("outputDir:  %s\n", proj.OutputDir)
	fmt.Printf("toolchain:  %s (%s)\n", proj.Toolchain.Name, proj.Toolchain.Prefix())
	fmt.Printf("sources:    %d\n", len(proj.Sources))
	for _, s := range proj.Sources {
		fmt.Printf("  - %s\n", s.Path)
	}
	return nil
}
