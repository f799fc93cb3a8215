// Package cmd wires up the cobra CLI on top of internal/build.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cbld/cbld/internal/build"
	"github.com/cbld/cbld/internal/config"
	"github.com/cbld/cbld/internal/diag"
	"github.com/cbld/cbld/internal/settings"
)

var (
	flagConfigFile    string
	flagConfiguration string
	flagOnly          string
	flagSubs          []string
	flagDictFiles     []string
	flagDump          bool
	flagClean         bool
	flagPrebuilds     bool
)

func addPersistentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagConfigFile, "file", "f", "Buildfile.xml", "project XML file")
	cmd.Flags().StringVarP(&flagConfiguration, "config", "g", "", "active configuration name")
	cmd.Flags().StringVarP(&flagOnly, "only", "o", "", "compile only the source with this basename; no link")
	cmd.Flags().StringArrayVarP(&flagSubs, "sub", "s", nil, "add substitution KEY:VAL (repeatable, or a single \";\"-delimited string)")
	cmd.Flags().StringArrayVarP(&flagDictFiles, "dict", "i", nil, "include dictionary file (repeatable)")
	cmd.Flags().BoolVarP(&flagClean, "clean", "c", false, "clean before building")
	cmd.Flags().BoolVarP(&flagPrebuilds, "prebuilds", "p", false, "recurse into <prebuilds>")
	cmd.Flags().BoolVarP(&flagDump, "dump", "x", false, "dump intermediate resolved XML after each evaluation phase")
}

// applyColorSetting maps .cbldrc.toml's "color" field onto fatih/color's
// global switch, without touching the resolved build plan: settings are
// host-local ergonomics only.
func applyColorSetting(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// parseSubs accepts both repeatable "KEY:VAL" and a single
// ";"-delimited "KEY1:VAL1;KEY2:VAL2".
func parseSubs(raw []string) ([]config.KV, error) {
	var out []config.KV
	for _, entry := range raw {
		for _, pair := range strings.Split(entry, ";") {
			if pair == "" {
				continue
			}
			key, val, ok := strings.Cut(pair, ":")
			if !ok {
				return nil, diag.UsageErrorf("invalid -s entry %q, expected KEY:VAL", pair)
			}
			out = append(out, config.KV{Key: key, Value: val})
		}
	}
	return out, nil
}

func invocationFromFlags(dir string) (build.Invocation, error) {
	subs, err := parseSubs(flagSubs)
	if err != nil {
		return build.Invocation{}, err
	}

	s, err := settings.Load(dir)
	if err != nil {
		return build.Invocation{}, diag.IOError(settings.Filename, err)
	}
	applyColorSetting(s.Color)

	configuration := flagConfiguration
	if configuration == "" {
		configuration = s.DefaultConfiguration
	}

	var dump config.DumpHook
	if flagDump {
		dump = dumpPhase
	}

	return build.Invocation{
		ConfigFile:    flagConfigFile,
		Configuration: configuration,
		OnlyFile:      flagOnly,
		Subs:          subs,
		DictFiles:     flagDictFiles,
		Clean:         flagClean,
		DoPrebuilds:   flagPrebuilds,
		Dump:          dump,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:     "cbld [target path]",
	Short:   "C/C++/assembly build orchestrator",
	Long:    `cbld resolves a declarative XML project description into compile and link actions, invokes the toolchain directly, and manages incremental rebuilds via header-dependency tracking.`,
	Version: "0.1.0",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runBuild,
}

func init() {
	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(dumpCmd)
	addPersistentFlags(buildCmd)
	addPersistentFlags(cleanCmd)
	addPersistentFlags(dumpCmd)
}

// Execute runs the root command, exiting with the error's diag exit
// code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var de *diag.Err
		if errors.As(err, &de) {
			os.Exit(de.ExitCode())
		}
		os.Exit(1)
	}
}
