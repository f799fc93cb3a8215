// Package build ties the configuration resolver, incremental engine,
// command composer and action executor together into the top-level
// entry point the cmd/ CLI layer calls.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"

	"github.com/cbld/cbld/internal/compose"
	"github.com/cbld/cbld/internal/config"
	"github.com/cbld/cbld/internal/depfile"
	"github.com/cbld/cbld/internal/diag"
	"github.com/cbld/cbld/internal/exec"
	"github.com/cbld/cbld/internal/model"
)

// Invocation is one resolve+build (or resolve+clean) request, mapping
// one-to-one onto the CLI's flags.
type Invocation struct {
	ConfigFile    string // -f
	Configuration string // -g
	OnlyFile      string // -o
	Subs          []config.KV
	DictFiles     []string // -i
	Clean         bool     // -c
	DoPrebuilds   bool     // -p
	Dump          config.DumpHook
}

func defaultInvocation() Invocation {
	return Invocation{
		ConfigFile:    "Buildfile.xml",
		Configuration: "Release",
	}
}

// Build runs the full pipeline for one project directory: resolve,
// (optionally) clean, pre-ops, prebuilds, compiles, link, post-ops.
func Build(dir string, inv Invocation) error {
	return buildWithRunner(dir, inv, exec.NewRunner())
}

// buildWithRunner is Build's actual implementation, parameterized over
// the Runner so a recursive prebuild can supply an indented one and have
// its output stay visually nested under the parent's.
func buildWithRunner(dir string, inv Invocation, runner *exec.Runner) error {
	inv = fillDefaults(inv)

	opts := config.Options{
		RootPath:      filepath.Join(dir, inv.ConfigFile),
		Subs:          inv.Subs,
		DictFiles:     inv.DictFiles,
		Configuration: inv.Configuration,
		OnlyFile:      inv.OnlyFile,
		Clean:         inv.Clean,
	}

	proj, err := config.Resolve(opts, inv.Dump)
	if err != nil {
		return err
	}

	if inv.Clean {
		if err := exec.Clean(proj.OutputDir); err != nil {
			return err
		}
	}
	if err := exec.EnsureOutputDir(proj); err != nil {
		return err
	}

	singleFile := inv.OnlyFile != ""

	// Single-file compiles skip pre/post-ops entirely.
	if !singleFile {
		if err := exec.RunOps(runner, proj.PreOps); err != nil {
			return err
		}
	}

	if inv.DoPrebuilds {
		if err := buildPrebuilds(proj, dir, inv, runner); err != nil {
			return err
		}
	}

	plan, err := depfile.Compute(proj, inv.Clean)
	if err != nil {
		return err
	}

	if err := runCompilesWithProgress(runner, proj, plan.Stale); err != nil {
		return err
	}

	if !singleFile && plan.NeedsLink {
		objectFiles := make([]string, 0, len(proj.Sources))
		for _, s := range proj.Sources {
			objectFiles = append(objectFiles, proj.ObjectPath(s.Path))
		}
		linkPlan, err := compose.Link(proj, objectFiles)
		if err != nil {
			return err
		}
		if err := exec.RunLink(runner, linkPlan); err != nil {
			return err
		}
	}

	if !singleFile {
		if err := exec.RunOps(runner, proj.PostOps); err != nil {
			return err
		}
	}

	return nil
}

// Clean resolves dir's project just far enough to know its outputDir,
// then removes it. It does not run pre/post ops, prebuilds or compiles.
func Clean(dir string, inv Invocation) error {
	inv = fillDefaults(inv)
	opts := config.Options{
		RootPath:      filepath.Join(dir, inv.ConfigFile),
		Subs:          inv.Subs,
		DictFiles:     inv.DictFiles,
		Configuration: inv.Configuration,
	}
	proj, err := config.Resolve(opts, inv.Dump)
	if err != nil {
		return err
	}
	return exec.Clean(proj.OutputDir)
}

// Resolve exposes the configuration resolver directly, for the "cbld
// dump" subcommand's "-x" flag.
func Resolve(dir string, inv Invocation) (*model.Project, error) {
	inv = fillDefaults(inv)
	opts := config.Options{
		RootPath:      filepath.Join(dir, inv.ConfigFile),
		Subs:          inv.Subs,
		DictFiles:     inv.DictFiles,
		Configuration: inv.Configuration,
		OnlyFile:      inv.OnlyFile,
	}
	return config.Resolve(opts, inv.Dump)
}

// runCompilesWithProgress compiles every stale source, painting a
// progress bar across stderr when there's more than one to show for
// (a single compile doesn't need one).
func runCompilesWithProgress(runner *exec.Runner, proj *model.Project, stale []model.SourceEntry) error {
	if len(stale) <= 1 {
		return exec.RunCompiles(runner, proj, stale)
	}

	bar := diag.NewProgress(len(stale), os.Stderr)
	for _, src := range stale {
		cmd, err := compose.CompileCommand(proj, src)
		if err != nil {
			return err
		}
		if err := runner.Run(cmd); err != nil {
			return err
		}
		bar.Advance(filepath.Base(src.Path))
	}
	return nil
}

func fillDefaults(inv Invocation) Invocation {
	d := defaultInvocation()
	if inv.ConfigFile != "" {
		d.ConfigFile = inv.ConfigFile
	}
	if inv.Configuration != "" {
		d.Configuration = inv.Configuration
	}
	d.OnlyFile = inv.OnlyFile
	d.Subs = inv.Subs
	d.DictFiles = inv.DictFiles
	d.Clean = inv.Clean
	d.DoPrebuilds = inv.DoPrebuilds
	d.Dump = inv.Dump
	return d
}

// buildPrebuilds recurses into every <prebuilds><project> entry in
// document order: all prebuilds complete before any compile begins.
// Overrides are merged onto a copy of the current invocation with
// mergo, field by field.
func buildPrebuilds(proj *model.Project, dir string, parent Invocation, runner *exec.Runner) error {
	for _, ref := range proj.Prebuilds {
		childInv, err := mergeOverrides(parent, ref.Overrides)
		if err != nil {
			return err
		}
		childDir := filepath.Join(dir, ref.Path)
		childRunner := runner.Indented(fmt.Sprintf("[%s] ", ref.Path))

		diag.Info("prebuild: %s (configuration=%s)", childDir, childInv.Configuration)
		if err := buildWithRunner(childDir, childInv, childRunner); err != nil {
			return fmt.Errorf("prebuild %s failed: %w", ref.Path, err)
		}
	}
	return nil
}

// mergeOverrides inherits parent's invocation, then overrides
// field-by-field with the PrebuildRef's <configfile>/<configuration>/
// <clean>/<prebuilds>/<sub> entries. <sub> entries may additionally
// shadow same-key parent subs, for the child only.
func mergeOverrides(parent Invocation, ov model.PrebuildOverrides) (Invocation, error) {
	child := parent
	child.Dump = nil // dumping is a top-level diagnostic, not inherited into prebuilds

	// Only string fields go through mergo: its zero-value detection
	// can't distinguish "override explicitly set to false" from "no
	// override", so the two bool overrides are applied directly below.
	override := Invocation{
		ConfigFile:    ov.ConfigFile,
		Configuration: ov.Configuration,
	}
	if err := mergo.Merge(&child, override, mergo.WithOverride); err != nil {
		return Invocation{}, diag.ConfigErrorf("<prebuilds><project>", "merging overrides: %v", err)
	}

	if ov.Clean != nil {
		child.Clean = *ov.Clean
	}
	if ov.DoPrebuilds != nil {
		child.DoPrebuilds = *ov.DoPrebuilds
	}

	if len(ov.Subs) > 0 {
		child.Subs = append(append([]config.KV{}, child.Subs...), parseChildSubs(ov.Subs)...)
	}

	return child, nil
}

func parseChildSubs(subs []string) []config.KV {
	var out []config.KV
	for _, s := range subs {
		key, val, ok := strings.Cut(s, ":")
		if !ok {
			continue
		}
		out = append(out, config.KV{Key: key, Value: val})
	}
	return out
}
