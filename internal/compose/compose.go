// Package compose builds the compiler, linker and archiver command
// lines from a resolved model.Project, including .bin/.hex objcopy
// extraction, shared-object linking, and --start-group/--end-group
// wrapping of explicit objects.
package compose

import (
	"path/filepath"
	"strings"

	"github.com/cbld/cbld/internal/diag"
	"github.com/cbld/cbld/internal/model"
)

// Command is one process invocation: an argv (never shell-quoted by
// this package — the action executor decides how to run it) and a
// human-readable rendering for diagnostics.
type Command struct {
	Argv []string
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

func driverFor(kind model.SourceKind) string {
	switch kind {
	case model.SourceCpp:
		return "g++"
	case model.SourceAsm:
		return "as"
	default:
		return "gcc"
	}
}

// CompileCommand builds the per-source compile command. It asks the
// compiler to emit its dependency-file output at proj.DependencyPath
// (consumed later by internal/depfile).
func CompileCommand(proj *model.Project, src model.SourceEntry) (Command, error) {
	kind := model.ClassifySource(src.Path)
	if kind == model.SourceUnknown {
		return Command{}, diag.ConfigErrorf(src.Path, "unsupported source extension")
	}
	driver := driverFor(kind)

	var argv []string
	argv = append(argv, proj.Toolchain.Prefix()+driver)

	argv = append(argv, proj.GlobalCcflags...)
	argv = append(argv, proj.Toolchain.Ccflags...)
	switch kind {
	case model.SourceC:
		argv = append(argv, proj.GlobalCflags...)
		argv = append(argv, proj.Toolchain.Cflags...)
	case model.SourceCpp:
		argv = append(argv, proj.GlobalCppflags...)
		argv = append(argv, proj.Toolchain.Cppflags...)
	case model.SourceAsm:
		argv = append(argv, proj.GlobalAflags...)
		argv = append(argv, proj.Toolchain.Aflags...)
	}
	argv = append(argv, proj.Configuration.ExtraCcflags...)
	argv = append(argv, src.PerFileCcflags...)

	optimization := proj.Configuration.Optimization
	if src.PerFileOptimization != "" {
		optimization = src.PerFileOptimization
	}
	if optimization != "" {
		argv = append(argv, optimization)
	}

	debugging := proj.Configuration.Debugging
	if src.PerFileDebugging != "" {
		debugging = src.PerFileDebugging
	}
	if debugging != "" {
		argv = append(argv, debugging)
	}

	for _, inc := range proj.Includes {
		argv = append(argv, "-I"+inc)
	}
	for _, inc := range proj.SystemIncludes {
		argv = append(argv, "-isystem", inc)
	}

	obj := proj.ObjectPath(src.Path)
	dep := proj.DependencyPath(src.Path)
	argv = append(argv, "-c", src.Path, "-o", obj, "-MMD", "-MF", dep)

	return Command{Argv: argv}, nil
}

// linkShape classifies the post-processing an extension requires.
type linkShape int

const (
	shapeDefault linkShape = iota
	shapeSharedObject
	shapeBinHex
)

func classifyExtension(ext string) linkShape {
	switch strings.ToLower(ext) {
	case "so", "dll":
		return shapeSharedObject
	case "bin", "hex":
		return shapeBinHex
	default:
		return shapeDefault
	}
}

// LinkPlan is the (possibly multi-step) sequence of commands needed to
// produce the final artifact: usually one command, but the .bin/.hex
// path links to an intermediate .elf first, then runs objcopy.
type LinkPlan struct {
	Commands []Command
}

// Link builds the link (executable) or archive (library) command(s)
// for proj given the object file of every source. Explicit <objects>
// entries are taken from proj.Objects and appended to the link line of
// executables and shared objects; the archive command does not include
// them.
func Link(proj *model.Project, objectFiles []string) (LinkPlan, error) {
	if proj.ArtifactKind == model.Library {
		return linkLibrary(proj, objectFiles)
	}
	return linkExecutable(proj, objectFiles)
}

func linkLibrary(proj *model.Project, objectFiles []string) (LinkPlan, error) {
	shape := classifyExtension(proj.ArtifactExt)
	if shape == shapeSharedObject {
		var argv []string
		argv = append(argv, proj.Toolchain.Prefix()+"g++", "-shared")
		argv = append(argv, proj.GlobalLflags...)
		argv = append(argv, proj.Toolchain.Lflags...)
		argv = append(argv, proj.Configuration.ExtraLflags...)
		argv = append(argv, objectFiles...)
		argv = append(argv, proj.Objects...)
		argv = append(argv, "-o", proj.ArtifactPath())
		return LinkPlan{Commands: []Command{{Argv: argv}}}, nil
	}

	var argv []string
	argv = append(argv, proj.Toolchain.Prefix()+"ar", "rcs", proj.ArtifactPath())
	argv = append(argv, objectFiles...)
	return LinkPlan{Commands: []Command{{Argv: argv}}}, nil
}

func linkExecutable(proj *model.Project, objectFiles []string) (LinkPlan, error) {
	shape := classifyExtension(proj.ArtifactExt)

	outputPath := proj.ArtifactPath()
	if shape == shapeBinHex {
		outputPath = filepath.Join(proj.OutputDir, proj.ArtifactName+".elf")
	}

	var argv []string
	argv = append(argv, proj.Toolchain.Prefix()+"g++")
	argv = append(argv, proj.GlobalLflags...)
	argv = append(argv, proj.Toolchain.Lflags...)
	argv = append(argv, proj.Configuration.ExtraLflags...)
	argv = append(argv, objectFiles...)
	if len(proj.Objects) > 0 {
		argv = append(argv, "-Wl,--start-group")
		argv = append(argv, proj.Objects...)
		argv = append(argv, "-Wl,--end-group")
	}
	argv = append(argv, "-o", outputPath)

	plan := LinkPlan{Commands: []Command{{Argv: argv}}}

	if shape == shapeBinHex {
		objcopy := []string{
			proj.Toolchain.Prefix() + "objcopy",
			"-O", "binary",
			outputPath,
			proj.ArtifactPath(),
		}
		plan.Commands = append(plan.Commands, Command{Argv: objcopy})
	}

	return plan, nil
}

// ShellCommand wraps a pre_op/post_op string (already fully
// substituted by the resolver) as a shell-invoked command, since
// these strings are known to contain shell constructs in the wild.
// The resolver defines no {ccprefix} key, so a pre_op/post_op that
// names it fails to resolve with a SubstitutionError.
func ShellCommand(text string) Command {
	return Command{Argv: []string{"/bin/sh", "-c", text}}
}

// Describe renders a Command for diagnostics.
func Describe(c Command) string {
	return c.String()
}
