// Package model holds the data types the configuration resolver produces
// and the incremental engine / command composer consume (spec §3).
package model

import (
	"path/filepath"
	"strings"
)

// ArtifactKind is the kind of artifact a project produces.
type ArtifactKind int

const (
	Executable ArtifactKind = iota
	Library
)

// Toolchain names the executables and default flag sets a <toolchain>
// element contributes.
type Toolchain struct {
	Name           string
	CompilerPath   string
	CompilerPrefix string
	Ccflags        []string
	Aflags         []string
	Cflags         []string
	Cppflags       []string
	Lflags         []string
}

// Prefix is {ccprefix}: compilerPath + "/" + compilerPrefix.
func (t *Toolchain) Prefix() string {
	if t.CompilerPath == "" {
		return t.CompilerPrefix
	}
	return t.CompilerPath + "/" + t.CompilerPrefix
}

// Configuration is a named bundle selecting a toolchain and contributing
// optimization/debugging/extra flags.
type Configuration struct {
	Name          string
	ToolchainRef  string
	Optimization  string
	Debugging     string
	ExtraCcflags  []string
	ExtraLflags   []string
}

// SourceEntry is one <file> (post wildcard-expansion) with its per-file
// overrides.
type SourceEntry struct {
	Path              string
	PerFileCcflags    []string
	PerFileOptimization string
	PerFileDebugging    string
}

// SourceKind classifies a source file by extension.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceC
	SourceCpp
	SourceAsm
)

func ClassifySource(path string) SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c":
		return SourceC
	case ".cpp", ".cc", ".cxx":
		return SourceCpp
	case ".s":
		return SourceAsm
	default:
		return SourceUnknown
	}
}

// IsSupportedSource reports whether path has one of the extensions
// spec §3 lists as a compilable source kind.
func IsSupportedSource(path string) bool {
	return ClassifySource(path) != SourceUnknown
}

// PrebuildOverrides holds the optional per-<project> overrides a
// <prebuilds><project> element may specify (spec §3 PrebuildRef).
type PrebuildOverrides struct {
	ConfigFile    string
	Configuration string
	Clean         *bool
	DoPrebuilds   *bool
	Subs          []string
}

// PrebuildRef references a sub-project to build before the current one.
type PrebuildRef struct {
	Path      string
	Overrides PrebuildOverrides
}

// Project is the fully normalized build plan the resolver produces
// (spec §3 "Project (resolved)").
type Project struct {
	ProjectDir       string
	ArtifactName     string
	ArtifactKind     ArtifactKind
	ArtifactExt      string // may be empty
	OutputDir        string // ProjectDir/{config}
	Toolchain        Toolchain
	Configuration    Configuration
	GlobalCcflags    []string
	GlobalCflags     []string
	GlobalCppflags   []string
	GlobalAflags     []string
	GlobalLflags     []string
	Includes         []string
	SystemIncludes   []string // <isys> entries, passed with -isystem
	Objects          []string
	PreOps           []string
	PostOps          []string
	Prebuilds        []PrebuildRef
	Sources          []SourceEntry
}

// ArtifactFullName is the effective on-disk artifact filename: the
// default naming rules of spec §3 (lib<name>.a for extensionless
// libraries, bare name for extensionless executables), or
// name+"."+ArtifactExt otherwise.
func (p *Project) ArtifactFullName() string {
	name := p.ArtifactName
	if p.ArtifactKind == Library && p.ArtifactExt == "" {
		if !strings.HasPrefix(name, "lib") {
			name = "lib" + name
		}
		return name + ".a"
	}
	if p.ArtifactExt == "" {
		return name
	}
	return name + "." + p.ArtifactExt
}

// ArtifactPath is the resolved artifact's path under OutputDir.
func (p *Project) ArtifactPath() string {
	return filepath.Join(p.OutputDir, p.ArtifactFullName())
}

// relSourcePath returns src's path relative to the project directory,
// falling back to the basename if it lies outside the tree (matches the
// teacher's collision-avoidance approach in gen/qobsbuilder.go).
func (p *Project) relSourcePath(src string) string {
	rel, err := filepath.Rel(p.ProjectDir, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(src)
	}
	return rel
}

// ObjectPath derives outputDir/<sourceRelPath>.o.
func (p *Project) ObjectPath(src string) string {
	return filepath.Join(p.OutputDir, p.relSourcePath(src)+".o")
}

// DependencyPath derives outputDir/<sourceRelPath>.d.
func (p *Project) DependencyPath(src string) string {
	return filepath.Join(p.OutputDir, p.relSourcePath(src)+".d")
}
