package model

import (
	"path/filepath"
	"testing"
)

func TestArtifactFullNameLibraryDefaultNaming(t *testing.T) {
	p := &Project{ArtifactName: "widgets", ArtifactKind: Library}
	if got := p.ArtifactFullName(); got != "libwidgets.a" {
		t.Fatalf("ArtifactFullName() = %q, want libwidgets.a", got)
	}
}

func TestArtifactFullNameLibraryAlreadyPrefixed(t *testing.T) {
	p := &Project{ArtifactName: "libwidgets", ArtifactKind: Library}
	if got := p.ArtifactFullName(); got != "libwidgets.a" {
		t.Fatalf("ArtifactFullName() = %q, want libwidgets.a", got)
	}
}

func TestArtifactFullNameExecutableNoExtension(t *testing.T) {
	p := &Project{ArtifactName: "tool", ArtifactKind: Executable}
	if got := p.ArtifactFullName(); got != "tool" {
		t.Fatalf("ArtifactFullName() = %q, want tool", got)
	}
}

func TestArtifactFullNameExplicitExtension(t *testing.T) {
	p := &Project{ArtifactName: "firmware", ArtifactKind: Executable, ArtifactExt: "hex"}
	if got := p.ArtifactFullName(); got != "firmware.hex" {
		t.Fatalf("ArtifactFullName() = %q, want firmware.hex", got)
	}
}

func TestObjectAndDependencyPathUnderProjectDir(t *testing.T) {
	p := &Project{
		ProjectDir: "/proj",
		OutputDir:  "/proj/Release",
	}
	src := "/proj/src/foo.c"

	if got, want := p.ObjectPath(src), filepath.Join("/proj/Release", "src/foo.c.o"); got != want {
		t.Fatalf("ObjectPath() = %q, want %q", got, want)
	}
	if got, want := p.DependencyPath(src), filepath.Join("/proj/Release", "src/foo.c.d"); got != want {
		t.Fatalf("DependencyPath() = %q, want %q", got, want)
	}
}

func TestObjectPathFallsBackToBasenameOutsideProject(t *testing.T) {
	p := &Project{ProjectDir: "/proj", OutputDir: "/proj/Release"}
	src := "/elsewhere/foo.c"

	want := filepath.Join("/proj/Release", "foo.c.o")
	if got := p.ObjectPath(src); got != want {
		t.Fatalf("ObjectPath() = %q, want %q", got, want)
	}
}

func TestClassifySource(t *testing.T) {
	cases := map[string]SourceKind{
		"a.c":   SourceC,
		"a.cpp": SourceCpp,
		"a.cc":  SourceCpp,
		"a.cxx": SourceCpp,
		"a.S":   SourceAsm,
		"a.s":   SourceAsm,
		"a.h":   SourceUnknown,
	}
	for path, want := range cases {
		if got := ClassifySource(path); got != want {
			t.Errorf("ClassifySource(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIsSupportedSource(t *testing.T) {
	if !IsSupportedSource("main.cpp") {
		t.Error("IsSupportedSource(main.cpp) = false, want true")
	}
	if IsSupportedSource("readme.md") {
		t.Error("IsSupportedSource(readme.md) = true, want false")
	}
}
