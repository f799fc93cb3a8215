package depfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbld/cbld/internal/model"
)

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatal(err)
	}
}

func newTestProject(dir string) *model.Project {
	return &model.Project{
		ProjectDir:   dir,
		OutputDir:    filepath.Join(dir, "Release"),
		ArtifactName: "app",
		ArtifactKind: model.Executable,
	}
}

func TestComputeObjectMissingIsStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	touch(t, src, time.Now())

	proj := newTestProject(dir)
	proj.Sources = []model.SourceEntry{{Path: src}}

	plan, err := Compute(proj, false)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if len(plan.Stale) != 1 {
		t.Fatalf("Stale = %v, want 1 entry (object file doesn't exist yet)", plan.Stale)
	}
	if !plan.NeedsLink {
		t.Fatal("NeedsLink = false, want true")
	}
}

func TestComputeFreshObjectIsNotStale(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	src := filepath.Join(dir, "main.c")
	touch(t, src, base)

	proj := newTestProject(dir)
	proj.Sources = []model.SourceEntry{{Path: src}}

	obj := proj.ObjectPath(src)
	touch(t, obj, base.Add(10*time.Minute))
	// No dependency file recorded -> conservatively stale, so write a
	// dependency file listing only the source itself to exercise the fresh path.
	dep := proj.DependencyPath(src)
	touch(t, dep, base.Add(10*time.Minute))
	os.WriteFile(dep, []byte("main.o: main.c\n"), 0o644)

	artifact := proj.ArtifactPath()
	touch(t, artifact, base.Add(20*time.Minute))

	plan, err := Compute(proj, false)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if len(plan.Stale) != 0 {
		t.Fatalf("Stale = %v, want none", plan.Stale)
	}
	if plan.NeedsLink {
		t.Fatal("NeedsLink = true, want false (artifact newer than everything)")
	}
}

func TestComputeHeaderNewerThanObjectIsStale(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	src := filepath.Join(dir, "main.c")
	hdr := filepath.Join(dir, "main.h")
	touch(t, src, base)

	proj := newTestProject(dir)
	proj.Sources = []model.SourceEntry{{Path: src}}

	obj := proj.ObjectPath(src)
	touch(t, obj, base.Add(10*time.Minute))

	dep := proj.DependencyPath(src)
	os.WriteFile(dep, []byte("main.o: main.c main.h\n"), 0o644)
	os.Chtimes(dep, base, base)

	// header touched after the object was built
	touch(t, hdr, base.Add(30*time.Minute))

	plan, err := Compute(proj, false)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if len(plan.Stale) != 1 {
		t.Fatalf("Stale = %v, want the source to be stale (header changed)", plan.Stale)
	}
}

func TestComputeCleanForcesAllStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	touch(t, src, time.Now())

	proj := newTestProject(dir)
	proj.Sources = []model.SourceEntry{{Path: src}}

	obj := proj.ObjectPath(src)
	touch(t, obj, time.Now())

	plan, err := Compute(proj, true)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if len(plan.Stale) != 1 {
		t.Fatalf("Stale = %v, want 1 (clean forces rebuild)", plan.Stale)
	}
}
