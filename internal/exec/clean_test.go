package exec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanRemovesAndRecreatesOutputDir(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "Release")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(outputDir, "main.c.o")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Clean(outputDir); err != nil {
		t.Fatalf("Clean() error: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale object file %q still exists after Clean()", stale)
	}
	info, err := os.Stat(outputDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("Clean() did not leave outputDir present as an empty directory")
	}
}

func TestCleanOnMissingDirIsNotAnError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-existed")
	if err := Clean(dir); err != nil {
		t.Fatalf("Clean() on a missing directory errored: %v", err)
	}
}
