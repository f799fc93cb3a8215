package exec

import (
	"os"

	"github.com/cbld/cbld/internal/diag"
)

// Clean removes outputDir recursively if it exists, then recreates it
// empty. Never touches anything outside outputDir.
func Clean(outputDir string) error {
	if err := os.RemoveAll(outputDir); err != nil {
		return diag.IOError(outputDir, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return diag.IOError(outputDir, err)
	}
	return nil
}
