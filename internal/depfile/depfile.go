// Package depfile reads the Makefile-rule-style dependency files a
// compiler's -MMD-equivalent flag emits, and decides source staleness
// from them.
package depfile

import (
	"os"
	"strings"

	"github.com/cbld/cbld/internal/diag"
)

// Read parses a dependency file at path into the flat list of
// prerequisite paths it names, stripping the "target:" rule head and
// joining backslash-continued lines. Returns (nil, nil) if path does
// not exist — the caller treats a missing dependency file as "no known
// prerequisite set".
func Read(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, diag.IOError(path, err)
	}

	joined := strings.ReplaceAll(string(data), "\\\n", " ")
	joined = strings.ReplaceAll(joined, "\\\r\n", " ")

	colon := strings.IndexByte(joined, ':')
	if colon < 0 {
		return nil, nil
	}
	rest := joined[colon+1:]

	fields := strings.Fields(rest)
	prereqs := make([]string, 0, len(fields))
	for _, f := range fields {
		prereqs = append(prereqs, f)
	}
	return prereqs, nil
}
