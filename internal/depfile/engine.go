package depfile

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cbld/cbld/internal/model"
)

// Plan is the incremental engine's output: which sources need
// recompiling and whether the link/archive step must run.
type Plan struct {
	Stale     []model.SourceEntry
	NeedsLink bool
}

// Compute decides which sources are stale (by mtime comparison against
// the source itself and its recorded header prerequisites) and whether
// the final link/archive step must re-run. clean forces every source
// to rebuild, matching "-c" semantics.
func Compute(proj *model.Project, clean bool) (*Plan, error) {
	plan := &Plan{}
	allSkipped := true

	for _, src := range proj.Sources {
		stale, err := isStale(proj, src, clean)
		if err != nil {
			return nil, err
		}
		if stale {
			plan.Stale = append(plan.Stale, src)
			allSkipped = false
		}
	}

	plan.NeedsLink = !(allSkipped && artifactIsFresh(proj))
	return plan, nil
}

func isStale(proj *model.Project, src model.SourceEntry, clean bool) (bool, error) {
	if clean {
		return true, nil
	}

	obj := proj.ObjectPath(src.Path)
	objInfo, err := os.Stat(obj)
	if err != nil {
		return true, nil // object missing -> rebuild
	}

	dep := proj.DependencyPath(src.Path)
	prereqs, err := Read(dep)
	if err != nil {
		return false, err
	}
	if prereqs == nil {
		return true, nil // no dependency file -> conservatively stale
	}

	newest, err := newestMtime(src.Path, prereqs, proj.ProjectDir)
	if err != nil {
		return true, nil // a listed header is missing -> rebuild
	}

	return newest.After(objInfo.ModTime()), nil
}

// newestMtime returns the maximum modification time across src and
// every path in prereqs (resolved relative to projectDir if not
// absolute). An error (typically a missing header) propagates so the
// caller treats the source as stale.
func newestMtime(src string, prereqs []string, projectDir string) (time.Time, error) {
	info, err := os.Stat(src)
	if err != nil {
		return time.Time{}, err
	}
	newest := info.ModTime()

	for _, p := range prereqs {
		if !filepath.IsAbs(p) {
			p = filepath.Join(projectDir, p)
		}
		hi, err := os.Stat(p)
		if err != nil {
			return time.Time{}, err
		}
		if hi.ModTime().After(newest) {
			newest = hi.ModTime()
		}
	}
	return newest, nil
}

// artifactIsFresh reports whether the final artifact exists and is
// newer than every object file and every explicitly-listed <objects>
// entry that names an existing file. "-l…" style entries can't be
// timestamp-checked and never force a relink on their own.
func artifactIsFresh(proj *model.Project) bool {
	artifactInfo, err := os.Stat(proj.ArtifactPath())
	if err != nil {
		return false
	}

	for _, src := range proj.Sources {
		info, err := os.Stat(proj.ObjectPath(src.Path))
		if err != nil {
			return false
		}
		if info.ModTime().After(artifactInfo.ModTime()) {
			return false
		}
	}

	for _, obj := range proj.Objects {
		info, err := os.Stat(obj)
		if err != nil {
			continue // not a real file path (e.g. "-lm"); can't check, doesn't force relink
		}
		if info.ModTime().After(artifactInfo.ModTime()) {
			return false
		}
	}

	return true
}
