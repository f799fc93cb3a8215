package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/cbld/cbld/internal/diag"
	"github.com/cbld/cbld/internal/model"
)

// Options carries everything the CLI layer gathers before resolution
// begins.
type Options struct {
	RootPath      string   // -f, defaults to "Buildfile.xml"
	Subs          []KV     // -s, in CLI order
	DictFiles     []string // -i, in CLI order
	Configuration string   // -g, defaults to "Release"
	OnlyFile      string   // -o, empty means "build everything"
	Clean         bool     // -c
}

// KV is one "-s key:value" pair, order-preserving.
type KV struct {
	Key   string
	Value string
}

// DumpHook, when non-nil, is invoked with a snapshot of the document
// after each evaluation phase (the "-x" flag).
type DumpHook func(phase string, doc *etree.Document)

// Resolve runs the resolver's five phases (seed, inline, collect dicts,
// substitute+guard, assemble) and returns the normalized build plan.
func Resolve(opts Options, dump DumpHook) (*model.Project, error) {
	rootPath, err := filepath.Abs(opts.RootPath)
	if err != nil {
		return nil, diag.IOError(opts.RootPath, err)
	}
	projectDir := filepath.Dir(rootPath)

	subs, err := seedSubstitutions(opts)
	if err != nil {
		return nil, err
	}

	doc, err := loadDocument(rootPath)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, diag.ConfigErrorf(rootPath, "empty XML document")
	}
	if root.Tag != "project" {
		return nil, diag.ConfigErrorf(rootPath, "root element must be <project>, got <%s>", root.Tag)
	}

	state := &substState{sub: subs}
	if err := inlineIncludes(root, projectDir, state, map[string]bool{rootPath: true}); err != nil {
		return nil, err
	}
	if dump != nil {
		dump("P1-inline", doc)
	}

	if err := collectDicts(root, nil, nil, subs); err != nil {
		return nil, err
	}
	toolchainName, err := toolchainNameFor(root, opts.Configuration, subs)
	if err != nil {
		return nil, err
	}
	cfg := opts.Configuration
	if err := collectDicts(root, &cfg, nil, subs); err != nil {
		return nil, err
	}
	if toolchainName != "" {
		if err := collectDicts(root, nil, &toolchainName, subs); err != nil {
			return nil, err
		}
	}
	if err := subs.reconcile(); err != nil {
		return nil, err
	}

	if err := substituteAndGuard(root, subs); err != nil {
		return nil, err
	}
	if dump != nil {
		dump("P2-substitute", doc)
	}

	toolchain, configuration, err := selectToolchainAndConfiguration(root, opts.Configuration)
	if err != nil {
		return nil, err
	}

	proj, err := assemble(root, projectDir, opts, toolchain, configuration, subs)
	if err != nil {
		return nil, err
	}
	if dump != nil {
		dump("P4-assemble", doc)
	}
	return proj, nil
}

// seedSubstitutions implements Phase P0.
func seedSubstitutions(opts Options) (*subMap, error) {
	subs := newSubMap()

	for _, kv := range opts.Subs {
		subs.m.Seal(kv.Key, kv.Value)
	}

	for _, path := range opts.DictFiles {
		if err := seedFromDictFile(subs, path); err != nil {
			return nil, err
		}
	}

	config := opts.Configuration
	if config == "" {
		config = "Release"
	}
	subs.m.Seal("config", config)

	return subs, nil
}

func seedFromDictFile(subs *subMap, path string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return diag.IOError(path, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "dicts" {
		return diag.ConfigErrorf(path, "dictionary file root must be <dicts>")
	}
	for _, child := range root.ChildElements() {
		if child.Tag != "dict" {
			return diag.ConfigErrorf(path, "<dicts> may only contain <dict> children, found <%s>", child.Tag)
		}
		key := child.SelectAttrValue("key", "")
		if key == "" {
			return diag.ConfigErrorf(path, "<dict> missing required \"key\" attribute")
		}
		subs.m.Seal(key, child.Text())
	}
	return nil
}

// collectDicts recursively folds <dict> elements into subs. A
// <configuration> subtree is only descended into when configFilter
// names it, a <toolchain> subtree only when toolchainFilter names it,
// and a nil filter means "skip that kind of subtree entirely" (used for
// the unscoped top-level pass). Everything else is walked
// unconditionally.
func collectDicts(el *etree.Element, configFilter, toolchainFilter *string, subs *subMap) error {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "configuration":
			if configFilter == nil || child.SelectAttrValue("name", "") != *configFilter {
				continue
			}
			if err := collectDicts(child, nil, nil, subs); err != nil {
				return err
			}
		case "toolchain":
			if toolchainFilter == nil || child.SelectAttrValue("name", "") != *toolchainFilter {
				continue
			}
			if err := collectDicts(child, nil, nil, subs); err != nil {
				return err
			}
		case "dict":
			if guard := child.SelectAttrValue("if", ""); guard != "" {
				substituted, err := subs.substitute(guard)
				if err != nil {
					continue // forward reference; this dict's guard may resolve on a later collectDicts call
				}
				ok, err := evalGuard(substituted)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			if err := subs.addDocumentDict(child); err != nil {
				return err
			}
		default:
			if err := collectDicts(child, configFilter, toolchainFilter, subs); err != nil {
				return err
			}
		}
	}
	return nil
}

// toolchainNameFor finds the <toolchain> child text of the
// <configuration name=config> element, substituting it against subs as
// gathered so far. An empty result with no error means "native", the
// implicit zero-value toolchain (see DESIGN.md for why).
func toolchainNameFor(root *etree.Element, config string, subs *subMap) (string, error) {
	for _, c := range root.ChildElements() {
		if c.Tag != "configuration" || c.SelectAttrValue("name", "") != config {
			continue
		}
		tc := c.SelectElement("toolchain")
		if tc == nil {
			return "", nil
		}
		return subs.substitute(tc.Text())
	}
	return "", diag.ConfigErrorf("<configuration>", "configuration %q not found", config)
}

// substituteAndGuard implements Phase P2's general pass: every
// remaining element (dicts having already been extracted and folded by
// collectDicts/reconcile) gets its attributes and text substituted, and
// its "if" guard evaluated, depth-first, removing culled subtrees.
func substituteAndGuard(el *etree.Element, subs *subMap) error {
	for _, child := range el.ChildElements() {
		if child.Tag == "dict" {
			el.RemoveChild(child)
			continue
		}

		guard := child.SelectAttrValue("if", "")
		if guard != "" {
			substituted, err := subs.substitute(guard)
			if err != nil {
				return err
			}
			ok, err := evalGuard(substituted)
			if err != nil {
				return err
			}
			if !ok {
				el.RemoveChild(child)
				continue
			}
			child.CreateAttr("if", substituted)
		}

		for _, attr := range child.Attr {
			if attr.Key == "if" {
				continue
			}
			v, err := subs.substitute(attr.Value)
			if err != nil {
				return err
			}
			child.CreateAttr(attr.Key, v)
		}

		if hasDirectText(child) {
			v, err := subs.substitute(child.Text())
			if err != nil {
				return err
			}
			child.SetText(v)
		}

		if err := substituteAndGuard(child, subs); err != nil {
			return err
		}
	}
	return nil
}

func hasDirectText(el *etree.Element) bool {
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok && strings.TrimSpace(cd.Data) != "" {
			return true
		}
	}
	return false
}

// selectToolchainAndConfiguration implements Phase P3.
func selectToolchainAndConfiguration(root *etree.Element, configName string) (model.Toolchain, model.Configuration, error) {
	var cfgEl *etree.Element
	for _, c := range root.ChildElements() {
		if c.Tag == "configuration" && c.SelectAttrValue("name", "") == configName {
			cfgEl = c
			break
		}
	}
	if cfgEl == nil {
		return model.Toolchain{}, model.Configuration{}, diag.ConfigErrorf("<configuration>", "configuration %q not found", configName)
	}

	configuration := model.Configuration{
		Name:         configName,
		Optimization: "-O0",
		Debugging:    "-g3",
	}
	if el := cfgEl.SelectElement("optimization"); el != nil {
		configuration.Optimization = strings.TrimSpace(el.Text())
	}
	if el := cfgEl.SelectElement("debugging"); el != nil {
		configuration.Debugging = strings.TrimSpace(el.Text())
	}
	configuration.ExtraCcflags = textsOf(cfgEl, "ccflag")
	configuration.ExtraLflags = textsOf(cfgEl, "lflag")

	toolchainName := "native"
	if tc := cfgEl.SelectElement("toolchain"); tc != nil && strings.TrimSpace(tc.Text()) != "" {
		toolchainName = strings.TrimSpace(tc.Text())
	}
	configuration.ToolchainRef = toolchainName

	toolchain := model.Toolchain{Name: toolchainName}
	var tcEl *etree.Element
	for _, c := range root.ChildElements() {
		if c.Tag == "toolchain" && c.SelectAttrValue("name", "") == toolchainName {
			tcEl = c
			break
		}
	}
	if tcEl == nil && toolchainName != "native" {
		return model.Toolchain{}, model.Configuration{}, diag.ConfigErrorf("<toolchain>", "toolchain %q not found", toolchainName)
	}
	if tcEl != nil {
		if el := tcEl.SelectElement("compilerPath"); el != nil {
			toolchain.CompilerPath = strings.TrimSpace(el.Text())
		}
		if el := tcEl.SelectElement("compilerPrefix"); el != nil {
			toolchain.CompilerPrefix = strings.TrimSpace(el.Text())
		}
		toolchain.Ccflags = textsOf(tcEl, "ccflag")
		toolchain.Aflags = textsOf(tcEl, "aflag")
		toolchain.Cflags = textsOf(tcEl, "cflag")
		toolchain.Cppflags = textsOf(tcEl, "cppflag")
		toolchain.Lflags = textsOf(tcEl, "lflag")
	}

	return toolchain, configuration, nil
}

func textsOf(el *etree.Element, tag string) []string {
	var out []string
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c.Text())
		}
	}
	return out
}

// assemble implements Phase P4.
func assemble(root *etree.Element, projectDir string, opts Options, toolchain model.Toolchain, configuration model.Configuration, subs *subMap) (*model.Project, error) {
	artifactAttr := root.SelectAttrValue("artifact", "")
	if artifactAttr == "" {
		return nil, diag.ConfigErrorf("<project>", "missing required \"artifact\" attribute")
	}
	typeAttr := root.SelectAttrValue("type", "")
	var kind model.ArtifactKind
	switch typeAttr {
	case "executable":
		kind = model.Executable
	case "library":
		kind = model.Library
	default:
		return nil, diag.ConfigErrorf("<project>", "\"type\" must be \"executable\" or \"library\", got %q", typeAttr)
	}

	artifactName := artifactAttr
	ext := ""
	if idx := strings.LastIndex(artifactAttr, "."); idx >= 0 {
		artifactName = artifactAttr[:idx]
		ext = artifactAttr[idx+1:]
	} else if el := root.SelectElement("extension"); el != nil {
		ext = strings.TrimSpace(el.Text())
	}

	proj := &model.Project{
		ProjectDir:    projectDir,
		ArtifactName:  artifactName,
		ArtifactKind:  kind,
		ArtifactExt:   ext,
		OutputDir:     filepath.Join(projectDir, opts.Configuration),
		Toolchain:     toolchain,
		Configuration: configuration,
		GlobalCcflags: textsOf(root, "ccflag"),
		GlobalCflags:  textsOf(root, "cflag"),
		GlobalCppflags: textsOf(root, "cppflag"),
		GlobalAflags:  textsOf(root, "aflag"),
		GlobalLflags:  textsOf(root, "lflag"),
		PreOps:        textsOf(root, "pre_op"),
		PostOps:       textsOf(root, "post_op"),
	}

	if el := root.SelectElement("includes"); el != nil {
		for _, c := range el.ChildElements() {
			switch c.Tag {
			case "path":
				p, err := joinUnderProject(projectDir, c.Text())
				if err != nil {
					return nil, err
				}
				proj.Includes = append(proj.Includes, p)
			case "isys":
				p, err := joinUnderProject(projectDir, c.Text())
				if err != nil {
					return nil, err
				}
				proj.SystemIncludes = append(proj.SystemIncludes, p)
			}
		}
	}

	if el := root.SelectElement("objects"); el != nil {
		for _, c := range el.ChildElements() {
			if c.Tag == "obj" {
				txt := strings.TrimSpace(c.Text())
				if txt == "" {
					continue
				}
				if proj.ArtifactKind == model.Library && strings.HasPrefix(txt, "-l") {
					return nil, diag.ConfigErrorf("<obj>", "library (archive) build cannot include linker flag %q", txt)
				}
				proj.Objects = append(proj.Objects, txt)
			}
		}
	}

	if el := root.SelectElement("prebuilds"); el != nil {
		for _, c := range el.ChildElements() {
			if c.Tag != "project" {
				continue
			}
			ref := model.PrebuildRef{Path: c.SelectAttrValue("path", "")}
			if ref.Path == "" {
				return nil, diag.ConfigErrorf("<prebuilds><project>", "missing required \"path\" attribute")
			}
			if e := c.SelectElement("configfile"); e != nil {
				ref.Overrides.ConfigFile = strings.TrimSpace(e.Text())
			}
			if e := c.SelectElement("configuration"); e != nil {
				ref.Overrides.Configuration = strings.TrimSpace(e.Text())
			}
			if e := c.SelectElement("clean"); e != nil {
				v := parseBool(strings.TrimSpace(e.Text()))
				ref.Overrides.Clean = &v
			}
			if e := c.SelectElement("prebuilds"); e != nil {
				v := parseBool(strings.TrimSpace(e.Text()))
				ref.Overrides.DoPrebuilds = &v
			}
			for _, sub := range c.SelectElements("sub") {
				ref.Overrides.Subs = append(ref.Overrides.Subs, strings.TrimSpace(sub.Text()))
			}
			proj.Prebuilds = append(proj.Prebuilds, ref)
		}
	}

	sources, err := assembleSources(root, projectDir, opts)
	if err != nil {
		return nil, err
	}
	proj.Sources = sources

	if err := checkDuplicateObjects(proj); err != nil {
		return nil, err
	}
	if proj.ArtifactKind == model.Executable && len(proj.Sources) == 0 && len(proj.Objects) == 0 {
		return nil, diag.ConfigErrorf("<project>", "executable has no <sources> and no <objects>")
	}
	// A library with no <sources> is not an error: it resolves to an
	// empty archive, produced by an "ar rcs" with no object arguments.

	return proj, nil
}

func parseBool(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}

// joinUnderProject resolves a document-supplied relative path against
// projectDir with securejoin, which keeps the result inside the project
// tree (".." components cannot climb above projectDir). An absolute path
// is returned cleaned but otherwise unchanged. Used for <includes> entries
// and <sources> file paths; <include>, <obj> and prebuild paths do not
// go through it.
func joinUnderProject(projectDir, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel), nil
	}
	p, err := securejoin.SecureJoin(projectDir, rel)
	if err != nil {
		return "", diag.IOError(rel, err)
	}
	return p, nil
}

func assembleSources(root *etree.Element, projectDir string, opts Options) ([]model.SourceEntry, error) {
	srcsEl := root.SelectElement("sources")
	if srcsEl == nil {
		return nil, nil
	}

	var entries []model.SourceEntry
	for _, fileEl := range srcsEl.SelectElements("file") {
		path := fileEl.SelectAttrValue("path", "")
		if path == "" {
			return nil, diag.ConfigErrorf("<file>", "missing required \"path\" attribute")
		}

		if strings.HasSuffix(path, "/*") {
			dir := path[:len(path)-2]
			expanded, err := expandWildcard(projectDir, dir, fileEl)
			if err != nil {
				return nil, err
			}
			entries = appendReplacing(entries, expanded...)
			continue
		}

		entry, err := sourceEntryFromFile(projectDir, fileEl, path)
		if err != nil {
			return nil, err
		}
		entries = appendReplacing(entries, entry)
	}

	if opts.OnlyFile != "" {
		var only []model.SourceEntry
		for _, e := range entries {
			if filepath.Base(e.Path) == opts.OnlyFile {
				only = append(only, e)
			}
		}
		if len(only) == 0 {
			return nil, diag.ConfigErrorf("-o", "no source matches %q", opts.OnlyFile)
		}
		return only, nil
	}

	return entries, nil
}

// appendReplacing mirrors pyMake's srcAppend: a later entry sharing an
// existing entry's basename replaces it in place rather than duplicating.
func appendReplacing(entries []model.SourceEntry, add ...model.SourceEntry) []model.SourceEntry {
	for _, a := range add {
		base := filepath.Base(a.Path)
		replaced := false
		for i, e := range entries {
			if filepath.Base(e.Path) == base {
				entries[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, a)
		}
	}
	return entries
}

func sourceEntryFromFile(projectDir string, fileEl *etree.Element, path string) (model.SourceEntry, error) {
	abs, err := joinUnderProject(projectDir, path)
	if err != nil {
		return model.SourceEntry{}, err
	}
	entry := model.SourceEntry{Path: abs}
	entry.PerFileCcflags = textsOf(fileEl, "ccflag")
	if el := fileEl.SelectElement("optimization"); el != nil {
		entry.PerFileOptimization = strings.TrimSpace(el.Text())
	}
	if el := fileEl.SelectElement("debugging"); el != nil {
		entry.PerFileDebugging = strings.TrimSpace(el.Text())
	}
	return entry, nil
}

func expandWildcard(projectDir, dirRel string, fileEl *etree.Element) ([]model.SourceEntry, error) {
	dirAbs, err := joinUnderProject(projectDir, dirRel)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]bool)
	for _, ex := range fileEl.SelectElements("exclude") {
		exclude[strings.TrimSpace(ex.Text())] = true
	}

	fsys := os.DirFS(dirAbs)
	names, err := doublestar.Glob(fsys, "*")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, diag.IOError(dirAbs, err)
	}

	var out []model.SourceEntry
	for _, name := range names {
		if !model.IsSupportedSource(name) {
			continue
		}
		if exclude[name] {
			continue
		}
		entry := model.SourceEntry{Path: filepath.Join(dirAbs, name)}
		entry.PerFileCcflags = textsOf(fileEl, "ccflag")
		if el := fileEl.SelectElement("optimization"); el != nil {
			entry.PerFileOptimization = strings.TrimSpace(el.Text())
		}
		if el := fileEl.SelectElement("debugging"); el != nil {
			entry.PerFileDebugging = strings.TrimSpace(el.Text())
		}
		out = append(out, entry)
	}
	return out, nil
}

func checkDuplicateObjects(proj *model.Project) error {
	seen := make(map[string]string)
	for _, s := range proj.Sources {
		obj := proj.ObjectPath(s.Path)
		if other, ok := seen[obj]; ok {
			return diag.ConfigErrorf(obj, "duplicate object path from %q and %q", other, s.Path)
		}
		seen[obj] = s.Path
	}
	return nil
}
