package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveEndToEnd(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "src", "main.c"), "int main(){return 0;}")
	writeFile(t, filepath.Join(dir, "src", "extra.c"), "void extra(){}")

	writeFile(t, filepath.Join(dir, "Buildfile.xml"), `<?xml version="1.0"?>
<project artifact="app" type="executable">
  <dict key="prefix">arm-none-eabi-</dict>
  <toolchain name="arm">
    <compilerPrefix>{prefix}gcc</compilerPrefix>
    <ccflag>-Wall</ccflag>
  </toolchain>
  <configuration name="Release">
    <toolchain>arm</toolchain>
    <optimization>-O2</optimization>
  </configuration>
  <sources>
    <file path="src/*"/>
  </sources>
</project>`)

	proj, err := Resolve(Options{
		RootPath:      filepath.Join(dir, "Buildfile.xml"),
		Configuration: "Release",
	}, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if proj.ArtifactName != "app" {
		t.Errorf("ArtifactName = %q, want app", proj.ArtifactName)
	}
	if proj.Toolchain.Name != "arm" {
		t.Errorf("Toolchain.Name = %q, want arm", proj.Toolchain.Name)
	}
	if proj.Toolchain.CompilerPrefix != "arm-none-eabi-gcc" {
		t.Errorf("Toolchain.CompilerPrefix = %q, want arm-none-eabi-gcc", proj.Toolchain.CompilerPrefix)
	}
	if proj.Configuration.Optimization != "-O2" {
		t.Errorf("Configuration.Optimization = %q, want -O2", proj.Configuration.Optimization)
	}
	if len(proj.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(proj.Sources))
	}
}

func TestResolveIfGuardCullsElement(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "main.c"), "int main(){return 0;}")
	writeFile(t, filepath.Join(dir, "Buildfile.xml"), `<?xml version="1.0"?>
<project artifact="app" type="executable">
  <configuration name="Release">
    <ccflag if="{config}==Debug">-DDEBUG</ccflag>
  </configuration>
  <sources>
    <file path="src/main.c"/>
  </sources>
</project>`)

	proj, err := Resolve(Options{
		RootPath:      filepath.Join(dir, "Buildfile.xml"),
		Configuration: "Release",
	}, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(proj.Configuration.ExtraCcflags) != 0 {
		t.Fatalf("ExtraCcflags = %v, want empty (guard should have culled it)", proj.Configuration.ExtraCcflags)
	}
}

func TestResolveIncludeCycleIsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Buildfile.xml"), `<?xml version="1.0"?>
<project artifact="app" type="executable">
  <include path="a.xml"/>
</project>`)
	writeFile(t, filepath.Join(dir, "a.xml"), `<?xml version="1.0"?>
<pyInc>
  <include path="Buildfile.xml"/>
</pyInc>`)

	_, err := Resolve(Options{RootPath: filepath.Join(dir, "Buildfile.xml"), Configuration: "Release"}, nil)
	if err == nil {
		t.Fatal("expected an include-cycle error")
	}
}

func TestResolveLibraryRejectsDashLObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Buildfile.xml"), `<?xml version="1.0"?>
<project artifact="mylib" type="library">
  <configuration name="Release"/>
  <objects>
    <obj>-lm</obj>
  </objects>
</project>`)

	_, err := Resolve(Options{RootPath: filepath.Join(dir, "Buildfile.xml"), Configuration: "Release"}, nil)
	if err == nil {
		t.Fatal("expected an error for a library with a -l object entry")
	}
}

func TestResolveOnlyFileFiltersSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.c"), "")
	writeFile(t, filepath.Join(dir, "src", "b.c"), "")
	writeFile(t, filepath.Join(dir, "Buildfile.xml"), `<?xml version="1.0"?>
<project artifact="app" type="executable">
  <configuration name="Release"/>
  <sources>
    <file path="src/a.c"/>
    <file path="src/b.c"/>
  </sources>
</project>`)

	proj, err := Resolve(Options{
		RootPath:      filepath.Join(dir, "Buildfile.xml"),
		Configuration: "Release",
		OnlyFile:      "b.c",
	}, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(proj.Sources) != 1 || filepath.Base(proj.Sources[0].Path) != "b.c" {
		t.Fatalf("Sources = %v, want exactly [b.c]", proj.Sources)
	}
}
