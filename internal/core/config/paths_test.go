package config

import (
	"path/filepath"
	"testing"
)

func TestResolvePaths_RelativeToBase(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		Paths:  []string{"src", "lib"},
		Output: Output{IndexDB: "out/index.db", MetricsFile: "out/run.prom"},
	}

	got, err := ResolvePaths(cfg, root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "src"), filepath.Join(root, "lib")}
	if len(got.Sources) != 2 || got.Sources[0] != want[0] || got.Sources[1] != want[1] {
		t.Fatalf("unexpected sources: %v", got.Sources)
	}
	if got.IndexDB != filepath.Join(root, "out", "index.db") {
		t.Fatalf("unexpected index db: %q", got.IndexDB)
	}
	if got.MetricsFile != filepath.Join(root, "out", "run.prom") {
		t.Fatalf("unexpected metrics file: %q", got.MetricsFile)
	}
}

func TestResolvePaths_AbsoluteOverrides(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "elsewhere", "index.db")
	cfg := &Config{Paths: []string{root}, Output: Output{IndexDB: abs}}

	got, err := ResolvePaths(cfg, filepath.Join(root, "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Sources[0] != filepath.Clean(root) {
		t.Fatalf("unexpected source: %q", got.Sources[0])
	}
	if got.IndexDB != abs {
		t.Fatalf("unexpected index db: %q", got.IndexDB)
	}
	if got.MetricsFile != "" {
		t.Fatalf("metrics file should stay empty, got %q", got.MetricsFile)
	}
}

func TestResolvePaths_EmptyBase(t *testing.T) {
	if _, err := ResolvePaths(Default(), " "); err == nil {
		t.Fatal("expected an error for an empty base directory")
	}
}
