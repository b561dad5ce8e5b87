package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	keys := SortedStringKeys(m)
	expected := []string{"a", "b", "c"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")
	content := []byte("hello")

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}

func TestEnsureParentDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "index.db")
	if err := EnsureParentDir(path); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if info, err := os.Stat(filepath.Join(dir, "a", "b")); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to exist, err=%v", err)
	}
	if err := EnsureParentDir("index.db"); err != nil {
		t.Fatalf("bare file name should be a no-op, got %v", err)
	}
}

func TestHasExtension(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "Match", path: "src/A.php", expected: true},
		{name: "UpperCase", path: "src/A.PHP", expected: true},
		{name: "Other", path: "src/A.phtml", expected: false},
		{name: "None", path: "Makefile", expected: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasExtension(tc.path, []string{".php", ".inc"}); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestUniqueRoots(t *testing.T) {
	t.Parallel()

	got := UniqueRoots([]string{"src", "src/", "src/Domain", "lib", "srcx"})
	expected := []string{"src", "lib", "srcx"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, got)
		}
	}
}
