package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func newTestWatcher(t *testing.T, opts Options) (*Watcher, chan []string) {
	t.Helper()
	changedFiles := make(chan []string, 16)
	w, err := NewWatcher(opts, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w, changedFiles
}

func waitFor(t *testing.T, ch chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-ch:
			if contains(paths, want) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(Options{}, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	if _, err := NewWatcher(Options{ExcludeFiles: []string{"["}}, func([]string) {}); err == nil {
		t.Fatal("expected error for invalid glob")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	w, changedFiles := newTestWatcher(t, Options{
		Debounce:     100 * time.Millisecond,
		ExcludeDirs:  []string{"vendor"},
		ExcludeFiles: []string{"*.blade.php"},
		Extensions:   []string{".php"},
	})
	if err := os.MkdirAll(filepath.Join(tmpDir, "vendor"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "A.php")
	if err := os.WriteFile(testFile, []byte("<?php class A {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile)

	// excluded by glob, extension and directory
	for _, name := range []string{"view.blade.php", "notes.txt", filepath.Join("vendor", "B.php")} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("<?php"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("excluded files triggered event: %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	// New directory should be recursively watched after create.
	subdir := filepath.Join(tmpDir, "Domain")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "Nested.php")
	if err := os.WriteFile(subFile, []byte("<?php class Nested {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()
	w, changedFiles := newTestWatcher(t, Options{Debounce: 100 * time.Millisecond})
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.php")
	newPath := filepath.Join(tmpDir, "new.php")
	if err := os.WriteFile(oldPath, []byte("<?php"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			if contains(paths, oldPath) || contains(paths, newPath) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_ContentHashing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "hash_target.php")
	content := []byte("<?php function main() {}")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	w, changedFiles := newTestWatcher(t, Options{Debounce: 50 * time.Millisecond})
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	// Rewriting identical content is not a change.
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("received unexpected event for identical content: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(testFile, []byte("<?php function main() { return 1; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile)
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, _ := newTestWatcher(t, Options{
		Extensions:   []string{".php", ".inc"},
		ExcludeFiles: []string{"*Test.php"},
	})

	cases := map[string]bool{
		"src/A.php":       false,
		"src/legacy.INC":  false,
		"src/main.py":     true,
		"tests/ATest.php": true,
		"src/readme":      true,
	}
	for path, want := range cases {
		if got := w.shouldExcludeFile(path); got != want {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcher_ThrottlesRuns(t *testing.T) {
	tmpDir := t.TempDir()
	w, changedFiles := newTestWatcher(t, Options{
		Debounce:         10 * time.Millisecond,
		MaxRunsPerSecond: 4,
	})
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	first := filepath.Join(tmpDir, "a.php")
	second := filepath.Join(tmpDir, "b.php")
	if err := os.WriteFile(first, []byte("<?php // 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, first)
	start := time.Now()

	if err := os.WriteFile(second, []byte("<?php // 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, second)
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("second run came after %v, expected the limiter to space runs out", elapsed)
	}
}
