package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateOutputConflicts(t *testing.T) {
	cfg := Default()
	cfg.Output.IndexDB = "out/run.prom"
	cfg.Output.MetricsFile = "out/./run.prom"

	errs := Validate(cfg)
	found := false
	for _, err := range errs {
		if err.Error() == `output conflict: output.index_db and output.metrics_file share the same path "out/run.prom"` {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected output conflict error, got %v", errs)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Version = 0
	cfg.Analysis.Workers = 0
	cfg.Watch.MaxRunsPerSecond = 0

	if errs := Validate(cfg); len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte("[analysis]\nworkers = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[analysis]\nworkers = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Analysis.Workers != 5 {
			t.Fatalf("expected reloaded workers 5, got %d", cfg.Analysis.Workers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherSkipsUnchangedAndInvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte("[analysis]\nworkers = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls int
	w := NewWatcher(path, func(*Config) { calls++ })

	w.reload()
	if calls != 0 {
		t.Fatalf("unchanged content must not reload, got %d calls", calls)
	}

	if err := os.WriteFile(path, []byte("[analysis]\nworkers = -2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()
	if calls != 0 {
		t.Fatalf("invalid content must not reach the callback, got %d calls", calls)
	}

	if err := os.WriteFile(path, []byte("[analysis]\nworkers = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()
	if calls != 1 {
		t.Fatalf("expected one reload, got %d", calls)
	}
}
