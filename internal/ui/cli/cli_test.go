package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"phpmodel/internal/core/app"
	"phpmodel/internal/core/config"
	phperrors "phpmodel/internal/core/errors"
	"phpmodel/internal/data/index"
	"phpmodel/internal/engine/reflection"
)

const runnerSource = `<?php
namespace App;

trait Greets {
    public function hello() {}
}

class Runner {
    use Greets;
    const LIMIT = 3;
    protected $name = 'runner';

    /** Runs once. */
    public function run($times = 1) {}
}

function helper() {}
`

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "phpmodel v"+versionString) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestValidate_TextReport(t *testing.T) {
	dir := writeSources(t, map[string]string{"src/runner.php": runnerSource})

	code, out, stderr := runCLI(t, "validate", dir)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	for _, want := range []string{"1 parsed", "2 classes, 1 functions", "namespaces: App", "OK"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestValidate_JSONSummary(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"a.php": runnerSource,
		"b.php": "<?php\nnamespace App;\nfunction helper() {}\n",
	})

	code, out, stderr := runCLI(t, "validate", "--format", "json", dir)
	if code != 0 {
		t.Fatalf("conflicts are not fatal outside strict mode, got %d: %s", code, stderr)
	}
	var summary app.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Files != 2 {
		t.Errorf("expected 2 files, got %d", summary.Files)
	}
	if len(summary.Problems) != 1 || summary.Problems[0].Category != app.CategoryConflict {
		t.Fatalf("expected one conflict problem, got %+v", summary.Problems)
	}
	if summary.Problems[0].Symbol != `App\helper` {
		t.Errorf("unexpected conflict symbol %q", summary.Problems[0].Symbol)
	}
}

func TestValidate_StrictFailsOnProblems(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"a.php": "<?php\nclass Dup {}\n",
		"b.php": "<?php\nclass Dup {}\n",
	})

	code, out, stderr := runCLI(t, "validate", "--strict", dir)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out, "Problems") || !strings.Contains(out, "1 issue(s)") {
		t.Errorf("expected problems section:\n%s", out)
	}
	if !strings.Contains(stderr, "1 problem(s)") {
		t.Errorf("expected batch error on stderr, got %q", stderr)
	}
}

func TestValidate_ParseFailureExitsOne(t *testing.T) {
	dir := writeSources(t, map[string]string{
		"ok.php":     "<?php\nclass Fine {}\n",
		"broken.php": "<?php\nclass Broken {\n",
	})

	code, out, _ := runCLI(t, "validate", "--format", "yaml", dir)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	var summary app.Summary
	if err := yaml.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode yaml summary: %v\n%s", err, out)
	}
	if summary.Files != 1 || len(summary.Failures) != 1 {
		t.Fatalf("expected one parsed and one failed file, got %+v", summary)
	}
	if !strings.HasSuffix(summary.Failures[0].Path, "broken.php") {
		t.Errorf("unexpected failure %+v", summary.Failures[0])
	}
}

func TestIndex_RequiresDatabase(t *testing.T) {
	dir := writeSources(t, map[string]string{"a.php": runnerSource})

	code, _, stderr := runCLI(t, "index", dir)
	if code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr, "index requires --db") {
		t.Fatalf("unexpected error output %q", stderr)
	}
}

func TestIndex_WritesDatabaseAndMetrics(t *testing.T) {
	dir := writeSources(t, map[string]string{"a.php": runnerSource})
	dbPath := filepath.Join(t.TempDir(), "index.db")
	promPath := filepath.Join(t.TempDir(), "run.prom")

	code, _, stderr := runCLI(t, "index", "--db", dbPath, "--metrics-file", promPath, dir)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}

	store, err := index.Open(dbPath)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer store.Close()
	runs, err := store.Runs(t.Context())
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].FileCount != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}
	members, err := store.Members(t.Context(), runs[0].ID, `App\Runner`)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 4 {
		t.Fatalf("expected hello, run, name and LIMIT, got %+v", members)
	}

	data, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "phpmodel_files_processed_total") {
		t.Errorf("metrics file missing file counter:\n%s", data)
	}
}

func TestIndex_ConfigPathsResolveAgainstConfigDir(t *testing.T) {
	dir := writeSources(t, map[string]string{"src/a.php": runnerSource})
	cfgPath := filepath.Join(dir, config.DefaultFile)
	content := "paths = [\"src\"]\n\n[output]\nindex_db = \"out/index.db\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "index", "--config", cfgPath)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "index.db")); err != nil {
		t.Fatalf("expected index next to config: %v", err)
	}
}

func TestMissingExplicitConfigExitsTwo(t *testing.T) {
	code, _, stderr := runCLI(t, "validate", "--config", filepath.Join(t.TempDir(), "nope.toml"))
	if code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr, "load config") {
		t.Fatalf("unexpected error %q", stderr)
	}
}

func TestInspect_SingleFieldJSON(t *testing.T) {
	dir := writeSources(t, map[string]string{"a.php": runnerSource})

	code, out, stderr := runCLI(t, "inspect", `App\Runner`, "--field", "methods", "--format", "json", dir)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	var got map[string][]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	methods := got["methods"]
	if len(methods) != 2 {
		t.Fatalf("expected two methods, got %v", methods)
	}
}

func TestInspect_MethodText(t *testing.T) {
	dir := writeSources(t, map[string]string{"a.php": runnerSource})

	code, out, stderr := runCLI(t, "inspect", `\App\Runner::run()`, dir)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	for _, want := range []string{`App\Runner::run()`, "parameters:", "$times", "declaring_class:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestInspect_UnknownSymbol(t *testing.T) {
	dir := writeSources(t, map[string]string{"a.php": runnerSource})

	code, _, stderr := runCLI(t, "inspect", `App\Nope`, dir)
	if code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr, "DOES_NOT_EXIST") && !strings.Contains(stderr, "no class, function or constant") {
		t.Fatalf("unexpected error %q", stderr)
	}
}

func TestResolveElement(t *testing.T) {
	reg := reflection.NewRegistry()
	if _, err := reg.ParseSource("a.php", []byte(runnerSource+"\nconst VERSION = '1';\n")); err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		symbol string
		want   string
	}{
		{`App\Runner`, "*reflection.Class"},
		{`App\Runner::hello()`, "*reflection.Method"},
		{`App\Runner::$name`, "*reflection.Property"},
		{`App\Runner::LIMIT`, "*reflection.Constant"},
		{`App\helper()`, "*reflection.Function"},
		{`App\helper`, "*reflection.Function"},
		{`App\VERSION`, "*reflection.Constant"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := resolveElement(reg, tt.symbol)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if typeName(got) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, typeName(got))
			}
		})
	}

	for _, missing := range []string{"", `App\Nope`, `App\Nope::x()`, `App\nope()`, `App\Runner::$nope`} {
		if _, err := resolveElement(reg, missing); err == nil {
			t.Errorf("expected %q to fail", missing)
		}
	}
	if _, err := resolveElement(reg, `App\Nope`); !phperrors.IsCode(err, phperrors.CodeDoesNotExist) {
		t.Errorf("expected DOES_NOT_EXIST, got %v", err)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *reflection.Class:
		return "*reflection.Class"
	case *reflection.Method:
		return "*reflection.Method"
	case *reflection.Property:
		return "*reflection.Property"
	case *reflection.Constant:
		return "*reflection.Constant"
	case *reflection.Function:
		return "*reflection.Function"
	case *reflection.Placeholder:
		return "*reflection.Placeholder"
	}
	return "unknown"
}

func TestApplyOptions(t *testing.T) {
	cfg := config.Default()
	applyOptions(&cliOptions{format: " JSON ", workers: 3, strict: true, indexDB: "x.db", metricsFile: "m.prom"}, cfg)

	if cfg.Output.Format != "json" || cfg.Analysis.Workers != 3 || !cfg.Analysis.Strict {
		t.Fatalf("flags not applied: %+v %+v", cfg.Output, cfg.Analysis)
	}
	if cfg.Output.IndexDB != "x.db" || cfg.Output.MetricsFile != "m.prom" {
		t.Fatalf("output flags not applied: %+v", cfg.Output)
	}

	before := *cfg
	applyOptions(&cliOptions{}, cfg)
	if cfg.Output != before.Output || cfg.Analysis.Workers != before.Analysis.Workers {
		t.Fatal("empty options must not change the config")
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(&app.BatchError{RunID: "r"}); got != 1 {
		t.Errorf("batch error should exit 1, got %d", got)
	}
	if got := exitCode(errors.New("boom")); got != 2 {
		t.Errorf("other errors should exit 2, got %d", got)
	}
}
