package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpmodel/internal/core/config"
	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/reflection"
)

type stubChecker struct {
	reject map[string]bool
}

func (s stubChecker) Check(path string, src []byte) error {
	if s.reject[filepath.Base(path)] {
		return errors.NewParse(errors.CodeUnexpectedToken, "", "syntax check failed at 1:1 syntax error").At(path, -1, 1)
	}
	return nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func testConfig(mutate ...func(*config.Config)) *config.Config {
	cfg := config.Default()
	cfg.Analysis.Workers = 4
	for _, m := range mutate {
		m(cfg)
	}
	return cfg
}

func newAnalyzer(t *testing.T, cfg *config.Config, checker SyntaxChecker) *Analyzer {
	t.Helper()
	a, err := NewWithDependencies(cfg, Dependencies{SyntaxChecker: checker})
	require.NoError(t, err)
	return a
}

func TestNewWithDependencies_RequiresConfig(t *testing.T) {
	_, err := NewWithDependencies(nil, Dependencies{})
	assert.Error(t, err)
}

func TestNewWithDependencies_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(func(c *config.Config) { c.Analysis.Workers = 0 })
	_, err := NewWithDependencies(cfg, Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.workers")
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/B.php":              "<?php",
		"src/A.php":              "<?php",
		"src/view.blade.php":     "<?php",
		"src/readme.md":          "#",
		"src/Sub/C.PHP":          "<?php",
		"vendor/lib/D.php":       "<?php",
		"src/node_modules/E.php": "<?php",
	})
	cfg := testConfig(func(c *config.Config) { c.Exclude.Files = []string{"*.blade.php"} })
	a := newAnalyzer(t, cfg, nil)

	files, err := a.Discover([]string{root, filepath.Join(root, "src")})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"src/A.php", "src/B.php", "src/Sub/C.PHP"}, rel)
}

func TestDiscoverMissingRoot(t *testing.T) {
	a := newAnalyzer(t, testConfig(), nil)
	_, err := a.Discover([]string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestRunBuildsRegistry(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Child.php": `<?php
namespace App;

class Child extends Base {
    use Greets;
}
`,
		"Base.php": `<?php
namespace App;

abstract class Base {
    public function run() {}
}
`,
		"Greets.php": `<?php
namespace App;

trait Greets {
    public function hello() {}
}
`,
	})
	a := newAnalyzer(t, testConfig(), stubChecker{})

	report, err := a.Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.NoError(t, report.Err(true))

	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Files, 3)
	assert.Empty(t, report.Failures)
	assert.Empty(t, report.Problems)

	// registration follows discovery order
	var names []string
	for _, f := range report.Registry.Files() {
		names = append(names, filepath.Base(f.Name))
	}
	assert.Equal(t, []string{"Base.php", "Child.php", "Greets.php"}, names)

	child, ok := report.Registry.Class(`App\Child`).(*reflection.Class)
	require.True(t, ok)
	methods, err := child.Methods()
	require.NoError(t, err)
	var got []string
	for _, m := range methods {
		got = append(got, m.Name())
	}
	assert.Equal(t, []string{"hello", "run"}, got)

	s := report.Summary()
	assert.Equal(t, 3, s.Files)
	assert.Equal(t, 3, s.Classes)
	assert.Equal(t, []string{"App"}, s.Namespaces)
}

func TestRunCollectsFailures(t *testing.T) {
	root := writeTree(t, map[string]string{
		"good.php":   "<?php\nfunction ok() {}\n",
		"broken.php": "<?php\n\nclass A extends A {}\n",
		"syntax.php": "<?php\nfunction nope( {\n",
	})
	a := newAnalyzer(t, testConfig(), stubChecker{reject: map[string]bool{"syntax.php": true}})

	report, err := a.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "good.php")}, report.Files)
	require.Len(t, report.Failures, 2)

	byName := map[string]FileError{}
	for _, f := range report.Failures {
		byName[filepath.Base(f.Path)] = f
	}
	assert.Equal(t, errors.CodeInvalidParent, byName["broken.php"].Code())
	assert.Equal(t, 3, byName["broken.php"].Line())
	assert.Equal(t, errors.CodeUnexpectedToken, byName["syntax.php"].Code())

	var pe *errors.ParseError
	require.ErrorAs(t, byName["broken.php"].Err, &pe)
	assert.Equal(t, filepath.Join(root, "broken.php"), pe.Context[errors.CtxPath])

	// nothing from a failed file is registered
	assert.False(t, report.Registry.HasClass("A"))
	assert.True(t, report.Registry.HasFunction("ok"))

	err = report.Err(false)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Len(t, be.Failures, 2)
	assert.True(t, errors.IsParse(err))

	s := report.Summary()
	require.Len(t, s.Failures, 2)
	assert.Equal(t, "broken.php", filepath.Base(s.Failures[0].Path))
	assert.Equal(t, "INVALID_PARENT", s.Failures[0].Code)
}

func TestRunReportsProblems(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.php": "<?php\nfunction helper() {}\n",
		"b.php": "<?php\nfunction helper() {}\n",
		"c.php": `<?php
trait T1 { public function m() {} }
trait T2 { public function m() {} }
class Clash { use T1, T2; }
interface I {}
class Wrong extends I {}
class Orphan extends Missing {}
`,
	})
	a := newAnalyzer(t, testConfig(), nil)

	report, err := a.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, report.Failures)

	categories := map[string]string{}
	for _, p := range report.Problems {
		categories[p.Symbol] = p.Category
	}
	assert.Equal(t, map[string]string{
		"helper": CategoryConflict,
		"Clash":  CategoryComposition,
		"Wrong":  CategoryInvalid,
	}, categories)

	for _, p := range report.Problems {
		if p.Symbol == "helper" {
			assert.Equal(t, "function", p.Kind)
			assert.Equal(t, filepath.Join(root, "a.php"), p.File)
			require.Len(t, p.Messages, 1)
		}
	}

	assert.Contains(t, report.Unresolved, "class Missing")

	assert.NoError(t, report.Err(false))
	err = report.Err(true)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Len(t, be.Problems, 3)
	assert.Contains(t, be.Error(), "3 problem(s)")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestFileErrorCode(t *testing.T) {
	runtime := errors.NewRuntime(errors.CodeDoesNotExist, "f", "file was not processed")
	cases := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"parse", errors.NewParse(errors.CodeInvalidParent, "A", "cycle"), errors.CodeInvalidParent},
		{"wrapped runtime", fmt.Errorf("register: %w", runtime), errors.CodeDoesNotExist},
		{"domain", errors.New(errors.CodeAlreadyExists, "file already registered"), errors.CodeAlreadyExists},
		{"plain", stderrors.New("disk on fire"), errors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FileError{Path: "x.php", Err: tc.err}.Code())
		})
	}
}

func TestRunSkipsOversizedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.php": "<?php\n",
		"large.php": "<?php\n// " + string(make([]byte, 256)) + "\n",
	})
	cfg := testConfig(func(c *config.Config) { c.Analysis.MaxFileBytes = 64 })
	a := newAnalyzer(t, cfg, nil)

	report, err := a.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "large.php")}, report.Skipped)
	assert.Len(t, report.Files, 1)
}

func TestRunCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.php": "<?php\n"})
	a := newAnalyzer(t, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Run(ctx, []string{root})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files[name+".php"] = "<?php\nfunction dup() {}\nclass K" + name + " {}\n"
	}
	root := writeTree(t, files)

	firstFiles := func(workers int) (string, []string) {
		a := newAnalyzer(t, testConfig(func(c *config.Config) { c.Analysis.Workers = workers }), nil)
		report, err := a.Run(context.Background(), []string{root})
		require.NoError(t, err)
		require.Len(t, report.Problems, 1)
		var classes []string
		for _, c := range report.Registry.Classes() {
			classes = append(classes, c.Name())
		}
		return report.Problems[0].File, classes
	}

	serialFile, serialClasses := firstFiles(1)
	parallelFile, parallelClasses := firstFiles(6)
	assert.Equal(t, filepath.Join(root, "a.php"), serialFile)
	assert.Equal(t, serialFile, parallelFile)
	assert.Equal(t, serialClasses, parallelClasses)
	assert.True(t, sort.StringsAreSorted(serialClasses))
}

func TestNewInstallsSyntaxChecker(t *testing.T) {
	enabled := testConfig()
	a, err := New(enabled)
	require.NoError(t, err)
	assert.NotNil(t, a.checker)

	off := false
	disabled := testConfig(func(c *config.Config) { c.Analysis.SyntaxCheck = &off })
	a, err = New(disabled)
	require.NoError(t, err)
	assert.Nil(t, a.checker)
}
