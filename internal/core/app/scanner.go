package app

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/gobwas/glob"

	"phpmodel/internal/shared/util"
)

// Discover walks roots and returns every source file that matches the
// configured extensions and survives the exclude globs. Files come back in
// lexical order per root, roots in the order given, without duplicates.
func (a *Analyzer) Discover(roots []string) ([]string, error) {
	dirGlobs, err := compileGlobs(a.Config.Exclude.Dirs, "dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(a.Config.Exclude.Files, "file")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, root := range util.UniqueRoots(roots) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && matchesAny(dirGlobs, base) {
					return filepath.SkipDir
				}
				return nil
			}

			if !util.HasExtension(path, a.Config.Extensions) {
				return nil
			}
			if matchesAny(fileGlobs, base) {
				return nil
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	return files, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
