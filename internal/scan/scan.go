// Package scan walks a source tree, parses each file, and hands syntax
// trees to per-check fact extractors. One scanner serves every check; the
// checks differ only in the FactFunc they plug in.
//
// A file that fails to parse is skipped with zero facts; a syntax error in
// one file must never blind a check to the rest of the tree. A missing root
// directory yields an empty result, not an error: several policies are
// opt-in per project layout.
package scan

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Target is the set of files one run considers: either a full walk under
// Root filtered by globs, or an explicit changed-file list for incremental
// mode. Paths are slash-separated and relative to Root.
type Target struct {
	Root    string
	Include []string // doublestar globs; empty matches every file
	Exclude []string // doublestar globs; any match drops the file
	Files   []string // explicit list (incremental mode); nil means walk
	Workers int      // parse concurrency; 0 means GOMAXPROCS
}

// File is one scanned source file. AST is nil in raw mode.
type File struct {
	Path string
	AST  *ast.File
	Fset *token.FileSet
	Src  []byte
}

// LineCount returns the number of source lines in the file.
func (f *File) LineCount() int {
	if len(f.Src) == 0 {
		return 0
	}
	n := strings.Count(string(f.Src), "\n")
	if f.Src[len(f.Src)-1] != '\n' {
		n++
	}
	return n
}

// IsTest reports whether the file is a Go test file.
func (f *File) IsTest() bool {
	return strings.HasSuffix(f.Path, "_test.go")
}

var generatedRe = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

// IsGenerated reports whether the file carries the standard generated-code
// header and is therefore exempt from style policies.
func (f *File) IsGenerated() bool {
	for _, line := range strings.SplitN(string(f.Src), "\n", 40) {
		if generatedRe.MatchString(strings.TrimRight(line, "\r")) {
			return true
		}
		if strings.HasPrefix(line, "package ") {
			break
		}
	}
	return false
}

// FactFunc extracts one check's facts from a file. Returning ok=false
// records no fact for the file.
type FactFunc[F any] func(f *File) (F, bool)

// Fact pairs an extracted fact with the file it came from.
type Fact[F any] struct {
	Path  string
	Value F
}

// Result is the outcome of one scan, ordered by path.
type Result[F any] struct {
	Facts   []Fact[F]
	Skipped []string // files that failed to read or parse
}

// Run scans the target, parsing each file, and applies fn to every file
// that parses. Unparseable files land in Skipped.
func Run[F any](ctx context.Context, t Target, fn FactFunc[F]) (*Result[F], error) {
	return run(ctx, t, fn, true)
}

// RunRaw scans the target without parsing; fn sees Src only. Used by
// line-oriented checks (duplication, suppression directives).
func RunRaw[F any](ctx context.Context, t Target, fn FactFunc[F]) (*Result[F], error) {
	return run(ctx, t, fn, false)
}

func run[F any](ctx context.Context, t Target, fn FactFunc[F], parse bool) (*Result[F], error) {
	paths, err := t.paths()
	if err != nil {
		return nil, err
	}

	res := &Result[F]{}
	if len(paths) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers())

	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(t.Root, filepath.FromSlash(p)))
			if err != nil {
				if os.IsNotExist(err) && t.Files != nil {
					// Changed list can name deleted files; nothing to scan.
					return nil
				}
				mu.Lock()
				res.Skipped = append(res.Skipped, p)
				mu.Unlock()
				return nil
			}

			f := &File{Path: p, Src: src}
			if parse {
				fset := token.NewFileSet()
				astFile, perr := parser.ParseFile(fset, p, src, parser.ParseComments)
				if perr != nil {
					mu.Lock()
					res.Skipped = append(res.Skipped, p)
					mu.Unlock()
					return nil
				}
				f.AST = astFile
				f.Fset = fset
			}

			if v, ok := fn(f); ok {
				mu.Lock()
				res.Facts = append(res.Facts, Fact[F]{Path: p, Value: v})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(res.Facts, func(i, j int) bool { return res.Facts[i].Path < res.Facts[j].Path })
	sort.Strings(res.Skipped)
	return res, nil
}

func (t Target) workers() int {
	if t.Workers > 0 {
		return t.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// paths resolves the file list: the explicit set in incremental mode, or a
// filtered walk otherwise.
func (t Target) paths() ([]string, error) {
	if t.Files != nil {
		var out []string
		for _, p := range t.Files {
			p = filepath.ToSlash(p)
			if t.matches(p) {
				out = append(out, p)
			}
		}
		sort.Strings(out)
		return out, nil
	}

	if _, err := os.Stat(t.Root); os.IsNotExist(err) {
		return nil, nil
	}

	var out []string
	err := filepath.WalkDir(t.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			if path != t.Root && skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(t.Root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if t.matches(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// skipDir prunes directories no policy should ever descend into.
func skipDir(name string) bool {
	if name == "vendor" || name == "node_modules" || name == "testdata" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func (t Target) matches(rel string) bool {
	if len(t.Include) > 0 {
		ok := false
		for _, pat := range t.Include {
			if m, _ := doublestar.Match(pat, rel); m {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, pat := range t.Exclude {
		if m, _ := doublestar.Match(pat, rel); m {
			return false
		}
	}
	return true
}
