package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// Require is one direct dependency from go.mod, with the line it was
// declared on so violations can point at it.
type Require struct {
	Path    string
	Version string
	Line    int
}

// modulePath reads the module declaration from the root go.mod.
// A missing go.mod is reported as os.ErrNotExist for callers that
// degrade gracefully.
func modulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return "", fmt.Errorf("parse go.mod: %w", err)
	}
	if f.Module == nil {
		return "", errors.New("go.mod has no module declaration")
	}
	return f.Module.Mod.Path, nil
}

// directRequires returns the non-indirect requirements from the root
// go.mod in declaration order.
func directRequires(root string) ([]Require, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return nil, fmt.Errorf("read go.mod: %w", err)
	}
	f, err := modfile.Parse("go.mod", data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse go.mod: %w", err)
	}
	var out []Require
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		req := Require{Path: r.Mod.Path, Version: r.Mod.Version}
		if r.Syntax != nil {
			req.Line = r.Syntax.Start.Line
		}
		out = append(out, req)
	}
	return out, nil
}

// missingGoMod reports whether err means the repo has no go.mod at all.
func missingGoMod(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
