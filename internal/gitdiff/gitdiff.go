// Package gitdiff resolves changed-file sets from version control. The
// checks treat the result as an opaque set of path strings; an empty set
// means "nothing changed, trivially pass".
package gitdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ChangedFiles returns paths changed relative to base (three-dot diff, the
// merge-base comparison CI wants). Paths are repo-relative with forward
// slashes, deletions included.
func ChangedFiles(ctx context.Context, root, base string) ([]string, error) {
	return run(ctx, root, "diff", "--name-only", base+"...HEAD")
}

// StagedFiles returns paths staged in the index, for pre-commit hooks.
func StagedFiles(ctx context.Context, root string) ([]string, error) {
	return run(ctx, root, "diff", "--cached", "--name-only")
}

func run(ctx context.Context, root string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}

	var files []string
	for _, line := range strings.Split(out.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}
