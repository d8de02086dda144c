package policy

import (
	"context"
	"sort"
	"strings"

	"turnstile/internal/format"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "dupes",
		Description: "detect copy-pasted blocks with a sliding line window",
		Blocking:    true,
		Run:         runDupes,
	})
}

type cloneLoc struct {
	path string
	line int
}

// cloneGroups hashes every window of normalized lines and returns the
// windows seen at more than one location, ordered by first occurrence.
func cloneGroups(files []scan.Fact[[]string], window int) [][]cloneLoc {
	occurrences := map[string][]cloneLoc{}
	var order []string
	for _, f := range files {
		lines := f.Value
		if len(lines) < window {
			continue
		}
		for start := 0; start+window <= len(lines); start++ {
			w := lines[start : start+window]
			if allFiller(w) {
				continue
			}
			key := strings.Join(w, "\n")
			if _, seen := occurrences[key]; !seen {
				order = append(order, key)
			}
			occurrences[key] = append(occurrences[key], cloneLoc{f.Path, start + 1})
		}
	}
	var groups [][]cloneLoc
	for _, key := range order {
		locs := occurrences[key]
		if len(locs) > 1 {
			groups = append(groups, locs)
		}
	}
	return groups
}

// allFiller reports whether every line is blank or a comment.
func allFiller(lines []string) bool {
	for _, l := range lines {
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "//") || strings.HasPrefix(l, "/*") || strings.HasPrefix(l, "*") {
			continue
		}
		return false
	}
	return true
}

func runDupes(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Dupes
	rep := verdict.NewReport("dupes")

	t := env.Target()
	t.Files = nil // clones pair files, so the window always covers the whole tree
	res, err := scan.RunRaw(ctx, t, func(f *scan.File) ([]string, bool) {
		if f.IsTest() || f.IsGenerated() {
			return nil, false
		}
		raw := strings.Split(string(f.Src), "\n")
		lines := make([]string, len(raw))
		for i, l := range raw {
			lines[i] = strings.TrimSpace(l)
		}
		return lines, true
	})
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	groups := cloneGroups(res.Facts, cfg.WindowLines)

	if changed := env.ChangedSet(); changed != nil {
		if len(changed) == 0 {
			rep.Notef("no changed files, nothing to check")
			return rep, nil
		}
		kept := groups[:0]
		for _, g := range groups {
			for _, loc := range g {
				if changed[loc.path] {
					kept = append(kept, g)
					break
				}
			}
		}
		groups = kept
	}

	rep.Notef("%s", format.Count(len(groups), "duplicate group", "duplicate groups"))
	if len(groups) <= cfg.MaxClones {
		return rep, nil
	}

	for i, g := range groups {
		if cfg.MaxDisplay > 0 && i >= cfg.MaxDisplay {
			rep.Notef("%d more group(s) not shown", len(groups)-cfg.MaxDisplay)
			break
		}
		sort.Slice(g, func(a, b int) bool {
			if g[a].path != g[b].path {
				return g[a].path < g[b].path
			}
			return g[a].line < g[b].line
		})
		var others []string
		for _, loc := range g[1:] {
			others = append(others, format.LineRef(loc.path, loc.line))
		}
		rep.Blockf(g[0].path, g[0].line, "clone",
			"%d-line block repeated at %s", cfg.WindowLines,
			format.Truncate(strings.Join(others, ", "), 120))
	}
	rep.Notef("extract a shared helper, or raise max_clones for a staged cleanup")
	return rep, nil
}
