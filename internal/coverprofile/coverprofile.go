// Package coverprofile reduces a Go cover profile to the mapping the
// coverage ratchet needs: file → percent of statements covered, plus the
// project aggregate.
package coverprofile

import (
	"fmt"
	"strings"

	"golang.org/x/tools/cover"
)

// Summary is the digest of one cover profile.
type Summary struct {
	Files  map[string]float64 // repo-relative path → percent covered
	Global float64            // statement-weighted aggregate
}

// Parse reads a cover profile produced by `go test -coverprofile`. File
// names in profiles are import-path qualified; modulePath (e.g. "turnstile")
// is stripped so keys match scanner paths. An unreadable or malformed
// profile is the caller's operational error to report.
func Parse(path, modulePath string) (*Summary, error) {
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse cover profile %s: %w", path, err)
	}

	s := &Summary{Files: make(map[string]float64, len(profiles))}
	var totalStmt, totalCovered int

	for _, p := range profiles {
		var stmt, covered int
		for _, b := range p.Blocks {
			stmt += b.NumStmt
			if b.Count > 0 {
				covered += b.NumStmt
			}
		}
		if stmt == 0 {
			continue
		}
		totalStmt += stmt
		totalCovered += covered
		s.Files[relName(p.FileName, modulePath)] = percent(covered, stmt)
	}

	if totalStmt > 0 {
		s.Global = percent(totalCovered, totalStmt)
	}
	return s, nil
}

func percent(covered, total int) float64 {
	return float64(covered) / float64(total) * 100
}

func relName(name, modulePath string) string {
	if modulePath != "" {
		if rest, ok := strings.CutPrefix(name, modulePath+"/"); ok {
			return rest
		}
	}
	return name
}
