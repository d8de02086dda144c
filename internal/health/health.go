// Package health captures aggregate code-health metrics and reports them
// against fixed thresholds. Unlike the policy checks it does not ratchet:
// a snapshot is a point-in-time measurement kept for trend analysis.
package health

import (
	"context"
	"go/ast"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/scan"
)

// Snapshot is one metrics capture. Test files contribute only TestLOC;
// every other field measures source files.
type Snapshot struct {
	RunID            string  `json:"run_id"`
	TakenAt          string  `json:"taken_at"`
	Files            int     `json:"file_count"`
	SourceLOC        int     `json:"source_loc"`
	TestLOC          int     `json:"test_loc"`
	AnyTypes         int     `json:"any_types"`
	EmptyInterfaces  int     `json:"empty_interfaces"`
	NolintDirectives int     `json:"nolint_directives"`
	TestSourceRatio  float64 `json:"test_source_ratio"`
}

// CurrentFile is the snapshot filename under the metrics directory.
const CurrentFile = "current.json"

type fileCounts struct {
	test    bool
	loc     int
	anys    int
	ifces   int
	nolints int
}

// Collect scans the target and aggregates one snapshot. Unparseable files
// are skipped, same as everywhere else.
func Collect(ctx context.Context, t scan.Target) (*Snapshot, error) {
	res, err := scan.Run(ctx, t, func(f *scan.File) (fileCounts, bool) {
		c := fileCounts{test: f.IsTest(), nolints: strings.Count(string(f.Src), "//nolint")}
		for _, line := range strings.Split(string(f.Src), "\n") {
			if strings.TrimSpace(line) != "" {
				c.loc++
			}
		}
		ast.Inspect(f.AST, func(n ast.Node) bool {
			switch v := n.(type) {
			case *ast.Ident:
				if v.Name == "any" {
					c.anys++
				}
			case *ast.InterfaceType:
				if v.Methods == nil || len(v.Methods.List) == 0 {
					c.ifces++
				}
			}
			return true
		})
		return c, true
	})
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		RunID:   uuid.NewString(),
		TakenAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range res.Facts {
		c := f.Value
		if c.test {
			s.TestLOC += c.loc
			continue
		}
		s.Files++
		s.SourceLOC += c.loc
		s.AnyTypes += c.anys
		s.EmptyInterfaces += c.ifces
		s.NolintDirectives += c.nolints
	}
	if s.SourceLOC > 0 {
		s.TestSourceRatio = math.Round(float64(s.TestLOC)/float64(s.SourceLOC)*100) / 100
	}
	return s, nil
}
