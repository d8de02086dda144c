// Package mcpserve exposes the policy catalog as MCP tools over stdio, so
// agent tooling can run governance checks in-process instead of shelling
// out and scraping tables.
package mcpserve

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"turnstile/internal/baseline"
	"turnstile/internal/config"
	"turnstile/internal/health"
	"turnstile/internal/logging"
	"turnstile/internal/policy"
	"turnstile/internal/store"
	"turnstile/internal/verdict"
)

// Server wraps the MCP SDK server around the check registry.
type Server struct {
	MCPServer *sdkmcp.Server
	Root      string

	cfg *config.Config
	db  *store.Store
}

// NewServer mounts the registry as tools. db may be nil; checks that cache
// degrade to direct lookups.
func NewServer(root string, cfg *config.Config, db *store.Store) *Server {
	s := &Server{Root: root, cfg: cfg, db: db}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "turnstile", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_checks",
		Description: "List the registered governance checks with their blocking status.",
	}, s.handleListChecks)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_check",
		Description: "Run one governance check against the project root. Returns violations, notes, and pass/fail.",
	}, s.handleRunCheck)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "latest_metrics",
		Description: "Return the most recent health snapshot, optionally with history rows.",
	}, s.handleLatestMetrics)
}

// --- Tool input/output types ---

type listChecksInput struct{}

type checkInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Blocking    bool   `json:"blocking"`
}

type listChecksOutput struct {
	Checks []checkInfo `json:"checks"`
}

type runCheckInput struct {
	Check   string   `json:"check" jsonschema:"check name from list_checks"`
	Changed []string `json:"changed,omitempty" jsonschema:"changed file paths for incremental checks (omit for a full run)"`
	Update  bool     `json:"update,omitempty" jsonschema:"refresh grandfather baselines (pairing, routes)"`
	Offline bool     `json:"offline,omitempty" jsonschema:"skip network lookups in the deps check"`
}

type runCheckOutput struct {
	Check      string              `json:"check"`
	Passed     bool                `json:"passed"`
	Blocking   int                 `json:"blocking"`
	Warnings   int                 `json:"warnings"`
	Violations []verdict.Violation `json:"violations,omitempty"`
	Notes      []string            `json:"notes,omitempty"`
}

type latestMetricsInput struct {
	History int `json:"history,omitempty" jsonschema:"number of history snapshots to include (0 = current only)"`
}

type latestMetricsOutput struct {
	Current *health.Snapshot  `json:"current,omitempty"`
	History []health.Snapshot `json:"history,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleListChecks(_ context.Context, _ *sdkmcp.CallToolRequest, _ listChecksInput) (*sdkmcp.CallToolResult, listChecksOutput, error) {
	var out listChecksOutput
	for _, c := range policy.All() {
		out.Checks = append(out.Checks, checkInfo{
			Name:        c.Name,
			Description: c.Description,
			Blocking:    c.Blocking,
		})
	}
	return nil, out, nil
}

func (s *Server) handleRunCheck(ctx context.Context, _ *sdkmcp.CallToolRequest, input runCheckInput) (*sdkmcp.CallToolResult, runCheckOutput, error) {
	if input.Check == "" {
		return nil, runCheckOutput{}, fmt.Errorf("check is required (see list_checks)")
	}
	c, ok := policy.Lookup(input.Check)
	if !ok {
		return nil, runCheckOutput{}, fmt.Errorf("unknown check %q (see list_checks)", input.Check)
	}

	env := &policy.Env{
		Root:        s.Root,
		Cfg:         s.cfg,
		BaselineDir: baseline.Dir(s.Root, s.cfg.BaselineDir),
		Changed:     input.Changed,
		Update:      input.Update,
		Offline:     input.Offline,
		DB:          s.db,
		Logger:      logging.New("mcp"),
	}
	rep, err := c.Run(ctx, env)
	if err != nil {
		return nil, runCheckOutput{}, fmt.Errorf("run %s: %w", input.Check, err)
	}

	return nil, runCheckOutput{
		Check:      rep.Check,
		Passed:     rep.Passed(),
		Blocking:   len(rep.Blocking()),
		Warnings:   len(rep.Warnings()),
		Violations: rep.Violations,
		Notes:      rep.Notes,
	}, nil
}

func (s *Server) handleLatestMetrics(_ context.Context, _ *sdkmcp.CallToolRequest, input latestMetricsInput) (*sdkmcp.CallToolResult, latestMetricsOutput, error) {
	dir := s.cfg.Checks.Health.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.Root, dir)
	}
	cur, err := baseline.Read[health.Snapshot](dir, health.CurrentFile)
	if err != nil {
		return nil, latestMetricsOutput{}, fmt.Errorf("read current snapshot: %w", err)
	}

	out := latestMetricsOutput{Current: cur}
	if input.History > 0 && s.db != nil {
		rows, err := s.db.RecentMetrics(input.History)
		if err != nil {
			return nil, latestMetricsOutput{}, fmt.Errorf("read metrics history: %w", err)
		}
		for _, r := range rows {
			var snap health.Snapshot
			if json.Unmarshal(r.Payload, &snap) == nil {
				out.History = append(out.History, snap)
			}
		}
	}
	if out.Current == nil && len(out.History) == 0 {
		return nil, out, fmt.Errorf("no metrics collected yet (run `turnstile health collect`)")
	}
	return nil, out, nil
}
