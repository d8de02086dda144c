package mcpserve

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"turnstile/internal/baseline"
	"turnstile/internal/config"
	"turnstile/internal/health"
)

func testServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	root := t.TempDir()
	for name, src := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewServer(root, config.Default(), nil)
}

func TestListChecksCoversRegistry(t *testing.T) {
	s := testServer(t, nil)
	_, out, err := s.handleListChecks(context.Background(), nil, listChecksInput{})
	if err != nil {
		t.Fatalf("list_checks: %v", err)
	}
	if len(out.Checks) < 15 {
		t.Fatalf("only %d checks listed", len(out.Checks))
	}
	byName := map[string]checkInfo{}
	for _, c := range out.Checks {
		if c.Description == "" {
			t.Errorf("check %s has no description", c.Name)
		}
		byName[c.Name] = c
	}
	if _, ok := byName["cycles"]; !ok {
		t.Error("cycles missing from listing")
	}
	if !byName["cycles"].Blocking {
		t.Error("cycles should be blocking")
	}
}

func TestRunCheckUnknownName(t *testing.T) {
	s := testServer(t, nil)
	_, _, err := s.handleRunCheck(context.Background(), nil, runCheckInput{Check: "nope"})
	if err == nil || !strings.Contains(err.Error(), "list_checks") {
		t.Fatalf("want an error pointing at list_checks, got %v", err)
	}
	_, _, err = s.handleRunCheck(context.Background(), nil, runCheckInput{})
	if err == nil {
		t.Fatal("empty check name should error")
	}
}

func TestRunCheckCleanTreePasses(t *testing.T) {
	s := testServer(t, map[string]string{
		"go.mod":          "module example.com/app\n\ngo 1.24\n",
		"internal/a/a.go": "package a\n\nfunc A() int { return 1 }\n",
	})
	_, out, err := s.handleRunCheck(context.Background(), nil, runCheckInput{Check: "cycles"})
	if err != nil {
		t.Fatalf("run_check cycles: %v", err)
	}
	if !out.Passed || out.Blocking != 0 {
		t.Errorf("clean tree should pass: %+v", out)
	}
	if out.Check != "cycles" {
		t.Errorf("Check = %q", out.Check)
	}
}

func TestLatestMetricsWithoutData(t *testing.T) {
	s := testServer(t, nil)
	_, _, err := s.handleLatestMetrics(context.Background(), nil, latestMetricsInput{})
	if err == nil || !strings.Contains(err.Error(), "health collect") {
		t.Fatalf("want guidance to collect first, got %v", err)
	}
}

func TestLatestMetricsReadsCurrent(t *testing.T) {
	s := testServer(t, nil)
	dir := filepath.Join(s.Root, s.cfg.Checks.Health.Dir)
	snap := &health.Snapshot{RunID: "run-1", Files: 3, SourceLOC: 120}
	if err := baseline.Write(dir, health.CurrentFile, snap); err != nil {
		t.Fatal(err)
	}
	_, out, err := s.handleLatestMetrics(context.Background(), nil, latestMetricsInput{})
	if err != nil {
		t.Fatalf("latest_metrics: %v", err)
	}
	if out.Current == nil || out.Current.RunID != "run-1" {
		t.Errorf("Current = %+v", out.Current)
	}
}
