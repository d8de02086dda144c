package policy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"turnstile/internal/verdict"
)

func TestMutationScoreGate(t *testing.T) {
	root := writeTree(t, map[string]string{
		"report.json": `{"files": {
  "svc.go":   {"killed": 4, "total": 10},
  "other.go": {"killed": 9, "total": 10}
}}`,
	})
	env := testEnv(root)
	env.Cfg.Checks.Mutation.Report = "report.json"
	rep, err := runMutation(context.Background(), env)
	if err != nil {
		t.Fatalf("runMutation: %v", err)
	}
	// 13/20 = 65% < 70%.
	if rep.Passed() {
		t.Fatal("65% must block at a 70% threshold")
	}
	v := rep.Blocking()[0]
	if v.Category != "mutation-score" || !strings.Contains(v.Message, "65.0%") {
		t.Errorf("violation = %+v", v)
	}
	warned := false
	for _, w := range rep.Warnings() {
		if w.File == "svc.go" {
			warned = true
		}
	}
	if !warned {
		t.Errorf("the weak file should be named: %+v", rep.Warnings())
	}
}

func TestMutationChangedScope(t *testing.T) {
	root := writeTree(t, map[string]string{
		"report.json": `{"files": {
  "svc.go":   {"killed": 1, "total": 10},
  "other.go": {"killed": 10, "total": 10}
}}`,
	})
	env := testEnv(root)
	env.Cfg.Checks.Mutation.Report = "report.json"
	env.Changed = []string{"other.go"}
	rep, err := runMutation(context.Background(), env)
	if err != nil {
		t.Fatalf("runMutation: %v", err)
	}
	if !rep.Passed() {
		t.Errorf("only the changed file is on trial: %+v", rep.Blocking())
	}
}

func TestMutationAmnesty(t *testing.T) {
	root := writeTree(t, map[string]string{
		"report.json": `{"files": {"legacy/old.go": {"killed": 0, "total": 10}}}`,
		".turnstile/mutation-amnesty.json": `{"legacy": ["legacy/**"]}`,
	})
	env := testEnv(root)
	env.Cfg.Checks.Mutation.Report = "report.json"
	rep, err := runMutation(context.Background(), env)
	if err != nil {
		t.Fatalf("runMutation: %v", err)
	}
	if !rep.Passed() {
		t.Errorf("amnestied file must not count: %+v", rep.Blocking())
	}
}

func TestMutationMissingReportIsOperational(t *testing.T) {
	env := testEnv(t.TempDir())
	env.Cfg.Checks.Mutation.Report = "nope.json"
	_, err := runMutation(context.Background(), env)
	var exit *verdict.ExitError
	if !errors.As(err, &exit) || exit.Code != verdict.ExitOperational {
		t.Fatalf("missing report should be operational (exit 2), got %v", err)
	}
	if !strings.Contains(exit.Msg, "mutation tool") {
		t.Errorf("guidance missing from %q", exit.Msg)
	}
}
