package wiring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"turnstile/internal/config"
	"turnstile/internal/logging"
	"turnstile/internal/policy"
	"turnstile/internal/verdict"
)

func cleanEnv(t *testing.T) *policy.Env {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.24\n",
		"a.go":   "package app\n\nfunc A() int { return 1 }\n",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &policy.Env{
		Root:        root,
		Cfg:         config.Default(),
		BaselineDir: filepath.Join(root, ".turnstile", "baselines"),
		Logger:      logging.Discard(),
	}
}

func TestRunChecksKeepsOrder(t *testing.T) {
	env := cleanEnv(t)
	names := []string{"skips", "cycles", "holes"}
	outcomes, err := RunChecks(context.Background(), env, names, 2)
	if err != nil {
		t.Fatalf("RunChecks: %v", err)
	}
	if len(outcomes) != len(names) {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Check != names[i] {
			t.Errorf("outcomes[%d] = %s, want %s", i, o.Check, names[i])
		}
		if o.Err != nil {
			t.Errorf("%s errored: %v", o.Check, o.Err)
		}
		if o.Report == nil || !o.Report.Passed() {
			t.Errorf("%s did not pass on a clean tree", o.Check)
		}
	}
	if err := Combined(outcomes); err != nil {
		t.Errorf("Combined = %v on a passing run", err)
	}
}

func TestRunChecksUnknownName(t *testing.T) {
	env := cleanEnv(t)
	_, err := RunChecks(context.Background(), env, []string{"cycles", "bogus"}, 1)
	if err == nil {
		t.Fatal("unknown check name must fail the call")
	}
}

func TestCombinedPrecedence(t *testing.T) {
	passing := verdict.NewReport("a")
	blocked := verdict.NewReport("b")
	blocked.Blockf("f.go", 1, "x", "broken")

	outcomes := []Outcome{
		{Check: "a", Report: passing},
		{Check: "b", Report: blocked},
		{Check: "c", Err: verdict.Operational(errors.New("no artifact"), "run the tool first")},
	}
	err := Combined(outcomes)
	var exit *verdict.ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("Combined = %v, want *ExitError", err)
	}
	if exit.Code != verdict.ExitOperational {
		t.Errorf("Code = %d, operational must dominate violations", exit.Code)
	}

	err = Combined(outcomes[:2])
	if !errors.As(err, &exit) || exit.Code != verdict.ExitViolation {
		t.Errorf("violation-only run: %v", err)
	}

	if err := Combined(outcomes[:1]); err != nil {
		t.Errorf("all-pass run: %v", err)
	}
}
