package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const holeySource = "package a\n\n" +
	"func F(x any) map[string]interface{} { //nolint:gocritic\n" +
	"\tvar y any\n" +
	"\t_ = y\n" +
	"\treturn nil\n" +
	"}\n"

func TestHolesFirstRunAdoptsBaseline(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": holeySource})
	env := testEnv(root)
	rep, err := runHoles(context.Background(), env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	if !rep.Passed() {
		t.Fatalf("first run must pass: %+v", rep.Violations)
	}
	if _, err := os.Stat(filepath.Join(env.BaselineDir, "holes.json")); err != nil {
		t.Errorf("baseline not written: %v", err)
	}
}

func TestHolesRegressionBlocks(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": holeySource})
	env := testEnv(root)
	ctx := context.Background()
	if _, err := runHoles(ctx, env); err != nil {
		t.Fatalf("adopt: %v", err)
	}

	extra := "package b\n\nfunc G() any { return nil }\n"
	if err := os.WriteFile(filepath.Join(root, "b.go"), []byte(extra), 0o644); err != nil {
		t.Fatal(err)
	}
	rep, err := runHoles(ctx, env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	if rep.Passed() {
		t.Fatal("added holes must block")
	}
	v := rep.Blocking()[0]
	if v.Category != "hole-ratchet" || !strings.Contains(v.Message, "rose") {
		t.Errorf("unexpected violation %+v", v)
	}
}

func TestHolesImprovementAdvancesBaseline(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": holeySource, "b.go": "package a\n\nfunc G() any { return nil }\n"})
	env := testEnv(root)
	ctx := context.Background()
	if _, err := runHoles(ctx, env); err != nil {
		t.Fatalf("adopt: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "b.go"), []byte("package a\n\nfunc G() int { return 0 }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rep, err := runHoles(ctx, env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	if !rep.Passed() {
		t.Fatalf("improvement must pass: %+v", rep.Violations)
	}
	advanced := false
	for _, n := range rep.Notes {
		if strings.Contains(n, "baseline advanced") {
			advanced = true
		}
	}
	if !advanced {
		t.Errorf("expected an advancement note, got %v", rep.Notes)
	}

	// The ratchet must hold at the improved level.
	if err := os.WriteFile(filepath.Join(root, "b.go"), []byte("package a\n\nfunc G() any { return nil }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rep, err = runHoles(ctx, env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	if rep.Passed() {
		t.Error("returning to the old count must now block")
	}
}

func TestHolesChangedModeFloorsNewFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": holeySource})
	env := testEnv(root)
	ctx := context.Background()
	if _, err := runHoles(ctx, env); err != nil {
		t.Fatalf("adopt: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "new.go"), []byte("package a\n\nfunc H() any { return nil }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env.Changed = []string{"new.go"}
	rep, err := runHoles(ctx, env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	if rep.Passed() {
		t.Fatal("a new file above the cap must block in changed mode")
	}
	if rep.Blocking()[0].Category != "new-file-cap" {
		t.Errorf("category = %q, want new-file-cap", rep.Blocking()[0].Category)
	}
}

func TestHolesChangedModeHoldsExistingFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": holeySource})
	env := testEnv(root)
	ctx := context.Background()
	if _, err := runHoles(ctx, env); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	env.Changed = []string{"a.go"}
	rep, err := runHoles(ctx, env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	if !rep.Passed() {
		t.Errorf("unchanged count must pass in changed mode: %+v", rep.Violations)
	}
}

func TestHolesSkipsTestsAndGenerated(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go":      "package a\n",
		"a_test.go": "package a\n\nfunc helper(x any) any { return x }\n",
		"gen.go":    "// Code generated by stubber. DO NOT EDIT.\npackage a\n\nvar X any\n",
	})
	env := testEnv(root)
	rep, err := runHoles(context.Background(), env)
	if err != nil {
		t.Fatalf("runHoles: %v", err)
	}
	for _, n := range rep.Notes {
		if strings.Contains(n, "current:") && !strings.Contains(n, "current: 0 holes") {
			t.Errorf("tests and generated files must not count: %q", n)
		}
	}
}
