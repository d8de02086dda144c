package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func orphanTree() map[string]string {
	return map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.24\n",
		"cmd/app/main.go": "package main\n\n" +
			"import \"example.com/app/internal/used\"\n\n" +
			"func main() { used.Serve() }\n",
		"internal/used/used.go": "package used\n\n" +
			"func Serve() {}\n\n" +
			"func Forgotten() {}\n",
		"internal/island/island.go": "package island\n\nfunc Drift() {}\n",
	}
}

func TestOrphansFindsIslandsAndDeadExports(t *testing.T) {
	root := writeTree(t, orphanTree())
	env := testEnv(root)
	ctx := context.Background()

	rep, err := runOrphans(ctx, env)
	if err != nil {
		t.Fatalf("runOrphans: %v", err)
	}
	if !rep.Passed() {
		t.Fatalf("first run adopts the debt: %+v", rep.Violations)
	}
	counted := false
	for _, n := range rep.Notes {
		if strings.Contains(n, "1 orphan package(s)") && strings.Contains(n, "1 unreferenced export(s)") {
			counted = true
		}
	}
	if !counted {
		t.Fatalf("want 1 orphan (island) + 1 dead export (Forgotten), notes: %v", rep.Notes)
	}
}

func TestOrphansRegressionBlocks(t *testing.T) {
	root := writeTree(t, orphanTree())
	env := testEnv(root)
	ctx := context.Background()
	if _, err := runOrphans(ctx, env); err != nil {
		t.Fatalf("adopt: %v", err)
	}

	lost := "package lost\n\nfunc Nobody() {}\n"
	if err := os.MkdirAll(filepath.Join(root, "internal/lost"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "internal/lost/lost.go"), []byte(lost), 0o644); err != nil {
		t.Fatal(err)
	}
	rep, err := runOrphans(ctx, env)
	if err != nil {
		t.Fatalf("runOrphans: %v", err)
	}
	if rep.Passed() {
		t.Fatal("a new orphan package must block")
	}
	if rep.Blocking()[0].Category != "orphan-ratchet" {
		t.Errorf("category = %q", rep.Blocking()[0].Category)
	}
	named := false
	for _, w := range rep.Warnings() {
		if w.Category == "orphan-package" && strings.Contains(w.File, "internal/lost") {
			named = true
		}
	}
	if !named {
		t.Errorf("the new orphan should be named: %+v", rep.Warnings())
	}
}

func TestOrphansExemptGlobs(t *testing.T) {
	tree := orphanTree()
	tree["pkg/api/api.go"] = "package api\n\nfunc PublicSurface() {}\n"
	root := writeTree(t, tree)
	env := testEnv(root)
	rep, err := runOrphans(context.Background(), env)
	if err != nil {
		t.Fatalf("runOrphans: %v", err)
	}
	for _, n := range rep.Notes {
		// pkg/** is exempt public API: still 1 orphan + 1 dead export.
		if strings.Contains(n, "orphan package(s)") {
			if !strings.Contains(n, "1 orphan package(s), 1 unreferenced export(s)") {
				t.Errorf("pkg/** should be exempt: %q", n)
			}
		}
	}
}

func TestOrphansTestUsageCounts(t *testing.T) {
	tree := orphanTree()
	// A test in another package references Forgotten, so it is not dead.
	tree["internal/other/other_test.go"] = "package other\n\n" +
		"import (\n\t\"testing\"\n\n\t\"example.com/app/internal/used\"\n)\n\n" +
		"func TestForgotten(t *testing.T) { used.Forgotten() }\n"
	tree["internal/other/other.go"] = "package other\n"
	root := writeTree(t, tree)
	env := testEnv(root)
	rep, err := runOrphans(context.Background(), env)
	if err != nil {
		t.Fatalf("runOrphans: %v", err)
	}
	for _, n := range rep.Notes {
		if strings.Contains(n, "unreferenced export(s)") && !strings.Contains(n, "0 unreferenced export(s)") {
			t.Errorf("Forgotten is referenced from a test: %q", n)
		}
	}
}
