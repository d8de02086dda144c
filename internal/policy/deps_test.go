package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"turnstile/internal/store"
)

const depsGoMod = `module example.com/app

go 1.24

require (
	github.com/evil/notreal v1.0.0
	github.com/good/old v1.0.0
	github.com/new/kid v1.0.0
	golang.org/x/mod v0.30.0
)
`

// fakeProxy serves just enough of the module proxy protocol for the
// three fixture modules.
func fakeProxy(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	young := time.Now().UTC().AddDate(0, 0, -5).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/github.com/good/old/@v/list":
			fmt.Fprint(w, "v1.0.0\nv0.1.0\n")
		case "/github.com/good/old/@v/v0.1.0.info":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"Version": "v0.1.0", "Time": "2020-01-01T00:00:00Z",
			})
		case "/github.com/new/kid/@v/list":
			fmt.Fprint(w, "v1.0.0\n")
		case "/github.com/new/kid/@v/v1.0.0.info":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"Version": "v1.0.0", "Time": young,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
}

func TestDepsVerifiesAgainstProxy(t *testing.T) {
	root := writeTree(t, map[string]string{"go.mod": depsGoMod})
	srv, requests := fakeProxy(t)

	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	env := testEnv(root)
	env.Cfg.Checks.Deps.ProxyURL = srv.URL
	env.DB = db

	rep, err := runDeps(context.Background(), env)
	if err != nil {
		t.Fatalf("runDeps: %v", err)
	}
	blocking := rep.Blocking()
	if len(blocking) != 2 {
		t.Fatalf("got %d violations, want 2: %+v", len(blocking), blocking)
	}
	byCategory := map[string]string{}
	for _, v := range blocking {
		byCategory[v.Category] = v.Message
		if v.File != "go.mod" || v.Line == 0 {
			t.Errorf("violation should point into go.mod, got %s:%d", v.File, v.Line)
		}
	}
	if !strings.Contains(byCategory["unknown-module"], "github.com/evil/notreal") {
		t.Errorf("unknown-module = %q", byCategory["unknown-module"])
	}
	if !strings.Contains(byCategory["too-new"], "github.com/new/kid") {
		t.Errorf("too-new = %q", byCategory["too-new"])
	}

	for _, p := range requests() {
		if strings.Contains(p, "golang.org") {
			t.Errorf("trusted prefix was looked up: %s", p)
		}
	}

	// Second run is served from the cache.
	before := len(requests())
	rep, err = runDeps(context.Background(), env)
	if err != nil {
		t.Fatalf("second runDeps: %v", err)
	}
	if got := len(requests()); got != before {
		t.Errorf("cache miss: %d new proxy requests", got-before)
	}
	cached := false
	for _, n := range rep.Notes {
		if strings.Contains(n, "3 from cache") {
			cached = true
		}
	}
	if !cached {
		t.Errorf("expected 3 cache hits, notes: %v", rep.Notes)
	}
}

func TestDepsOffline(t *testing.T) {
	root := writeTree(t, map[string]string{"go.mod": depsGoMod})
	env := testEnv(root)
	env.Offline = true
	rep, err := runDeps(context.Background(), env)
	if err != nil {
		t.Fatalf("runDeps: %v", err)
	}
	if !rep.Passed() {
		t.Fatalf("offline mode degrades to trusted: %+v", rep.Blocking())
	}
	if got := len(rep.Warnings()); got != 3 {
		t.Errorf("got %d lookup-skipped warnings, want 3", got)
	}
}

func TestDepsExemptions(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod": depsGoMod,
		".turnstile/deps-exemptions.json": `[
  {"path": "github.com/evil/notreal", "justification": "internal mirror"}
]`,
	})
	srv, _ := fakeProxy(t)
	env := testEnv(root)
	env.Cfg.Checks.Deps.ProxyURL = srv.URL
	rep, err := runDeps(context.Background(), env)
	if err != nil {
		t.Fatalf("runDeps: %v", err)
	}
	for _, v := range rep.Blocking() {
		if v.Category == "unknown-module" {
			t.Errorf("exempted module still blocked: %+v", v)
		}
	}
}

func TestDepsNoGoMod(t *testing.T) {
	rep, err := runDeps(context.Background(), testEnv(t.TempDir()))
	if err != nil {
		t.Fatalf("runDeps: %v", err)
	}
	if !rep.Passed() {
		t.Errorf("missing go.mod should pass with a note: %+v", rep.Blocking())
	}
}
