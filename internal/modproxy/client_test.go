package modproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeProxy serves a module with releases v1.0.0 (2020) and v1.1.0 (2023),
// plus a brand-new module tagged ten days before "now".
func fakeProxy(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/github.com/good/mod/@v/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("v1.1.0\nv1.0.0\n"))
	})
	mux.HandleFunc("/github.com/good/mod/@v/v1.0.0.info", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Version":"v1.0.0","Time":"2020-01-01T00:00:00Z"}`))
	})
	mux.HandleFunc("/github.com/fresh/mod/@v/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("v0.1.0\n"))
	})
	mux.HandleFunc("/github.com/fresh/mod/@v/v0.1.0.info", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Version":"v0.1.0","Time":"2026-08-13T00:00:00Z"}`))
	})
	mux.HandleFunc("/github.com/untagged/mod/@v/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(""))
	})
	mux.HandleFunc("/github.com/untagged/mod/@latest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Version":"v0.0.0-20240101000000-abcdefabcdef","Time":"2024-01-01T00:00:00Z"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC) }
	c, err := New(baseURL, WithTimeout(2*time.Second), WithNow(now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestLookup_ExistingModuleAgeFromEarliestRelease(t *testing.T) {
	srv := fakeProxy(t)
	c := testClient(t, srv.URL)

	fact, err := c.Lookup(context.Background(), "github.com/good/mod")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !fact.Exists {
		t.Fatal("module should exist")
	}
	// Age counts from v1.0.0 (2020), not the newer v1.1.0.
	if fact.AgeDays < 2000 {
		t.Errorf("AgeDays = %d, want age of earliest release", fact.AgeDays)
	}
}

func TestLookup_FreshModule(t *testing.T) {
	srv := fakeProxy(t)
	c := testClient(t, srv.URL)

	fact, err := c.Lookup(context.Background(), "github.com/fresh/mod")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if fact.AgeDays != 10 {
		t.Errorf("AgeDays = %d, want 10", fact.AgeDays)
	}
}

func TestLookup_MissingModuleIsNotAnError(t *testing.T) {
	srv := fakeProxy(t)
	c := testClient(t, srv.URL)

	fact, err := c.Lookup(context.Background(), "github.com/absent/mod")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if fact.Exists {
		t.Error("absent module reported as existing")
	}
}

func TestLookup_UntaggedFallsBackToLatest(t *testing.T) {
	srv := fakeProxy(t)
	c := testClient(t, srv.URL)

	fact, err := c.Lookup(context.Background(), "github.com/untagged/mod")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !fact.Exists || fact.AgeDays < 900 {
		t.Errorf("fact = %+v, want exists with pseudo-version age", fact)
	}
}

func TestLookup_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	_, err := c.Lookup(context.Background(), "github.com/any/mod")
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if IsNotFound(err) {
		t.Error("500 must not classify as not-found")
	}
}

func TestEscapedPathOnWire(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	_, _ = c.Versions(context.Background(), "github.com/Masterminds/semver")
	if gotPath != "/github.com/!masterminds/semver/@v/list" {
		t.Errorf("wire path = %q, want bang-escaped uppercase", gotPath)
	}
}
