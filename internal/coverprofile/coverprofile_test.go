package coverprofile

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleProfile = `mode: set
turnstile/internal/ratchet/ratchet.go:10.2,12.3 3 1
turnstile/internal/ratchet/ratchet.go:14.2,20.3 5 0
turnstile/internal/scan/scan.go:8.2,9.3 4 1
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coverage.out")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse_PerFileAndGlobal(t *testing.T) {
	s, err := Parse(writeProfile(t, sampleProfile), "turnstile")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// ratchet.go: 3 of 8 statements covered.
	got := s.Files["internal/ratchet/ratchet.go"]
	if math.Abs(got-37.5) > 0.01 {
		t.Errorf("ratchet.go = %.2f, want 37.5", got)
	}
	// scan.go fully covered.
	if got := s.Files["internal/scan/scan.go"]; got != 100 {
		t.Errorf("scan.go = %.2f, want 100", got)
	}
	// Global: 7 of 12.
	if math.Abs(s.Global-58.33) > 0.01 {
		t.Errorf("Global = %.2f, want 58.33", s.Global)
	}
}

func TestParse_ModulePrefixStripped(t *testing.T) {
	s, err := Parse(writeProfile(t, sampleProfile), "turnstile")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for name := range s.Files {
		if filepath.IsAbs(name) || name[0] == '/' {
			t.Errorf("path %q not relative", name)
		}
		if len(name) > 9 && name[:9] == "turnstile" {
			t.Errorf("module prefix not stripped from %q", name)
		}
	}
}

func TestParse_MissingFileIsError(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "absent.out"), "turnstile"); err == nil {
		t.Error("expected error for missing profile")
	}
}

func TestParse_MalformedIsError(t *testing.T) {
	if _, err := Parse(writeProfile(t, "not a profile\n"), "m"); err == nil {
		t.Error("expected error for malformed profile")
	}
}
