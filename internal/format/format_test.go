package format_test

import (
	"strings"
	"testing"

	"turnstile/internal/format"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("FILE", "LINE", "MESSAGE")
	tb.Row("internal/scan/scan.go", 42, "function too long")
	tb.Row("cmd/root.go", 7, "suppression directive")
	out := tb.String()

	if !strings.Contains(out, "FILE") {
		t.Errorf("expected header 'FILE' in output:\n%s", out)
	}
	if !strings.Contains(out, "function too long") {
		t.Errorf("expected violation message in output:\n%s", out)
	}
	// ASCII uses box-drawing characters from StyleLight
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_BasicTable(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Metric", "Value", "Threshold")
	tb.Row("coverage", "82.4%", "70%")
	tb.Row("type holes", 14, 20)
	out := tb.String()

	if !strings.Contains(out, "| Metric") {
		t.Errorf("expected markdown header with '| Metric':\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator '---':\n%s", out)
	}
	if !strings.Contains(out, "82.4%") {
		t.Errorf("expected '82.4%%' in output:\n%s", out)
	}
}

func TestMarkdown_WithFooter(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Check", "Violations")
	tb.Row("cycles", 1)
	tb.Row("size", 2)
	tb.Footer("TOTAL", 3)
	out := tb.String()

	if !strings.Contains(out, "TOTAL") {
		t.Errorf("expected footer 'TOTAL' in output:\n%s", out)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    format.Mode
		wantErr bool
	}{
		{"", format.ASCII, false},
		{"ascii", format.ASCII, false},
		{"Markdown", format.Markdown, false},
		{"md", format.Markdown, false},
		{"html", format.ASCII, true},
	}
	for _, tc := range cases {
		got, err := format.ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	if got := format.Percent(82.35); got != "82.3%" {
		t.Errorf("Percent(82.35) = %q", got)
	}
	if got := format.Count(1, "cycle", "cycles"); got != "1 cycle" {
		t.Errorf("Count singular = %q", got)
	}
	if got := format.Count(3, "cycle", "cycles"); got != "3 cycles" {
		t.Errorf("Count plural = %q", got)
	}
	if got := format.Truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := format.LineRef("a.go", 0); got != "a.go" {
		t.Errorf("LineRef whole-file = %q", got)
	}
	if got := format.LineRef("a.go", 12); got != "a.go:12" {
		t.Errorf("LineRef = %q", got)
	}
}
