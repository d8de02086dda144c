// Package verdict converts accumulated violations into an exit code and
// human-readable text. Exit 0 means no blocking violations; 1 means the
// policy blocked; 2 means the check itself could not run (missing required
// input, broken environment). Warnings print but never affect the exit code.
package verdict

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"turnstile/internal/format"
)

// ErrBlocked is the sentinel for the policy-failure exit path:
// errors.Is(err, ErrBlocked) holds for every error carrying ExitViolation.
var ErrBlocked = errors.New("policy blocked")

// Process exit codes.
const (
	ExitPass        = 0
	ExitViolation   = 1
	ExitOperational = 2
)

// Severity classifies a violation.
type Severity int

const (
	Blocking Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "blocking"
}

// Violation is a single reported policy breach. Line 0 means the whole file.
type Violation struct {
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Severity Severity `json:"-"`
}

// Report accumulates the outcome of one check run. All violations aggregate;
// nothing fail-fasts, so a single run surfaces the full actionable list.
type Report struct {
	Check      string
	Violations []Violation
	Notes      []string // informational lines (baseline created, files skipped)
}

// NewReport returns an empty report for the named check.
func NewReport(check string) *Report {
	return &Report{Check: check}
}

// Add appends a violation.
func (r *Report) Add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// Blockf records a blocking violation at file:line.
func (r *Report) Blockf(file string, line int, category, msg string, args ...any) {
	r.Add(Violation{File: file, Line: line, Category: category, Message: fmt.Sprintf(msg, args...), Severity: Blocking})
}

// Warnf records a non-blocking advisory at file:line.
func (r *Report) Warnf(file string, line int, category, msg string, args ...any) {
	r.Add(Violation{File: file, Line: line, Category: category, Message: fmt.Sprintf(msg, args...), Severity: Warning})
}

// Notef records an informational line printed after the violation table.
func (r *Report) Notef(msg string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(msg, args...))
}

// Blocking returns the blocking violations.
func (r *Report) Blocking() []Violation {
	return r.filter(Blocking)
}

// Warnings returns the non-blocking violations.
func (r *Report) Warnings() []Violation {
	return r.filter(Warning)
}

func (r *Report) filter(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// Passed reports whether the check found zero blocking violations.
func (r *Report) Passed() bool {
	return len(r.Blocking()) == 0
}

// Err returns nil when the report passed, otherwise an *ExitError carrying
// ExitViolation so main can map it to the process exit code.
func (r *Report) Err() error {
	n := len(r.Blocking())
	if n == 0 {
		return nil
	}
	return &ExitError{
		Code: ExitViolation,
		Msg:  fmt.Sprintf("%s: %s", r.Check, format.Count(n, "blocking violation", "blocking violations")),
	}
}

// Render returns the report as a table plus notes, in the given mode.
// Violations sort by file, then line, blocking before warnings.
func (r *Report) Render(mode format.Mode) string {
	var b strings.Builder

	if len(r.Violations) > 0 {
		vs := make([]Violation, len(r.Violations))
		copy(vs, r.Violations)
		sort.SliceStable(vs, func(i, j int) bool {
			if vs[i].Severity != vs[j].Severity {
				return vs[i].Severity < vs[j].Severity
			}
			if vs[i].File != vs[j].File {
				return vs[i].File < vs[j].File
			}
			return vs[i].Line < vs[j].Line
		})

		tb := format.NewTable(mode)
		tb.Header("SEVERITY", "LOCATION", "CATEGORY", "MESSAGE")
		tb.Columns(format.ColumnConfig{Number: 4, MaxWidth: 80})
		for _, v := range vs {
			tb.Row(v.Severity.String(), format.LineRef(v.File, v.Line), v.Category, v.Message)
		}
		b.WriteString(tb.String())
		b.WriteString("\n")
	}

	for _, n := range r.Notes {
		fmt.Fprintf(&b, "note: %s\n", n)
	}

	b.WriteString(r.Summary())
	b.WriteString("\n")
	return b.String()
}

// Summary returns the one-line outcome, e.g. "cycles: FAIL (2 blocking, 1 warning)".
func (r *Report) Summary() string {
	nb := len(r.Blocking())
	nw := len(r.Warnings())
	status := "PASS"
	if nb > 0 {
		status = "FAIL"
	}
	switch {
	case nb == 0 && nw == 0:
		return fmt.Sprintf("%s: %s", r.Check, status)
	case nw == 0:
		return fmt.Sprintf("%s: %s (%s)", r.Check, status, format.Count(nb, "blocking", "blocking"))
	default:
		return fmt.Sprintf("%s: %s (%s, %s)", r.Check, status,
			format.Count(nb, "blocking", "blocking"), format.Count(nw, "warning", "warnings"))
	}
}

// ExitError carries a process exit code through the error return path.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// Is matches ErrBlocked for violation-coded errors.
func (e *ExitError) Is(target error) bool {
	return target == ErrBlocked && e.Code == ExitViolation
}

// Operational wraps err as an operational failure (exit 2) with guidance for
// the operator. Guidance lines print to stderr by main.
func Operational(err error, guidance string) error {
	msg := err.Error()
	if guidance != "" {
		msg = msg + "\n" + guidance
	}
	return &ExitError{Code: ExitOperational, Msg: msg}
}
