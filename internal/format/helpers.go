package format

import "fmt"

// Percent formats a percentage with one decimal place, e.g. "87.5%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// Count formats n with a singular or plural noun, e.g. "1 cycle", "3 cycles".
func Count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}

// LineRef renders a file:line location; line 0 means the whole file.
func LineRef(file string, line int) string {
	if line <= 0 {
		return file
	}
	return fmt.Sprintf("%s:%d", file, line)
}
