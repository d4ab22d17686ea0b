// Package normalize canonicalises program output and source text before comparison.
package normalize

import "strings"

// Output unifies line endings, strips trailing whitespace from every line and
// trims the result. Output(Output(s)) == Output(s).
func Output(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\f\v")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Equal reports whether two outputs match after normalization.
func Equal(a, b string) bool {
	return Output(a) == Output(b)
}
