package db

import "strings"

// SplitStatements cuts a script on top-level semicolons. Quoted text and
// comments are kept intact; empty statements are dropped.
func SplitStatements(script string) []string {
	var (
		out   []string
		start int
	)
	push := func(end int) {
		if stmt := strings.TrimSpace(script[start:end]); stmt != "" && !onlyComments(stmt) {
			out = append(out, stmt)
		}
	}
	for i := 0; i < len(script); i++ {
		switch c := script[i]; {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(script, i, c)
		case c == '-' && strings.HasPrefix(script[i:], "--"):
			i = skipUntil(script, i, "\n")
		case c == '/' && strings.HasPrefix(script[i:], "/*"):
			i = skipUntil(script, i+2, "*/") + 1
		case c == ';':
			push(i)
			start = i + 1
		}
	}
	push(len(script))
	return out
}

// IsQuery reports whether stmt produces a result set.
func IsQuery(stmt string) bool {
	head := strings.ToUpper(strings.TrimLeft(stripLeadingComments(stmt), " \t\r\n("))
	for _, kw := range []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "VALUES", "DESCRIBE", "TABLE"} {
		if strings.HasPrefix(head, kw) {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(stmt), " RETURNING ")
}

func skipQuoted(s string, i int, quote byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] == '\\' && quote != '`' {
			j++
			continue
		}
		if s[j] == quote {
			if j+1 < len(s) && s[j+1] == quote {
				j++
				continue
			}
			return j
		}
	}
	return len(s) - 1
}

func skipUntil(s string, i int, end string) int {
	if k := strings.Index(s[i:], end); k >= 0 {
		return i + k
	}
	return len(s) - 1
}

func stripLeadingComments(stmt string) string {
	for {
		stmt = strings.TrimSpace(stmt)
		switch {
		case strings.HasPrefix(stmt, "--"):
			nl := strings.IndexByte(stmt, '\n')
			if nl < 0 {
				return ""
			}
			stmt = stmt[nl+1:]
		case strings.HasPrefix(stmt, "/*"):
			end := strings.Index(stmt, "*/")
			if end < 0 {
				return ""
			}
			stmt = stmt[end+2:]
		default:
			return stmt
		}
	}
}

func onlyComments(stmt string) bool {
	return stripLeadingComments(stmt) == ""
}
