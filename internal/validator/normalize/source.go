package normalize

import (
	"strings"
	"unicode"

	"debugoj/internal/validator/model"
)

type syntax struct {
	line   []string
	block  [][2]string
	quotes string
	// tripleQuotes enables python style """ and ''' strings.
	tripleQuotes bool
	// backslashEscapes is false for SQL, where quotes are escaped by doubling.
	backslashEscapes bool
}

var cFamily = syntax{line: []string{"//"}, block: [][2]string{{"/*", "*/"}}, quotes: `"'`, backslashEscapes: true}

var syntaxes = map[model.Language]syntax{
	model.LanguagePython:     {line: []string{"#"}, quotes: `"'`, tripleQuotes: true, backslashEscapes: true},
	model.LanguageJavaScript: {line: []string{"//"}, block: [][2]string{{"/*", "*/"}}, quotes: "\"'`", backslashEscapes: true},
	model.LanguageJava:       cFamily,
	model.LanguageC:          cFamily,
	model.LanguageCPP:        cFamily,
	model.LanguageSQL:        {line: []string{"--"}, block: [][2]string{{"/*", "*/"}}, quotes: `"'`},
	model.LanguageLua:        {line: []string{"--"}, block: [][2]string{{"--[[", "]]"}}, quotes: `"'`, backslashEscapes: true},
}

func syntaxFor(lang model.Language) syntax {
	if s, ok := syntaxes[lang]; ok {
		return s
	}
	return cFamily
}

// StripComments removes comments while leaving string literals and line breaks intact.
func StripComments(code string, lang model.Language) string {
	syn := syntaxFor(lang)
	var b strings.Builder
	b.Grow(len(code))

	i := 0
	for i < len(code) {
		rest := code[i:]

		if end, ok := matchBlock(rest, syn); ok {
			// keep line count stable
			b.WriteString(strings.Repeat("\n", strings.Count(rest[:end], "\n")))
			i += end
			continue
		}
		if matchPrefix(rest, syn.line) {
			nl := strings.IndexByte(rest, '\n')
			if nl < 0 {
				break
			}
			i += nl
			continue
		}
		if strings.IndexByte(syn.quotes, code[i]) >= 0 {
			n := scanString(rest, syn)
			b.WriteString(rest[:n])
			i += n
			continue
		}
		b.WriteByte(code[i])
		i++
	}
	return b.String()
}

func matchBlock(rest string, syn syntax) (int, bool) {
	for _, pair := range syn.block {
		if strings.HasPrefix(rest, pair[0]) {
			end := strings.Index(rest[len(pair[0]):], pair[1])
			if end < 0 {
				return len(rest), true
			}
			return len(pair[0]) + end + len(pair[1]), true
		}
	}
	return 0, false
}

func matchPrefix(rest string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(rest, p) {
			return true
		}
	}
	return false
}

// scanString returns the byte length of the string literal at the start of s.
func scanString(s string, syn syntax) int {
	q := s[0]
	if syn.tripleQuotes && len(s) >= 3 && s[1] == q && s[2] == q {
		delim := s[:3]
		end := strings.Index(s[3:], delim)
		if end < 0 {
			return len(s)
		}
		return 3 + end + 3
	}
	for j := 1; j < len(s); j++ {
		switch {
		case s[j] == '\\' && syn.backslashEscapes:
			j++
		case s[j] == q:
			return j + 1
		case s[j] == '\n' && q != '`':
			// unterminated literal ends at the line break
			return j
		}
	}
	return len(s)
}

// Source strips comments and collapses every whitespace run to a single space.
func Source(code string, lang model.Language) string {
	return collapse(StripComments(code, lang))
}

// SourceLines returns the non-empty, whitespace-collapsed lines of code without comments.
func SourceLines(code string, lang model.Language) []string {
	stripped := strings.ReplaceAll(StripComments(code, lang), "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(stripped, "\n") {
		if c := collapse(line); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// indentSensitive languages encode block structure in leading whitespace.
var indentSensitive = map[model.Language]bool{
	model.LanguagePython: true,
}

// Comparable is the form two programs are compared in to decide whether they
// are the same program. It is Source, except that languages with significant
// indentation keep each line's nesting depth.
func Comparable(code string, lang model.Language) string {
	if !indentSensitive[lang] {
		return Source(code, lang)
	}
	stripped := strings.ReplaceAll(StripComments(code, lang), "\r\n", "\n")
	var out []string
	// widths of the open indentation levels, outermost first
	levels := []int{0}
	for _, line := range strings.Split(stripped, "\n") {
		body := collapse(line)
		if body == "" {
			continue
		}
		w := indentWidth(line)
		for len(levels) > 1 && levels[len(levels)-1] > w {
			levels = levels[:len(levels)-1]
		}
		if w > levels[len(levels)-1] {
			levels = append(levels, w)
		}
		out = append(out, strings.Repeat("\t", len(levels)-1)+body)
	}
	return strings.Join(out, "\n")
}

// indentWidth measures leading whitespace with tab stops every 8 columns.
func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w = (w/8 + 1) * 8
		default:
			return w
		}
	}
	return w
}
