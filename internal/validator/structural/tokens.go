package structural

import "regexp"

var tokenPattern = regexp.MustCompile(`[A-Za-z_]\w*|\d+(?:\.\d+)?|"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|===|!==|==|!=|<=|>=|&&|\|\||\+\+|--|\+=|-=|->|::|//|\*\*|[^\s\w]`)

// punctuation carries no meaning on its own in a token delta.
var punctuation = map[string]bool{
	"(": true, ")": true, "{": true, "}": true, "[": true, "]": true,
	";": true, ",": true, ".": true, ":": true,
}

type tokenSet map[string]struct{}

func tokenize(code string) tokenSet {
	set := tokenSet{}
	for _, tok := range tokenPattern.FindAllString(code, -1) {
		set[tok] = struct{}{}
	}
	return set
}

// minus returns the meaningful tokens of s that are absent from other.
func (s tokenSet) minus(other tokenSet) []string {
	var out []string
	for tok := range s {
		if punctuation[tok] {
			continue
		}
		if _, ok := other[tok]; !ok {
			out = append(out, tok)
		}
	}
	return out
}

func (s tokenSet) has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// tokenDelta reports whether user applies the change that turned buggy into fix:
// every token the fix introduced is present and every token it removed is gone.
// applicable is false when the fix changed no meaningful token.
func tokenDelta(user, buggy, fix string) (valid, applicable bool) {
	b, f, u := tokenize(buggy), tokenize(fix), tokenize(user)
	added := f.minus(b)
	removed := b.minus(f)
	if len(added) == 0 && len(removed) == 0 {
		return false, false
	}
	for _, tok := range added {
		if !u.has(tok) {
			return false, true
		}
	}
	for _, tok := range removed {
		if u.has(tok) {
			return false, true
		}
	}
	return true, true
}
