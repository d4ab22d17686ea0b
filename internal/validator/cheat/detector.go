// Package cheat flags submissions that print or return the expected output
// as a literal instead of computing it.
package cheat

import (
	"regexp"
	"sort"
	"strings"

	"debugoj/internal/validator/model"
	"debugoj/internal/validator/normalize"
)

const (
	PatternHardcodedReturn = "hardcoded_return"
	PatternHardcodedPrint  = "hardcoded_print"
	PatternLineSequence    = "hardcoded_line_sequence"
)

// output sinks across the supported languages, matched against lower-cased source
const sinks = `(?:\bprint|\bconsole\.(?:log|info)|\bsystem\.out\.print(?:ln|f)?|\bprintf|\bputs|\bio\.write|\bfmt\.print(?:ln|f)?)\s*\(\s*`

// Result lists the cheat patterns found in a submission.
type Result struct {
	IsCheating bool     `json:"is_cheating"`
	Patterns   []string `json:"patterns,omitempty"`
}

// Detector is stateless and safe for concurrent use.
type Detector struct{}

func NewDetector() *Detector { return &Detector{} }

// Detect reports patterns present in userCode but absent from buggyCode.
// Only an exact literal of the whole normalized expected output counts.
func (d *Detector) Detect(userCode, buggyCode, expectedOutput string, lang model.Language) Result {
	expected := strings.ToLower(normalize.Output(expectedOutput))
	if expected == "" {
		return Result{}
	}
	rules := buildRules(expected)

	user := newForms(userCode, lang)
	buggy := newForms(buggyCode, lang)

	var found []string
	for _, r := range rules {
		if r.match(user) && !r.match(buggy) {
			found = append(found, r.name)
		}
	}
	found = dedupe(found...)
	sort.Strings(found)
	return Result{IsCheating: len(found) > 0, Patterns: found}
}

// forms holds the lower-cased source both collapsed to one line and split
// into statement lines.
type forms struct {
	flat  string
	lines string
}

func newForms(code string, lang model.Language) forms {
	return forms{
		flat:  strings.ToLower(normalize.Source(code, lang)),
		lines: strings.ToLower(strings.Join(normalize.SourceLines(code, lang), "\n")),
	}
}

type rule struct {
	name string
	// all regexps must match
	all []*regexp.Regexp
	// perLine rules match against statement lines instead of the collapsed source
	perLine bool
}

func (r rule) match(f forms) bool {
	code := f.flat
	if r.perLine {
		code = f.lines
	}
	for _, re := range r.all {
		if !re.MatchString(code) {
			return false
		}
	}
	return len(r.all) > 0
}

// scalar outputs are written without quotes, so they get bare-token rules
var scalar = regexp.MustCompile(`^(?:-?\d+(?:\.\d+)?|true|false)$`)

// literal matches text as a quoted string in any of the quoting styles,
// optionally ending with an escaped newline.
func literal(forms ...string) string {
	var alts []string
	for _, f := range forms {
		body := regexp.QuoteMeta(f) + `(?:\\n)?`
		alts = append(alts,
			`"""`+body+`"""`,
			`'''`+body+`'''`,
			`[fr]?"`+body+`"`,
			`[fr]?'`+body+`'`,
			"`"+body+"`",
		)
	}
	return `(?:` + strings.Join(alts, "|") + `)`
}

func buildRules(expected string) []rule {
	escaped := strings.ReplaceAll(expected, "\n", `\n`)
	// a raw multi-line literal is whitespace-collapsed along with the rest of the source
	collapsed := strings.Join(strings.Fields(expected), " ")
	lit := literal(dedupe(escaped, collapsed)...)

	rules := []rule{
		{name: PatternHardcodedReturn, all: []*regexp.Regexp{
			regexp.MustCompile(`\breturn\s*\(?\s*` + lit),
		}},
		{name: PatternHardcodedPrint, all: []*regexp.Regexp{
			regexp.MustCompile(`(?:` + sinks + `|\bcout\s*<<\s*|\bselect\s+)` + lit),
		}},
	}

	if scalar.MatchString(expected) {
		bare := regexp.QuoteMeta(expected)
		rules = append(rules,
			rule{name: PatternHardcodedReturn, perLine: true, all: []*regexp.Regexp{
				regexp.MustCompile(`(?m)\breturn\s*\(?\s*` + bare + `\s*\)?\s*(?:[;,}]|$)`),
			}},
			rule{name: PatternHardcodedPrint, perLine: true, all: []*regexp.Regexp{
				regexp.MustCompile(`(?m)` + sinks + bare + `\s*(?:[),;]|$)`),
			}},
		)
	}

	lines := strings.Split(expected, "\n")
	if len(lines) > 1 {
		seq := rule{name: PatternLineSequence}
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			seq.all = append(seq.all, regexp.MustCompile(`(?:`+sinks+`|\bcout\s*<<\s*)`+literal(line)))
		}
		rules = append(rules, seq)
	}
	return rules
}

func dedupe(forms ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range forms {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
