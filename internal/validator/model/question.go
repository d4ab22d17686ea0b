package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Question is a debugging exercise as stored in the catalog.
type Question struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Language       Language `json:"language" yaml:"language"`
	Difficulty     string   `json:"difficulty" yaml:"difficulty"`
	BuggyCode      string   `json:"buggy_code" yaml:"buggy_code"`
	FixedCode      string   `json:"fixed_code" yaml:"fixed_code"`
	ExpectedOutput string   `json:"expected_output" yaml:"expected_output"`
	ConsoleOutput  string   `json:"console_output,omitempty" yaml:"console_output,omitempty"`
	Setup          string   `json:"setup,omitempty" yaml:"setup,omitempty"`
}

// Validate checks required fields and canonicalises the language tag.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("question id is required")
	}
	lang, ok := ParseLanguage(string(q.Language))
	if !ok {
		return fmt.Errorf("question %s: unsupported language %q", q.ID, q.Language)
	}
	q.Language = lang
	if strings.TrimSpace(q.BuggyCode) == "" || strings.TrimSpace(q.FixedCode) == "" {
		return fmt.Errorf("question %s: buggy and fixed code are required", q.ID)
	}
	return nil
}

// Reference returns the context handed to execution adapters.
func (q *Question) Reference() *ReferenceContext {
	return &ReferenceContext{
		BuggyCode:      q.BuggyCode,
		FixedCode:      q.FixedCode,
		ExpectedOutput: q.ExpectedOutput,
		BuggyOutput:    q.ConsoleOutput,
		Setup:          q.Setup,
	}
}

// FixPattern is a catalogued bug class: the buggy form and its repaired form.
type FixPattern struct {
	Name        string
	Language    Language
	Buggy       *regexp.Regexp
	Fixed       *regexp.Regexp
	Description string
	// Additive fixes insert code (a guard, a free, a terminator) and leave the buggy form in place.
	Additive bool
}
