package structural

import (
	"strings"
	"testing"

	"debugoj/internal/validator/model"
)

const javaBuggy = `public class Main {
    static boolean checkPassword(String password, String correctPassword) {
        return password == correctPassword;
    }

    public static void main(String[] args) {
        String input = new String("secret123");
        System.out.println(checkPassword(input, "secret123"));
        System.out.println(checkPassword("wrong", "secret123"));
    }
}`

const javaFixed = `public class Main {
    static boolean checkPassword(String password, String correctPassword) {
        return password.equals(correctPassword);
    }

    public static void main(String[] args) {
        String input = new String("secret123");
        System.out.println(checkPassword(input, "secret123"));
        System.out.println(checkPassword("wrong", "secret123"));
    }
}`

const pyBuggy = `def print_items(items):
    for i in range(len(items) + 1):
        print(items[i])

print_items([1, 2, 3])`

const pyFixed = `def print_items(items):
    for i in range(len(items)):
        print(items[i])

print_items([1, 2, 3])`

const pyDivBuggy = `def divide(a, b):
    return a / b

print(divide(10, 2))
print(divide(5, 0))`

const pyDivFixed = `def divide(a, b):
    if b == 0:
        return "Cannot divide by zero"
    return a / b

print(divide(10, 2))
print(divide(5, 0))`

const cBuggy = `#include <stdio.h>
#include <string.h>

int main() {
    char buffer[16];
    char *input = "Hello, World! This is long";
    strcpy(buffer, input);
    printf("%s\n", buffer);
    return 0;
}`

const cFixed = `#include <stdio.h>
#include <string.h>

int main() {
    char buffer[16];
    char *input = "Hello, World! This is long";
    strncpy(buffer, input, sizeof(buffer) - 1);
    buffer[sizeof(buffer) - 1] = '\0';
    printf("%s\n", buffer);
    return 0;
}`

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Fatalf("Distance(%q,%q): expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
	}
	if Similarity("", "") != 1 {
		t.Fatalf("empty strings should be identical")
	}
	if Similarity("abcd", "") != 0 {
		t.Fatalf("expected zero similarity against empty")
	}
	if got := Similarity("abcd", "abce"); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
}

func TestDefaultCatalogCoversLanguages(t *testing.T) {
	cat := DefaultCatalog()
	for _, lang := range model.Languages() {
		if len(cat[lang]) == 0 {
			t.Fatalf("no patterns for %s", lang)
		}
		for _, p := range cat[lang] {
			if p.Language != lang {
				t.Fatalf("pattern %s registered under %s but tagged %s", p.Name, lang, p.Language)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	v := NewValidator(Config{}, nil)

	tests := []struct {
		name         string
		lang         model.Language
		user         string
		buggy        string
		fixed        string
		wantValid    bool
		wantStrategy model.Method
		wantPattern  string
		wantPartial  bool
	}{
		{
			name:         "reference fix with different formatting",
			lang:         model.LanguagePython,
			user:         "def print_items(items):\n  for i in range(len(items)):   # fixed\n    print(items[i])\nprint_items([1, 2, 3])\n",
			buggy:        pyBuggy,
			fixed:        pyFixed,
			wantValid:    true,
			wantStrategy: model.MethodExactMatch,
		},
		{
			name:         "java equals with swapped receiver",
			lang:         model.LanguageJava,
			user:         replace(javaBuggy, "password == correctPassword", "correctPassword.equals(password)"),
			buggy:        javaBuggy,
			fixed:        javaFixed,
			wantValid:    true,
			wantStrategy: model.MethodPatternFix,
			wantPattern:  "string_identity_comparison",
		},
		{
			name:         "java equals added but identity check kept",
			lang:         model.LanguageJava,
			user:         replace(javaBuggy, "password == correctPassword", "password.equals(correctPassword) || password == correctPassword"),
			buggy:        javaBuggy,
			fixed:        javaFixed,
			wantValid:    true,
			wantStrategy: model.MethodPatternFix,
			wantPattern:  "string_identity_comparison",
			wantPartial:  true,
		},
		{
			name:         "c bounded copy via snprintf",
			lang:         model.LanguageC,
			user:         replace(cBuggy, "strcpy(buffer, input);", `snprintf(buffer, sizeof(buffer), "%s", input);`),
			buggy:        cBuggy,
			fixed:        cFixed,
			wantValid:    true,
			wantStrategy: model.MethodPatternFix,
			wantPattern:  "unbounded_strcpy",
		},
		{
			name:         "python guard written differently",
			lang:         model.LanguagePython,
			user:         replace(pyDivFixed, "if b == 0:", "if not b:"),
			buggy:        pyDivBuggy,
			fixed:        pyDivFixed,
			wantValid:    true,
			wantStrategy: model.MethodPatternFix,
			wantPattern:  "zero_division_guard",
		},
		{
			name:         "python loop rewritten over elements",
			lang:         model.LanguagePython,
			user:         "def print_items(items):\n    for item in items:\n        print(item)\n\nprint_items([1, 2, 3])",
			buggy:        pyBuggy,
			fixed:        pyFixed,
			wantValid:    true,
			wantStrategy: model.MethodTokenAnalysis,
		},
		{
			name:         "buggy code resubmitted",
			lang:         model.LanguagePython,
			user:         pyBuggy,
			buggy:        pyBuggy,
			fixed:        pyFixed,
			wantStrategy: model.MethodNoMatch,
		},
		{
			name:         "unrelated program",
			lang:         model.LanguagePython,
			user:         `print("1\n2\n3")`,
			buggy:        pyBuggy,
			fixed:        pyFixed,
			wantStrategy: model.MethodNoMatch,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := v.Validate(tt.user, tt.buggy, tt.fixed, tt.lang)
			if got.IsStructurallyValid != tt.wantValid {
				t.Fatalf("expected valid=%v, got %+v", tt.wantValid, got)
			}
			if got.Strategy != tt.wantStrategy {
				t.Fatalf("expected strategy %s, got %+v", tt.wantStrategy, got)
			}
			if got.Pattern != tt.wantPattern {
				t.Fatalf("expected pattern %q, got %q", tt.wantPattern, got.Pattern)
			}
			if got.Partial != tt.wantPartial {
				t.Fatalf("expected partial=%v, got %+v", tt.wantPartial, got)
			}
			if !got.IsStructurallyValid && got.Similarity != 0 {
				t.Fatalf("invalid results must report zero similarity, got %v", got.Similarity)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Fatalf("confidence out of range: %v", got.Confidence)
			}
		})
	}
}

func TestReferenceFixAlwaysValidates(t *testing.T) {
	v := NewValidator(Config{}, nil)
	pairs := []struct {
		lang         model.Language
		buggy, fixed string
	}{
		{model.LanguagePython, pyBuggy, pyFixed},
		{model.LanguagePython, pyDivBuggy, pyDivFixed},
		{model.LanguageJava, javaBuggy, javaFixed},
		{model.LanguageC, cBuggy, cFixed},
	}
	for _, p := range pairs {
		got := v.Validate(p.fixed, p.buggy, p.fixed, p.lang)
		if !got.IsStructurallyValid || got.Similarity != 1 || got.Strategy != model.MethodExactMatch {
			t.Fatalf("reference fix for %s did not validate: %+v", p.lang, got)
		}
	}
}

func TestEditDistanceFallsBackToLinesForLargeInputs(t *testing.T) {
	v := NewValidator(Config{MaxEditCells: 1}, Catalog{})
	user := "a = 1\nb = 2\nc = 3\nd = 4\nprint(a)"
	fixed := "a = 1\nb = 2\nc = 3\nd = 4\nprint(b)"
	buggy := "x = 1\ny = 2\nz = 3\nw = 4\nprint(q)"
	got := v.Validate(user, buggy, fixed, model.LanguagePython)
	if got.Similarity != 0.8 {
		t.Fatalf("expected line similarity 0.8, got %+v", got)
	}
}

func replace(s, old, new string) string {
	return strings.ReplaceAll(s, old, new)
}
