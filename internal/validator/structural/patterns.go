package structural

import (
	"regexp"

	"debugoj/internal/validator/model"
)

// Catalog maps a language to the bug classes recognised for it.
type Catalog map[model.Language][]model.FixPattern

func fix(lang model.Language, name, buggy, fixed, desc string) model.FixPattern {
	return model.FixPattern{
		Name:        name,
		Language:    lang,
		Buggy:       regexp.MustCompile(buggy),
		Fixed:       regexp.MustCompile(fixed),
		Description: desc,
	}
}

func additive(lang model.Language, name, buggy, fixed, desc string) model.FixPattern {
	p := fix(lang, name, buggy, fixed, desc)
	p.Additive = true
	return p
}

func cPatterns(lang model.Language) []model.FixPattern {
	return []model.FixPattern{
		fix(lang, "unbounded_strcpy", `\bstrcpy\s*\(`, `\b(strncpy|strlcpy|snprintf)\s*\(`, "unbounded copy into a fixed-size buffer"),
		fix(lang, "unsafe_gets", `\bgets\s*\(`, `\bfgets\s*\(`, "gets reads without a length limit"),
		fix(lang, "off_by_one_loop", `;\s*\w+\s*<=\s*\w+\s*;`, `;\s*\w+\s*<\s*\w+\s*;`, "loop bound includes one element past the end"),
		fix(lang, "assignment_in_condition", `\bif\s*\(\s*\w+\s*=\s*[^=]`, `\bif\s*\(\s*\w+\s*==`, "assignment used where a comparison was meant"),
		additive(lang, "missing_null_terminator", `\bstrncpy\s*\(`, `\]\s*=\s*('\\0'|0)\s*;`, "bounded copy leaves the buffer unterminated"),
		additive(lang, "missing_free", `\b(malloc|calloc|realloc)\s*\(`, `\bfree\s*\(`, "heap allocation is never released"),
		additive(lang, "missing_fclose", `\bfopen\s*\(`, `\bfclose\s*\(`, "opened file is never closed"),
		additive(lang, "division_guard", `\w\s*/\s*\w`, `\bif\s*\(\s*\w+\s*[!=]=\s*0\s*\)`, "divisor is not checked for zero"),
	}
}

// DefaultCatalog is the built-in set of known bug classes.
func DefaultCatalog() Catalog {
	py, js, java := model.LanguagePython, model.LanguageJavaScript, model.LanguageJava
	sql, lua := model.LanguageSQL, model.LanguageLua

	cpp := append(cPatterns(model.LanguageCPP),
		fix(model.LanguageCPP, "delete_array_mismatch", `\bdelete\s+\w`, `\bdelete\s*\[\s*\]`, "array allocated with new[] freed with delete"),
		fix(model.LanguageCPP, "off_by_one_size", `<=\s*[\w.]+\.size\(\)`, `<\s*[\w.]+\.size\(\)`, "index runs up to size() inclusive"),
		additive(model.LanguageCPP, "missing_delete", `\bnew\s+\w`, `\bdelete\b`, "heap object is never deleted"),
	)

	return Catalog{
		py: {
			fix(py, "off_by_one_range", `range\(len\(\w+\)\s*\+\s*1\)`, `range\(len\(\w+\)\)`, "range runs one past the last index"),
			fix(py, "mutable_default_argument", `def\s+\w+\([^)]*=\s*(\[\]|\{\})`, `def\s+\w+\([^)]*=\s*None`, "mutable default shared across calls"),
			fix(py, "string_int_concat", `["']\s*\+\s*\w+`, `\bstr\(\w+\)|\bf["']`, "string concatenated with a number"),
			fix(py, "missing_key_lookup", `\w+\[["']\w+["']\]`, `\.get\(`, "dictionary indexed with a key that may be absent"),
			fix(py, "mutating_while_iterating", `for\s+\w+\s+in\s+\w+\s*:`, `for\s+\w+\s+in\s+(\w+(\[:\]|\.copy\(\))|list\(\w+\))\s*:`, "list modified while being iterated"),
			additive(py, "zero_division_guard", `\w\s*/\s*\w`, `\bif\s+(\w+\s*(==|!=)\s*0|not\s+\w+)\s*:`, "divisor is not checked for zero"),
		},
		js: {
			fix(js, "loose_equality", `[^=!<>]==[^=]`, `===`, "loose equality coerces types"),
			fix(js, "var_in_loop_closure", `for\s*\(\s*var\s`, `for\s*\(\s*let\s`, "var loop variable captured by closures"),
			fix(js, "off_by_one_length", `<=\s*[\w.]+\.length`, `<\s*[\w.]+\.length`, "index runs up to length inclusive"),
			fix(js, "missing_await", `=\s*(fetch|\w+Async)\(`, `=\s*await\s`, "promise used without await"),
			additive(js, "null_guard", `\w+\.\w+`, `\bif\s*\(\s*!?\w+\s*((===?|!==?)\s*(null|undefined))?\s*\)|\?\.`, "property read on a possibly missing value"),
			additive(js, "json_parse_guard", `JSON\.parse\(`, `\btry\s*\{`, "JSON.parse on untrusted input without try"),
		},
		java: {
			fix(java, "string_identity_comparison", `\b[A-Za-z_]\w*\s*==\s*[A-Za-z_]\w*\b`, `\.equals\(`, "strings compared by reference instead of value"),
			fix(java, "off_by_one_length", `<=\s*[\w.]+\.(length\b|size\(\))`, `<\s*[\w.]+\.(length\b|size\(\))`, "index runs up to length inclusive"),
			fix(java, "integer_division", `\(\s*\w+\s*/\s*\w+\s*\)`, `\(\s*(double|float)\s*\)|\d\.\d`, "integer division truncates the result"),
			additive(java, "null_check", `\w+\.\w+\(`, `\w+\s*[!=]=\s*null`, "method called on a possibly null reference"),
			additive(java, "missing_break", `\bcase\s+[^:]+:`, `\bbreak\s*;`, "switch case falls through"),
			additive(java, "division_guard", `\w\s*/\s*\w`, `\bif\s*\(\s*\w+\s*[!=]=\s*0\s*\)`, "divisor is not checked for zero"),
			additive(java, "resource_close", `\bnew\s+(FileReader|BufferedReader|Scanner|FileInputStream)\(`, `\.close\(\)|\btry\s*\(`, "resource is never closed"),
		},
		model.LanguageC:   cPatterns(model.LanguageC),
		model.LanguageCPP: cpp,
		sql: {
			fix(sql, "null_comparison", `(?i)(=|!=|<>)\s*null\b`, `(?i)\bis\s+(not\s+)?null\b`, "NULL compared with = instead of IS"),
			fix(sql, "aggregate_in_where", `(?i)\bwhere\b[^;]*\b(count|sum|avg|min|max)\s*\(`, `(?i)\bhaving\b`, "aggregate filtered in WHERE instead of HAVING"),
			fix(sql, "implicit_cross_join", `(?i)\bfrom\s+\w+(\s+\w+)?\s*,\s*\w+`, `(?i)\bjoin\b[^;]*\bon\b`, "tables joined without a join condition"),
			additive(sql, "missing_group_by", `(?i)\b(count|sum|avg)\s*\(`, `(?i)\bgroup\s+by\b`, "aggregate mixed with plain columns without GROUP BY"),
		},
		lua: {
			fix(lua, "zero_based_loop", `for\s+\w+\s*=\s*0\s*,\s*#\w+`, `for\s+\w+\s*=\s*1\s*,\s*#\w+`, "Lua arrays start at 1"),
			fix(lua, "plus_concatenation", `["']\s*\+|\+\s*["']`, `\.\.`, "strings joined with + instead of .."),
			additive(lua, "nil_guard", `\w+\.\w+`, `\bif\s+(not\s+\w+|\w+\s*(~=|==)\s*nil)`, "field read on a possibly nil value"),
		},
	}
}

type patternMatch struct {
	pattern model.FixPattern
	full    bool
}

func count(re *regexp.Regexp, s string) int {
	return len(re.FindAllStringIndex(s, -1))
}

// matchPattern finds a catalogued bug class that the reference fix repairs
// and reports whether user applies the same repair. Full matches win over partial ones.
func matchPattern(patterns []model.FixPattern, user, buggy, ref string) (patternMatch, bool) {
	var partial *patternMatch
	for _, p := range patterns {
		bBug, fBug, uBug := count(p.Buggy, buggy), count(p.Buggy, ref), count(p.Buggy, user)
		bFix, fFix, uFix := count(p.Fixed, buggy), count(p.Fixed, ref), count(p.Fixed, user)

		if bBug == 0 || fFix <= bFix {
			continue
		}
		if uFix <= bFix {
			continue
		}

		var full bool
		if p.Additive {
			full = uFix >= fFix
		} else {
			full = uBug <= fBug
		}
		if full {
			return patternMatch{pattern: p, full: true}, true
		}
		if partial == nil {
			partial = &patternMatch{pattern: p}
		}
	}
	if partial != nil {
		return *partial, true
	}
	return patternMatch{}, false
}
