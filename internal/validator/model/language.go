package model

import "strings"

// Language is a canonical, lower-case language tag.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageSQL        Language = "sql"
	LanguageLua        Language = "lua"
)

var languageAliases = map[string]Language{
	"python":     LanguagePython,
	"python3":    LanguagePython,
	"py":         LanguagePython,
	"javascript": LanguageJavaScript,
	"js":         LanguageJavaScript,
	"node":       LanguageJavaScript,
	"java":       LanguageJava,
	"c":          LanguageC,
	"cpp":        LanguageCPP,
	"c++":        LanguageCPP,
	"cxx":        LanguageCPP,
	"sql":        LanguageSQL,
	"mysql":      LanguageSQL,
	"postgres":   LanguageSQL,
	"postgresql": LanguageSQL,
	"lua":        LanguageLua,
}

// ParseLanguage case-folds tag and resolves aliases.
func ParseLanguage(tag string) (Language, bool) {
	lang, ok := languageAliases[strings.ToLower(strings.TrimSpace(tag))]
	return lang, ok
}

// Languages lists every canonical language.
func Languages() []Language {
	return []Language{LanguagePython, LanguageJavaScript, LanguageJava, LanguageC, LanguageCPP, LanguageSQL, LanguageLua}
}

func (l Language) String() string { return string(l) }
