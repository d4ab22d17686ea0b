// Package structural decides whether a submission repairs the bug the way the
// reference fix does, without running it.
package structural

import (
	"debugoj/internal/validator/model"
	"debugoj/internal/validator/normalize"
)

// Config holds the thresholds of the fallback strategies.
type Config struct {
	EditThreshold            float64 `yaml:"editThreshold"`
	ImprovementMargin        float64 `yaml:"improvementMargin"`
	ImprovementFloor         float64 `yaml:"improvementFloor"`
	TokenMinSimilarity       float64 `yaml:"tokenMinSimilarity"`
	MaxEditCells             int     `yaml:"maxEditCells"`
	PatternFullConfidence    float64 `yaml:"patternFullConfidence"`
	PatternPartialConfidence float64 `yaml:"patternPartialConfidence"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		EditThreshold:            0.85,
		ImprovementMargin:        0.1,
		ImprovementFloor:         0.7,
		TokenMinSimilarity:       0.5,
		MaxEditCells:             4_000_000,
		PatternFullConfidence:    0.9,
		PatternPartialConfidence: 0.6,
	}
}

// Result is the structural judgement of one submission.
type Result struct {
	IsStructurallyValid bool         `json:"is_structurally_valid"`
	Similarity          float64      `json:"similarity"`
	Strategy            model.Method `json:"strategy"`
	Confidence          float64      `json:"confidence"`
	Pattern             string       `json:"pattern,omitempty"`
	Partial             bool         `json:"partial,omitempty"`
}

// Validator is safe for concurrent use.
type Validator struct {
	cfg     Config
	catalog Catalog
}

func NewValidator(cfg Config, catalog Catalog) *Validator {
	def := DefaultConfig()
	if cfg.EditThreshold <= 0 {
		cfg.EditThreshold = def.EditThreshold
	}
	if cfg.ImprovementMargin <= 0 {
		cfg.ImprovementMargin = def.ImprovementMargin
	}
	if cfg.ImprovementFloor <= 0 {
		cfg.ImprovementFloor = def.ImprovementFloor
	}
	if cfg.TokenMinSimilarity <= 0 {
		cfg.TokenMinSimilarity = def.TokenMinSimilarity
	}
	if cfg.MaxEditCells <= 0 {
		cfg.MaxEditCells = def.MaxEditCells
	}
	if cfg.PatternFullConfidence <= 0 {
		cfg.PatternFullConfidence = def.PatternFullConfidence
	}
	if cfg.PatternPartialConfidence <= 0 {
		cfg.PatternPartialConfidence = def.PatternPartialConfidence
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Validator{cfg: cfg, catalog: catalog}
}

// Validate applies, in order: exact match, known fix pattern, token delta,
// edit distance and the improvement heuristic. The first that applies wins.
func (v *Validator) Validate(userCode, buggyCode, referenceFix string, lang model.Language) Result {
	user := normalize.Source(userCode, lang)
	buggy := normalize.Source(buggyCode, lang)
	ref := normalize.Source(referenceFix, lang)

	if normalize.Comparable(userCode, lang) == normalize.Comparable(referenceFix, lang) {
		return Result{IsStructurallyValid: true, Similarity: 1, Strategy: model.MethodExactMatch, Confidence: 1}
	}

	simFix := v.similarity(userCode, user, referenceFix, ref, lang)

	if m, ok := matchPattern(v.catalog[lang], user, buggy, ref); ok {
		conf := v.cfg.PatternFullConfidence
		if !m.full {
			conf = v.cfg.PatternPartialConfidence
		}
		return Result{
			IsStructurallyValid: true,
			Similarity:          simFix,
			Strategy:            model.MethodPatternFix,
			Confidence:          conf,
			Pattern:             m.pattern.Name,
			Partial:             !m.full,
		}
	}

	if ok, applicable := tokenDelta(user, buggy, ref); applicable && ok && simFix >= v.cfg.TokenMinSimilarity {
		return Result{IsStructurallyValid: true, Similarity: simFix, Strategy: model.MethodTokenAnalysis, Confidence: 0.8}
	}

	// Near-copies of the buggy code are also near the fix; they must lean towards the fix.
	simBuggy := v.similarity(userCode, user, buggyCode, buggy, lang)
	if simFix >= v.cfg.EditThreshold && simFix > simBuggy {
		return Result{IsStructurallyValid: true, Similarity: simFix, Strategy: model.MethodEditDistance, Confidence: simFix}
	}

	if simFix-simBuggy >= v.cfg.ImprovementMargin && simFix >= v.cfg.ImprovementFloor {
		return Result{IsStructurallyValid: true, Similarity: simFix, Strategy: model.MethodImprovement, Confidence: 0.5, Partial: true}
	}

	return Result{Strategy: model.MethodNoMatch}
}

// SimilarityToFix exposes the edit similarity used by Validate.
func (v *Validator) SimilarityToFix(userCode, referenceFix string, lang model.Language) float64 {
	return v.similarity(userCode, normalize.Source(userCode, lang), referenceFix, normalize.Source(referenceFix, lang), lang)
}

func (v *Validator) similarity(rawA, a, rawB, b string, lang model.Language) float64 {
	if len(a)*len(b) > v.cfg.MaxEditCells {
		return lineSimilarity(normalize.SourceLines(rawA, lang), normalize.SourceLines(rawB, lang))
	}
	return Similarity(a, b)
}
