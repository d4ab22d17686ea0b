package runtime

import (
	"context"
	"regexp"
	"time"

	"debugoj/internal/validator/model"
	"debugoj/internal/validator/normalize"
	"debugoj/internal/validator/structural"
)

// SimulationUnavailable is the output of a simulated run that matched nothing.
const SimulationUnavailable = "[simulation] output unavailable"

const (
	crashStackSmash  = "*** stack smashing detected ***: terminated\nAborted (core dumped)"
	crashInvalidFree = "free(): invalid pointer\nAborted (core dumped)"
)

// signature is a known bug whose presence decides a simulated program's output.
type signature struct {
	name    string
	trigger *regexp.Regexp
	// fixedBy, when set, disarms every trigger occurrence in code that contains it.
	fixedBy *regexp.Regexp
	// crash is the runtime error the bug produces; empty means the program
	// finishes with corrupted output instead.
	crash string
	// garbage is appended to the expected output when the bug does not crash.
	garbage string
}

func (s signature) hits(code string) int {
	if s.fixedBy != nil && s.fixedBy.MatchString(code) {
		return 0
	}
	return len(s.trigger.FindAllStringIndex(code, -1))
}

func cSignatures() []signature {
	return []signature{
		{name: "unbounded_strcpy", trigger: regexp.MustCompile(`\bstrcpy\s*\(`), crash: crashStackSmash},
		{name: "unbounded_gets", trigger: regexp.MustCompile(`\bgets\s*\(`), crash: crashStackSmash},
		{name: "unbounded_sprintf", trigger: regexp.MustCompile(`\bsprintf\s*\(`), crash: crashStackSmash},
		{
			name:    "unterminated_strncpy",
			trigger: regexp.MustCompile(`\bstrncpy\s*\(`),
			fixedBy: regexp.MustCompile(`\]\s*=\s*(?:'\\0'|0)\s*;`),
			garbage: "\u00ff\u00fe\u00ad",
		},
		{
			name:    "inclusive_loop_bound",
			trigger: regexp.MustCompile(`for\s*\([^;]*;\s*\w+\s*<=\s*[^;]+;`),
			garbage: "\n32767",
		},
		{
			name:    "unfreed_malloc",
			trigger: regexp.MustCompile(`\b(?:malloc|calloc)\s*\(`),
			fixedBy: regexp.MustCompile(`\bfree\s*\(`),
			garbage: "\n==1==ERROR: LeakSanitizer: detected memory leaks",
		},
	}
}

func defaultSignatures() map[model.Language][]signature {
	cpp := append(cSignatures(), signature{
		name:    "scalar_delete_of_array",
		trigger: regexp.MustCompile(`\bdelete\s+[A-Za-z_]`),
		crash:   crashInvalidFree,
	})
	return map[model.Language][]signature{
		model.LanguageC:   cSignatures(),
		model.LanguageCPP: cpp,
		model.LanguageJava: {
			{
				name:    "string_identity",
				trigger: regexp.MustCompile(`(?i)"\s*[!=]=|[!=]=\s*"|\w*(?:str|name|password|text|word|input)\w*\s*[!=]=\s*\w+`),
				garbage: "\nfalse",
			},
			{
				name:    "inclusive_length_bound",
				trigger: regexp.MustCompile(`<=\s*[\w.]+\.(?:length|size\(\))`),
				crash:   "Exception in thread \"main\" java.lang.ArrayIndexOutOfBoundsException: Index out of bounds for length",
			},
			{
				name:    "unguarded_division",
				trigger: regexp.MustCompile(`[\w)]\s*/\s*[A-Za-z_]\w*`),
				fixedBy: regexp.MustCompile(`[!=]=\s*0\b|>\s*0\b|\b0\s*[!=]=`),
				crash:   "Exception in thread \"main\" java.lang.ArithmeticException: / by zero",
			},
		},
	}
}

// SimulationConfig tunes how close to the reference fix a submission must be
// for the simulation to report the expected output.
type SimulationConfig struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
}

// SimulationAdapter never runs anything. It infers the output from known bug
// signatures and from the submission's closeness to the reference fix.
type SimulationAdapter struct {
	cfg        SimulationConfig
	signatures map[model.Language][]signature
	structural *structural.Validator
}

func NewSimulationAdapter(cfg SimulationConfig, validator *structural.Validator) *SimulationAdapter {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.85
	}
	if validator == nil {
		validator = structural.NewValidator(structural.DefaultConfig(), nil)
	}
	return &SimulationAdapter{cfg: cfg, signatures: defaultSignatures(), structural: validator}
}

func (a *SimulationAdapter) Substrate() model.Substrate { return model.SubstrateSimulation }

func (a *SimulationAdapter) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	start := time.Now()
	res := a.simulate(req)
	res.Simulated = true
	res.Substrate = a.Substrate()
	return elapsed(res, start)
}

func (a *SimulationAdapter) simulate(req model.ExecutionRequest) model.ExecutionResult {
	ref := req.Reference
	if ref == nil {
		ref = &model.ReferenceContext{}
	}
	user := normalize.StripComments(req.SourceCode, req.Language)
	fix := normalize.StripComments(ref.FixedCode, req.Language)

	// A signature only counts when the submission carries more of it than the reference fix.
	for _, sig := range a.signatures[req.Language] {
		if sig.hits(user) <= sig.hits(fix) {
			continue
		}
		return buggyResult(sig, ref)
	}

	if ref.FixedCode == "" {
		return model.ExecutionResult{Succeeded: true, RawOutput: SimulationUnavailable, Diagnostic: "no reference fix to compare against"}
	}

	verdict := a.structural.Validate(req.SourceCode, ref.BuggyCode, ref.FixedCode, req.Language)
	fullCredit := verdict.Strategy == model.MethodExactMatch ||
		(verdict.Strategy == model.MethodPatternFix && !verdict.Partial)
	simFix := a.structural.SimilarityToFix(req.SourceCode, ref.FixedCode, req.Language)
	simBuggy := a.structural.SimilarityToFix(req.SourceCode, ref.BuggyCode, req.Language)
	if fullCredit || (simFix >= a.cfg.SimilarityThreshold && simFix > simBuggy) {
		return model.ExecutionResult{Succeeded: true, RawOutput: ref.ExpectedOutput}
	}
	return model.ExecutionResult{Succeeded: true, RawOutput: SimulationUnavailable, Diagnostic: "submission not close enough to a known fix"}
}

func buggyResult(sig signature, ref *model.ReferenceContext) model.ExecutionResult {
	output := ref.BuggyOutput
	if sig.crash != "" {
		if output == "" {
			output = sig.crash
		}
		return model.ExecutionResult{RawOutput: output, ErrorKind: model.ErrorRuntime, Diagnostic: "simulated " + sig.name, BugSignature: sig.name}
	}
	if output == "" {
		output = ref.ExpectedOutput + sig.garbage
	}
	return model.ExecutionResult{Succeeded: true, RawOutput: output, Diagnostic: "simulated " + sig.name, BugSignature: sig.name}
}
