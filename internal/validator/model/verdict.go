package model

// Method names the check that decided a verdict.
type Method string

const (
	MethodUnchanged      Method = "unchanged"
	MethodExecutionError Method = "execution_error"
	MethodOutputMatch    Method = "output_match"
	MethodOutputMismatch Method = "output_mismatch"
	MethodCheatDetected  Method = "cheat_detected"
	MethodStructuralVeto Method = "structural_veto"
	MethodExactMatch     Method = "exact_match"
	MethodPatternFix     Method = "pattern_fix"
	MethodTokenAnalysis  Method = "token_analysis"
	MethodEditDistance   Method = "edit_distance"
	MethodImprovement    Method = "improvement"
	MethodNoMatch        Method = "no_match"
	MethodInternalError  Method = "internal_error"
)

// Verdict is the outcome of validating one submission.
type Verdict struct {
	IsCorrect     bool     `json:"is_correct"`
	HasError      bool     `json:"has_error"`
	IsCheating    bool     `json:"is_cheating"`
	ActualOutput  string   `json:"actual_output"`
	Message       string   `json:"message"`
	Confidence    float64  `json:"confidence"`
	Method        Method   `json:"method"`
	Similarity    float64  `json:"similarity"`
	Simulated     bool     `json:"is_simulated"`
	CheatPatterns []string `json:"cheat_patterns,omitempty"`
}
