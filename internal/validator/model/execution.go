package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorKind classifies how an execution failed.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorCompile
	ErrorRuntime
	ErrorTimeout
	ErrorServiceUnavailable
)

var errorKindNames = map[ErrorKind]string{
	ErrorNone:               "none",
	ErrorCompile:            "compile_error",
	ErrorRuntime:            "runtime_error",
	ErrorTimeout:            "timeout",
	ErrorServiceUnavailable: "service_unavailable",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error_kind(%d)", int(k))
}

func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for kind, name := range errorKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", s)
}

// Substrate names the execution environment behind an adapter.
type Substrate string

const (
	SubstrateInterpreter Substrate = "interpreter"
	SubstrateHost        Substrate = "host"
	SubstrateEmbedded    Substrate = "embedded"
	SubstrateRemote      Substrate = "remote"
	SubstrateDatabase    Substrate = "database"
	SubstrateSimulation  Substrate = "simulation"
)

// ReferenceContext carries the question data a simulated run needs to
// synthesise output. Real adapters ignore everything except Setup.
type ReferenceContext struct {
	BuggyCode      string
	FixedCode      string
	ExpectedOutput string
	// BuggyOutput is the console output of the unfixed program, when known.
	BuggyOutput string
	// Setup is schema and seed statements for SQL questions.
	Setup string
}

// ExecutionRequest is one program to run.
type ExecutionRequest struct {
	SourceCode string
	Language   Language
	Reference  *ReferenceContext
}

// ExecutionResult is what running (or simulating) a program produced.
type ExecutionResult struct {
	RawOutput string    `json:"raw_output"`
	Succeeded bool      `json:"succeeded"`
	ErrorKind ErrorKind `json:"error_kind"`
	// Diagnostic explains failures in one line; empty on success.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Simulated is true when output was inferred from code patterns rather than produced by a run.
	Simulated bool `json:"is_simulated"`
	// BugSignature names the known bug a simulated run found still present.
	BugSignature string        `json:"bug_signature,omitempty"`
	Substrate    Substrate     `json:"substrate"`
	Duration     time.Duration `json:"duration_ns"`
}

// Failed builds an unsuccessful result whose output is the diagnostic.
func Failed(substrate Substrate, kind ErrorKind, diagnostic string) ExecutionResult {
	return ExecutionResult{
		RawOutput:  diagnostic,
		ErrorKind:  kind,
		Diagnostic: diagnostic,
		Substrate:  substrate,
	}
}
