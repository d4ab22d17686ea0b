// Package runtime executes submissions on one of several substrates and
// routes each language to the adapter that serves it.
package runtime

import (
	"context"
	"strings"
	"time"

	"debugoj/internal/validator/model"
)

// Adapter runs source code on one substrate. Execute never returns an error;
// failures are reported through the result's ErrorKind.
type Adapter interface {
	Substrate() model.Substrate
	Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult
}

func unavailable(substrate model.Substrate, format string) model.ExecutionResult {
	return model.Failed(substrate, model.ErrorServiceUnavailable, format)
}

func elapsed(res model.ExecutionResult, start time.Time) model.ExecutionResult {
	res.Duration = time.Since(start)
	return res
}

// lastLine returns the final non-blank line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\r\n\t "), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// joinOutput appends a diagnostic line to program output.
func joinOutput(stdout, diagnostic string) string {
	stdout = strings.TrimRight(stdout, "\r\n")
	switch {
	case diagnostic == "":
		return stdout
	case stdout == "":
		return diagnostic
	default:
		return stdout + "\n" + diagnostic
	}
}
