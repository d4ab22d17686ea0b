package sandbox

import (
	"fmt"
	"io"
	"os"
)

func validateRunSpec(runSpec RunSpec) error {
	if runSpec.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}
	if len(runSpec.Cmd) == 0 {
		return fmt.Errorf("command is required")
	}
	if runSpec.StdinPath == "" || runSpec.StdoutPath == "" || runSpec.StderrPath == "" {
		return fmt.Errorf("stdio paths are required")
	}
	return nil
}

// readLimitedFile returns at most maxBytes of the file and whether more existed.
func readLimitedFile(path string, maxBytes int64) (string, bool) {
	if path == "" || maxBytes <= 0 {
		return "", false
	}
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return "", false
	}
	if int64(len(data)) > maxBytes {
		return string(data[:maxBytes]), true
	}
	return string(data), false
}
