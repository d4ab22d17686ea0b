//go:build linux

package main

import (
	"fmt"

	"debugoj/internal/validator/sandbox"

	"golang.org/x/sys/unix"
)

func applyRlimits(limits sandbox.ResourceLimit) error {
	rules := []struct {
		name     string
		resource int
		value    int64
	}{
		{"cpu", unix.RLIMIT_CPU, (limits.CPUTimeMs + 999) / 1000},
		{"as", unix.RLIMIT_AS, limits.MemoryMB << 20},
		{"fsize", unix.RLIMIT_FSIZE, limits.OutputKB << 10},
		{"nproc", unix.RLIMIT_NPROC, limits.PIDs},
	}
	for _, rule := range rules {
		if rule.value <= 0 {
			continue
		}
		val := uint64(rule.value)
		if err := unix.Setrlimit(rule.resource, &unix.Rlimit{Cur: val, Max: val}); err != nil {
			return fmt.Errorf("set rlimit %s: %w", rule.name, err)
		}
	}
	return nil
}
