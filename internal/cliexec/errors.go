package cliexec

import (
	"fmt"
	"strings"
	"time"
)

// SpawnFailedError means the bd executable could not be started at
// all. It carries enough context (resolved command line, working
// directory, search path) for a human to diagnose a PATH or
// permissions problem without instrumentation.
type SpawnFailedError struct {
	Command string
	Dir     string
	Path    string
	Err     error
}

func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("failed to start %q (dir %s, PATH %s): %v",
		e.Command, e.Dir, e.Path, e.Err)
}

func (e *SpawnFailedError) Unwrap() error { return e.Err }

// TimeoutError means the process exceeded its wall-clock budget and
// was killed.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%q timed out after %s", e.Command, e.Timeout)
}

// OutputTooLargeError means combined stdout/stderr exceeded the
// configured ceiling and the process was killed.
type OutputTooLargeError struct {
	Command string
	Limit   int64
}

func (e *OutputTooLargeError) Error() string {
	return fmt.Sprintf("%q produced more than %d bytes of output", e.Command, e.Limit)
}

// CommandFailedError means the process exited non-zero. Output holds
// stderr when present, otherwise stdout, trimmed.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandFailedError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%q exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%q exited with code %d: %s", e.Command, e.ExitCode, out)
}
