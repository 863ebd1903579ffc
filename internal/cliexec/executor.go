// Package cliexec runs the bd executable and normalizes its outcome
// into parsed JSON, a nil payload, or a typed failure. It spawns the
// process directly with an argument vector, never through a shell, so
// no argument can be reinterpreted as shell syntax.
package cliexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/bdboard/internal/debug"
	"github.com/steveyegge/bdboard/internal/telemetry"
)

// Execution limits. Every external call carries both: a wall-clock
// timeout and a combined stdout/stderr byte ceiling.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = int64(10 << 20) // 10 MiB
)

// Runner is the narrow interface the façade depends on. Tests inject
// fakes; production code uses *Executor.
type Runner interface {
	Run(ctx context.Context, argv []string, timeout time.Duration) (json.RawMessage, error)
}

// Executor invokes the bd executable. It performs no argument
// validation; callers are expected to have passed every embedded
// value through the validation package already.
type Executor struct {
	bdPath    string
	dir       string
	maxOutput int64
}

// New creates an Executor that runs bdPath with dir as the working
// directory. An empty dir means the process inherits the caller's.
func New(bdPath, dir string) *Executor {
	return &Executor{bdPath: bdPath, dir: dir, maxOutput: DefaultMaxOutput}
}

// SetMaxOutput overrides the combined stdout/stderr byte ceiling.
func (e *Executor) SetMaxOutput(n int64) {
	if n > 0 {
		e.maxOutput = n
	}
}

var errOutputLimit = errors.New("output limit exceeded")

// outputBudget is the byte ceiling shared by the stdout and stderr
// sinks of one invocation. The check happens before each chunk is
// appended, so a single oversized chunk cannot transiently exceed the
// limit before detection.
type outputBudget struct {
	mu        sync.Mutex
	remaining int64
	tripped   bool
	kill      context.CancelFunc
}

type limitWriter struct {
	buf    *bytes.Buffer
	budget *outputBudget
}

func (w *limitWriter) Write(p []byte) (int, error) {
	b := w.budget
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		return 0, errOutputLimit
	}
	if int64(len(p)) > b.remaining {
		b.tripped = true
		b.kill()
		return 0, errOutputLimit
	}
	b.remaining -= int64(len(p))
	return w.buf.Write(p)
}

// Run executes bd with argv, waiting for process exit, timeout, or an
// output-limit trip, whichever comes first.
//
// Outcome normalization on exit code 0: empty or whitespace-only
// stdout yields a nil payload (mutation verbs print human text or
// nothing); valid JSON yields the raw message; non-JSON text is
// treated as a successful unstructured message and also yields nil.
// A zero-exit command is never failed merely for not emitting JSON.
func (e *Executor) Run(ctx context.Context, argv []string, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	display := displayCommand(e.bdPath, argv)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.bdPath, argv...)
	cmd.Dir = e.dir
	cmd.WaitDelay = 5 * time.Second

	budget := &outputBudget{remaining: e.maxOutput, kill: cancel}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, budget: budget}
	cmd.Stderr = &limitWriter{buf: &stderr, budget: budget}

	verb := ""
	if len(argv) > 0 {
		verb = argv[0]
	}

	debug.Logf("exec: %s (timeout %s)", display, timeout)
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		budget.mu.Lock()
		tripped := budget.tripped
		budget.mu.Unlock()

		switch {
		case tripped:
			debug.Logf("exec: %s killed after %s: output over %d bytes", display, elapsed, e.maxOutput)
			telemetry.RecordInvocation(ctx, verb, "output_too_large")
			return nil, &OutputTooLargeError{Command: display, Limit: e.maxOutput}
		case ctx.Err() == context.DeadlineExceeded:
			debug.Logf("exec: %s killed after %s: timeout", display, elapsed)
			telemetry.RecordInvocation(ctx, verb, "timeout")
			return nil, &TimeoutError{Command: display, Timeout: timeout}
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out := stderr.String()
			if strings.TrimSpace(out) == "" {
				out = stdout.String()
			}
			debug.Logf("exec: %s exited %d after %s", display, exitErr.ExitCode(), elapsed)
			telemetry.RecordInvocation(ctx, verb, "failed")
			return nil, &CommandFailedError{Command: display, ExitCode: exitErr.ExitCode(), Output: out}
		}

		dir := e.dir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		debug.Logf("exec: %s spawn failed: %v", display, err)
		telemetry.RecordInvocation(ctx, verb, "spawn_failed")
		return nil, &SpawnFailedError{Command: display, Dir: dir, Path: os.Getenv("PATH"), Err: err}
	}

	debug.Logf("exec: %s ok in %s (%d bytes stdout)", display, elapsed, stdout.Len())
	telemetry.RecordInvocation(ctx, verb, "ok")

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 || !json.Valid(out) {
		return nil, nil
	}
	// Copy out of the buffer so the payload survives reuse.
	return json.RawMessage(bytes.Clone(out)), nil
}

// displayCommand renders an argv for diagnostics. Values with spaces
// are quoted so the line can be pasted into a shell for reproduction.
func displayCommand(bin string, argv []string) string {
	parts := make([]string, 0, len(argv)+1)
	parts = append(parts, bin)
	for _, a := range argv {
		if strings.ContainsAny(a, " \t\n") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
