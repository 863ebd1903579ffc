package cliexec

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

// sh builds an Executor that runs /bin/sh, letting tests script the
// external process without a bd binary.
func sh(t *testing.T) *Executor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests script /bin/sh")
	}
	return New("/bin/sh", t.TempDir())
}

func TestRunEmptyStdoutIsNilPayload(t *testing.T) {
	e := sh(t)
	raw, err := e.Run(context.Background(), []string{"-c", "exit 0"}, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload, got %q", string(raw))
	}
}

func TestRunWhitespaceStdoutIsNilPayload(t *testing.T) {
	e := sh(t)
	raw, err := e.Run(context.Background(), []string{"-c", `printf '  \n\t\n'`}, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload, got %q", string(raw))
	}
}

func TestRunParsesJSON(t *testing.T) {
	e := sh(t)
	raw, err := e.Run(context.Background(), []string{"-c", `echo '{"id":"bd-1","title":"x"}'`}, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), `"bd-1"`) {
		t.Fatalf("unexpected payload: %q", string(raw))
	}
}

func TestRunNonJSONSuccessIsNilPayload(t *testing.T) {
	e := sh(t)
	raw, err := e.Run(context.Background(), []string{"-c", "echo issue updated"}, 5*time.Second)
	if err != nil {
		t.Fatalf("zero-exit non-JSON output must not fail: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload, got %q", string(raw))
	}
}

func TestRunNonZeroExit(t *testing.T) {
	e := sh(t)
	_, err := e.Run(context.Background(), []string{"-c", "echo bad id >&2; exit 3"}, 5*time.Second)
	var cmdErr *CommandFailedError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandFailedError, got %T: %v", err, err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", cmdErr.ExitCode)
	}
	if !strings.Contains(cmdErr.Output, "bad id") {
		t.Errorf("stderr not captured: %q", cmdErr.Output)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	e := sh(t)
	start := time.Now()
	_, err := e.Run(context.Background(), []string{"-c", "sleep 30"}, 100*time.Millisecond)
	elapsed := time.Since(start)

	var toErr *TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	if elapsed > 10*time.Second {
		t.Fatalf("process not killed on timeout (took %s)", elapsed)
	}
}

func TestRunOutputOneByteOverLimit(t *testing.T) {
	e := sh(t)
	e.SetMaxOutput(16)
	// 17 bytes: one over the ceiling. The check runs before the chunk
	// is appended, so the call must fail rather than transiently hold
	// oversized output.
	_, err := e.Run(context.Background(), []string{"-c", `printf 'aaaaaaaaaaaaaaaaa'`}, 5*time.Second)
	var bigErr *OutputTooLargeError
	if !errors.As(err, &bigErr) {
		t.Fatalf("expected *OutputTooLargeError, got %T: %v", err, err)
	}
	if bigErr.Limit != 16 {
		t.Errorf("limit = %d, want 16", bigErr.Limit)
	}
}

func TestRunOutputAtLimitSucceeds(t *testing.T) {
	e := sh(t)
	e.SetMaxOutput(16)
	_, err := e.Run(context.Background(), []string{"-c", `printf 'aaaaaaaaaaaaaaaa'`}, 5*time.Second)
	if err != nil {
		t.Fatalf("output exactly at the limit must pass: %v", err)
	}
}

func TestRunOutputLimitTerminatesStreamingProcess(t *testing.T) {
	e := sh(t)
	e.SetMaxOutput(1024)
	start := time.Now()
	// Stream well past the limit, then try to linger. The limit trip
	// must kill the process rather than wait out the sleep.
	_, err := e.Run(context.Background(),
		[]string{"-c", `i=0; while [ $i -lt 100 ]; do printf '%01024d' $i; i=$((i+1)); done; sleep 30`},
		60*time.Second)
	elapsed := time.Since(start)

	var bigErr *OutputTooLargeError
	if !errors.As(err, &bigErr) {
		t.Fatalf("expected *OutputTooLargeError, got %T: %v", err, err)
	}
	if elapsed > 15*time.Second {
		t.Fatalf("process survived the limit trip (took %s)", elapsed)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	e := New("/nonexistent/bdboard-test-binary", "")
	_, err := e.Run(context.Background(), []string{"list"}, 5*time.Second)
	var spawnErr *SpawnFailedError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected *SpawnFailedError, got %T: %v", err, err)
	}
	// The message must carry enough context to self-diagnose.
	msg := spawnErr.Error()
	for _, want := range []string{"/nonexistent/bdboard-test-binary", "PATH"} {
		if !strings.Contains(msg, want) {
			t.Errorf("spawn error missing %q: %s", want, msg)
		}
	}
}

func TestDisplayCommandQuotesSpaces(t *testing.T) {
	got := displayCommand("bd", []string{"create", "--", "two words"})
	if !strings.Contains(got, `"two words"`) {
		t.Errorf("displayCommand = %q", got)
	}
}
