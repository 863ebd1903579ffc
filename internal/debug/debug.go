// Package debug is the diagnostics channel. Raw failure detail (exit
// codes, stderr, breaker transitions) goes here, never to end users;
// the UI sees only the typed errors with remedial hints.
//
// Output is off unless BDBOARD_DEBUG is set or SetVerbose(true) was
// called. Lines go to stderr as structured zerolog console output.
package debug

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu          sync.Mutex
	enabled     = os.Getenv("BDBOARD_DEBUG") != ""
	verboseMode = false
	logger      = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
)

// Enabled reports whether diagnostics output is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled || verboseMode
}

// SetVerbose enables or disables diagnostics output at runtime,
// overriding the BDBOARD_DEBUG default.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = verbose
}

// SetOutput redirects diagnostics, primarily for tests.
func SetOutput(w zerolog.ConsoleWriter) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// Logf writes one diagnostics line if enabled.
func Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Debug().Msgf(format, args...)
}

// Warnf writes one warning-level diagnostics line if enabled.
func Warnf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Warn().Msgf(format, args...)
}
