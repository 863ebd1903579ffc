// Package config loads the options the board client consumes at
// construction time. Values come from bdboard.yaml in the workspace,
// overridden by BDBOARD_* environment variables; this package owns no
// durable state of its own.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend selects which implementation of the board contract to build.
type Backend string

// Backend constants. BackendCLI shells out to the bd executable;
// BackendDirect is the embedded-database adapter, provided by a
// separate component.
const (
	BackendCLI    Backend = "cli"
	BackendDirect Backend = "direct"
)

// Options are the plain values the client façade reads at
// construction time.
type Options struct {
	// BdPath is the bd executable to invoke. Default "bd" (PATH lookup).
	BdPath string
	// Workspace is the working directory for bd invocations.
	Workspace string
	// MaxIssues caps how many issues one board load requests.
	MaxIssues int
	// ReadOnly makes every mutation fail locally without spawning.
	ReadOnly bool
	// Backend selects the adapter implementation.
	Backend Backend
	// Timeout is the per-invocation wall-clock budget.
	Timeout time.Duration
	// CacheTTL bounds column cache staleness.
	CacheTTL time.Duration
}

// Defaults for unset options.
const (
	DefaultBdPath    = "bd"
	DefaultMaxIssues = 500
	DefaultTimeout   = 30 * time.Second
	DefaultCacheTTL  = 30 * time.Second
)

// Load reads bdboard.yaml from workspace (if present) plus BDBOARD_*
// environment overrides and returns resolved options. A missing
// config file is not an error; every option has a default.
func Load(workspace string) (*Options, error) {
	v := viper.New()
	v.SetConfigName("bdboard")
	v.SetConfigType("yaml")
	if workspace != "" {
		v.AddConfigPath(workspace)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("BDBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("bd-path", DefaultBdPath)
	v.SetDefault("max-issues", DefaultMaxIssues)
	v.SetDefault("read-only", false)
	v.SetDefault("backend", string(BackendCLI))
	v.SetDefault("timeout-seconds", int(DefaultTimeout/time.Second))
	v.SetDefault("cache-ttl-seconds", int(DefaultCacheTTL/time.Second))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading bdboard.yaml: %w", err)
		}
	}

	opts := &Options{
		BdPath:    v.GetString("bd-path"),
		Workspace: workspace,
		MaxIssues: v.GetInt("max-issues"),
		ReadOnly:  v.GetBool("read-only"),
		Backend:   Backend(v.GetString("backend")),
		Timeout:   time.Duration(v.GetInt("timeout-seconds")) * time.Second,
		CacheTTL:  time.Duration(v.GetInt("cache-ttl-seconds")) * time.Second,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate applies defaults to zero values and rejects nonsense.
func (o *Options) Validate() error {
	if o.BdPath == "" {
		o.BdPath = DefaultBdPath
	}
	if o.MaxIssues <= 0 {
		o.MaxIssues = DefaultMaxIssues
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	switch o.Backend {
	case "", BackendCLI:
		o.Backend = BackendCLI
	case BackendDirect:
	default:
		return fmt.Errorf("unknown backend %q (expected %q or %q)", o.Backend, BackendCLI, BackendDirect)
	}
	return nil
}
