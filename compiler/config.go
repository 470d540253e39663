// Package compiler orchestrates Bish's full pipeline — parse, link,
// parent-wire, type-check, lower, generate — behind a single Driver, and
// resolves the ambient configuration (stdlib path, library mode, target
// backend) the CLI front end exposes.
package compiler

import "os"

// Option configures a Config, grounded on the teacher's analyzer.Option
// functional-options pattern (analyzer/option.go).
type Option func(*Config)

// Config carries the flags spec §6 requires the core to accept.
type Config struct {
	// StdlibPath is the resolved standard-library directory; imports
	// resolving into it get the unqualified-call special case (spec §4.5).
	StdlibPath string
	// Library omits the synthetic call to main (the `-l` flag).
	Library bool
	// Backend selects a registered codegen.Registry entry; "bash" if unset.
	Backend string
}

// NewConfig builds a Config, applying defaults before opts: StdlibPath
// from BISH_STDLIB unless overridden, Backend defaulting to "bash".
func NewConfig(opts ...Option) *Config {
	c := &Config{
		StdlibPath: os.Getenv("BISH_STDLIB"),
		Backend:    "bash",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithStdlibPath overrides the resolved standard-library directory.
func WithStdlibPath(path string) Option {
	return func(c *Config) { c.StdlibPath = path }
}

// WithLibrary sets library-compilation mode (the `-l` flag).
func WithLibrary(library bool) Option {
	return func(c *Config) { c.Library = library }
}

// WithBackend selects a non-default registered backend (the `-u` flag).
func WithBackend(name string) Option {
	return func(c *Config) { c.Backend = name }
}
