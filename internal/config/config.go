// Package config holds the engine and CLI options: defaults, an optional
// CUE configuration file validated against an embedded schema, and the
// mapping onto engine options.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/qtree/internal/engine"
)

// Options are the user-facing settings of a build.
type Options struct {
	MaxNodes  int
	MaxDepth  int
	Timer     time.Duration
	Paranoid  bool
	Pure      bool
	Rewrite   bool
	Cascade   bool
	Force     bool
	Format    string
	Verbosity int // negative is quieter, positive is louder
}

// Default returns the built-in settings.
func Default() Options {
	return Options{
		MaxNodes: engine.DefaultMaxNodes,
		MaxDepth: engine.DefaultMaxDepth,
		Rewrite:  true,
		Cascade:  true,
		Format:   "text",
	}
}

// Validate checks option ranges that flags can set outside the schema.
func (o Options) Validate() error {
	if o.MaxNodes < 64 {
		return fmt.Errorf("maxnode must be at least 64, got %d", o.MaxNodes)
	}
	if o.MaxDepth < 1 {
		return fmt.Errorf("maxdepth must be at least 1, got %d", o.MaxDepth)
	}
	if o.Timer < 0 {
		return fmt.Errorf("timer must not be negative")
	}
	switch o.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", o.Format)
	}
	return nil
}

// EngineOptions maps the settings onto engine options.
func (o Options) EngineOptions(logger *slog.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithMaxNodes(o.MaxNodes),
		engine.WithMaxDepth(o.MaxDepth),
		engine.WithParanoid(o.Paranoid),
		engine.WithPure(o.Pure),
		engine.WithRewrite(o.Rewrite),
		engine.WithCascade(o.Cascade),
		engine.WithTimer(o.Timer),
	}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	return opts
}

// LogLevel maps Verbosity onto a slog level.
func (o Options) LogLevel() slog.Level {
	switch {
	case o.Verbosity <= -2:
		return slog.LevelError
	case o.Verbosity == -1:
		return slog.LevelWarn
	case o.Verbosity == 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
