package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// fileConfig is the decoded form of a configuration file. Absent fields
// leave the current setting untouched.
type fileConfig struct {
	MaxNodes *int     `json:"maxnode"`
	MaxDepth *int     `json:"maxdepth"`
	Timer    *float64 `json:"timer"`
	Paranoid *bool    `json:"paranoid"`
	Pure     *bool    `json:"pure"`
	Rewrite  *bool    `json:"rewrite"`
	Cascade  *bool    `json:"cascade"`
	Force    *bool    `json:"force"`
	Format   *string  `json:"format"`
	Verbose  *int     `json:"verbose"`
	Quiet    *int     `json:"quiet"`
}

// ConfigError reports an invalid configuration file.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads a CUE configuration file and applies it over base.
func LoadFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data, base)
}

// Parse validates CUE source against the schema and applies it over base.
func Parse(filename string, src []byte, base Options) (Options, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return base, fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return base, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return base, formatCUEError(err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return base, formatCUEError(err)
	}
	return fc.apply(base), nil
}

func (fc fileConfig) apply(o Options) Options {
	if fc.MaxNodes != nil {
		o.MaxNodes = *fc.MaxNodes
	}
	if fc.MaxDepth != nil {
		o.MaxDepth = *fc.MaxDepth
	}
	if fc.Timer != nil {
		o.Timer = time.Duration(*fc.Timer * float64(time.Second))
	}
	if fc.Paranoid != nil {
		o.Paranoid = *fc.Paranoid
	}
	if fc.Pure != nil {
		o.Pure = *fc.Pure
	}
	if fc.Rewrite != nil {
		o.Rewrite = *fc.Rewrite
	}
	if fc.Cascade != nil {
		o.Cascade = *fc.Cascade
	}
	if fc.Force != nil {
		o.Force = *fc.Force
	}
	if fc.Format != nil {
		o.Format = *fc.Format
	}
	if fc.Verbose != nil {
		o.Verbosity += *fc.Verbose
	}
	if fc.Quiet != nil {
		o.Verbosity -= *fc.Quiet
	}
	return o
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	ce := &ConfigError{Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		ce.Field = path[len(path)-1]
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
