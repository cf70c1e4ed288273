package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/qtree/internal/config"
	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/metrics"
	"github.com/roach88/qtree/internal/sigdb"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Format     string // "json" | "text"
	Force      bool
	MaxNodes   int
	MaxDepth   int
	Timer      int // seconds
	Quiet      int
	Verbose    int

	// Resolved by PersistentPreRunE.
	Settings config.Options
	Logger   *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// switchFlags are the boolean engine options with a --no- form.
var switchFlags = []struct {
	name, usage string
}{
	{"paranoid", "validate the tree after every top-level call"},
	{"pure", "keep only single-operator signatures as group members"},
	{"rewrite", "search alternative encodings of every node"},
	{"cascade", "re-expand multi-node results"},
}

// NewRootCommand creates the root command for the qtree CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qtree",
		Short: "qtree - canonicalizing group tree for Q?T:F logic networks",
		Long: `Build, canonicalize and store logic networks of Q ? T : F operators.

Expressions use postfix notation: endpoints a-z, '0' for false, '~' to
invert, operators + > ^ & ? ! and digits for back-references.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "CUE configuration file")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.BoolVar(&opts.Force, "force", false, "accept files built against a different signature database")
	pf.IntVar(&opts.MaxNodes, "maxnode", 0, "arena capacity in nodes")
	pf.IntVar(&opts.MaxDepth, "maxdepth", 0, "Normalizer recursion depth")
	pf.IntVar(&opts.Timer, "timer", 0, "progress log interval in seconds")
	pf.IntVarP(&opts.Verbose, "verbose", "v", 0, "increase log output")
	pf.Lookup("verbose").NoOptDefVal = "1"
	pf.IntVarP(&opts.Quiet, "quiet", "q", 0, "decrease log output")
	pf.Lookup("quiet").NoOptDefVal = "1"
	for _, s := range switchFlags {
		pf.Bool(s.name, false, s.usage)
		pf.Bool("no-"+s.name, false, "disable --"+s.name)
	}

	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSigdbCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// resolve layers defaults, the config file and explicit flags into
// Settings, then builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	s := config.Default()
	if o.ConfigFile != "" {
		loaded, err := config.LoadFile(o.ConfigFile, s)
		if err != nil {
			return WrapExitError(ExitCommandError, "config", err)
		}
		s = loaded
	}

	pf := cmd.Flags()
	if pf.Changed("format") {
		s.Format = o.Format
	}
	if pf.Changed("force") {
		s.Force = o.Force
	}
	if pf.Changed("maxnode") {
		s.MaxNodes = o.MaxNodes
	}
	if pf.Changed("maxdepth") {
		s.MaxDepth = o.MaxDepth
	}
	if pf.Changed("timer") {
		s.Timer = time.Duration(o.Timer) * time.Second
	}
	if pf.Changed("verbose") || pf.Changed("quiet") {
		s.Verbosity = o.Verbose - o.Quiet
	}
	for _, sw := range switchFlags {
		on, err := switchValue(pf, sw.name)
		if err != nil {
			return NewExitError(ExitCommandError, err.Error())
		}
		if on == nil {
			continue
		}
		switch sw.name {
		case "paranoid":
			s.Paranoid = *on
		case "pure":
			s.Pure = *on
		case "rewrite":
			s.Rewrite = *on
		case "cascade":
			s.Cascade = *on
		}
	}
	if err := s.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "options", err)
	}

	o.Settings = s
	o.Format = s.Format
	o.Logger = newLogger(cmd.ErrOrStderr(), s)
	return nil
}

// switchValue returns the explicit setting of --name/--no-name, or nil
// when neither was given.
func switchValue(fs *pflag.FlagSet, name string) (*bool, error) {
	on, off := fs.Changed(name), fs.Changed("no-"+name)
	if on && off {
		return nil, fmt.Errorf("--%s and --no-%s are mutually exclusive", name, name)
	}
	if !on && !off {
		return nil, nil
	}
	v, err := fs.GetBool(name)
	if err != nil {
		return nil, err
	}
	if off {
		nv, err := fs.GetBool("no-" + name)
		if err != nil {
			return nil, err
		}
		v = !nv
	}
	return &v, nil
}

// newLogger writes single-line JSON when asked to or when w is not a
// terminal, text otherwise.
func newLogger(w io.Writer, s config.Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: s.LogLevel()}
	if s.Format == "json" || !isTerminal(w) {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Settings.Verbosity > 0,
	}
}

// newTree creates an empty tree with the resolved settings.
func (o *RootOptions) newTree(layout engine.Layout) (*engine.Tree, error) {
	return engine.New(sigdb.New(), layout, o.Settings.EngineOptions(o.Logger)...)
}

// importTree rebuilds a snapshot with the resolved settings.
func (o *RootOptions) importTree(snap *engine.Snapshot) (*engine.Tree, error) {
	return engine.Import(sigdb.New(), snap, o.Settings.Force, o.Settings.EngineOptions(o.Logger)...)
}

// reportMetrics writes the tree's counters to stderr in verbose mode.
func (o *RootOptions) reportMetrics(cmd *cobra.Command, name string, tree *engine.Tree) {
	if o.Settings.Verbosity <= 0 {
		return
	}
	reg, err := metrics.NewRegistry(map[string]metrics.StatsSource{name: tree})
	if err == nil {
		err = metrics.WriteText(cmd.ErrOrStderr(), reg)
	}
	if err != nil {
		o.Logger.Warn("metrics", "error", err)
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
