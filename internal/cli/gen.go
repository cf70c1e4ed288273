package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/qtree/internal/circuit"
	"github.com/roach88/qtree/internal/sigdb"
	"github.com/roach88/qtree/internal/store"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Out    string
	Expand bool
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen <generator> [size]",
		Short: "Build a generated circuit",
		Long: fmt.Sprintf(`Build a circuit family member node by node.

Generators: %v. Size defaults to 1.

Examples:
  qtree gen adder 8 --out adder8.dat
  qtree gen mix 4 --verbose`, circuit.Names()),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid size %q", args[1]))
				}
				size = n
			}
			return runGen(opts, args[0], size, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the tree to a binary file")
	cmd.Flags().BoolVar(&opts.Expand, "expand", false, "print root notation")

	return cmd
}

func runGen(opts *GenOptions, name string, size int, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	gen, err := circuit.Lookup(name, size)
	if err != nil {
		return formatter.Fail(ExitCommandError, "gen", err)
	}
	opts.Logger.Info("generate", "generator", gen.Name, "entries", gen.Layout.Total())

	tree, err := gen.Run(sigdb.New(), opts.Settings.EngineOptions(opts.Logger)...)
	if err != nil {
		return formatter.Fail(ExitFailure, "gen", err)
	}
	if opts.Out != "" {
		snap, err := tree.Export()
		if err != nil {
			return formatter.Fail(ExitFailure, "export", err)
		}
		if err := store.WriteFile(opts.Out, snap); err != nil {
			return formatter.Fail(ExitCommandError, "write "+opts.Out, err)
		}
		formatter.VerboseLog("wrote %d records to %s", len(snap.Records), opts.Out)
	}

	res, err := describeTree(gen.Name, tree, opts.Expand)
	if err != nil {
		return formatter.Fail(ExitFailure, "gen", err)
	}
	opts.reportMetrics(cmd, gen.Name, tree)
	return formatter.Success(res)
}
