package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/qtree/internal/store"
)

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <file> <expr>...",
		Short: "Build expressions and write the tree to a binary file",
		Long: `Build each expression as a named root and write the groups they reach
to a binary tree file. Arguments follow the eval syntax (name=expr).`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Keys, "keys", "k", 0, "number of entry points (default: inferred)")

	return cmd
}

func runSave(opts *EvalOptions, path string, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	tree, result, err := buildExprs(opts.RootOptions, opts.Keys, args)
	if err != nil {
		return formatter.Fail(ExitFailure, "save", err)
	}
	snap, err := tree.Export()
	if err != nil {
		return formatter.Fail(ExitFailure, "export", err)
	}
	if err := store.WriteFile(path, snap); err != nil {
		return formatter.Fail(ExitCommandError, "write "+path, err)
	}
	formatter.VerboseLog("wrote %d records to %s", len(snap.Records), path)
	opts.reportMetrics(cmd, "save", tree)
	return formatter.Success(result)
}
