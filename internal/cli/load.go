package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/store"
)

// RootResult describes one named output.
type RootResult struct {
	Name      string `json:"name"`
	Canonical string `json:"canonical,omitempty"`
	Truth     string `json:"truth,omitempty"`
}

// TreeResult summarizes a tree.
type TreeResult struct {
	Source  string       `json:"source"`
	Entries []string     `json:"entries"`
	Roots   []RootResult `json:"roots"`
	Groups  int          `json:"groups"`
	Nodes   int          `json:"nodes"`
}

func (r TreeResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d entries, %d roots, %d groups, %d nodes", r.Source, len(r.Entries), len(r.Roots), r.Groups, r.Nodes)
	for _, root := range r.Roots {
		fmt.Fprintf(&sb, "\n  %s", root.Name)
		if root.Canonical != "" {
			fmt.Fprintf(&sb, " = %s", root.Canonical)
		}
		if root.Truth != "" {
			fmt.Fprintf(&sb, "  %s", root.Truth)
		}
	}
	return sb.String()
}

// describeTree summarizes tree. Root notation is included when expand is
// set; it grows with the size of the circuit.
func describeTree(source string, tree *engine.Tree, expand bool) (TreeResult, error) {
	st := tree.Stats()
	res := TreeResult{Source: source, Groups: st.Groups, Nodes: st.Nodes}
	for i := 0; i < tree.NumEntries(); i++ {
		res.Entries = append(res.Entries, tree.EntryName(i))
	}

	var ev *engine.Evaluation
	if expand && tree.NumEntries() <= 6 {
		var err error
		if ev, err = tree.Evaluate(engine.ExhaustiveInputs(tree.NumEntries())); err != nil {
			return TreeResult{}, err
		}
	}
	for _, root := range tree.Roots() {
		rr := RootResult{Name: root.Name}
		if expand {
			s, err := tree.SaveString(root.Ref, false)
			if err != nil {
				return TreeResult{}, fmt.Errorf("root %s: %w", root.Name, err)
			}
			rr.Canonical = s
		}
		if ev != nil {
			rr.Truth = fmt.Sprintf("%016x", ev.Value(root.Ref))
		}
		res.Roots = append(res.Roots, rr)
	}
	return res, nil
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var expand bool

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a binary tree file and print its roots",
		Long: `Load a binary tree file, rebuild it through the Normalizer and print
its roots. Files written against a different signature database are
rejected unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], expand, cmd)
		},
	}

	cmd.Flags().BoolVar(&expand, "expand", true, "print root notation")

	return cmd
}

func runLoad(opts *RootOptions, path string, expand bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	snap, err := store.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "read "+path, err)
	}
	tree, err := opts.importTree(snap)
	if err != nil {
		return formatter.Fail(ExitFailure, "import", err)
	}
	res, err := describeTree(path, tree, expand)
	if err != nil {
		return formatter.Fail(ExitFailure, "load", err)
	}
	opts.reportMetrics(cmd, "load", tree)
	return formatter.Success(res)
}
