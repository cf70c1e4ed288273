package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qtree/internal/store"
)

// ArchiveOptions holds flags shared by the archive subcommands.
type ArchiveOptions struct {
	*RootOptions
	DB   string
	Name string
}

// ArchiveEntry is one archived tree as printed by list and put.
type ArchiveEntry struct {
	ID      string   `json:"id"`
	Seq     int64    `json:"seq"`
	Name    string   `json:"name"`
	Entries int      `json:"entries"`
	Records int      `json:"records"`
	Digest  string   `json:"digest"`
	Roots   []string `json:"roots"`
}

// ArchiveList is the output of archive list.
type ArchiveList struct {
	Trees []ArchiveEntry `json:"trees"`
}

func (l ArchiveList) String() string {
	if len(l.Trees) == 0 {
		return "no trees archived"
	}
	var sb strings.Builder
	for i, t := range l.Trees {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%4d  %s  %-16s %d entries, %d records, roots %s",
			t.Seq, t.ID, t.Name, t.Entries, t.Records, strings.Join(t.Roots, ","))
	}
	return sb.String()
}

// NewArchiveCommand creates the archive command and its subcommands.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store binary tree files in a SQLite archive",
		Long: `Manage a SQLite archive of trees. Each archived tree gets a UUIDv7 id
and a sequence number assigned by the archive.

Examples:
  qtree archive put adder8.dat --name adder8
  qtree archive list --db trees.db
  qtree archive get 0190a0b2-... out.dat`,
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "qtree.db", "archive database path")

	put := &cobra.Command{
		Use:   "put <file>",
		Short: "Archive a binary tree file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchivePut(opts, args[0], cmd)
		},
	}
	put.Flags().StringVar(&opts.Name, "name", "", "tree name (default: file name)")

	get := &cobra.Command{
		Use:   "get <id> <file>",
		Short: "Write an archived tree to a binary file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveGet(opts, args[0], args[1], cmd)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived trees in sequence order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(opts, cmd)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an archived tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveRm(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(put, get, list, rm)
	return cmd
}

func openArchive(opts *ArchiveOptions, formatter *OutputFormatter) (*store.Store, error) {
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, "open archive", err)
	}
	formatter.VerboseLog("opened archive %s", opts.DB)
	return st, nil
}

func runArchivePut(opts *ArchiveOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	snap, err := store.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "read "+path, err)
	}
	// Importing proves the file is buildable before it is archived.
	if _, err := opts.importTree(snap); err != nil {
		return formatter.Fail(ExitFailure, "import", err)
	}

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ctx := commandContext(cmd)
	id, err := st.SaveTree(ctx, name, snap)
	if err != nil {
		return formatter.Fail(ExitFailure, "archive", err)
	}
	opts.Logger.Info("archived", "id", id, "name", name)

	infos, err := st.ListTrees(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, "archive", err)
	}
	for _, info := range infos {
		if info.ID == id {
			return formatter.Success(ArchiveList{Trees: []ArchiveEntry{archiveEntry(info)}})
		}
	}
	return formatter.Fail(ExitFailure, "archive", fmt.Errorf("tree %s missing after save", id))
}

func runArchiveGet(opts *ArchiveOptions, id, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.LoadTree(commandContext(cmd), id)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, "archive get", err)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, "archive get", err)
	}
	if err := store.WriteFile(path, snap); err != nil {
		return formatter.Fail(ExitCommandError, "write "+path, err)
	}
	return formatter.Success(fmt.Sprintf("wrote %s to %s", id, path))
}

func runArchiveList(opts *ArchiveOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListTrees(commandContext(cmd))
	if err != nil {
		return formatter.Fail(ExitFailure, "archive list", err)
	}
	out := ArchiveList{Trees: make([]ArchiveEntry, len(infos))}
	for i, info := range infos {
		out.Trees[i] = archiveEntry(info)
	}
	return formatter.Success(out)
}

func runArchiveRm(opts *ArchiveOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openArchive(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteTree(commandContext(cmd), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitCommandError, "archive rm", err)
		}
		return formatter.Fail(ExitFailure, "archive rm", err)
	}
	return formatter.Success("deleted " + id)
}

func archiveEntry(info store.TreeInfo) ArchiveEntry {
	return ArchiveEntry{
		ID:      info.ID,
		Seq:     info.Seq,
		Name:    info.Name,
		Entries: info.NumEntries,
		Records: info.NumRecords,
		Digest:  info.Digest,
		Roots:   info.Roots,
	}
}
