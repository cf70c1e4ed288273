package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/sigdb"
)

// SigdbInfo describes the signature database.
type SigdbInfo struct {
	Checksum   string   `json:"checksum"`
	Signatures int      `json:"signatures"`
	Names      []string `json:"names,omitempty"`
}

func (i SigdbInfo) String() string {
	s := fmt.Sprintf("signature database %s: %d signatures", i.Checksum, i.Signatures)
	if len(i.Names) > 0 {
		s += "\n" + strings.Join(i.Names, "\n")
	}
	return s
}

// NewSigdbCommand creates the sigdb command.
func NewSigdbCommand(rootOpts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "sigdb",
		Short: "Describe the signature database",
		Long: `Print the checksum and size of the built-in signature database.
Binary tree files record the checksum they were written against.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db := sigdb.New()
			info := SigdbInfo{
				Checksum:   fmt.Sprintf("%08x", db.Checksum()),
				Signatures: db.NumSignatures(),
			}
			if list {
				for sid := ir.SidFirst; sid < uint32(db.NumSignatures()); sid++ {
					if sig := db.Signature(sid); sig != nil {
						info.Names = append(info.Names, fmt.Sprintf("%d\t%s", sig.ID, sig.Name))
					}
				}
			}
			return rootOpts.formatter(cmd).Success(info)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list every signature")

	return cmd
}
