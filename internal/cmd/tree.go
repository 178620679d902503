package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-newfs/common"
	newfs "github.com/mit-pdos/go-newfs/fs"
)

// NewTreeCmd creates the tree subcommand.
func NewTreeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree DEVICE [PATH]",
		Short: "List the directory tree on a device",
		Long: `List every entry under PATH (default /) on DEVICE, newest first within
each directory, with its inode number and size.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Device = args[0]
			root := common.ROOTNAME
			if len(args) == 2 {
				root = args[1]
			}
			if err := cfg.setup(); err != nil {
				return err
			}
			dev, err := cfg.openDevice()
			if err != nil {
				return err
			}
			s, err := newfs.Mount(dev)
			if err != nil {
				dev.Close()
				return fmt.Errorf("mounting `%s`: %w", cfg.Device, err)
			}
			out := cmd.OutOrStdout()
			err = s.Walk(root, func(p string, attr newfs.Attr) error {
				depth := len(components(p)) - len(components(root))
				name := p[strings.LastIndex(p, "/")+1:]
				if depth == 0 {
					name = p
				}
				if attr.Kind == common.KindDir && p != common.ROOTNAME {
					name += "/"
				}
				_, err := fmt.Fprintf(out, "%s%s [ino %d, %d bytes]\n",
					strings.Repeat("  ", depth), name, attr.Ino, attr.Size)
				return err
			})
			if err != nil {
				s.Unmount()
				return err
			}
			return s.Unmount()
		},
	}
	cfg.bindFlags(cmd)
	return cmd
}

func components(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}
