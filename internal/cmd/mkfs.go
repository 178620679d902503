package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	newfs "github.com/mit-pdos/go-newfs/fs"
)

// NewMkfsCmd creates the mkfs subcommand.
func NewMkfsCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkfs DEVICE",
		Short: "Format a device",
		Long: `Lay out an empty newfs file system on DEVICE, discarding whatever it held.

DEVICE is created at the configured size if it does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Device = args[0]
			if err := cfg.setup(); err != nil {
				return err
			}
			dev, err := cfg.openDevice()
			if err != nil {
				return err
			}
			s, err := newfs.Format(dev)
			if err != nil {
				dev.Close()
				return fmt.Errorf("formatting `%s`: %w", cfg.Device, err)
			}
			sb := s.Super()
			fmt.Fprintf(cmd.OutOrStdout(), "formatted %s: uuid %s, %d inodes, %d data blocks of %d bytes\n",
				cfg.Device, sb.UUID, sb.MaxIno, sb.MaxData, sb.BlkSize)
			return s.Unmount()
		},
	}
	cfg.bindFlags(cmd)
	return cmd
}
