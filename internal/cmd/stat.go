package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	newfs "github.com/mit-pdos/go-newfs/fs"
)

// NewStatCmd creates the stat subcommand.
func NewStatCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat DEVICE",
		Short: "Show superblock and usage of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Device = args[0]
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
			st, err := s.Statfs()
			if err != nil {
				s.Unmount()
				return err
			}
			sb := s.Super()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			fmt.Fprintf(w, "uuid:\t%s\n", sb.UUID)
			fmt.Fprintf(w, "device size:\t%d\n", sb.DiskSize)
			fmt.Fprintf(w, "io size:\t%d\n", sb.IOSize)
			fmt.Fprintf(w, "block size:\t%d\n", sb.BlkSize)
			fmt.Fprintf(w, "inode table:\t%d\n", sb.InodeOff)
			fmt.Fprintf(w, "data area:\t%d\n", sb.DataOff)
			fmt.Fprintf(w, "inodes:\t%d/%d free\n", st.FilesFree, st.Files)
			fmt.Fprintf(w, "data blocks:\t%d/%d free\n", st.BlocksFree, st.Blocks)
			fmt.Fprintf(w, "used bytes:\t%d\n", st.Used)
			if err := w.Flush(); err != nil {
				s.Unmount()
				return err
			}
			return s.Unmount()
		},
	}
	cfg.bindFlags(cmd)
	return cmd
}
