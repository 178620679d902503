package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-newfs/version"
)

// NewRootCmd creates and returns the root cobra command for the newfs CLI.
func NewRootCmd() *cobra.Command {
	cfg, cfgErr := LoadConfig()
	if cfgErr != nil {
		cfg = defaultConfig()
	}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "newfs - a minimal single-device file system",
		Long: `newfs keeps a directory tree on a flat block device using an inode bitmap,
a data bitmap and a fixed number of direct blocks per inode.

Use subcommands to perform different operations:
  - mount: Serve a device through FUSE
  - mkfs: Lay out an empty file system on a device
  - stat: Show the superblock and free space of a device
  - tree: List the directory tree stored on a device

Configuration is read from NEWFS_CONFIG_FILE (YAML) and NEWFS_* environment
variables; flags override both.`,
		Version: version.GetFullVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfgErr
		},
		SilenceUsage: true,
	}

	groupFilesystem := "filesystem"
	groupUtilities := "utilities"
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFilesystem,
		Title: "Filesystem Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	mountCmd := NewMountCmd(cfg)
	mkfsCmd := NewMkfsCmd(cfg)
	statCmd := NewStatCmd(cfg)
	treeCmd := NewTreeCmd(cfg)

	mountCmd.GroupID = groupFilesystem
	mkfsCmd.GroupID = groupFilesystem
	statCmd.GroupID = groupUtilities
	treeCmd.GroupID = groupUtilities

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(mkfsCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(treeCmd)

	return rootCmd
}
