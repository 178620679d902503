package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	newfs "github.com/mit-pdos/go-newfs/fs"
	"github.com/mit-pdos/go-newfs/fusefs"
	"github.com/mit-pdos/go-newfs/version"
)

// NewMountCmd creates the mount subcommand, which serves a device at a
// mountpoint until it is unmounted or interrupted.
func NewMountCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount DEVICE MOUNTPOINT",
		Short: "Mount a newfs device",
		Long: `Mount the file system on DEVICE at MOUNTPOINT.

A device without a newfs superblock is formatted first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Device = args[0]
			return runMount(cfg, args[1])
		},
	}
	cfg.bindFlags(cmd)
	cmd.Flags().StringVar(&cfg.FSName, "fsname", cfg.FSName, "file system name shown by the host")
	return cmd
}

func runMount(cfg *Config, mountpoint string) error {
	if err := cfg.setup(); err != nil {
		return err
	}
	log.Infof("newfs %s starting...", version.GetFullVersion())

	dev, err := cfg.openDevice()
	if err != nil {
		return err
	}
	s, err := newfs.Mount(dev)
	if err != nil {
		dev.Close()
		return fmt.Errorf("mounting `%s`: %w", cfg.Device, err)
	}
	filesystem := fusefs.NewFS(s)

	c, err := fuse.Mount(
		mountpoint,
		fuse.FSName(cfg.FSName),
		fuse.Subtype(appName),
	)
	if err != nil {
		s.Unmount()
		return err
	}
	defer c.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Info("Received interrupt signal, shutting down...")
		if err := fuse.Unmount(mountpoint); err != nil {
			log.Errorf("unmounting %s: %v", mountpoint, err)
		}
	}()

	log.Infof("newfs %s mounted at %s (device: %s)", version.GetVersion(), mountpoint, cfg.Device)
	err = fs.Serve(c, filesystem)
	// the kernel may already have destroyed the file system
	if uerr := s.Unmount(); uerr != nil {
		log.Errorf("unmounting %s: %v", cfg.Device, uerr)
		if err == nil {
			err = uerr
		}
	}
	if err != nil {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}
