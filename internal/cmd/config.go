package cmd

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-newfs/common"
	"github.com/mit-pdos/go-newfs/disk"
	"github.com/mit-pdos/go-newfs/util"
)

const (
	envVarPrefix = "NEWFS"
	appName      = "newfs"

	backendFile  = "file"
	backendGoose = "goose"
)

// Config is read from an optional YAML file, then from NEWFS_* environment
// variables, then from command-line flags, each overriding the last.
type Config struct {
	Device     string `envconfig:"DEVICE"      yaml:"device"`
	IOSize     uint64 `envconfig:"IO_SIZE"     yaml:"ioSize"`
	DeviceSize uint64 `envconfig:"DEVICE_SIZE" yaml:"deviceSize"`
	Debug      uint64 `envconfig:"DEBUG"       yaml:"debug"`
	FSName     string `envconfig:"FS_NAME"     yaml:"fsName"`
	Backend    string `envconfig:"BACKEND"     yaml:"backend"` // "file" or "goose"
}

func defaultConfig() *Config {
	return &Config{IOSize: common.IOSZ, DeviceSize: common.DISKSZ, FSName: appName, Backend: backendFile}
}

// LoadConfig starts from the defaults, then reads the file named by
// NEWFS_CONFIG_FILE, if set, and then the environment.
func LoadConfig() (*Config, error) {
	c := defaultConfig()
	if configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE"); configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}
	if err := envconfig.Process(envVarPrefix, c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("missing required configuration: device / %s_DEVICE", envVarPrefix)
	}
	if c.IOSize == 0 {
		return fmt.Errorf("invalid configuration: io size %d", c.IOSize)
	}
	if c.Backend != backendFile && c.Backend != backendGoose {
		return fmt.Errorf("invalid configuration: backend `%s`", c.Backend)
	}
	if c.Backend == backendGoose && c.DeviceSize == 0 {
		return fmt.Errorf("invalid configuration: the goose backend needs a device size")
	}
	if c.DeviceSize != 0 && c.DeviceSize%c.IOSize != 0 {
		return fmt.Errorf("invalid configuration: device size %d is not a multiple of io size %d",
			c.DeviceSize, c.IOSize)
	}
	return nil
}

// bindFlags registers the flags shared by every subcommand that opens a
// device; their defaults come from c.
func (c *Config) bindFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&c.IOSize, "io-size", c.IOSize, "device I/O unit in bytes")
	cmd.Flags().Uint64Var(&c.DeviceSize, "size", c.DeviceSize, "device size in bytes (0: size of the existing file)")
	cmd.Flags().Uint64Var(&c.Debug, "debug", c.Debug, "debug print level")
	cmd.Flags().StringVar(&c.Backend, "backend", c.Backend, "device backend: file or goose")
}

// setup validates the final configuration and applies the logging level.
func (c *Config) setup() error {
	if err := c.Validate(); err != nil {
		return err
	}
	util.SetDebug(c.Debug)
	log.WithFields(log.Fields{
		"device":  c.Device,
		"io_size": c.IOSize,
		"size":    c.DeviceSize,
	}).Debug("configuration")
	return nil
}

// openDevice opens the configured device file, creating it if needed.
func (c *Config) openDevice() (disk.Device, error) {
	if c.Backend == backendGoose {
		return disk.OpenGooseFile(c.Device, c.DeviceSize, c.IOSize)
	}
	return disk.OpenFile(c.Device, c.DeviceSize, c.IOSize)
}
