package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/cliflagv2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
)

const (
	appName    = "spp-print"
	configFile = "spp-print.conf"
)

// Config describes the configuration for the app.
type Config struct {
	path string

	Values Values
}

// NewConfig returns a new configuration holding the default values.
func NewConfig() *Config {
	return &Config{Values: DefaultValues()}
}

// Load reads the configuration file from dir, or from the user configuration
// directory when dir is empty, and then overlays the command-line flags that
// were set on cliCtx. A nil cliCtx skips the flags.
func (c *Config) Load(k *koanf.Koanf, dir string, cliCtx *cli.Context) error {
	if err := c.createConfigDir(dir); err != nil {
		return err
	}

	cfgfile, err := c.FilePath(configFile)
	if err != nil {
		return err
	}

	if err := k.Load(file.Provider(cfgfile), hjson.Parser()); err != nil {
		return fmt.Errorf("%s: %w", cfgfile, err)
	}

	if cliCtx != nil {
		if err := k.Load(cliflagv2.Provider(cliCtx, "."), nil); err != nil {
			return err
		}
	}

	return k.UnmarshalWithConf("", &c.Values, koanf.UnmarshalConf{Tag: "koanf"})
}

// Dir returns the configuration directory in use.
func (c *Config) Dir() string {
	return c.path
}

// createConfigDir checks for and/or creates the configuration directory.
func (c *Config) createConfigDir(dir string) error {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(base, appName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("the configuration directory could not be created at %s: %w", dir, err)
	}
	c.path = dir

	return nil
}

// FilePath returns the absolute path for the given configuration file,
// creating it empty if it does not exist yet.
func (c *Config) FilePath(name string) (string, error) {
	confPath := filepath.Join(c.path, name)

	if _, err := os.Stat(confPath); err != nil {
		fd, err := os.Create(confPath)
		if err != nil {
			return "", fmt.Errorf("cannot create %s file at %s: %w", name, confPath, err)
		}
		fd.Close()
	}

	return confPath, nil
}
