// Package config loads shipc's configuration file.
//
// The file is looked up, in order, at the --config flag, the SHIPC_CONFIG
// environment variable, and shipc/config.yaml under the XDG config
// directories. A missing file means defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = "SHIPC_CONFIG"

// Relative path of the config file under the XDG config directories.
const xdgRelPath = "shipc/config.yaml"

// Config is the full shipc configuration.
type Config struct {
	// Tools names the external binaries shipc delegates to.
	Tools Tools `yaml:"tools"`

	// TempDir is where workspaces are created (default: the system temp dir)
	TempDir string `yaml:"tempDir,omitempty"`
}

// Tools holds paths to the external binaries. Bare names are looked up in
// PATH.
type Tools struct {
	Tar   string `yaml:"tar"`
	Umoci string `yaml:"umoci"`
	Runc  string `yaml:"runc"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Tools: Tools{
			Tar:   "tar",
			Umoci: "umoci",
			Runc:  "runc",
		},
	}
}

// Load reads the configuration from path, or from the first location found
// by Locate when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Locate()
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML onto cfg. Keys absent from data keep their value in cfg.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.validate()
}

func (c *Config) validate() error {
	if c.Tools.Tar == "" {
		return fmt.Errorf("tools.tar must not be empty")
	}
	if c.Tools.Umoci == "" {
		return fmt.Errorf("tools.umoci must not be empty")
	}
	if c.Tools.Runc == "" {
		return fmt.Errorf("tools.runc must not be empty")
	}
	return nil
}

// Locate returns the config file path from the environment or the XDG config
// directories, or "" when there is none.
func Locate() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	p, err := xdg.SearchConfigFile(xdgRelPath)
	if err != nil {
		return ""
	}
	return p
}
