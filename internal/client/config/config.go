// Package config loads the clipsync CLI configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddr = "localhost:8443"
	fileName    = "config.toml"
	stateName   = "state.db"
)

// Config is the CLI configuration. Flags override file values.
type Config struct {
	Addr      string `toml:"addr"`
	Insecure  bool   `toml:"insecure"`  // TLS without certificate verification
	Plaintext bool   `toml:"plaintext"` // no TLS at all
	CACert    string `toml:"cacert"`
	StateDB   string `toml:"state_db"`
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "clipsync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "clipsync")
}

// Path returns the default config file path.
func Path() string { return filepath.Join(Dir(), fileName) }

// Default returns built-in values.
func Default() Config {
	return Config{
		Addr:    DefaultAddr,
		StateDB: filepath.Join(Dir(), stateName),
	}
}

// Load reads path over the defaults. A missing file is not an error; an
// empty path means Path().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return cfg, nil
	case err != nil:
		return cfg, err
	case info.IsDir():
		return cfg, fmt.Errorf("config %s is a directory", path)
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.StateDB != "" && strings.HasPrefix(cfg.StateDB, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
		cfg.StateDB = filepath.Join(home, cfg.StateDB[2:])
	}
	return cfg, nil
}
