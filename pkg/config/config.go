// Package config loads and saves rv's local configuration file,
// ~/.rv/config.toml.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Connection holds how rv reaches the cluster's login node.
type Connection struct {
	Host     string `toml:"host"`
	User     string `toml:"user"`
	Hostname string `toml:"hostname"`
}

// Defaults holds the values rv falls back to when a CLI flag is omitted.
type Defaults struct {
	Account   string `toml:"account"`
	GPUType   string `toml:"gpu_type"`
	Time      string `toml:"time"`
	Partition string `toml:"partition"`
	AIName    bool   `toml:"ai_name"`
}

// Paths holds filesystem locations on the remote cluster.
type Paths struct {
	Scratch string `toml:"scratch"`
	Home    string `toml:"home"`
}

// Notifications holds optional job-completion notification settings.
type Notifications struct {
	Enabled bool   `toml:"enabled"`
	Email   string `toml:"email"`
	Token   string `toml:"token,omitempty"`
}

// Config is the parsed shape of ~/.rv/config.toml.
type Config struct {
	Connection    Connection        `toml:"connection"`
	Defaults      Defaults          `toml:"defaults"`
	Paths         Paths             `toml:"paths"`
	Notifications Notifications     `toml:"notifications"`
	SharedCache   map[string]string `toml:"shared_cache,omitempty"`
}

// NewDefault returns a Config with rv's baked-in defaults, used when no
// config.toml exists yet (init writes this out as a starting point).
func NewDefault() *Config {
	return &Config{
		Defaults: Defaults{
			Time: "01:00:00",
		},
		Paths: Paths{
			Scratch: "/scratch",
			Home:    "~",
		},
	}
}

// Dir returns the rv state directory, ~/.rv, respecting $RV_HOME for tests.
func Dir() (string, error) {
	if dir := os.Getenv("RV_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rv"), nil
}

// Path returns the full path to config.toml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads and parses config.toml. It returns ErrNotInitialized if the
// file does not exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config atomically (write-temp, fsync, rename) to
// config.toml, creating ~/.rv (mode 0700) if needed. Files are written 0600.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config.toml.tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// Validate checks that the fields rv's allocator relies on are present.
func (c *Config) Validate() error {
	if c.Connection.Host == "" {
		return ErrMissingHost
	}
	if c.Connection.User == "" {
		return ErrMissingUser
	}
	return nil
}
