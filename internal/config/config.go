// Package config reads qinfer.toml, the optional file holding the defaults of qinfer solve.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const FileName = "qinfer.toml"

type Config struct {
	Backend string `toml:"backend"`
	// Jobs bounds the goroutines encoding constraints. 0 uses every CPU
	Jobs    int    `toml:"jobs"`
	Explain bool   `toml:"explain"`
	Output  Output `toml:"output"`
	Log     Log    `toml:"log"`
}

type Output struct {
	// Solutions and Statistics are files to append the results to, none when empty
	Solutions  string `toml:"solutions"`
	Statistics string `toml:"statistics"`
	NoAppend   bool   `toml:"no_append"`
}

type Log struct {
	Level    string   `toml:"level"`
	Sections []string `toml:"sections"`
}

func Default() Config {
	return Config{
		Backend: "maxsat",
		Explain: true,
		Log:     Log{Level: "warn"},
	}
}

// Find looks for qinfer.toml in startDir and then in each of its parents
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads the file at path over Default, so that keys missing from the file keep their default
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if cfg.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: jobs must not be negative", path)
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the closest qinfer.toml above startDir, or returns Default when there is none
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log level '%s': %w", l.Level, err)
	}
	return level, nil
}
