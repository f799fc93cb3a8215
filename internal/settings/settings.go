// Package settings loads the developer-local ".cbldrc.toml" file:
// host ergonomics only (default configuration, color, extra toolchain
// search paths). It never influences the resolved build plan itself.
package settings

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const Filename = ".cbldrc.toml"

// Settings follows the usual decode-into-struct convention for a much
// smaller, purely local file.
type Settings struct {
	DefaultConfiguration string   `toml:"default_configuration"`
	Color                string   `toml:"color"` // "auto", "always", "never"
	ToolchainSearchPath  []string `toml:"toolchain_search_path"`
}

// Load reads ".cbldrc.toml" from dir, then from the user's home directory
// if dir doesn't have one. A missing file is not an error; it yields a
// zero-value Settings.
func Load(dir string) (*Settings, error) {
	if s, err := loadFrom(filepath.Join(dir, Filename)); err != nil {
		return nil, err
	} else if s != nil {
		return s, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		if s, err := loadFrom(filepath.Join(home, Filename)); err != nil {
			return nil, err
		} else if s != nil {
			return s, nil
		}
	}

	return &Settings{}, nil
}

func loadFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
