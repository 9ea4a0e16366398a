package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name looked up in the working and home directories.
const DefaultConfigFile = ".sitescore"

// xdgConfigFile is the name looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned by LoadConfigFile for a missing file.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned for a file that is not valid YAML or
	// that contains a key sitescore does not know, such as a misspelled
	// "maxpages".
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)

// LoadConfigFile reads a sitescore YAML file. Unknown keys are rejected so
// a typo does not silently fall back to the default. An empty file is valid.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the path comes from the user or a fixed search list
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	cf := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidConfigFile, path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return cf, nil
}

// FindConfigFile returns the configuration file to use, or "" if there is none.
// An explicit configPath is used only if it exists; otherwise the first
// regular file among searchPaths wins.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return ""
		}
		return configPath
	}

	for _, path := range searchPaths() {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// searchPaths lists the implicit locations in lookup order: the working
// directory, the home directory, then the XDG config directory.
func searchPaths() []string {
	paths := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(XDGConfigDir(), xdgConfigFile))
}
