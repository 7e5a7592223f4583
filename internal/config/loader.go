package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for.
const DefaultConfigFile = ".recongraph"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// APIKeys holds provider credentials.
type APIKeys struct {
	Numverify string `yaml:"numverify,omitempty"`
	ThreatFox string `yaml:"threatfox,omitempty"`
}

// File is the structure of the .recongraph YAML file. Zero values leave the
// corresponding Config field untouched.
type File struct {
	APIKeys       APIKeys         `yaml:"api_keys,omitempty"`
	Catalog       string          `yaml:"catalog,omitempty"`
	DNSServer     string          `yaml:"dns_server,omitempty"`
	CacheDir      string          `yaml:"cache_dir,omitempty"`
	Deadline      time.Duration   `yaml:"deadline,omitempty"`
	ProbeTimeout  time.Duration   `yaml:"probe_timeout,omitempty"`
	SourceTimeout time.Duration   `yaml:"source_timeout,omitempty"`
	Concurrency   *int            `yaml:"concurrency,omitempty"`
	MaxBodySize   int64           `yaml:"max_body_size,omitempty"`
	BlocklistTTL  time.Duration   `yaml:"blocklist_ttl,omitempty"`
	Sources       map[string]bool `yaml:"sources,omitempty"`
}

// LoadConfigFile reads and decodes the YAML file at path.
// A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile returns the configuration file to use:
//  1. configPath, if given and present;
//  2. .recongraph in the current directory;
//  3. .recongraph in the home directory;
//  4. .recongraph in the XDG config directory.
//
// It returns an empty string when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), DefaultConfigFile))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
