package config

import (
	"fmt"
	"time"

	corpuslode "github.com/justapithecus/corpusgen/lode"
)

// DefaultFile is loaded when --config is not given and the file exists.
const DefaultFile = "corpusgen.yaml"

// Config represents a corpusgen.yaml configuration file.
// All values are optional and act as defaults for generate and batch flags.
// CLI flags always override config values.
type Config struct {
	Fixtures StorageConfig `yaml:"fixtures"`
	Publish  PublishConfig `yaml:"publish"`
	Adapter  AdapterConfig `yaml:"adapter"`
	Log      LogConfig     `yaml:"log"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PublishConfig holds corpus publishing defaults.
type PublishConfig struct {
	StorageConfig `yaml:",inline"`
	Set           string `yaml:"set"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
	// History caps the Redis recent-events list; 0 disables it.
	History int64 `yaml:"history,omitempty"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// StoreConfig converts the storage section into a lode store config.
// An empty backend defaults to the filesystem.
func (s StorageConfig) StoreConfig() corpuslode.StoreConfig {
	backend := s.Backend
	if backend == "" {
		backend = corpuslode.BackendFS
	}
	return corpuslode.StoreConfig{
		Backend:      backend,
		Path:         s.Path,
		Region:       s.Region,
		Endpoint:     s.Endpoint,
		UsePathStyle: s.S3PathStyle,
	}
}

// Enabled reports whether a publish destination is configured.
func (p PublishConfig) Enabled() bool {
	return p.Path != ""
}
