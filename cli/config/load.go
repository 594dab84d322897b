package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, expands environment variables, and
// decodes it into a Config. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	var cfg Config
	if err := DecodeStrict([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path when given. With an empty path it loads
// DefaultFile from the working directory if present, and otherwise
// returns an empty Config.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err != nil {
		return &Config{}, nil
	}
	return Load(DefaultFile)
}

// DecodeStrict unmarshals YAML into v, rejecting keys v does not declare.
// An empty or comment-only document leaves v unchanged.
func DecodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	for name, backend := range map[string]string{
		"fixtures.backend": c.Fixtures.Backend,
		"publish.backend":  c.Publish.Backend,
	} {
		switch backend {
		case "", "fs", "s3":
		default:
			return fmt.Errorf("%s must be fs or s3, got %q", name, backend)
		}
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries)
	}
	if c.Adapter.History < 0 {
		return fmt.Errorf("adapter.history must be >= 0, got %d", c.Adapter.History)
	}
	return nil
}
