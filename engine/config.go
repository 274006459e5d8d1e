// CLAUDE:SUMMARY Defines feedhider config structs and parses YAML configuration files with defaults.
package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/feedhider/blocklist"
	"github.com/hazyhaar/feedhider/identity"
	"github.com/hazyhaar/feedhider/kvstore"
)

// Config is the top-level feedhider configuration.
type Config struct {
	Namespace string          `yaml:"namespace"`
	Store     kvstore.Config  `yaml:"store"`
	Browser   BrowserConfig   `yaml:"browser"`
	Page      PageConfig      `yaml:"page"`
	Debounce  DebounceConfig  `yaml:"debounce"`
	Layout    identity.Layout `yaml:"layout"`
	Sinks     []SinkConfig    `yaml:"sinks"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Bin              string        `yaml:"bin"`
	Headless         *bool         `yaml:"headless"`
	UserDataDir      string        `yaml:"user_data_dir"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// PageConfig defines the page to filter.
type PageConfig struct {
	URL         string        `yaml:"url"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// DebounceConfig controls trigger batching. A zero Window runs a pass as
// soon as the previous one finishes.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// SinkConfig defines an event output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// HTTPConfig controls the management listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("engine: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = blocklist.Namespace
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "feedhider.db"
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Page.URL == "" {
		c.Page.URL = "https://www.youtube.com/"
	}
	if c.Page.LoadTimeout <= 0 {
		c.Page.LoadTimeout = 30 * time.Second
	}
	if c.Debounce.Window < 0 {
		c.Debounce.Window = 0
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8474"
	}
	c.Layout = c.Layout.WithDefaults()
}

func (c *Config) validate() error {
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("engine: sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("engine: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
