// Package config loads broker configuration from an optional YAML file and
// wio_-prefixed environment variables. Environment values override file
// values, which override defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// OIDC holds the identity provider settings used for browser login.
type OIDC struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	WellKnownURL string   `yaml:"well_known_url"`
	Algorithms   []string `yaml:"algorithms"`
}

// Enabled reports whether browser login can be offered.
func (o OIDC) Enabled() bool {
	return o.ClientID != "" && o.WellKnownURL != ""
}

// Config is the full broker configuration.
type Config struct {
	// PublicName is the externally reachable base URL of this server,
	// handed to CLI clients so they can configure S3 tooling.
	PublicName string `yaml:"public_name"`

	// Listen is the HTTP bind address.
	Listen string `yaml:"listen"`

	// DatabaseURI is the directory holding the embedded database file.
	DatabaseURI string `yaml:"database_uri"`

	// Secret seals node credentials at rest and signs session tokens.
	Secret string `yaml:"secret"`

	// ESNodes are the search engine endpoints. Indexing is disabled when
	// empty.
	ESNodes []string `yaml:"es_nodes"`

	OIDC OIDC `yaml:"oidc"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		PublicName:  "http://localhost:8100",
		Listen:      ":8100",
		DatabaseURI: "/var/lib/holt",
		LogLevel:    "info",
		LogJSON:     true,
		OIDC: OIDC{
			Algorithms: []string{"RS256"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Validate checks the settings a running server cannot do without.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("secret must be set (wio_secret)")
	}
	if c.DatabaseURI == "" {
		return fmt.Errorf("database_uri must be set (wio_database_uri)")
	}
	if c.PublicName == "" {
		return fmt.Errorf("public_name must be set (wio_public_name)")
	}
	return nil
}

func (c *Config) applyEnv() {
	envString("wio_public_name", &c.PublicName)
	envString("wio_listen", &c.Listen)
	envString("wio_database_uri", &c.DatabaseURI)
	envString("wio_secret", &c.Secret)
	envList("wio_es_nodes", &c.ESNodes)
	envString("wio_oidc_client_id", &c.OIDC.ClientID)
	envString("wio_oidc_client_secret", &c.OIDC.ClientSecret)
	envString("wio_oidc_well_known_url", &c.OIDC.WellKnownURL)
	envList("wio_oidc_algos", &c.OIDC.Algorithms)
	envString("wio_log_level", &c.LogLevel)
	envBool("wio_log_json", &c.LogJSON)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func envList(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		*dst = items
	}
}
