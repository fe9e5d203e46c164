// ABOUTME: Configuration loading and parsing for wallet-store
// ABOUTME: Supports YAML files with environment variable expansion and bootstrap entity lists

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/2389/wallet-store/internal/store"
)

// Config represents the complete wallet-store configuration
type Config struct {
	Database DatabaseConfig  `yaml:"database"`
	Logging  LoggingConfig   `yaml:"logging"`
	Idps     []IdpConfig     `yaml:"idps"`
	Networks []NetworkConfig `yaml:"networks"`
}

// DatabaseConfig holds database backend configuration
type DatabaseConfig struct {
	Kind string `yaml:"kind"` // "memory", "sqlite", "postgres"

	// sqlite
	Path string `yaml:"path"`

	// postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IdpConfig holds one identity provider to seed at startup
type IdpConfig struct {
	ID                string `yaml:"id"`
	Type              string `yaml:"type"`
	Issuer            string `yaml:"issuer"`
	ConfigURL         string `yaml:"config_url"`
	Audience          string `yaml:"audience"`
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
	AdminClientID     string `yaml:"admin_client_id"`
	AdminClientSecret string `yaml:"admin_client_secret"`
}

// NetworkConfig holds one network to seed at startup
type NetworkConfig struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	SynchronizerID     string `yaml:"synchronizer_id"`
	Description        string `yaml:"description"`
	LedgerAPIBaseURL   string `yaml:"ledger_api_base_url"`
	LedgerAdminGrpcURL string `yaml:"ledger_admin_grpc_url"`
	IdentityProviderID string `yaml:"identity_provider_id"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Kind {
	case "", store.BackendMemory:
		// memory is the default and needs nothing else
	case store.BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	case store.BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for the postgres backend")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported database.kind %q", c.Database.Kind)
	}

	seen := make(map[string]bool, len(c.Idps))
	for i, idp := range c.Idps {
		if idp.ID == "" {
			return fmt.Errorf("idps[%d].id is required", i)
		}
		if seen[idp.ID] {
			return fmt.Errorf("idps[%d].id %q is duplicated", i, idp.ID)
		}
		seen[idp.ID] = true
	}

	for i, network := range c.Networks {
		if network.ID == "" {
			return fmt.Errorf("networks[%d].id is required", i)
		}
		if network.IdentityProviderID == "" {
			return fmt.Errorf("networks[%d].identity_provider_id is required", i)
		}
	}

	return nil
}

// ConnConfig converts the database section into the store's connection form.
func (c *Config) ConnConfig() store.ConnConfig {
	kind := c.Database.Kind
	if kind == "" {
		kind = store.BackendMemory
	}
	return store.ConnConfig{
		Kind:     kind,
		Path:     c.Database.Path,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}
}

// SeedIdps decodes the configured identity providers into their variants.
func (c *Config) SeedIdps() ([]store.Idp, error) {
	idps := make([]store.Idp, 0, len(c.Idps))
	for _, ic := range c.Idps {
		idp, err := store.IdpFromParams(store.IdpParams{
			ID:                ic.ID,
			Type:              ic.Type,
			Issuer:            ic.Issuer,
			ConfigURL:         ic.ConfigURL,
			Audience:          ic.Audience,
			ClientID:          ic.ClientID,
			ClientSecret:      ic.ClientSecret,
			AdminClientID:     ic.AdminClientID,
			AdminClientSecret: ic.AdminClientSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("idp %q: %w", ic.ID, err)
		}
		idps = append(idps, idp)
	}
	return idps, nil
}

// SeedNetworks converts the configured networks into store entities.
func (c *Config) SeedNetworks() []store.Network {
	networks := make([]store.Network, 0, len(c.Networks))
	for _, nc := range c.Networks {
		networks = append(networks, store.Network{
			ID:             nc.ID,
			Name:           nc.Name,
			SynchronizerID: nc.SynchronizerID,
			Description:    nc.Description,
			LedgerAPI: store.LedgerAPI{
				BaseURL:      nc.LedgerAPIBaseURL,
				AdminGrpcURL: nc.LedgerAdminGrpcURL,
			},
			IdentityProviderID: nc.IdentityProviderID,
		})
	}
	return networks
}
