package azdo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings for one azdo-mcp run. It is built
// once at startup and passed by value to every registrar; nothing mutates it
// after that.
type Config struct {
	// Organization is the Azure DevOps organization name, e.g. "contoso"
	// for https://dev.azure.com/contoso.
	Organization string `yaml:"organization"`

	// PAT is an optional personal access token. When set it is used
	// unconditionally; otherwise a bearer token is obtained from the
	// ambient Azure identity on every connection.
	PAT string `yaml:"pat"`

	// Endpoint overrides the default https://dev.azure.com/<organization>
	// base URL, for Azure DevOps Server installations. On-prem servers host
	// search and release management on the same collection URL.
	Endpoint string `yaml:"endpoint"`

	// Domains selects which tool groups are registered. Empty means all.
	Domains []string `yaml:"domains"`
}

// ConfigFile is the filename for the optional YAML configuration.
const ConfigFile = "config.yaml"

// GetConfigPath returns the default path of the YAML config file.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".azdo-mcp", ConfigFile), nil
}

// LoadConfigFile loads configuration from a YAML file. A missing file is not
// an error; it yields an empty config so flags and env can fill in the rest.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the config is usable for serving.
func (c *Config) Validate() error {
	if c.Organization == "" && c.Endpoint == "" {
		return fmt.Errorf("organization is required (flag --organization, env AZDO_ORG, or config file)")
	}
	return nil
}

// BaseURL returns the organization endpoint on the main service host.
func (c *Config) BaseURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return "https://dev.azure.com/" + c.Organization
}

// SearchBaseURL returns the organization endpoint on the search service host.
func (c *Config) SearchBaseURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return "https://almsearch.dev.azure.com/" + c.Organization
}

// ReleaseBaseURL returns the organization endpoint on the release management host.
func (c *Config) ReleaseBaseURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return "https://vsrm.dev.azure.com/" + c.Organization
}

// DomainEnabled reports whether a tool group should be registered. An empty
// Domains list enables everything.
func (c *Config) DomainEnabled(name string) bool {
	if len(c.Domains) == 0 {
		return true
	}
	for _, d := range c.Domains {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}
