package mcpserver

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the MCP server configuration loaded from mcp.yaml.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	APIURL     string `yaml:"api_url"`
	// APIToken is the bearer token forwarded to the mail API.
	APIToken string `yaml:"api_token"`
	// APIKeys are the X-API-Key values MCP clients may present.
	APIKeys   []string                `yaml:"api_keys"`
	Overrides map[string]ToolOverride `yaml:"overrides"`
}

// ToolOverride allows per-tool customization.
type ToolOverride struct {
	Description string `yaml:"description"`
	Disabled    bool   `yaml:"disabled"`
}

// LoadConfig reads and parses the mcp.yaml configuration file. MCP_ADDR,
// MCP_API_URL, MAIL_API_TOKEN and MCP_API_KEYS override the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// ParseConfig parses mcp.yaml configuration from raw bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse mcp config: %w", err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8091"
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://127.0.0.1:5000"
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MCP_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MCP_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MAIL_API_TOKEN")); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("MCP_API_KEYS"); v != "" {
		c.APIKeys = nil
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.APIKeys = append(c.APIKeys, k)
			}
		}
	}
}

// Validate reports missing settings. The server refuses to start without
// an upstream token or at least one client key.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIToken) == "" {
		missing = append(missing, "api_token (MAIL_API_TOKEN)")
	}
	keys := 0
	for _, k := range c.APIKeys {
		if strings.TrimSpace(k) != "" {
			keys++
		}
	}
	if keys == 0 {
		missing = append(missing, "api_keys (MCP_API_KEYS)")
	}
	if len(missing) > 0 {
		return errors.New("missing required mcp config: " + strings.Join(missing, ", "))
	}
	return nil
}
