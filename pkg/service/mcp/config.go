package mcp

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// ServerConfig represents configuration for a single MCP server
type ServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   []string          `yaml:"command,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
}

// Config represents the MCP configuration file structure
type Config struct {
	Servers []ServerConfig `yaml:"servers"`
}

// HTTPServer returns a configuration of a single streamable HTTP tool server
func HTTPServer(name, url string) ServerConfig {
	return ServerConfig{
		Name:      name,
		Transport: TransportHTTP,
		URL:       url,
	}
}

// LoadConfig reads MCP server configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	absConfigPath, err := getAbsPath(configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve config path",
			goerr.V("path", configPath))
	}

	data, err := os.ReadFile(absConfigPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read MCP config file",
			goerr.V("path", absConfigPath))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse MCP config file",
			goerr.V("path", absConfigPath))
	}

	if len(cfg.Servers) == 0 {
		return nil, goerr.New("no MCP server configured", goerr.V("path", absConfigPath))
	}

	for i, srv := range cfg.Servers {
		if err := srv.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid MCP server config",
				goerr.V("path", absConfigPath),
				goerr.V("index", i))
		}
	}

	return &cfg, nil
}

// Validate checks that the transport has what it needs
func (x ServerConfig) Validate() error {
	if x.Name == "" {
		return goerr.New("name is required")
	}

	switch x.Transport {
	case TransportStdio:
		if len(x.Command) == 0 {
			return goerr.New("command is required for stdio transport", goerr.V("name", x.Name))
		}
	case TransportHTTP:
		if x.URL == "" {
			return goerr.New("url is required for http transport", goerr.V("name", x.Name))
		}
	default:
		return goerr.New("unsupported transport",
			goerr.V("name", x.Name),
			goerr.V("transport", x.Transport),
			goerr.V("supported", []string{TransportStdio, TransportHTTP}))
	}

	return nil
}

// getAbsPath returns absolute path, resolving relative paths from current directory
func getAbsPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(path)
}
