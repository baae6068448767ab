package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon and client.
// Zero values mean "unspecified"; ApplyDefaults fills them in.
type Config struct {
	// SocketPath is the Unix socket both sides rendezvous on.
	SocketPath string `json:"socket_path" yaml:"socket_path" toml:"socket_path"`
	// Backend selects the generator kind ("dummy" or "native").
	Backend string `json:"backend" yaml:"backend" toml:"backend"`
	// ModelPath points at the model file for the native backend.
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	// IdleTimeoutSecs is how long a loaded model may sit unused.
	IdleTimeoutSecs int `json:"idle_timeout_secs" yaml:"idle_timeout_secs" toml:"idle_timeout_secs"`
	// DebugAddr, when set, serves the debug HTTP endpoints on that address.
	DebugAddr string `json:"debug_addr" yaml:"debug_addr" toml:"debug_addr"`
	// LogLevel filters the structured log output (zerolog level names).
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
