package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultSocketPath      = "/tmp/threadrunner.sock"
	DefaultIdleTimeoutSecs = 300

	// defaultModelFile is the bundled chat model the native backend expects
	// under ~/.threadrunner/models when no override is given.
	defaultModelFile = "tinyllama-1.1b-chat-v1.0.Q4_K_M.gguf"
)

// Environment variables honored by ApplyEnv. They override file values,
// which in turn override built-in defaults.
const (
	EnvSocket      = "THREADRUNNER_SOCKET"
	EnvBackend     = "THREADRUNNER_BACKEND"
	EnvModelPath   = "THREADRUNNER_MODEL_PATH"
	EnvIdleTimeout = "THREADRUNNER_IDLE_TIMEOUT_SECS"
	EnvDebugAddr   = "THREADRUNNER_DEBUG_ADDR"
	EnvLogLevel    = "THREADRUNNER_LOG_LEVEL"
)

// ApplyEnv overlays THREADRUNNER_* environment variables onto cfg.
func ApplyEnv(cfg Config) (Config, error) {
	if v := os.Getenv(EnvSocket); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv(EnvIdleTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return cfg, fmt.Errorf("invalid %s %q: want positive integer seconds", EnvIdleTimeout, v)
		}
		cfg.IdleTimeoutSecs = secs
	}
	if v := os.Getenv(EnvDebugAddr); v != "" {
		cfg.DebugAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with built-in defaults. The backend is
// left empty on purpose: the daemon resolves it against the compiled-in set.
func ApplyDefaults(cfg Config) Config {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath
	}
	if cfg.IdleTimeoutSecs <= 0 {
		cfg.IdleTimeoutSecs = DefaultIdleTimeoutSecs
	}
	if cfg.ModelPath == "" {
		if p, err := DefaultModelPath(); err == nil {
			cfg.ModelPath = p
		}
	}
	return cfg
}

// FromEnv is the no-config-file path: defaults overlaid with environment.
func FromEnv() (Config, error) {
	cfg, err := ApplyEnv(Config{})
	if err != nil {
		return cfg, err
	}
	return ApplyDefaults(cfg), nil
}

// DefaultModelPath returns $HOME/.threadrunner/models/<bundled>.gguf.
func DefaultModelPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadrunner", "models", defaultModelFile), nil
}

// IdleTimeout returns the idle eviction window as a duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSecs) * time.Second
}
