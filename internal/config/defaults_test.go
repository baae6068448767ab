package config

import (
	"strings"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := ApplyDefaults(Config{})
	if cfg.SocketPath != DefaultSocketPath {
		t.Fatalf("socket %q, want %q", cfg.SocketPath, DefaultSocketPath)
	}
	if cfg.IdleTimeoutSecs != DefaultIdleTimeoutSecs {
		t.Fatalf("idle %d, want %d", cfg.IdleTimeoutSecs, DefaultIdleTimeoutSecs)
	}
	if !strings.HasSuffix(cfg.ModelPath, ".gguf") || !strings.Contains(cfg.ModelPath, ".threadrunner") {
		t.Fatalf("unexpected model path: %q", cfg.ModelPath)
	}
	// Backend stays unset; the daemon picks the richest compiled-in kind.
	if cfg.Backend != "" {
		t.Fatalf("backend should stay empty, got %q", cfg.Backend)
	}
}

func TestApplyDefaultsKeepsExplicit(t *testing.T) {
	in := Config{SocketPath: "/run/s.sock", IdleTimeoutSecs: 7, ModelPath: "/m.gguf"}
	cfg := ApplyDefaults(in)
	if cfg != in {
		t.Fatalf("explicit values must survive: %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvSocket, "/run/env.sock")
	t.Setenv(EnvBackend, "dummy")
	t.Setenv(EnvModelPath, "/env/m.gguf")
	t.Setenv(EnvIdleTimeout, "2")
	t.Setenv(EnvDebugAddr, "127.0.0.1:0")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := ApplyEnv(Config{SocketPath: "/file.sock", IdleTimeoutSecs: 600})
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.SocketPath != "/run/env.sock" || cfg.Backend != "dummy" || cfg.ModelPath != "/env/m.gguf" ||
		cfg.IdleTimeoutSecs != 2 || cfg.DebugAddr != "127.0.0.1:0" || cfg.LogLevel != "warn" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.IdleTimeout() != 2*time.Second {
		t.Fatalf("idle timeout %v, want 2s", cfg.IdleTimeout())
	}
}

func TestApplyEnvBadIdleTimeout(t *testing.T) {
	t.Setenv(EnvIdleTimeout, "soon")
	if _, err := ApplyEnv(Config{}); err == nil {
		t.Fatal("expected error for non-integer idle timeout")
	}
	t.Setenv(EnvIdleTimeout, "-3")
	if _, err := ApplyEnv(Config{}); err == nil {
		t.Fatal("expected error for negative idle timeout")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvSocket, "/run/frm.sock")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.SocketPath != "/run/frm.sock" {
		t.Fatalf("socket %q", cfg.SocketPath)
	}
	// Unset fields still get defaults.
	if cfg.IdleTimeoutSecs != DefaultIdleTimeoutSecs {
		t.Fatalf("idle %d", cfg.IdleTimeoutSecs)
	}
}
