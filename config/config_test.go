package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Pool.HTTPMaxConns != 20 {
		t.Errorf("HTTPMaxConns = %d, want 20", cfg.Pool.HTTPMaxConns)
	}
	if cfg.Cache.L1TTL != 5*time.Minute {
		t.Errorf("L1TTL = %v, want 5m", cfg.Cache.L1TTL)
	}
	if !cfg.Escalate.TransientRetry {
		t.Error("TransientRetry should default true")
	}
	if !cfg.Browser.Headless {
		t.Error("Headless should default true")
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("WEBPEEL_LOG_LEVEL", "debug")
	t.Setenv("WEBPEEL_HTTP_MAX_CONNS", "50")
	t.Setenv("WEBPEEL_HEADLESS", "false")
	t.Setenv("WEBPEEL_DEFAULT_TIMEOUT", "45s")

	cfg := Load()
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Pool.HTTPMaxConns != 50 {
		t.Errorf("HTTPMaxConns = %d, want 50", cfg.Pool.HTTPMaxConns)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should be false when overridden")
	}
	if cfg.Escalate.DefaultTimeout != 45*time.Second {
		t.Errorf("DefaultTimeout = %v, want 45s", cfg.Escalate.DefaultTimeout)
	}
}

func TestLoadIgnoresUnparsableOverrides(t *testing.T) {
	t.Setenv("WEBPEEL_HTTP_MAX_CONNS", "not-a-number")
	cfg := Load()
	if cfg.Pool.HTTPMaxConns != 20 {
		t.Errorf("HTTPMaxConns = %d, want fallback 20 on bad input", cfg.Pool.HTTPMaxConns)
	}
}

func TestDebugReadsEnv(t *testing.T) {
	t.Setenv("DEBUG", "true")
	if !Debug() {
		t.Error("expected Debug() true when DEBUG=true")
	}
	t.Setenv("DEBUG", "")
	if Debug() {
		t.Error("expected Debug() false when DEBUG unset")
	}
}
