package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/editor-data")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.FPS() != 30 || cfg.TickInterval() != 50*time.Millisecond {
		t.Errorf("FPS() = %v TickInterval() = %v", cfg.FPS(), cfg.TickInterval())
	}
	if cfg.ProvisionalDuration() != 10*time.Second {
		t.Errorf("ProvisionalDuration() = %v", cfg.ProvisionalDuration())
	}
	if cfg.DBPath() != filepath.Join("/tmp/editor-data", DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.MediaDir() != filepath.Join("/tmp/editor-data", "files") {
		t.Errorf("MediaDir() = %q", cfg.MediaDir())
	}
	if cfg.ServiceURL() != "" || cfg.Headless() {
		t.Errorf("ServiceURL() = %q Headless() = %v", cfg.ServiceURL(), cfg.Headless())
	}
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvFPS, "25")
	t.Setenv(EnvTickMS, "20")
	t.Setenv(EnvServiceTimeout, "90")
	t.Setenv(EnvProbeInterval, "500ms")
	t.Setenv(EnvServiceURL, "http://render.local:8000")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvMediaDir, "/srv/media")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 || cfg.FPS() != 25 || cfg.TickInterval() != 20*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ServiceTimeout() != 90*time.Second || cfg.ProbeInterval() != 500*time.Millisecond {
		t.Errorf("ServiceTimeout() = %v ProbeInterval() = %v", cfg.ServiceTimeout(), cfg.ProbeInterval())
	}
	if !cfg.Headless() || cfg.ServiceURL() != "http://render.local:8000" || cfg.MediaDir() != "/srv/media" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{EnvPort, "abc"},
		{EnvPort, "70000"},
		{EnvFPS, "0"},
		{EnvFPS, "fast"},
		{EnvTickMS, "5000"},
		{EnvSnapThresholdPx, "-1"},
		{EnvProvisionalDuration, "soon"},
		{EnvHeadless, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() accepted %s=%q", tt.env, tt.value)
			}
		})
	}
}
