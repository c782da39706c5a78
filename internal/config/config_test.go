package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Clock.RefreshCount != 5 {
		t.Errorf("Clock.RefreshCount = %d, want 5", cfg.Clock.RefreshCount)
	}
	if cfg.Clock.ForceTimeoutMs != 2500 {
		t.Errorf("Clock.ForceTimeoutMs = %d, want 2500", cfg.Clock.ForceTimeoutMs)
	}
	if cfg.Clock.RetryCount != 3 {
		t.Errorf("Clock.RetryCount = %d, want 3", cfg.Clock.RetryCount)
	}
	if cfg.Clock.FirstInstanceDebounceMs != 1000 {
		t.Errorf("Clock.FirstInstanceDebounceMs = %d, want 1000", cfg.Clock.FirstInstanceDebounceMs)
	}

	if !cfg.Provider.WatchRegistry {
		t.Error("Provider.WatchRegistry should be true by default")
	}
	if len(cfg.Provider.Families) != 1 || cfg.Provider.Families[0].Family != FamilyDynamicBox {
		t.Errorf("Provider.Families = %+v, want a single catch-all dbox route", cfg.Provider.Families)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	if got := cfg.Clock.ForceTimeout(); got != 2500*time.Millisecond {
		t.Errorf("ForceTimeout() = %v, want 2.5s", got)
	}
	if got := cfg.Clock.UpdatePeriod(); got != 0 {
		t.Errorf("UpdatePeriod() = %v, want 0", got)
	}
	if got := cfg.Clock.FirstInstanceDebounce(); got != time.Second {
		t.Errorf("FirstInstanceDebounce() = %v, want 1s", got)
	}
	if got := cfg.Provider.CreateLatency(); got != 200*time.Millisecond {
		t.Errorf("CreateLatency() = %v, want 200ms", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		if got := ConfigDir(); got != "/custom/config/homeclock" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/homeclock")
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "homeclock")
		if got := ConfigDir(); got != expected {
			t.Errorf("ConfigDir() = %q, want %q", got, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	expected := "/custom/config/homeclock/config.yaml"
	if got := ConfigFile(); got != expected {
		t.Errorf("ConfigFile() = %q, want %q", got, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Clock.RefreshCount != 5 {
		t.Errorf("Get().Clock.RefreshCount = %d, want 5", cfg.Clock.RefreshCount)
	}
	if len(cfg.Provider.Families) != 1 {
		t.Errorf("Get().Provider.Families = %+v, want the default route", cfg.Provider.Families)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `clock:
  refresh_count: 2
  retry_count: 1
provider:
  registry_file: /tmp/providers.yaml
  families:
    - pattern: "com.example.*"
      family: dbox
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Clock.RefreshCount != 2 {
		t.Errorf("Clock.RefreshCount = %d, want 2", cfg.Clock.RefreshCount)
	}
	if cfg.Clock.RetryCount != 1 {
		t.Errorf("Clock.RetryCount = %d, want 1", cfg.Clock.RetryCount)
	}
	if cfg.Clock.ForceTimeoutMs != 2500 {
		t.Errorf("Clock.ForceTimeoutMs = %d, want default 2500", cfg.Clock.ForceTimeoutMs)
	}
	if cfg.Provider.RegistryFile != "/tmp/providers.yaml" {
		t.Errorf("Provider.RegistryFile = %q", cfg.Provider.RegistryFile)
	}
	if len(cfg.Provider.Families) != 1 || cfg.Provider.Families[0].Pattern != "com.example.*" {
		t.Errorf("Provider.Families = %+v", cfg.Provider.Families)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("clock.retry_count", -1)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for a negative retry count")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(errs) != 1 || errs[0].Field != "clock.retry_count" {
		t.Errorf("unexpected validation errors: %v", errs)
	}

	if cfg := Get(); cfg.Clock.RetryCount != 3 {
		t.Errorf("Get() should fall back to defaults, RetryCount = %d", cfg.Clock.RetryCount)
	}
}
