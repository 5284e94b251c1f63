package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("AppEnv = %q; want dev", cfg.AppEnv)
	}
	if cfg.DataTopic != "irrigateq/esp32/data" ||
		cfg.StatusTopic != "irrigateq/esp32/status" ||
		cfg.CommandTopic != "irrigateq/flask/command" {
		t.Errorf("topic defaults changed: %q %q %q", cfg.DataTopic, cfg.StatusTopic, cfg.CommandTopic)
	}
	if cfg.RetryInterval != 5*time.Second {
		t.Errorf("RetryInterval = %v; want 5s", cfg.RetryInterval)
	}
	if cfg.PasswordScheme != "plain" {
		t.Errorf("PasswordScheme = %q; want plain", cfg.PasswordScheme)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MQTT_RETRY_INTERVAL", "2s")
	t.Setenv("PASSWORD_SCHEME", "bcrypt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppEnv != "prod" || cfg.RetryInterval != 2*time.Second || cfg.PasswordScheme != "bcrypt" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct{ name, value string }{
		{"APP_ENV", "staging"},
		{"LOG_LEVEL", "loud"},
		{"PASSWORD_SCHEME", "md5"},
		{"MQTT_RETRY_INTERVAL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.name, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tt.name, tt.value)
			}
		})
	}
}
