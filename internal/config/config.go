// Package config loads the application configuration from environment
// variables, with a .env file honored in development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DSN is the SQLite database file path.
	DSN string

	// UploadDir is where plant images land on disk.
	UploadDir string

	// PasswordScheme selects the credential verifier: "plain" keeps the
	// historical verbatim comparison, "bcrypt" hashes new accounts.
	PasswordScheme string

	SessionLifetime time.Duration

	BrokerURL    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	DataTopic    string
	StatusTopic  string
	CommandTopic string

	RetryInterval time.Duration
	KeepAlive     time.Duration
	PingTimeout   time.Duration
}

// Load reads the environment, falling back to the defaults of the deployed
// installation. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:         getenv("APP_ENV", "dev"),
		HTTPAddr:       getenv("HTTP_ADDR", ":4000"),
		DSN:            getenv("SQLITE_PATH", "instance/irrigation.db"),
		UploadDir:      getenv("UPLOAD_DIR", "static/uploads"),
		PasswordScheme: getenv("PASSWORD_SCHEME", "plain"),
		BrokerURL:      getenv("MQTT_BROKER_URL", "tcp://broker.hivemq.com:1883"),
		MQTTClientID:   getenv("MQTT_CLIENT_ID", "irrigition-backend"),
		MQTTUsername:   os.Getenv("MQTT_USERNAME"),
		MQTTPassword:   os.Getenv("MQTT_PASSWORD"),
		// Topic names are the wire contract with the deployed device
		// firmware; change them only together with the device.
		DataTopic:    getenv("MQTT_TOPIC_DATA", "irrigateq/esp32/data"),
		StatusTopic:  getenv("MQTT_TOPIC_STATUS", "irrigateq/esp32/status"),
		CommandTopic: getenv("MQTT_TOPIC_COMMAND", "irrigateq/flask/command"),
	}

	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	switch cfg.PasswordScheme {
	case "plain", "bcrypt":
	default:
		return Config{}, fmt.Errorf("invalid PASSWORD_SCHEME %q (allowed: plain, bcrypt)", cfg.PasswordScheme)
	}

	level, err := parseLogLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	durations := []struct {
		dst  *time.Duration
		name string
		def  string
	}{
		{&cfg.SessionLifetime, "SESSION_LIFETIME", "12h"},
		{&cfg.RetryInterval, "MQTT_RETRY_INTERVAL", "5s"},
		{&cfg.KeepAlive, "MQTT_KEEPALIVE", "30s"},
		{&cfg.PingTimeout, "MQTT_PING_TIMEOUT", "10s"},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenv(d.name, d.def))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

func getenv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
