package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/badtemp-karlshamn/internal/store"
	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp/providers"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level
	Port     string `validate:"required,numeric"`

	DiscoveryURL string        `validate:"required,url"`
	PollURL      string        `validate:"required,url"`
	HTTPTimeout  time.Duration `validate:"gt=0"`

	// UpdateInterval is the minimum time between two polls of the provider.
	UpdateInterval time.Duration `validate:"gt=0"`

	// TickInterval controls how often the scheduler asks the sensors to update.
	// Ticks inside UpdateInterval are no-ops.
	TickInterval time.Duration `validate:"gt=0"`

	StoreBackend string `validate:"oneof=file bolt memory"`
	SnapshotPath string `validate:"required_if=StoreBackend file"`
	BoltPath     string `validate:"required_if=StoreBackend bolt"`

	TimeZone *time.Location `validate:"required"`

	MQTT MQTTConfig
}

// MQTTConfig holds the optional Home Assistant MQTT settings. MQTT is
// disabled when Broker is empty.
type MQTTConfig struct {
	Broker          string
	ClientID        string
	Username        string
	Password        string
	Prefix          string
	DiscoveryPrefix string `validate:"required_with=Broker"`
	UseTLS          bool
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.DiscoveryURL = getenvDefault("DISCOVERY_URL", providers.DefaultDiscoveryURL)
	cfg.PollURL = getenvDefault("POLL_URL", providers.DefaultPollURL)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.UpdateInterval, err = getenvDuration("UPDATE_INTERVAL", "30m"); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = getenvDuration("TICK_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	cfg.StoreBackend = strings.ToLower(getenvDefault("STORE_BACKEND", "file"))
	cfg.SnapshotPath = getenvDefault("SNAPSHOT_PATH", store.DefaultSnapshotPath)
	cfg.BoltPath = getenvDefault("BOLT_PATH", store.DefaultBoltPath)

	tzName := getenvDefault("TIMEZONE", "Local")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.TimeZone = tz

	cfg.MQTT = MQTTConfig{
		Broker:          os.Getenv("MQTT_BROKER"),
		ClientID:        os.Getenv("MQTT_CLIENT_ID"),
		Username:        os.Getenv("MQTT_USERNAME"),
		Password:        os.Getenv("MQTT_PASSWORD"),
		Prefix:          getenvDefault("MQTT_PREFIX", "badtemp"),
		DiscoveryPrefix: getenvDefault("DISCOVERY_PREFIX", "homeassistant"),
		UseTLS:          getenvBool("MQTT_TLS", false),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
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

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
