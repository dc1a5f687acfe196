package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/i474232898/badtemp-karlshamn/internal/config"
)

// New returns the service logger: colourised console output in dev, JSON in
// prod. Every record carries the store backend and the poll interval so log
// lines from different deployments can be told apart.
func New(cfg *config.AppConfig, appName string) *slog.Logger {
	return newWithWriter(os.Stdout, cfg, appName)
}

func newWithWriter(w io.Writer, cfg *config.AppConfig, appName string) *slog.Logger {
	logger := slog.New(newHandler(w, cfg)).With(
		"app", appName,
		"store", cfg.StoreBackend,
		"update_interval", cfg.UpdateInterval,
	)
	if cfg.AppEnv != "dev" {
		logger = logger.With("env", cfg.AppEnv)
	}
	if cfg.MQTT.Enabled() {
		logger = logger.With("mqtt_broker", cfg.MQTT.Broker)
	}
	return logger
}

func newHandler(w io.Writer, cfg *config.AppConfig) slog.Handler {
	if cfg.AppEnv == "dev" {
		return tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       cfg.LogLevel,
		ReplaceAttr: durationsAsText,
	})
}

// durationsAsText renders durations such as the poll interval as "30m0s"
// instead of nanoseconds in JSON output.
func durationsAsText(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}
