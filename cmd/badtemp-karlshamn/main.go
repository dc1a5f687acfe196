package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/badtemp-karlshamn/internal/api/http"
	"github.com/i474232898/badtemp-karlshamn/internal/config"
	"github.com/i474232898/badtemp-karlshamn/internal/logging"
	"github.com/i474232898/badtemp-karlshamn/internal/mqtt"
	"github.com/i474232898/badtemp-karlshamn/internal/scheduler"
	"github.com/i474232898/badtemp-karlshamn/internal/store"
	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp"
	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp/providers"
)

const appName = "badtemp-karlshamn"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg, appName)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	snapshots, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	source := providers.NewKarlshamnSource(httpClient, cfg.DiscoveryURL, cfg.PollURL)
	service := swimtemp.NewService(source, snapshots, swimtemp.Options{
		UpdateInterval: cfg.UpdateInterval,
		TimeZone:       cfg.TimeZone,
		Logger:         log,
	})

	if cfg.MQTT.Enabled() {
		disconnect, err := startMQTT(cfg.MQTT, service, log)
		if err != nil {
			return err
		}
		defer disconnect()
	}

	setupCtx, cancelSetup := context.WithTimeout(ctx, 2*cfg.HTTPTimeout)
	sensors, err := service.Setup(setupCtx)
	cancelSetup()
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	log.Info("sensors ready", "count", len(sensors), "source", source.Name())

	sched := scheduler.New(service, cfg.TickInterval, 2*cfg.HTTPTimeout, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
			"sensors": len(service.Sensors()),
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()
	log.Info("listening", "port", cfg.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}

// openStore selects the snapshot store backend.
func openStore(cfg *config.AppConfig) (swimtemp.Store, func(), error) {
	switch cfg.StoreBackend {
	case "bolt":
		bs, err := store.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt store: %w", err)
		}
		return bs, func() { _ = bs.Close() }, nil
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	default:
		return store.NewFileStore(cfg.SnapshotPath), func() {}, nil
	}
}

// startMQTT connects to the broker and mirrors every tick cycle to Home
// Assistant. It must run before Setup so the initial update is published.
func startMQTT(cfg config.MQTTConfig, service *swimtemp.Service, log *slog.Logger) (func(), error) {
	topics := mqtt.Topics{Prefix: cfg.Prefix, DiscoveryPrefix: cfg.DiscoveryPrefix}

	client, err := mqtt.New(mqtt.Config{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		Username:    cfg.Username,
		Password:    cfg.Password,
		UseTLS:      cfg.UseTLS,
		WillTopic:   topics.Availability(),
		WillPayload: mqtt.PayloadOffline,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, err
	}

	publisher := mqtt.NewPublisher(client, topics, log)
	client.OnReconnect(publisher.Reconnected)
	service.Subscribe(publisher.PublishAll)

	return func() {
		if err := publisher.SetAvailability(false); err != nil {
			log.Warn("failed to publish offline status", "error", err)
		}
		client.Disconnect()
	}, nil
}
