// Package mqtt exposes the sensors to Home Assistant over MQTT discovery.
package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

var ErrNotConnected = errors.New("mqtt: client is not connected")

// Config holds MQTT client configuration.
type Config struct {
	Broker   string // e.g. "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	UseTLS   bool

	// WillTopic, when set, receives a retained WillPayload if the
	// connection drops without a clean disconnect.
	WillTopic   string
	WillPayload string

	// ConnectTimeout bounds Connect. Defaults to 10s.
	ConnectTimeout time.Duration
}

// Client wraps a paho client with connection tracking.
type Client struct {
	client paho.Client
	config Config
	logger *slog.Logger

	mu       sync.RWMutex
	isActive bool

	hooksMu     sync.Mutex
	connects    int
	onReconnect []func()
}

// New creates a client; it does not connect.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "badtemp-" + uuid.NewString()[:8]
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		config: cfg,
		logger: logger.With("component", "mqtt", "broker", cfg.Broker),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	if cfg.WillTopic != "" {
		opts.SetWill(cfg.WillTopic, cfg.WillPayload, 1, true)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.logger.Warn("connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		c.logger.Info("connected")
		c.handleConnect()
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		c.logger.Debug("reconnecting")
	})

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	c.client = paho.NewClient(opts)
	return c, nil
}

// OnReconnect registers fn to run every time the connection is restored after
// a loss. It does not run for the initial connection.
func (c *Client) OnReconnect(fn func()) {
	c.hooksMu.Lock()
	c.onReconnect = append(c.onReconnect, fn)
	c.hooksMu.Unlock()
}

func (c *Client) handleConnect() {
	c.hooksMu.Lock()
	c.connects++
	first := c.connects == 1
	hooks := append([]func(){}, c.onReconnect...)
	c.hooksMu.Unlock()

	if first {
		return
	}
	for _, fn := range hooks {
		fn()
	}
}

// Connect establishes the connection to the broker.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isActive {
		return nil
	}

	c.logger.Info("connecting")
	token := c.client.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connect to MQTT broker: timed out after %s", c.config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to MQTT broker: %w", err)
	}

	c.isActive = true
	return nil
}

// Disconnect closes the connection, waiting up to 250ms for in-flight work.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActive {
		return
	}
	c.client.Disconnect(250)
	c.isActive = false
	c.logger.Info("disconnected")
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isActive {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	c.logger.Debug("published", "topic", topic, "qos", qos, "retained", retained)
	return nil
}

// IsConnected reports whether the client is connected to the broker.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isActive && c.client.IsConnected()
}
