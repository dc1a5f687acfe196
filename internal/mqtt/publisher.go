package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp"
)

// Broker is the subset of Client used by the Publisher.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Publisher mirrors sensor state to the broker. Discovery configs are sent
// once per sensor; state and attributes after every tick cycle.
type Publisher struct {
	broker Broker
	topics Topics
	device DeviceInfo
	logger *slog.Logger

	mu        sync.Mutex
	announced map[string]bool
	online    bool
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, topics Topics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		broker:    broker,
		topics:    topics,
		device:    DefaultDevice,
		logger:    logger.With("component", "mqtt_publisher"),
		announced: make(map[string]bool),
	}
}

// Announce publishes the retained discovery configs of sensors not yet
// announced. The first call also marks the service online.
func (p *Publisher) Announce(sensors []*swimtemp.Sensor) error {
	var (
		errs      []error
		published int
	)
	for _, s := range sensors {
		p.mu.Lock()
		done := p.announced[s.ID()]
		p.mu.Unlock()
		if done {
			continue
		}

		payload, err := MarshalDiscovery(s, p.topics, p.device)
		if err == nil {
			err = p.broker.Publish(p.topics.Discovery(s.ID()), 1, true, payload)
		}
		if err != nil {
			p.logger.Error("failed to publish discovery config", "sensor", s.ID(), "error", err)
			errs = append(errs, err)
			continue
		}

		p.mu.Lock()
		p.announced[s.ID()] = true
		p.mu.Unlock()
		published++
	}

	p.mu.Lock()
	online := p.online
	p.mu.Unlock()
	if !online {
		if err := p.SetAvailability(true); err != nil {
			errs = append(errs, err)
		}
	}

	if published > 0 || len(errs) > 0 {
		p.logger.Info("published discovery configs", "sensors", published, "failed", len(errs))
	}
	return errors.Join(errs...)
}

// SetAvailability publishes the retained online/offline status.
func (p *Publisher) SetAvailability(online bool) error {
	payload := PayloadOffline
	if online {
		payload = PayloadOnline
	}
	if err := p.broker.Publish(p.topics.Availability(), 1, true, []byte(payload)); err != nil {
		return err
	}
	p.mu.Lock()
	p.online = online
	p.mu.Unlock()
	return nil
}

// Reconnected republishes the online status, which the broker replaced with
// the last will when the connection dropped.
func (p *Publisher) Reconnected() {
	if err := p.SetAvailability(true); err != nil {
		p.logger.Error("failed to republish availability", "error", err)
	}
}

// PublishSensor sends one sensor's state and attributes. A sensor without a
// reading only publishes its attributes.
func (p *Publisher) PublishSensor(s *swimtemp.Sensor) error {
	if state, ok := StatePayload(s); ok {
		if err := p.broker.Publish(p.topics.State(s.ID()), 0, true, state); err != nil {
			return err
		}
	}

	attrs, err := json.Marshal(s.Attributes())
	if err != nil {
		return fmt.Errorf("marshal attributes for %s: %w", s.ID(), err)
	}
	return p.broker.Publish(p.topics.Attributes(s.ID()), 0, true, attrs)
}

// PublishAll publishes every sensor, continuing past individual failures.
// It matches the listener signature of swimtemp.Service.Subscribe.
func (p *Publisher) PublishAll(sensors []*swimtemp.Sensor) {
	if err := p.Announce(sensors); err != nil {
		p.logger.Warn("discovery incomplete", "error", err)
	}
	for _, s := range sensors {
		if err := p.PublishSensor(s); err != nil {
			p.logger.Error("failed to publish sensor", "sensor", s.ID(), "error", err)
		}
	}
}

// StatePayload renders the sensor state, reporting false before the first reading.
func StatePayload(s *swimtemp.Sensor) ([]byte, bool) {
	state := s.State()
	if state == nil {
		return nil, false
	}
	return []byte(strconv.FormatFloat(*state, 'f', 1, 64)), true
}
