package swimtemp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotSetUp is returned by Tick before Setup has created any sensors.
var ErrNotSetUp = errors.New("swimtemp: service not set up")

// Service owns the store and wires the fetchers, the shared reader and the
// sensors together.
type Service struct {
	discoverer *Discoverer
	poller     *PollFetcher
	reader     *Reader
	gate       *Throttle
	tz         *time.Location
	now        func() time.Time
	logger     *slog.Logger

	mu        sync.RWMutex
	sensors   []*Sensor
	byID      map[string]*Sensor
	listeners []func([]*Sensor)
}

// Options configures a Service.
type Options struct {
	// UpdateInterval gates both the tick cycle and the store re-read.
	UpdateInterval time.Duration
	TimeZone       *time.Location
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewService creates a Service over source and st.
func NewService(source Source, st Store, opts Options) *Service {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 30 * time.Minute
	}
	if opts.TimeZone == nil {
		opts.TimeZone = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reader := NewReader(st, NewThrottle(opts.UpdateInterval, opts.Now), opts.Logger)
	poller := NewPollFetcher(source, st, opts.Logger)
	// The shared reader must never lag behind a fresh poll.
	poller.AfterSave(reader.Invalidate)

	return &Service{
		discoverer: NewDiscoverer(source, st, opts.Logger),
		poller:     poller,
		reader:     reader,
		gate:       NewThrottle(opts.UpdateInterval, opts.Now),
		tz:         opts.TimeZone,
		now:        opts.Now,
		logger:     opts.Logger,
		byID:       make(map[string]*Sensor),
	}
}

// Setup discovers the locations and creates one sensor per location, the
// first one holding the poller role. A discovery failure is fatal and leaves
// the service without sensors. The initial tick cycle runs right away; its
// failure is only logged.
func (s *Service) Setup(ctx context.Context) ([]*Sensor, error) {
	locs, err := s.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, &ParseError{What: "discovery records", Err: fmt.Errorf("no locations found")}
	}

	sensors := make([]*Sensor, 0, len(locs))
	byID := make(map[string]*Sensor, len(locs))
	for i, loc := range locs {
		role := RoleFollower
		if i == 0 {
			role = RolePoller
			s.logger.Debug("creating poller sensor", "sensor", loc.ID)
		}
		sensor := NewSensor(loc, role, s.poller, s.reader, SensorOptions{
			TimeZone: s.tz,
			Now:      s.now,
			Logger:   s.logger,
		})
		sensors = append(sensors, sensor)
		byID[loc.ID] = sensor
		s.logger.Info("adding sensor", "sensor", loc.ID, "entity_id", sensor.EntityID())
	}

	s.mu.Lock()
	s.sensors = sensors
	s.byID = byID
	s.mu.Unlock()

	if err := s.Tick(ctx); err != nil {
		s.logger.Warn("initial update failed", "error", err)
	}
	return sensors, nil
}

// Tick runs one update cycle if the shared gate allows it: the poller ticks
// first, then every follower. A poll failure does not stop the followers,
// which keep their stale values. The first error is returned and a failed
// poll reopens the gate, so the next tick polls again.
func (s *Service) Tick(ctx context.Context) error {
	sensors := s.Sensors()
	if len(sensors) == 0 {
		return ErrNotSetUp
	}
	if !s.gate.Allow() {
		return nil
	}

	var firstErr error
	for _, sensor := range ordered(sensors) {
		if err := sensor.Tick(ctx); err != nil {
			s.logger.Error("sensor update failed", "sensor", sensor.ID(), "role", sensor.Role().String(), "error", err)
			if sensor.IsPoller() {
				// A failed poll is retried on the next tick.
				s.gate.Reset()
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.mu.RLock()
	listeners := append([]func([]*Sensor){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(sensors)
	}

	return firstErr
}

// Subscribe registers fn to run after every completed tick cycle.
func (s *Service) Subscribe(fn func([]*Sensor)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Sensors returns the sensors in discovery order.
func (s *Service) Sensors() []*Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Sensor(nil), s.sensors...)
}

// Sensor returns the sensor for a location id.
func (s *Service) Sensor(id string) (*Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sensor, ok := s.byID[id]
	return sensor, ok
}

// Snapshot returns the reader's cached snapshot.
func (s *Service) Snapshot() (Snapshot, bool) {
	return s.reader.Cached()
}

// ordered puts pollers before followers, keeping discovery order otherwise.
func ordered(sensors []*Sensor) []*Sensor {
	out := make([]*Sensor, 0, len(sensors))
	for _, sensor := range sensors {
		if sensor.IsPoller() {
			out = append(out, sensor)
		}
	}
	for _, sensor := range sensors {
		if !sensor.IsPoller() {
			out = append(out, sensor)
		}
	}
	return out
}
