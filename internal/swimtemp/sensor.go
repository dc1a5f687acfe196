package swimtemp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/badtemp-karlshamn/internal/common"
)

const (
	// UnitCelsius is the unit every reading is reported in.
	UnitCelsius = "°C"
	// Icon is the Material Design icon shown for each sensor.
	Icon = "mdi:coolant-temperature"
	// DeviceClass marks the sensors as temperature sensors for the host.
	DeviceClass  = "temperature"
	entityPrefix = "sensor.badtemp_"

	// AttributeTimeLayout is how lastUpdate is rendered in Attributes.
	AttributeTimeLayout = "2006-01-02T15:04:05"
)

// Role decides whether a sensor triggers the batched poll.
type Role int

const (
	// RoleFollower only reads the shared snapshot.
	RoleFollower Role = iota
	// RolePoller refreshes the snapshot for every sensor before reading it.
	RolePoller
)

func (r Role) String() string {
	if r == RolePoller {
		return "poller"
	}
	return "follower"
}

// Poller triggers a batched refresh of the snapshot store.
type Poller interface {
	Poll(ctx context.Context) (bool, error)
}

// SnapshotReader returns the shared, possibly cached, snapshot.
type SnapshotReader interface {
	Read(ctx context.Context) (Snapshot, error)
}

// Sensor exposes one location's latest reading.
type Sensor struct {
	loc      Location
	role     Role
	entityID string
	poller   Poller
	reader   SnapshotReader
	tz       *time.Location
	now      func() time.Time
	logger   *slog.Logger

	mu          sync.RWMutex
	temperature *float64
	timestamp   time.Time
}

// SensorOptions carries the optional collaborators of a Sensor.
type SensorOptions struct {
	TimeZone *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewSensor creates a sensor for loc. The poller is only used when role is
// RolePoller and may be nil otherwise.
func NewSensor(loc Location, role Role, poller Poller, reader SnapshotReader, opts SensorOptions) *Sensor {
	if opts.TimeZone == nil {
		opts.TimeZone = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sensor{
		loc:       loc,
		role:      role,
		entityID:  entityPrefix + common.Slugify(loc.Name),
		poller:    poller,
		reader:    reader,
		tz:        opts.TimeZone,
		now:       opts.Now,
		logger:    opts.Logger.With("sensor", loc.ID),
		timestamp: opts.Now().In(opts.TimeZone),
	}
}

// Tick polls (poller role only), then picks this sensor's record out of the
// shared snapshot. A missing record leaves the cached values untouched.
func (s *Sensor) Tick(ctx context.Context) error {
	if s.role == RolePoller && s.poller != nil {
		if _, err := s.poller.Poll(ctx); err != nil {
			return err
		}
	}

	snap, err := s.reader.Read(ctx)
	if err != nil {
		return err
	}

	rec, ok := snap.Reading(s.loc.ID)
	if !ok {
		s.logger.Debug("no reading in snapshot", "kind", snap.Kind.String())
		return nil
	}

	temp := RoundTemperature(float64(rec.Value))
	ts := ReadingTime(rec.TS, s.tz)

	s.mu.Lock()
	s.temperature = &temp
	s.timestamp = ts
	s.mu.Unlock()

	s.logger.Debug("temperature updated", "name", s.loc.Name, "temperature", temp)
	return nil
}

func (s *Sensor) ID() string          { return s.loc.ID }
func (s *Sensor) EntityID() string    { return s.entityID }
func (s *Sensor) Name() string        { return s.loc.Name }
func (s *Sensor) Unit() string        { return UnitCelsius }
func (s *Sensor) Icon() string        { return Icon }
func (s *Sensor) DeviceClass() string { return DeviceClass }
func (s *Sensor) Role() Role          { return s.role }
func (s *Sensor) Location() Location  { return s.loc }
func (s *Sensor) IsPoller() bool      { return s.role == RolePoller }

// State returns the cached temperature, nil until the first reading.
func (s *Sensor) State() *float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.temperature == nil {
		return nil
	}
	v := *s.temperature
	return &v
}

// Timestamp returns the time of the cached reading (construction time until
// the first reading).
func (s *Sensor) Timestamp() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamp
}

// Attributes returns the extra state attributes. Without coordinates only
// lastUpdate is reported, set to the current time.
func (s *Sensor) Attributes() map[string]any {
	if !s.loc.HasCoordinates() {
		return map[string]any{
			"lastUpdate": s.now().In(s.tz).Format(AttributeTimeLayout),
		}
	}
	return map[string]any{
		"latitude":   s.loc.Latitude,
		"longitude":  s.loc.Longitude,
		"lastUpdate": s.Timestamp().Format(AttributeTimeLayout),
	}
}
