package swimtemp

import (
	"context"
	"fmt"
	"log/slog"
)

// Discoverer enumerates monitored locations once at startup and seeds the
// store with the discovery snapshot.
type Discoverer struct {
	source Source
	store  Store
	logger *slog.Logger
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(source Source, st Store, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{source: source, store: st, logger: logger}
}

// Discover scrapes the provider, persists the records and returns the
// locations in page order. The first location is the designated poller.
func (d *Discoverer) Discover(ctx context.Context) ([]Location, error) {
	records, err := d.source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", d.source.Name(), err)
	}
	d.logger.Debug("discovery response", "source", d.source.Name(), "records", len(records))

	if err := SaveSnapshot(ctx, d.store, NewDiscoverySnapshot(records)); err != nil {
		return nil, err
	}
	return Locations(records), nil
}
