package swimtemp

import (
	"context"
	"fmt"
	"log/slog"
)

// PollFetcher refreshes every location's reading with one batched request
// and overwrites the store with the result.
type PollFetcher struct {
	source    Source
	store     Store
	logger    *slog.Logger
	afterSave []func()
}

// NewPollFetcher creates a PollFetcher.
func NewPollFetcher(source Source, st Store, logger *slog.Logger) *PollFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollFetcher{source: source, store: st, logger: logger}
}

// Poll reloads the identifier list from the store and refreshes it. It works
// from either a discovery snapshot or a previous poll snapshot.
func (p *PollFetcher) Poll(ctx context.Context) (bool, error) {
	snap, err := LoadSnapshot(ctx, p.store)
	if err != nil {
		return false, err
	}
	return p.PollIDs(ctx, snap.IDs())
}

// PollIDs requests readings for ids and replaces the stored snapshot. On any
// error the store keeps its previous document.
func (p *PollFetcher) PollIDs(ctx context.Context, ids []string) (bool, error) {
	p.logger.Debug("polling readings", "source", p.source.Name(), "ids", ids)

	records, err := p.source.Readings(ctx, ids)
	if err != nil {
		return false, fmt.Errorf("poll %s: %w", p.source.Name(), err)
	}
	p.logger.Debug("poll response", "source", p.source.Name(), "records", len(records))

	if err := SaveSnapshot(ctx, p.store, NewPollSnapshot(records)); err != nil {
		return false, err
	}
	for _, fn := range p.afterSave {
		fn()
	}
	return true, nil
}

// AfterSave registers fn to run after every successful store overwrite.
func (p *PollFetcher) AfterSave(fn func()) {
	p.afterSave = append(p.afterSave, fn)
}
