package swimtemp

import (
	"context"
	"log/slog"
	"sync"
)

// Reader is the rate-limited accessor shared by every sensor. The store is
// re-read at most once per throttle interval; in between, the cached
// snapshot is returned.
type Reader struct {
	store    Store
	throttle *Throttle
	logger   *slog.Logger

	mu     sync.RWMutex
	cached Snapshot
	loaded bool
}

// NewReader creates a Reader over st gated by throttle.
func NewReader(st Store, throttle *Throttle, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{store: st, throttle: throttle, logger: logger}
}

// Read returns the current snapshot, refreshing it from the store when the
// throttle allows.
func (r *Reader) Read(ctx context.Context) (Snapshot, error) {
	if !r.throttle.Allow() {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.cached, nil
	}

	r.logger.Debug("reading snapshot store")
	snap, err := LoadSnapshot(ctx, r.store)
	if err != nil {
		// A failed read must not use up the interval.
		r.throttle.Reset()
		return Snapshot{}, err
	}

	r.mu.Lock()
	r.cached = snap
	r.loaded = true
	r.mu.Unlock()
	return snap, nil
}

// Cached returns the last snapshot read without touching the store.
func (r *Reader) Cached() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached, r.loaded
}

// Invalidate forces the next Read to go to the store.
func (r *Reader) Invalidate() {
	r.throttle.Reset()
}
