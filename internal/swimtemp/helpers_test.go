package swimtemp

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeSource serves canned discovery records and readings and records every
// poll request.
type fakeSource struct {
	mu          sync.Mutex
	discovery   []DiscoveryRecord
	readings    []PollRecord
	discoverErr error
	readingsErr error
	polls       [][]string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Discover(_ context.Context) ([]DiscoveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.discovery, nil
}

func (f *fakeSource) Readings(_ context.Context, ids []string) ([]PollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls = append(f.polls, append([]string(nil), ids...))
	if f.readingsErr != nil {
		return nil, f.readingsErr
	}
	return f.readings, nil
}

func (f *fakeSource) setReadings(r []PollRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = r
	f.readingsErr = err
}

func (f *fakeSource) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.polls)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2023, 7, 22, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore is a minimal Store for tests that need to inject failures.
type memStore struct {
	mu      sync.Mutex
	doc     []byte
	loads   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.doc == nil {
		return nil, io.EOF
	}
	return append([]byte(nil), m.doc...), nil
}

func (m *memStore) Save(_ context.Context, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = append([]byte(nil), doc...)
	return nil
}

func (m *memStore) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustSave(ctx context.Context, st Store, s Snapshot) {
	if err := SaveSnapshot(ctx, st, s); err != nil {
		panic(err)
	}
}
