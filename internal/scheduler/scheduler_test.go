package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingTicker struct {
	calls atomic.Int32
	err   error
}

func (c *countingTicker) Tick(ctx context.Context) error {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("tick without deadline")
	}
	return c.err
}

func TestSchedulerRunsTicks(t *testing.T) {
	ticker := &countingTicker{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(ticker, 50*time.Millisecond, time.Second, logger)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for ticker.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := ticker.calls.Load(); got < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", got)
	}
}

func TestRunSurvivesTickErrors(t *testing.T) {
	ticker := &countingTicker{err: errors.New("poll failed")}
	s := New(ticker, time.Minute, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.run()
	s.run()
	if got := ticker.calls.Load(); got != 2 {
		t.Fatalf("expected 2 ticks, got %d", got)
	}
}
