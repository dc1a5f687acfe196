package swimtemp

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestThrottle(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(30*time.Minute, clock.Now)

	if !th.Allow() {
		t.Fatal("first call must be allowed")
	}
	clock.Advance(29 * time.Minute)
	if th.Allow() {
		t.Fatal("call inside the interval must be throttled")
	}
	clock.Advance(time.Minute)
	if !th.Allow() {
		t.Fatal("call after the interval must be allowed")
	}
	th.Reset()
	if !th.Allow() {
		t.Fatal("call after Reset must be allowed")
	}
}

func TestReaderThrottleGate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	st := &memStore{}
	first := NewPollSnapshot([]PollRecord{{ID: "loc1", Value: 18.2, TS: 1690000000000}})
	mustSave(ctx, st, first)

	r := NewReader(st, NewThrottle(30*time.Minute, clock.Now), discardLogger())

	got, err := r.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, first) {
		t.Fatalf("unexpected first read: %+v", got)
	}

	second := NewPollSnapshot([]PollRecord{{ID: "loc1", Value: 19.9, TS: 1690001800000}})
	mustSave(ctx, st, second)

	clock.Advance(10 * time.Minute)
	got, err = r.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, first) {
		t.Fatalf("read inside the interval must return the cached snapshot, got %+v", got)
	}
	if st.loadCount() != 1 {
		t.Fatalf("expected 1 store load, got %d", st.loadCount())
	}

	clock.Advance(20 * time.Minute)
	got, err = r.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("read after the interval must reflect the store, got %+v", got)
	}
	if st.loadCount() != 2 {
		t.Fatalf("expected 2 store loads, got %d", st.loadCount())
	}
}

func TestReaderFailedLoadDoesNotConsumeInterval(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	st := &memStore{loadErr: errors.New("disk gone")}
	r := NewReader(st, NewThrottle(30*time.Minute, clock.Now), discardLogger())

	_, err := r.Read(ctx)
	var ioErr *StoreIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected StoreIOError, got %v", err)
	}

	st.mu.Lock()
	st.loadErr = nil
	st.mu.Unlock()
	mustSave(ctx, st, NewPollSnapshot([]PollRecord{{ID: "a", Value: 1, TS: 1}}))

	got, err := r.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("expected the retried read to hit the store, got %+v", got)
	}
}

func TestReaderInvalidate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	st := &memStore{}
	mustSave(ctx, st, NewPollSnapshot([]PollRecord{{ID: "a", Value: 1, TS: 1}}))
	r := NewReader(st, NewThrottle(30*time.Minute, clock.Now), discardLogger())

	if _, err := r.Read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}
	mustSave(ctx, st, NewPollSnapshot([]PollRecord{{ID: "a", Value: 2, TS: 2}}))
	r.Invalidate()

	got, err := r.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec, _ := got.Reading("a"); rec.Value != 2 {
		t.Fatalf("expected invalidated reader to reload, got %+v", got)
	}
}
