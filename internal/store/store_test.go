package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type documentStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, document []byte) error
}

func exerciseStore(t *testing.T, s documentStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	first := []byte(`"[{\"id\":\"loc1\",\"value\":21.4,\"ts\":1}]"`)
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Fatalf("expected %s, got %s", first, got)
	}

	// Whole document is replaced, never merged.
	second := []byte(`"[]"`)
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("expected %s, got %s", second, got)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	if s.Saves() != 2 {
		t.Fatalf("expected 2 saves, got %d", s.Saves())
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	doc := []byte(`"[]"`)
	if err := s.Save(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc[1] = 'x'

	got, _ := s.Load(context.Background())
	if string(got) != `"[]"` {
		t.Fatalf("store aliased caller buffer: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultSnapshotPath)
	s := NewFileStore(path)
	exerciseStore(t, s)

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot file to remain, got %d entries", len(entries))
	}
}

func TestFileStoreDefaultPath(t *testing.T) {
	if got := NewFileStore("").Path(); got != DefaultSnapshotPath {
		t.Fatalf("expected %q, got %q", DefaultSnapshotPath, got)
	}
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The document survives a reopen.
	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if string(got) != `"[]"` {
		t.Fatalf("unexpected document after reopen: %s", got)
	}
}
