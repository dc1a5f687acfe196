package swimtemp

import (
	"context"
)

// Source abstracts the provider's two endpoints: the page that lists every
// monitored location and the batched readings endpoint.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]DiscoveryRecord, error)
	Readings(ctx context.Context, ids []string) ([]PollRecord, error)
}

// Store is the contract every snapshot backend (file, bolt, memory) satisfies.
// Load returns the persisted document exactly as written by Save.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, document []byte) error
}

// LoadSnapshot loads and decodes the store's document.
func LoadSnapshot(ctx context.Context, st Store) (Snapshot, error) {
	doc, err := st.Load(ctx)
	if err != nil {
		return Snapshot{}, &StoreIOError{Op: "load", Err: err}
	}
	return DecodeDocument(doc)
}

// SaveSnapshot encodes s and replaces the store's document.
func SaveSnapshot(ctx context.Context, st Store, s Snapshot) error {
	doc, err := EncodeDocument(s)
	if err != nil {
		return err
	}
	if err := st.Save(ctx, doc); err != nil {
		return &StoreIOError{Op: "save", Err: err}
	}
	return nil
}
