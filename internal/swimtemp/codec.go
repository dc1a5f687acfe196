package swimtemp

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EncodeDocument renders a snapshot as its persisted form: the JSON array
// text, itself encoded again as a JSON string.
func EncodeDocument(s Snapshot) ([]byte, error) {
	inner, err := EncodeRecords(s)
	if err != nil {
		return nil, err
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return outer, nil
}

// DecodeDocument reverses both encoding layers of a persisted document.
func DecodeDocument(data []byte) (Snapshot, error) {
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return Snapshot{}, &ParseError{What: "snapshot document", Err: err}
	}
	return DecodeRecords([]byte(inner))
}

// EncodeRecords renders the snapshot's records as a plain JSON array.
func EncodeRecords(s Snapshot) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch s.Kind {
	case KindDiscovery:
		out, err = json.Marshal(nonNil(s.Discovery))
	default:
		out, err = json.Marshal(nonNil(s.Poll))
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s records: %w", s.Kind, err)
	}
	return out, nil
}

// DecodeRecords decodes a plain JSON array and detects its shape from the
// first record: a name key marks a discovery snapshot, an id key a poll one.
func DecodeRecords(data []byte) (Snapshot, error) {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Snapshot{}, &ParseError{What: "snapshot records", Err: err}
	}
	if len(probe) == 0 {
		return NewPollSnapshot([]PollRecord{}), nil
	}

	first := probe[0]
	if _, ok := first["name"]; ok {
		var records []DiscoveryRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return Snapshot{}, &ParseError{What: "discovery records", Err: err}
		}
		return NewDiscoverySnapshot(records), nil
	}
	if _, ok := first["id"]; ok {
		var records []PollRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return Snapshot{}, &ParseError{What: "poll records", Err: err}
		}
		return NewPollSnapshot(records), nil
	}

	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Snapshot{}, &ShapeMismatchError{Keys: keys}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
