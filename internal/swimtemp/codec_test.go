package swimtemp

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDocumentRoundTrip(t *testing.T) {
	snapshots := map[string]Snapshot{
		"discovery": NewDiscoverySnapshot([]DiscoveryRecord{
			{EntityID: "loc1", Name: "Lake", Location: &Coordinates{Lat: "56.1", Lng: "14.8"}},
			{EntityID: "loc2", Name: "Väggabadet"},
		}),
		"poll": NewPollSnapshot([]PollRecord{
			{ID: "loc1", Value: 21.46, TS: 1690000000000},
			{ID: "loc2", Value: -0.5, TS: 1690000123456},
		}),
	}

	for name, snap := range snapshots {
		t.Run(name, func(t *testing.T) {
			doc, err := EncodeDocument(snap)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeDocument(doc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, snap) {
				t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, snap)
			}
		})
	}
}

func TestDocumentIsDoubleEncoded(t *testing.T) {
	doc, err := EncodeDocument(NewPollSnapshot([]PollRecord{{ID: "loc1", Value: 20, TS: 1}}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var inner string
	if err := json.Unmarshal(doc, &inner); err != nil {
		t.Fatalf("outer layer is not a JSON string: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(inner), &records); err != nil {
		t.Fatalf("inner layer is not a JSON array: %v", err)
	}
	if len(records) != 1 || records[0]["id"] != "loc1" {
		t.Fatalf("unexpected inner records: %v", records)
	}
}

func TestDecodeDocumentWithSpacedJSON(t *testing.T) {
	// json.dump(json.dumps(...)) output, with its ", " and ": " separators.
	doc := []byte(`"[{\"entity_id\": \"a1\", \"name\": \"BREDAVIK\", \"location\": {\"lat\": 56.16, \"lng\": 14.86}}]"`)

	snap, err := DecodeDocument(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Kind != KindDiscovery {
		t.Fatalf("expected discovery snapshot, got %s", snap.Kind)
	}
	rec := snap.Discovery[0]
	if rec.Location == nil || rec.Location.Lat != "56.16" || rec.Location.Lng != "14.86" {
		t.Fatalf("numeric coordinates not coerced to strings: %+v", rec.Location)
	}
}

func TestShapeDetection(t *testing.T) {
	cases := []struct {
		name    string
		records string
		kind    SnapshotKind
		ids     []string
	}{
		{
			name:    "name key selects entity_id",
			records: `[{"entity_id":"e1","name":"Lake","id":"ignored"},{"entity_id":"e2","name":"Sea"}]`,
			kind:    KindDiscovery,
			ids:     []string{"e1", "e2"},
		},
		{
			name:    "no name key selects id",
			records: `[{"id":"p1","value":"20.1","ts":1},{"id":"p2","value":19,"ts":2}]`,
			kind:    KindPoll,
			ids:     []string{"p1", "p2"},
		},
		{
			name:    "numeric ids are coerced",
			records: `[{"id":42,"value":1,"ts":1}]`,
			kind:    KindPoll,
			ids:     []string{"42"},
		},
		{
			name:    "empty array",
			records: `[]`,
			kind:    KindPoll,
			ids:     []string{},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snap, err := DecodeRecords([]byte(c.records))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if snap.Kind != c.kind {
				t.Fatalf("expected kind %s, got %s", c.kind, snap.Kind)
			}
			if got := snap.IDs(); !reflect.DeepEqual(got, c.ids) {
				t.Fatalf("expected ids %v, got %v", c.ids, got)
			}
		})
	}
}

func TestShapeMismatch(t *testing.T) {
	_, err := DecodeRecords([]byte(`[{"foo":1,"bar":2}]`))
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}
	if !reflect.DeepEqual(shapeErr.Keys, []string{"bar", "foo"}) {
		t.Fatalf("unexpected keys: %v", shapeErr.Keys)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, doc := range []string{`not json`, `"[{broken"`, `"{\"id\":1}"`} {
		_, err := DecodeDocument([]byte(doc))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("DecodeDocument(%s): expected ParseError, got %v", doc, err)
		}
	}
}

func TestPollRecordCoercion(t *testing.T) {
	var rec PollRecord
	if err := json.Unmarshal([]byte(`{"id":"x","value":" 7.25 ","ts":1690000000000.0}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Value != 7.25 || rec.TS != 1690000000000 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := json.Unmarshal([]byte(`{"id":"x","value":"warm","ts":1}`), &rec); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
