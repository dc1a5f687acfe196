package swimtemp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/i474232898/badtemp-karlshamn/internal/common"
)

// SnapshotKind tells which of the two provider payload shapes a Snapshot holds.
type SnapshotKind int

const (
	// KindPoll is the flat {id, value, ts} shape returned by the poll endpoint.
	KindPoll SnapshotKind = iota
	// KindDiscovery is the {entity_id, name, location} shape scraped from the page.
	KindDiscovery
)

func (k SnapshotKind) String() string {
	switch k {
	case KindDiscovery:
		return "discovery"
	case KindPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Coordinates holds a location's position as published by the provider.
type Coordinates struct {
	Lat FlexString `json:"lat"`
	Lng FlexString `json:"lng"`
}

// DiscoveryRecord is one monitored location as embedded in the provider page.
type DiscoveryRecord struct {
	EntityID FlexString   `json:"entity_id"`
	Name     string       `json:"name"`
	Location *Coordinates `json:"location,omitempty"`
}

// PollRecord is one reading returned by the poll endpoint.
type PollRecord struct {
	ID    FlexString `json:"id"`
	Value FlexFloat  `json:"value"`
	TS    int64      `json:"ts"`
}

// UnmarshalJSON accepts ts as an integer or a float number of milliseconds.
func (r *PollRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    FlexString  `json:"id"`
		Value FlexFloat   `json:"value"`
		TS    json.Number `json:"ts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.Value = raw.Value
	r.TS = 0
	if raw.TS != "" {
		if ms, err := raw.TS.Int64(); err == nil {
			r.TS = ms
		} else {
			f, err := raw.TS.Float64()
			if err != nil {
				return fmt.Errorf("ts %q: %w", raw.TS, err)
			}
			r.TS = int64(f)
		}
	}
	return nil
}

// Snapshot is the latest dataset written by either fetcher. Exactly one of
// Discovery or Poll is populated, according to Kind.
type Snapshot struct {
	Kind      SnapshotKind
	Discovery []DiscoveryRecord
	Poll      []PollRecord
}

// NewDiscoverySnapshot wraps scraped records.
func NewDiscoverySnapshot(records []DiscoveryRecord) Snapshot {
	return Snapshot{Kind: KindDiscovery, Discovery: records}
}

// NewPollSnapshot wraps poll readings.
func NewPollSnapshot(records []PollRecord) Snapshot {
	return Snapshot{Kind: KindPoll, Poll: records}
}

// IDs returns the location identifiers in snapshot order.
func (s Snapshot) IDs() []string {
	switch s.Kind {
	case KindDiscovery:
		ids := make([]string, 0, len(s.Discovery))
		for _, r := range s.Discovery {
			ids = append(ids, string(r.EntityID))
		}
		return ids
	default:
		ids := make([]string, 0, len(s.Poll))
		for _, r := range s.Poll {
			ids = append(ids, string(r.ID))
		}
		return ids
	}
}

// Reading returns the poll record for id. Discovery snapshots carry no readings.
func (s Snapshot) Reading(id string) (PollRecord, bool) {
	if s.Kind != KindPoll {
		return PollRecord{}, false
	}
	for _, r := range s.Poll {
		if string(r.ID) == id {
			return r, true
		}
	}
	return PollRecord{}, false
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	if s.Kind == KindDiscovery {
		return len(s.Discovery)
	}
	return len(s.Poll)
}

// Location is a monitored swim area as enumerated at discovery.
type Location struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (l Location) HasCoordinates() bool {
	return l.Latitude != "" && l.Longitude != ""
}

// Locations converts discovery records into locations, keeping page order.
func Locations(records []DiscoveryRecord) []Location {
	locs := make([]Location, 0, len(records))
	for _, r := range records {
		loc := Location{
			ID:   string(r.EntityID),
			Name: capitalize(r.Name),
		}
		if r.Location != nil {
			loc.Latitude = string(r.Location.Lat)
			loc.Longitude = string(r.Location.Lng)
		}
		locs = append(locs, loc)
	}
	return locs
}

// RoundTemperature rounds a reading to one decimal.
func RoundTemperature(v float64) float64 {
	return common.RoundTo(v, 1)
}

// ReadingTime converts epoch milliseconds into a local time truncated to the second.
func ReadingTime(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ms/1000, 0).In(loc)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// FlexFloat decodes a JSON number or numeric string into a float64.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("value %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}
