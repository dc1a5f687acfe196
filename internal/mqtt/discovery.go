package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/i474232898/badtemp-karlshamn/internal/common"
	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"

	component = "badtemp"
)

// Topics derives every topic used for a set of sensors.
type Topics struct {
	// Prefix roots the state, attribute and availability topics.
	Prefix string
	// DiscoveryPrefix is Home Assistant's discovery root, usually "homeassistant".
	DiscoveryPrefix string
}

func (t Topics) Availability() string {
	return t.Prefix + "/status"
}

func (t Topics) State(sensorID string) string {
	return t.Prefix + "/sensor/" + topicID(sensorID) + "/state"
}

func (t Topics) Attributes(sensorID string) string {
	return t.Prefix + "/sensor/" + topicID(sensorID) + "/attributes"
}

// Discovery is the retained config topic Home Assistant listens on.
func (t Topics) Discovery(sensorID string) string {
	return t.DiscoveryPrefix + "/sensor/" + component + "/" + topicID(sensorID) + "/config"
}

// DeviceInfo groups all sensors under one device in Home Assistant.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
}

// DefaultDevice describes the Karlshamn bathing water service.
var DefaultDevice = DeviceInfo{
	Identifiers:  []string{"badtemp_karlshamn"},
	Name:         "Badtemperaturer Karlshamn",
	Model:        "Bathing water temperatures",
	Manufacturer: "Karlshamns kommun",
}

// DiscoveryConfig is the Home Assistant MQTT sensor discovery payload.
type DiscoveryConfig struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	ObjectID            string     `json:"object_id"`
	StateTopic          string     `json:"state_topic"`
	AttributesTopic     string     `json:"json_attributes_topic"`
	AvailabilityTopic   string     `json:"availability_topic"`
	PayloadAvailable    string     `json:"payload_available"`
	PayloadNotAvailable string     `json:"payload_not_available"`
	Unit                string     `json:"unit_of_measurement"`
	DeviceClass         string     `json:"device_class"`
	StateClass          string     `json:"state_class"`
	Icon                string     `json:"icon"`
	Device              DeviceInfo `json:"device"`
}

// NewDiscoveryConfig builds the discovery payload for one sensor.
func NewDiscoveryConfig(s *swimtemp.Sensor, topics Topics, device DeviceInfo) DiscoveryConfig {
	return DiscoveryConfig{
		Name:                s.Name(),
		UniqueID:            component + "_" + topicID(s.ID()),
		ObjectID:            objectID(s.EntityID()),
		StateTopic:          topics.State(s.ID()),
		AttributesTopic:     topics.Attributes(s.ID()),
		AvailabilityTopic:   topics.Availability(),
		PayloadAvailable:    PayloadOnline,
		PayloadNotAvailable: PayloadOffline,
		Unit:                s.Unit(),
		DeviceClass:         s.DeviceClass(),
		StateClass:          "measurement",
		Icon:                s.Icon(),
		Device:              device,
	}
}

// MarshalDiscovery renders the discovery payload for one sensor.
func MarshalDiscovery(s *swimtemp.Sensor, topics Topics, device DeviceInfo) ([]byte, error) {
	payload, err := json.Marshal(NewDiscoveryConfig(s, topics, device))
	if err != nil {
		return nil, fmt.Errorf("marshal discovery config for %s: %w", s.ID(), err)
	}
	return payload, nil
}

// topicID makes a location id safe for use as a single topic level.
func topicID(id string) string {
	if slug := common.Slugify(id); slug != "" {
		return slug
	}
	return "unknown"
}

// objectID strips the "sensor." domain so Home Assistant derives the same
// entity id the sensor reports.
func objectID(entityID string) string {
	const domain = "sensor."
	if len(entityID) > len(domain) && entityID[:len(domain)] == domain {
		return entityID[len(domain):]
	}
	return entityID
}
