package httpapi

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp"
)

var validate = validator.New()

// SensorView is the JSON representation of a sensor, shaped after the host
// platform's entity state.
type SensorView struct {
	ID          string         `json:"id"`
	EntityID    string         `json:"entity_id"`
	Name        string         `json:"friendly_name"`
	State       *float64       `json:"state"`
	Unit        string         `json:"unit_of_measurement"`
	Icon        string         `json:"icon"`
	DeviceClass string         `json:"device_class"`
	Poller      bool           `json:"poller"`
	Attributes  map[string]any `json:"attributes"`
}

// NewSensorView snapshots a sensor's public state.
func NewSensorView(s *swimtemp.Sensor) SensorView {
	return SensorView{
		ID:          s.ID(),
		EntityID:    s.EntityID(),
		Name:        s.Name(),
		State:       s.State(),
		Unit:        s.Unit(),
		Icon:        s.Icon(),
		DeviceClass: s.DeviceClass(),
		Poller:      s.IsPoller(),
		Attributes:  s.Attributes(),
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *swimtemp.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/sensors", func(c *fiber.Ctx) error {
		sensors := service.Sensors()
		views := make([]SensorView, 0, len(sensors))
		for _, s := range sensors {
			views = append(views, NewSensorView(s))
		}
		return c.JSON(views)
	})

	v1.Get("/sensors/:id", func(c *fiber.Ctx) error {
		q := sensorQuery{ID: c.Params("id")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s, ok := service.Sensor(q.ID)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no sensor with requested id")
		}
		return c.JSON(NewSensorView(s))
	})

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		snap, ok := service.Snapshot()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no snapshot read yet")
		}
		records, err := swimtemp.EncodeRecords(snap)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode snapshot")
		}
		return c.JSON(fiber.Map{
			"kind":    snap.Kind.String(),
			"records": json.RawMessage(records),
		})
	})
}

// sensorQuery holds the path parameters identifying a sensor.
type sensorQuery struct {
	ID string `validate:"required,max=128"`
}
