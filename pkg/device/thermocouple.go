package device

import (
	"math/rand"
	"sync"
)

// Thermocouple reports a single noisy temperature_C reading around a fixed
// base temperature, with a calibration offset that "zero" resets.
type Thermocouple struct {
	mu      sync.Mutex
	id      string
	baseC   float64
	offsetC float64
	sigma   float64
	rng     *rand.Rand
}

// NewThermocouple constructs a thermocouple reading around baseC degrees
// Celsius. The initial calibration offset is derived deterministically from
// id so repeated boots behave the same until zeroed.
func NewThermocouple(id string, baseC float64) *Thermocouple {
	rng := seededRand(id)
	return &Thermocouple{
		id:      id,
		baseC:   baseC,
		offsetC: rng.NormFloat64() * 0.3,
		sigma:   0.05,
		rng:     rng,
	}
}

func (t *Thermocouple) ID() string   { return t.id }
func (t *Thermocouple) Type() string { return "thermocouple" }

func (t *Thermocouple) Descriptor() Descriptor {
	return Descriptor{
		ID:     t.id,
		Type:   t.Type(),
		Status: "nominal",
		Metrics: map[string]Metric{
			"temperature_C": numberMetric("C", 2),
		},
	}
}

func (t *Thermocouple) ReadMeasurement() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	value := t.baseC + t.offsetC + t.rng.NormFloat64()*t.sigma
	return map[string]any{"temperature_C": value}
}

// PerformAction handles {zero:true}, which resets the calibration offset to
// 0. Repeated zero calls are idempotent.
func (t *Thermocouple) PerformAction(cmd map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if truthy(cmd, "zero") {
		t.offsetC = 0
	}
}
