package device

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/stonegate-lab/stonegate/pkg/physics"
)

// SimulatedDevice stands in for any node loaded from a device graph whose
// type the simulator loader recognized (or not — unknown types still get
// one of these, with an empty property list). Thermometer-like properties
// are answered from the attached PhysicsEngine's cached step; everything
// else is a persistent value plus engine-supplied Gaussian noise, so that
// actions issued from the UI have visible, lasting effects on later reads.
type SimulatedDevice struct {
	mu         sync.Mutex
	id         string
	deviceType string
	properties []string
	specs      map[string]any
	state      map[string]any
	rng        *rand.Rand
	engine     *physics.Engine
}

// NewSimulatedDevice constructs a simulated device for id/deviceType with
// the given property list (from ComponentSchema.json; may be empty for an
// unrecognized node type) and resolved part specs.
func NewSimulatedDevice(id, deviceType string, properties []string, specs map[string]any, engine *physics.Engine) *SimulatedDevice {
	return &SimulatedDevice{
		id:         id,
		deviceType: deviceType,
		properties: properties,
		specs:      specs,
		state:      make(map[string]any),
		rng:        seededRand(id),
		engine:     engine,
	}
}

func (s *SimulatedDevice) ID() string   { return s.id }
func (s *SimulatedDevice) Type() string { return s.deviceType }

func (s *SimulatedDevice) Descriptor() Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics := make(map[string]Metric, len(s.properties))
	for _, p := range s.properties {
		if isTemperatureLike(p) {
			metrics[p] = numberMetric("K", 3)
		} else {
			metrics[p] = numberMetric("", 4)
		}
	}
	return Descriptor{
		ID:      s.id,
		Type:    s.deviceType,
		Status:  "nominal",
		Specs:   s.specs,
		Metrics: metrics,
	}
}

func (s *SimulatedDevice) ReadMeasurement() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var step physics.Step
	if s.engine != nil {
		step = s.engine.GetCachedStep()[s.id]
	}
	noiseCoeff := step.NoiseCoeff
	if noiseCoeff == 0 {
		noiseCoeff = 0.01
	}

	result := make(map[string]any, len(s.properties))
	for _, p := range s.properties {
		if isTemperatureLike(p) {
			result[p] = step.TemperatureK
			continue
		}
		base, _ := toFloatAny(s.state[p])
		result[p] = base + noiseCoeff*s.rng.NormFloat64()
	}
	return result
}

// PerformAction merges every key in cmd into the device's persistent state
// map, so later reads reflect it. Unknown keys are harmless — they simply
// aren't among the properties ReadMeasurement reports.
func (s *SimulatedDevice) PerformAction(cmd map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range cmd {
		s.state[k] = v
	}
}

// TriggerReloadOverrides asks the attached PhysicsEngine to reload its
// overrides file, returning whether the reload succeeded.
func (s *SimulatedDevice) TriggerReloadOverrides() bool {
	if s.engine == nil {
		return false
	}
	return s.engine.ReloadOverrides() == nil
}

func isTemperatureLike(property string) bool {
	p := strings.ToLower(property)
	return strings.Contains(p, "temperature") || strings.HasSuffix(p, "_k") || strings.HasSuffix(p, "_c")
}

func toFloatAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
