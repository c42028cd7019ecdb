package device

import "sync"

// LaserController exposes a controllable phase and intensity, read back
// exactly (no noise — these are command-driven setpoints, not sensors).
type LaserController struct {
	mu        sync.Mutex
	id        string
	phaseRad  float64
	intensity float64
}

// NewLaserController constructs a laser controller at the given initial
// phase (radians) and intensity (arbitrary unit, typically 0..1).
func NewLaserController(id string, phaseRad, intensity float64) *LaserController {
	return &LaserController{id: id, phaseRad: phaseRad, intensity: intensity}
}

func (l *LaserController) ID() string   { return l.id }
func (l *LaserController) Type() string { return "laser_controller" }

func (l *LaserController) Descriptor() Descriptor {
	return Descriptor{
		ID:     l.id,
		Type:   l.Type(),
		Status: "nominal",
		Metrics: map[string]Metric{
			"phase_rad": numberMetric("rad", 4),
			"intensity": numberMetric("", 4),
		},
	}
}

func (l *LaserController) ReadMeasurement() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]any{
		"phase_rad": l.phaseRad,
		"intensity": l.intensity,
	}
}

// PerformAction handles {set_phase:n} and {set_intensity:n}.
func (l *LaserController) PerformAction(cmd map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := floatArg(cmd, "set_phase"); ok {
		l.phaseRad = v
	}
	if v, ok := floatArg(cmd, "set_intensity"); ok {
		l.intensity = v
	}
}
