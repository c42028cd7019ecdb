package device

import "sync"

// PulseSequencer models a loaded pulse-sequence program stepping forward
// while running.
type PulseSequencer struct {
	mu           sync.Mutex
	id           string
	loadedScript string
	currentStep  int
	running      bool
}

// NewPulseSequencer constructs a stopped sequencer at step 0.
func NewPulseSequencer(id string) *PulseSequencer {
	return &PulseSequencer{id: id}
}

func (p *PulseSequencer) ID() string   { return p.id }
func (p *PulseSequencer) Type() string { return "pulse_sequencer" }

func (p *PulseSequencer) Descriptor() Descriptor {
	return Descriptor{
		ID:     p.id,
		Type:   p.Type(),
		Status: "nominal",
		Metrics: map[string]Metric{
			"current_step": integerMetric(""),
			"running":      boolMetric(),
		},
	}
}

func (p *PulseSequencer) ReadMeasurement() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]any{
		"current_step": p.currentStep,
		"running":      p.running,
	}
}

// PerformAction handles {load:string}, {start:true}, {stop:true}, and
// {step:true}.
func (p *PulseSequencer) PerformAction(cmd map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := stringArg(cmd, "load"); ok {
		p.loadedScript = v
		p.currentStep = 0
	}
	if truthy(cmd, "start") {
		p.running = true
	}
	if truthy(cmd, "stop") {
		p.running = false
	}
	if truthy(cmd, "step") {
		p.currentStep++
	}
}
