package device

import (
	"math"
	"math/rand"
	"sync"
)

// PhotonicDetector reports photon counts and a dark-count rate, both noisy.
type PhotonicDetector struct {
	mu            sync.Mutex
	id            string
	baseCounts    float64
	darkRate      float64
	sigmaCounts   float64
	sigmaDarkRate float64
	rng           *rand.Rand
}

// NewPhotonicDetector constructs a detector with a fixed mean count rate and
// a starting dark count rate.
func NewPhotonicDetector(id string, baseCounts, darkRate float64) *PhotonicDetector {
	return &PhotonicDetector{
		id:            id,
		baseCounts:    baseCounts,
		darkRate:      darkRate,
		sigmaCounts:   math.Sqrt(math.Max(baseCounts, 1)),
		sigmaDarkRate: 0.5,
		rng:           seededRand(id),
	}
}

func (p *PhotonicDetector) ID() string   { return p.id }
func (p *PhotonicDetector) Type() string { return "photonic_detector" }

func (p *PhotonicDetector) Descriptor() Descriptor {
	return Descriptor{
		ID:     p.id,
		Type:   p.Type(),
		Status: "nominal",
		Metrics: map[string]Metric{
			"counts":    integerMetric("cps"),
			"dark_rate": numberMetric("cps", 2),
		},
	}
}

func (p *PhotonicDetector) ReadMeasurement() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := p.baseCounts + p.rng.NormFloat64()*p.sigmaCounts
	if counts < 0 {
		counts = 0
	}
	darkRate := p.darkRate + p.rng.NormFloat64()*p.sigmaDarkRate
	if darkRate < 0 {
		darkRate = 0
	}
	return map[string]any{
		"counts":    int(counts),
		"dark_rate": darkRate,
	}
}

// PerformAction handles {zero:true}, which resets dark_rate to 0.
func (p *PhotonicDetector) PerformAction(cmd map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if truthy(cmd, "zero") {
		p.darkRate = 0
	}
}
