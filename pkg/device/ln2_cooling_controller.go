package device

import (
	"math/rand"
	"sync"

	"github.com/stonegate-lab/stonegate/pkg/physics"
)

// LN2CoolingController models a liquid-nitrogen cooling loop: a setpoint and
// a flow rate the operator can drive, with the resulting temperature read
// back noisily. Every action and every read pushes the controller's current
// {flow_rate_Lmin, setpoint_K} into the attached PhysicsEngine so neighboring
// nodes' compute_step reflects it.
type LN2CoolingController struct {
	mu        sync.Mutex
	id        string
	setpointK float64
	flowRate  float64
	sigma     float64
	rng       *rand.Rand
	engine    *physics.Engine
}

// NewLN2CoolingController constructs a controller at the given initial
// setpoint (Kelvin) and flow rate (L/min), wired to engine for controller
// state publication.
func NewLN2CoolingController(id string, setpointK, flowRateLmin float64, engine *physics.Engine) *LN2CoolingController {
	c := &LN2CoolingController{
		id:        id,
		setpointK: setpointK,
		flowRate:  flowRateLmin,
		sigma:     0.2,
		rng:       seededRand(id),
		engine:    engine,
	}
	c.publish()
	return c
}

func (c *LN2CoolingController) ID() string   { return c.id }
func (c *LN2CoolingController) Type() string { return "ln2_cooling_controller" }

func (c *LN2CoolingController) Descriptor() Descriptor {
	return Descriptor{
		ID:     c.id,
		Type:   c.Type(),
		Status: "nominal",
		Metrics: map[string]Metric{
			"temperature_K":  numberMetric("K", 2),
			"flow_rate_Lmin": numberMetric("L/min", 2),
		},
	}
}

func (c *LN2CoolingController) ReadMeasurement() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	temp := c.setpointK + c.rng.NormFloat64()*c.sigma
	result := map[string]any{
		"temperature_K":  temp,
		"flow_rate_Lmin": c.flowRate,
	}
	c.publishLocked()
	return result
}

// PerformAction handles {set_setpoint:n} and {set_flow_rate:n}.
func (c *LN2CoolingController) PerformAction(cmd map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := floatArg(cmd, "set_setpoint"); ok {
		c.setpointK = v
	}
	if v, ok := floatArg(cmd, "set_flow_rate"); ok {
		c.flowRate = v
	}
	c.publishLocked()
}

func (c *LN2CoolingController) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked()
}

func (c *LN2CoolingController) publishLocked() {
	if c.engine == nil {
		return
	}
	c.engine.UpdateControllerState(c.id, map[string]any{
		"flow_rate_Lmin": c.flowRate,
		"setpoint_K":     c.setpointK,
	})
}
