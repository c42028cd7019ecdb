package device

import "sync"

// AncillaQubit holds a single classical bit of qubit state plus a free-form
// role label (e.g. "syndrome", "flag").
type AncillaQubit struct {
	mu    sync.Mutex
	id    string
	state int
	role  string
}

// NewAncillaQubit constructs an ancilla qubit starting in state 0 with the
// given role.
func NewAncillaQubit(id, role string) *AncillaQubit {
	return &AncillaQubit{id: id, role: role}
}

func (a *AncillaQubit) ID() string   { return a.id }
func (a *AncillaQubit) Type() string { return "ancilla_qubit" }

func (a *AncillaQubit) Descriptor() Descriptor {
	return Descriptor{
		ID:     a.id,
		Type:   a.Type(),
		Status: "nominal",
		Metrics: map[string]Metric{
			"state": integerMetric(""),
			"role":  stringMetric(),
		},
	}
}

func (a *AncillaQubit) ReadMeasurement() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]any{
		"state": a.state,
		"role":  a.role,
	}
}

// PerformAction handles {reset:true} (state := 0, idempotent) and
// {set_role:string}.
func (a *AncillaQubit) PerformAction(cmd map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if truthy(cmd, "reset") {
		a.state = 0
	}
	if v, ok := stringArg(cmd, "set_role"); ok {
		a.role = v
	}
}
