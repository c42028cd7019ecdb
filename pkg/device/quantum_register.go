package device

import "sync"

// QuantumRegister holds a fixed-size vector of classical bits standing in
// for a register of qubits.
type QuantumRegister struct {
	mu    sync.Mutex
	id    string
	state []int
}

// NewQuantumRegister constructs a register of the given size, all zeroed.
func NewQuantumRegister(id string, size int) *QuantumRegister {
	return &QuantumRegister{id: id, state: make([]int, size)}
}

func (q *QuantumRegister) ID() string   { return q.id }
func (q *QuantumRegister) Type() string { return "quantum_register" }

func (q *QuantumRegister) Descriptor() Descriptor {
	return Descriptor{
		ID:     q.id,
		Type:   q.Type(),
		Status: "nominal",
		Specs:  map[string]any{"size": len(q.state)},
		Metrics: map[string]Metric{
			"state_vector": vectorMetric(),
		},
	}
}

func (q *QuantumRegister) ReadMeasurement() map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	vec := make([]int, len(q.state))
	copy(vec, q.state)
	return map[string]any{"state_vector": vec}
}

// PerformAction handles {reset_all:true} (zeroes every bit) and
// {apply_gate:any} (flips every bit, regardless of the gate argument's
// value — this register only models a bit-flip channel).
func (q *QuantumRegister) PerformAction(cmd map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if truthy(cmd, "reset_all") {
		for i := range q.state {
			q.state[i] = 0
		}
	}
	if _, ok := cmd["apply_gate"]; ok {
		for i := range q.state {
			q.state[i] ^= 1
		}
	}
}
