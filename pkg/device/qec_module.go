package device

import "sync"

// QECModule holds the latest extracted syndrome and whether a correction
// was applied for it, plus the configured code type.
type QECModule struct {
	mu                sync.Mutex
	id                string
	syndrome          int
	correctionApplied bool
	codeType          string
}

// NewQECModule constructs a module configured for the given code type
// (e.g. "repetition", "surface").
func NewQECModule(id, codeType string) *QECModule {
	return &QECModule{id: id, codeType: codeType}
}

func (q *QECModule) ID() string   { return q.id }
func (q *QECModule) Type() string { return "qec_module" }

func (q *QECModule) Descriptor() Descriptor {
	return Descriptor{
		ID:     q.id,
		Type:   q.Type(),
		Status: "nominal",
		Specs:  map[string]any{"code_type": q.codeType},
		Metrics: map[string]Metric{
			"syndrome":           integerMetric(""),
			"correction_applied": boolMetric(),
		},
	}
}

func (q *QECModule) ReadMeasurement() map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[string]any{
		"syndrome":           q.syndrome,
		"correction_applied": q.correctionApplied,
	}
}

// PerformAction handles {extract_syndrome:int}, {apply_correction:bool},
// and {set_code_type:string}.
func (q *QECModule) PerformAction(cmd map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if v, ok := intArg(cmd, "extract_syndrome"); ok {
		q.syndrome = v
	}
	if v, ok := cmd["apply_correction"]; ok {
		if b, ok2 := v.(bool); ok2 {
			q.correctionApplied = b
		}
	}
	if v, ok := stringArg(cmd, "set_code_type"); ok {
		q.codeType = v
	}
}
