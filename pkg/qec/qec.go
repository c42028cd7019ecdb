// Package qec implements the two quantum-error-correction stub RPCs:
// decode (deterministic majority vote) and benchmark (Monte-Carlo /
// heuristic logical error rate estimates). Neither talks to real hardware —
// both are closed-form or simulated stand-ins the original spec documents
// as deliberately simplified.
package qec

import (
	"math"
	"math/rand"
	"time"

	"github.com/stonegate-lab/stonegate/pkg/util"
)

// DecodeResult is qec.decode's RPC result.
type DecodeResult struct {
	JobID       string         `json:"job_id"`
	Status      string         `json:"status"`
	Corrections []int          `json:"corrections"`
	Statistics  map[string]any `json:"statistics"`
}

// Decode performs a per-qubit majority vote across rounds of measurements.
// measurements is rounds×qubits; ties (equal zeros and ones) resolve to 0.
func Decode(measurements [][]int) (DecodeResult, error) {
	jobID, err := util.RandomHex(8)
	if err != nil {
		return DecodeResult{}, err
	}

	qubits := 0
	if len(measurements) > 0 {
		qubits = len(measurements[0])
	}

	corrections := make([]int, qubits)
	for q := 0; q < qubits; q++ {
		ones := 0
		for _, round := range measurements {
			if q < len(round) && round[q] == 1 {
				ones++
			}
		}
		zeros := len(measurements) - ones
		if ones > zeros {
			corrections[q] = 1
		}
	}

	return DecodeResult{
		JobID:       jobID,
		Status:      "done",
		Corrections: corrections,
		Statistics: map[string]any{
			"qubits":       qubits,
			"measurements": len(measurements),
		},
	}, nil
}

// BenchmarkParams collects qec.benchmark's input parameters.
type BenchmarkParams struct {
	Code     string
	PFlip    float64
	Rounds   int
	Shots    int
	Seed     int64
	Distance int
}

// BenchmarkResult is qec.benchmark's RPC result.
type BenchmarkResult struct {
	JobID      string         `json:"job_id"`
	Status     string         `json:"status"`
	Statistics map[string]any `json:"statistics"`
}

const (
	surfaceHeuristicA    = 0.1
	surfaceThresholdFlip = 0.01
)

// Benchmark dispatches on params.Code:
//   - "repetition": Monte-Carlo majority vote over independent Bernoulli(p)
//     round flips, shots times. Seed 0 means "use a time-derived seed"
//     rather than the literal value 0.
//   - "surface": closed-form heuristic A*(p/p_th)^((d+1)/2).
//   - "custom": echoes p_flip without further computation.
func Benchmark(p BenchmarkParams) (BenchmarkResult, error) {
	jobID, err := util.RandomHex(8)
	if err != nil {
		return BenchmarkResult{}, err
	}

	var stats map[string]any
	switch p.Code {
	case "surface":
		stats = surfaceStatistics(p)
	case "custom":
		stats = map[string]any{"p_flip": p.PFlip}
	default: // "repetition" and any unrecognized code fall back to the repetition model
		stats = repetitionStatistics(p)
	}

	return BenchmarkResult{JobID: jobID, Status: "done", Statistics: stats}, nil
}

func repetitionStatistics(p BenchmarkParams) map[string]any {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	shots := p.Shots
	if shots <= 0 {
		shots = 1
	}
	rounds := p.Rounds
	if rounds <= 0 {
		rounds = 1
	}

	errors := 0
	for s := 0; s < shots; s++ {
		flips := 0
		for r := 0; r < rounds; r++ {
			if rng.Float64() < p.PFlip {
				flips++
			}
		}
		if flips > rounds-flips {
			errors++
		}
	}

	return map[string]any{
		"logical_error_rate": float64(errors) / float64(shots),
		"shots":              shots,
		"rounds":             rounds,
		"p_flip":             p.PFlip,
	}
}

func surfaceStatistics(p BenchmarkParams) map[string]any {
	d := p.Distance
	if d < 3 {
		d = 3
	}
	if d%2 == 0 {
		d++
	}

	rate := surfaceHeuristicA * math.Pow(p.PFlip/surfaceThresholdFlip, float64(d+1)/2)

	return map[string]any{
		"logical_error_rate": rate,
		"distance":           d,
		"p_flip":             p.PFlip,
	}
}
