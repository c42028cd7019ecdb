// Package physics implements the PhysicsEngine: a small pure computation
// over a topology of simulated apparatus parts, consulted by SimulatedDevice
// so that simulated instruments behave as if wired into a shared coolant/
// temperature network.
//
// The spec JSON loading follows the same deep-merge-of-overrides shape
// used elsewhere for per-device configuration, generalized to an
// arbitrary apparatus part tree.
package physics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stonegate-lab/stonegate/pkg/util"
)

// Part is a reusable spec template referenced by a graph node.
type Part struct {
	Type  string         `json:"type"`
	Specs map[string]any `json:"specs"`
}

// Step is the derived per-device state SimulatedDevice consults.
type Step struct {
	TemperatureK float64 `json:"temperature_K"`
	NoiseCoeff   float64 `json:"noise_coeff"`
}

// Node is a registered point in the topology: an id, its declared type, and
// the resolved part spec the simulator loader chose for it.
type Node struct {
	ID   string
	Type string
	Part Part
}

// Edge is an unordered, unweighted connection between two node ids.
type Edge struct {
	From string
	To   string
}

// LoadError wraps an I/O or parse failure from a library/overrides load.
// It never poisons engine state — the engine keeps whatever it had before.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "physics: loading " + e.Path + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Engine holds the topology and computes derived per-device state.
//
// compute_step is specified as a pure function of (partsLib, deviceOverrides,
// nodes, edges, controllerStates): repeated calls with unchanged inputs
// produce byte-identical output. The mutex below protects those inputs from
// concurrent mutation; ComputeStep takes a consistent snapshot under lock
// and does its arithmetic outside the lock.
type Engine struct {
	mu sync.Mutex

	partsLib         map[string]Part
	overrides        map[string]map[string]any
	nodes            map[string]Node
	edges            []Edge
	controllerStates map[string]map[string]any

	overridesPath      string
	overridesLastWrite time.Time

	cacheMu sync.Mutex
	cached  map[string]Step

	loopMu    sync.Mutex
	running   bool
	stopCh    chan struct{}
	loopDone  chan struct{}
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		partsLib:         make(map[string]Part),
		overrides:        make(map[string]map[string]any),
		nodes:            make(map[string]Node),
		controllerStates: make(map[string]map[string]any),
		cached:           make(map[string]Step),
	}
}

// LoadPartsLibrary reads the stock parts library JSON file, then — if a
// sibling user_parts.json exists next to it — reads that too and replaces
// stock entries by name (whole-entry override, not a deep merge; deep
// merging only happens for per-device overrides at compute time).
func (e *Engine) LoadPartsLibrary(path string) error {
	stock, err := readPartsFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	userPath := filepath.Join(filepath.Dir(path), "user_parts.json")
	if _, statErr := os.Stat(userPath); statErr == nil {
		user, err := readPartsFile(userPath)
		if err != nil {
			return &LoadError{Path: userPath, Err: err}
		}
		for name, p := range user {
			stock[name] = p
		}
	}

	e.mu.Lock()
	e.partsLib = stock
	e.mu.Unlock()
	return nil
}

func readPartsFile(path string) (map[string]Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parts := make(map[string]Part)
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// LoadDeviceOverrides reads the per-device overrides file, remembers its
// path and mtime for later hot-reload polling, and refreshes the cached
// computed step.
func (e *Engine) LoadDeviceOverrides(path string) error {
	overrides, modTime, err := readOverridesFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	e.mu.Lock()
	e.overrides = overrides
	e.overridesPath = path
	e.overridesLastWrite = modTime
	e.mu.Unlock()

	e.refreshCache()
	return nil
}

func readOverridesFile(path string) (map[string]map[string]any, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	overrides := make(map[string]map[string]any)
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, time.Time{}, err
	}
	return overrides, info.ModTime(), nil
}

// Part looks up a part by name in the loaded parts library.
func (e *Engine) Part(name string) (Part, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.partsLib[name]
	return p, ok
}

// RegisterNode adds (or replaces) a node under its part spec. O(1) under
// the engine lock.
func (e *Engine) RegisterNode(id, nodeType string, part Part) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodes[id] = Node{ID: id, Type: nodeType, Part: part}
}

// RegisterEdge adds a symmetric, unweighted edge between two node ids.
// Either or both ids may be unknown to the registry — such an edge
// contributes nothing to compute_step, but registering it is never an
// error.
func (e *Engine) RegisterEdge(from, to string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.edges = append(e.edges, Edge{From: from, To: to})
}

// UpdateControllerState records the current actuator state a device has
// pushed for itself (e.g. flow_rate_Lmin, setpoint_K).
func (e *Engine) UpdateControllerState(id string, state map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controllerStates[id] = state
}

// ComputeStep is the pure function described on Engine: same
// (partsLib, deviceOverrides, nodes, edges, controllerStates) in, same
// output out.
func (e *Engine) ComputeStep() map[string]Step {
	e.mu.Lock()
	nodes := make(map[string]Node, len(e.nodes))
	for k, v := range e.nodes {
		nodes[k] = v
	}
	edges := append([]Edge(nil), e.edges...)
	overrides := make(map[string]map[string]any, len(e.overrides))
	for k, v := range e.overrides {
		overrides[k] = cloneMap(v)
	}
	controllers := make(map[string]map[string]any, len(e.controllerStates))
	for k, v := range e.controllerStates {
		controllers[k] = cloneMap(v)
	}
	e.mu.Unlock()

	result := make(map[string]Step, len(nodes))
	for id, node := range nodes {
		specs := cloneMap(node.Part.Specs)
		if ov, ok := overrides[id]; ok {
			if ovSpecs, ok2 := ov["specs"].(map[string]any); ok2 {
				specs = deepMerge(specs, ovSpecs)
			}
		}

		tempK := 300.0
		if v, ok := toFloat(specs["setpoint_default"]); ok {
			tempK = v
		}
		noiseCoeff := 0.01
		if v, ok := toFloat(specs["noise_coeff"]); ok {
			noiseCoeff = v
		}

		delta := 0.0
		for _, edge := range edges {
			var other string
			switch id {
			case edge.From:
				other = edge.To
			case edge.To:
				other = edge.From
			default:
				continue
			}
			if cs, ok := controllers[other]; ok {
				if flow, ok2 := toFloat(cs["flow_rate_Lmin"]); ok2 {
					delta -= 0.5 * flow
				}
			}
		}

		final := tempK + delta
		if final < 1.0 {
			final = 1.0
		}
		result[id] = Step{TemperatureK: final, NoiseCoeff: noiseCoeff}
	}
	return result
}

// StartBackgroundLoop spawns one worker that polls the overrides file's
// mtime and republishes the cached step on the given interval. A second
// call while already running is a no-op.
func (e *Engine) StartBackgroundLoop(interval time.Duration) {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})

	go func() {
		defer close(e.loopDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.tick()
			}
		}
	}()
}

// tick runs one iteration of the background loop, swallowing any per-tick
// failure so the loop never dies from a transient I/O error.
func (e *Engine) tick() {
	defer func() {
		if r := recover(); r != nil {
			util.Errorf("physics: background tick panic: %v", r)
		}
	}()

	e.mu.Lock()
	path := e.overridesPath
	lastWrite := e.overridesLastWrite
	e.mu.Unlock()

	if path != "" {
		if info, err := os.Stat(path); err == nil {
			if info.ModTime().After(lastWrite) {
				if overrides, modTime, err := readOverridesFile(path); err == nil {
					e.mu.Lock()
					e.overrides = overrides
					e.overridesLastWrite = modTime
					e.mu.Unlock()
				} else {
					util.Warnf("physics: reloading overrides %s: %v", path, err)
				}
			}
		}
	}

	e.refreshCache()
}

// refreshCache recomputes the step and atomically publishes it.
func (e *Engine) refreshCache() {
	step := e.ComputeStep()
	e.cacheMu.Lock()
	e.cached = step
	e.cacheMu.Unlock()
}

// StopBackgroundLoop signals the worker and joins it. Safe to call multiple
// times, including when the loop was never started.
func (e *Engine) StopBackgroundLoop() {
	e.loopMu.Lock()
	if !e.running {
		e.loopMu.Unlock()
		return
	}
	close(e.stopCh)
	done := e.loopDone
	e.running = false
	e.loopMu.Unlock()

	<-done
}

// ReloadOverrides re-reads the overrides file from whatever path was last
// passed to LoadDeviceOverrides. It is a no-op (success) if no overrides
// file has ever been loaded. Used by SimulatedDevice.TriggerReloadOverrides
// and by the legacy "reload_overrides" control message.
func (e *Engine) ReloadOverrides() error {
	e.mu.Lock()
	path := e.overridesPath
	e.mu.Unlock()
	if path == "" {
		return nil
	}
	return e.LoadDeviceOverrides(path)
}

// GetCachedStep returns an atomic snapshot of the last computed step.
func (e *Engine) GetCachedStep() map[string]Step {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	out := make(map[string]Step, len(e.cached))
	for k, v := range e.cached {
		out[k] = v
	}
	return out
}

// deepMerge recursively merges override onto base: object keys merge
// recursively, scalar and array values replace outright.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, ov := range override {
		if bv, ok := result[k]; ok {
			if bvMap, ok1 := bv.(map[string]any); ok1 {
				if ovMap, ok2 := ov.(map[string]any); ok2 {
					result[k] = deepMerge(bvMap, ovMap)
					continue
				}
			}
		}
		result[k] = ov
	}
	return result
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
