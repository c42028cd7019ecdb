package session

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/stonegate-lab/stonegate/pkg/buildinfo"
	"github.com/stonegate-lab/stonegate/pkg/device"
	"github.com/stonegate-lab/stonegate/pkg/errs"
	"github.com/stonegate-lab/stonegate/pkg/qec"
	"github.com/stonegate-lab/stonegate/pkg/recorder"
	"github.com/stonegate-lab/stonegate/pkg/schematic"
	"github.com/stonegate-lab/stonegate/pkg/util"
	"github.com/stonegate-lab/stonegate/pkg/version"
)

type rpcError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type rpcResponse struct {
	Type   string    `json:"type"`
	ID     any       `json:"id,omitempty"`
	OK     bool      `json:"ok"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

func errResponse(id any, err *errs.Err) rpcResponse {
	return rpcResponse{
		Type: "rpc_result",
		ID:   id,
		OK:   false,
		Error: &rpcError{
			Code:    string(err.Code),
			Message: err.Error(),
			Details: map[string]string{"detail": string(err.Detail)},
		},
	}
}

// dispatch classifies an inbound frame as legacy control or RPC and routes
// it accordingly. Frames matching neither shape are rejected as invalid.
func (srv *Server) dispatch(sess *Session, raw []byte) {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		sess.enqueue(mustMarshal(errResponse(nil, errs.New(errs.DInvalidRequest, err.Error()))))
		return
	}

	if t, _ := msg["type"].(string); t == "rpc" {
		srv.dispatchRPC(sess, msg)
		return
	}
	if _, ok := msg["cmd"]; ok {
		srv.dispatchLegacy(sess, msg)
		return
	}
	sess.enqueue(mustMarshal(errResponse(nil, errs.New(errs.DInvalidRequest, ""))))
}

func (srv *Server) dispatchRPC(sess *Session, msg map[string]any) {
	id, hasID := msg["id"]
	if !hasID || id == nil || id == "" {
		sess.enqueue(mustMarshal(errResponse(id, errs.New(errs.DRPCMissingID, ""))))
		return
	}
	method, _ := msg["method"].(string)
	if method == "" {
		sess.enqueue(mustMarshal(errResponse(id, errs.New(errs.DRPCMissingMethod, ""))))
		return
	}
	params, _ := msg["params"].(map[string]any)

	srv.broadcastLog("rpc.in", sess.id, map[string]any{
		"rpc_id":      id,
		"method":      method,
		"params_keys": keysOf(params),
	})

	start := time.Now()
	result, err := srv.callMethod(method, params)
	log := util.WithFields(map[string]any{
		"method":     method,
		"session_id": sess.id,
		"duration":   time.Since(start).String(),
		"ok":         err == nil,
	})

	if err != nil {
		var cerr *errs.Err
		if !errors.As(err, &cerr) {
			cerr = errs.New(errs.DInvalidRequest, err.Error())
		}
		log.Warn("rpc failed")
		sess.enqueue(mustMarshal(errResponse(id, cerr)))
		return
	}

	log.Info("rpc ok")
	sess.enqueue(mustMarshal(rpcResponse{Type: "rpc_result", ID: id, OK: true, Result: result}))
}

func (srv *Server) dispatchLegacy(sess *Session, msg map[string]any) {
	cmd, _ := msg["cmd"].(string)
	srv.broadcastLog("control."+cmd, sess.id, map[string]any{"cmd": cmd})
	util.WithFields(map[string]any{"cmd": cmd, "session_id": sess.id}).Info("control command")

	switch cmd {
	case "reload_overrides":
		srv.reg.ForEach(func(d device.Device) {
			if sim, ok := d.(*device.SimulatedDevice); ok {
				sim.TriggerReloadOverrides()
			}
		})
	case "action", "device_action":
		deviceID, _ := msg["device_id"].(string)
		action, _ := msg["action"].(map[string]any)
		_ = srv.performDeviceAction(deviceID, action)
	}
}

// callMethod is the full RPC method table.
func (srv *Server) callMethod(method string, params map[string]any) (any, error) {
	switch method {
	case "devices.list":
		return map[string]any{"devices": srv.reg.DescriptorGraph()}, nil
	case "devices.poll":
		return map[string]any{"updates": srv.reg.PollAll()}, nil
	case "backend.info":
		return srv.backendInfo()
	case "graph.get":
		return srv.graphGet(params)
	case "graph.save":
		return srv.graphSave(params)
	case "graph.list":
		return srv.graphList()
	case "graph.load":
		return srv.graphLoad(params)
	case "graph.set_active":
		return srv.graphSetActive(params)
	case "device.action":
		return srv.deviceAction(params)
	case "record.start":
		return srv.recordStart(params)
	case "record.stop":
		return srv.recordStop(params)
	case "qec.decode":
		return srv.qecDecode(params)
	case "qec.benchmark":
		return srv.qecBenchmark(params)
	default:
		return nil, errs.New(errs.DUnknownRPCMethod, method)
	}
}

func (srv *Server) backendInfo() (any, error) {
	_, _, graphHash, schemaHash, _, activeName, err := srv.resolveGraph()
	if err != nil {
		graphHash, schemaHash = "", ""
	}
	return map[string]any{
		"port":              srv.port,
		"git_commit":        version.GitCommit,
		"build_time":        version.BuildDate,
		"protocol_version":  version.ProtocolVersion,
		"capabilities":      version.Capabilities,
		"mode":              srv.mode,
		"device_graph_path": srv.graphPath,
		"graph_hash":        graphHash,
		"schema_hash":       schemaHash,
		"active_schematic":  activeName,
	}, nil
}

// resolveGraph returns the graph/schema stonegate currently considers
// current: the active schematic if one is set and loadable, otherwise the
// canonical on-disk files. Used by both backend.info and graph.get so the
// two stay consistent with each other.
func (srv *Server) resolveGraph() (graph, schema any, graphHash, schemaHash string, usingActive bool, activeName string, err error) {
	activeName = srv.store.ActiveSchematic()
	if activeName != "" {
		f, loadErr := srv.store.Load(activeName)
		if loadErr == nil {
			gBytes, _ := json.Marshal(f.Graph)
			sBytes, _ := json.Marshal(f.Schema)
			return f.Graph, f.Schema, buildinfo.Hash(gBytes), buildinfo.Hash(sBytes), true, activeName, nil
		}
	}

	graphData, err := os.ReadFile(srv.graphPath)
	if err != nil {
		return nil, nil, "", "", false, activeName, err
	}
	schemaData, err := os.ReadFile(srv.schemaPath)
	if err != nil {
		return nil, nil, "", "", false, activeName, err
	}
	json.Unmarshal(graphData, &graph)
	json.Unmarshal(schemaData, &schema)
	return graph, schema, buildinfo.Hash(graphData), buildinfo.Hash(schemaData), false, activeName, nil
}

func (srv *Server) graphGet(params map[string]any) (any, error) {
	includeGraph := boolParam(params, "include_graph", true)
	includeSchema := boolParam(params, "include_schema", true)

	graph, schema, graphHash, schemaHash, usingActive, activeName, err := srv.resolveGraph()
	if err != nil {
		return nil, errs.New(errs.DInvalidRequest, err.Error())
	}

	result := map[string]any{
		"available":        true,
		"graph_hash":       graphHash,
		"schema_hash":      schemaHash,
		"active_schematic": activeName,
		"using_active":     usingActive,
	}
	if includeGraph {
		result["graph"] = graph
	}
	if includeSchema {
		result["schema"] = schema
	}
	return result, nil
}

func (srv *Server) graphSave(params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	graph := params["graph"]
	schema := params["schema"]
	overwrite := boolParam(params, "overwrite", false)

	savedName, path, err := srv.store.Save(name, graph, schema, overwrite)
	if err != nil {
		return nil, errs.New(errs.DInvalidRequest, err.Error())
	}

	gBytes, _ := json.Marshal(graph)
	sBytes, _ := json.Marshal(schema)
	return map[string]any{
		"saved":       true,
		"name":        savedName,
		"path":        path,
		"graph_hash":  buildinfo.Hash(gBytes),
		"schema_hash": buildinfo.Hash(sBytes),
	}, nil
}

func (srv *Server) graphList() (any, error) {
	list, err := srv.store.List()
	if err != nil {
		return nil, errs.New(errs.DInvalidRequest, err.Error())
	}
	return map[string]any{"schematics": list}, nil
}

func (srv *Server) graphLoad(params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	f, err := srv.store.Load(name)
	if err != nil {
		if errors.Is(err, schematic.ErrNotFound) {
			return map[string]any{"available": false}, nil
		}
		return nil, errs.New(errs.DInvalidRequest, err.Error())
	}

	gBytes, _ := json.Marshal(f.Graph)
	sBytes, _ := json.Marshal(f.Schema)
	return map[string]any{
		"available":   true,
		"graph":       f.Graph,
		"schema":      f.Schema,
		"graph_hash":  buildinfo.Hash(gBytes),
		"schema_hash": buildinfo.Hash(sBytes),
		"path":        srv.store.Path(name),
	}, nil
}

func (srv *Server) graphSetActive(params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	sanitized, err := srv.store.SetActive(name)
	if err != nil {
		return nil, errs.New(errs.DInvalidRequest, err.Error())
	}
	return map[string]any{
		"ok":               true,
		"active_schematic": sanitized,
		"restart_required": true,
	}, nil
}

func (srv *Server) deviceAction(params map[string]any) (any, error) {
	deviceID, _ := params["device_id"].(string)
	action, hasAction := params["action"].(map[string]any)
	if deviceID == "" {
		return nil, errs.New(errs.DMissingDeviceID, "")
	}
	if !hasAction {
		return nil, errs.New(errs.DMissingAction, "")
	}
	if err := srv.performDeviceAction(deviceID, action); err != nil {
		return nil, err
	}
	return map[string]any{"device_id": deviceID, "applied": true}, nil
}

// performDeviceAction looks up deviceID, maps action through the
// device-type-aware rewrite rules, and applies it. It is shared by
// device.action and the legacy action|device_action control shape.
func (srv *Server) performDeviceAction(deviceID string, action map[string]any) error {
	dev, ok := srv.reg.Get(deviceID)
	if !ok {
		return errs.New(errs.DUnknownDevice, deviceID)
	}
	dev.PerformAction(mapAction(dev.Type(), action))
	return nil
}

// mapAction rewrites keys under action["set"] to set_<key>, with
// per-device-type overrides and a unit-suffix-strip fallback; set_* keys
// inside the envelope are kept as they are. An action without a "set"
// envelope passes through unchanged. When "set" is present, only the keys
// produced from it are returned; other top-level keys are dropped.
func mapAction(deviceType string, action map[string]any) map[string]any {
	out := make(map[string]any, len(action))

	setMap, hasSet := action["set"].(map[string]any)
	if !hasSet {
		for k, v := range action {
			out[k] = v
		}
		return out
	}

	for k, v := range setMap {
		if strings.HasPrefix(k, "set_") {
			out[k] = v
			continue
		}
		mapped := deviceTypeOverride(deviceType, k)
		if mapped == "" {
			mapped = "set_" + k
		}
		out[mapped] = v

		if base := stripLastUnderscoreSegment(k); base != k {
			out["set_"+base] = v
		}
	}
	return out
}

func deviceTypeOverride(deviceType, key string) string {
	switch deviceType {
	case "laser_controller":
		switch key {
		case "phase_rad":
			return "set_phase"
		case "intensity", "power", "optical_power":
			return "set_intensity"
		}
	case "ln2_cooling_controller":
		switch key {
		case "temperature_K", "setpoint_K":
			return "set_setpoint"
		case "flow_rate_Lmin":
			return "set_flow_rate"
		}
	}
	return ""
}

func stripLastUnderscoreSegment(k string) string {
	idx := strings.LastIndex(k, "_")
	if idx < 0 {
		return k
	}
	return k[:idx]
}

func (srv *Server) recordStart(params map[string]any) (any, error) {
	if params == nil {
		return nil, errs.New(errs.DRecordParamsMustBeObject, "")
	}

	rawStreams, _ := params["streams"].([]any)
	streams := make([]recorder.Stream, 0, len(rawStreams))
	for _, raw := range rawStreams {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		deviceID, _ := m["device_id"].(string)
		rateHz, _ := m["rate_hz"].(float64)
		var metrics []string
		if rawMetrics, ok := m["metrics"].([]any); ok {
			for _, rm := range rawMetrics {
				if s, ok := rm.(string); ok {
					metrics = append(metrics, s)
				}
			}
		}
		streams = append(streams, recorder.Stream{DeviceID: deviceID, Metrics: metrics, RateHz: rateHz})
	}

	scriptName, _ := params["script_name"].(string)
	operatorName, _ := params["operator_name"].(string)

	result, err := srv.rec.Start(recorder.StartParams{Streams: streams, ScriptName: scriptName, OperatorName: operatorName})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (srv *Server) recordStop(params map[string]any) (any, error) {
	recordingID, _ := params["recording_id"].(string)
	if recordingID == "" {
		return nil, errs.New(errs.DMissingRecordingID, "")
	}
	result, err := srv.rec.Stop(recordingID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (srv *Server) qecDecode(params map[string]any) (any, error) {
	rawMeasurements, ok := params["measurements"].([]any)
	if params != nil && params["measurements"] != nil && !ok {
		return nil, errs.New(errs.DMeasurementsMustBeArray, "")
	}

	measurements := make([][]int, 0, len(rawMeasurements))
	for _, round := range rawMeasurements {
		roundSlice, ok := round.([]any)
		if !ok {
			return nil, errs.New(errs.DMeasurementsMustBeArray, "")
		}
		row := make([]int, len(roundSlice))
		for i, v := range roundSlice {
			row[i] = intFromAny(v)
		}
		measurements = append(measurements, row)
	}

	result, err := qec.Decode(measurements)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (srv *Server) qecBenchmark(params map[string]any) (any, error) {
	code, _ := params["code"].(string)
	pFlip, _ := params["p_flip"].(float64)
	rounds := intFromAny(params["rounds"])
	shots := intFromAny(params["shots"])
	seed := int64(intFromAny(params["seed"]))

	distance := 0
	if nested, ok := params["params"].(map[string]any); ok {
		distance = intFromAny(nested["distance"])
	}

	result, err := qec.Benchmark(qec.BenchmarkParams{
		Code:     code,
		PFlip:    pFlip,
		Rounds:   rounds,
		Shots:    shots,
		Seed:     seed,
		Distance: distance,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"rpc_result","ok":false,"error":{"code":"2400","message":"internal marshal error"}}`)
	}
	return data
}
