// Package errs defines StoneGate's numeric error catalog. Every user-visible
// failure surfaced through the session/RPC layer carries one of these codes
// plus a short, stable, SCREAMING_SNAKE detail constant — dispatcher code
// matches on the constant, never on the rendered message string.
package errs

import "fmt"

// Code is a catalog error code, e.g. "2400".
type Code string

const (
	// CodeControl covers all control/RPC request rejections.
	CodeControl Code = "2400"
	// CodeSessionDropped marks an unexpected websocket session loss.
	CodeSessionDropped Code = "2410"
)

// Detail is one of the fixed, stable detail strings a caller can match on.
type Detail string

const (
	DInvalidRequest            Detail = "invalid request"
	DRPCMissingID               Detail = "rpc request missing id"
	DRPCMissingMethod           Detail = "rpc request missing method"
	DUnknownRPCMethod           Detail = "unknown rpc method"
	DMissingDeviceID            Detail = "missing params.device_id"
	DMissingAction              Detail = "missing params.action"
	DUnknownDevice              Detail = "unknown device"
	DRecorderNotInitialized     Detail = "recorder not initialized"
	DRecordStartFailed          Detail = "record.start failed"
	DMissingRecordingID         Detail = "missing params.recording_id"
	DUnknownRecordingID         Detail = "unknown recording_id"
	DMeasurementsMustBeArray    Detail = "params.measurements must be array"
	DRecordParamsMustBeObject   Detail = "record.start params must be object"
	DRecordStreamsRequired      Detail = "record.start requires non-empty streams[]"
	DRecordStreamMissingDevice  Detail = "record.start stream missing device_id"
	DRecordStreamRateInvalid    Detail = "record.start stream rate_hz must be > 0"
	DRecordNoValidStreams       Detail = "record.start: no valid streams"
	DRecordOpenFileFailed       Detail = "failed to open recording file"
	DSessionDropped             Detail = "websocket session dropped unexpectedly"
)

// detailKeys maps a Detail onto its D2400_SCREAMING_SNAKE identifier, used
// by dispatcher code and tests that want to match on a stable token rather
// than the human-readable sentence.
var detailKeys = map[Detail]string{
	DInvalidRequest:            "D2400_INVALID_REQUEST",
	DRPCMissingID:              "D2400_RPC_MISSING_ID",
	DRPCMissingMethod:          "D2400_RPC_MISSING_METHOD",
	DUnknownRPCMethod:          "D2400_UNKNOWN_RPC_METHOD",
	DMissingDeviceID:           "D2400_MISSING_DEVICE_ID",
	DMissingAction:             "D2400_MISSING_ACTION",
	DUnknownDevice:             "D2400_UNKNOWN_DEVICE",
	DRecorderNotInitialized:    "D2400_RECORDER_NOT_INITIALIZED",
	DRecordStartFailed:         "D2400_RECORD_START_FAILED",
	DMissingRecordingID:        "D2400_MISSING_RECORDING_ID",
	DUnknownRecordingID:        "D2400_UNKNOWN_RECORDING_ID",
	DMeasurementsMustBeArray:   "D2400_MEASUREMENTS_MUST_BE_ARRAY",
	DRecordParamsMustBeObject:  "D2400_RECORD_PARAMS_MUST_BE_OBJECT",
	DRecordStreamsRequired:     "D2400_RECORD_STREAMS_REQUIRED",
	DRecordStreamMissingDevice: "D2400_RECORD_STREAM_MISSING_DEVICE_ID",
	DRecordStreamRateInvalid:   "D2400_RECORD_STREAM_RATE_INVALID",
	DRecordNoValidStreams:      "D2400_RECORD_NO_VALID_STREAMS",
	DRecordOpenFileFailed:      "D2400_RECORD_OPEN_FILE_FAILED",
	DSessionDropped:            "D2410_SESSION_DROPPED",
}

// Err is a catalog error: a stable code, a stable detail key, and an
// optional free-form context string that Error appends in parentheses (the
// dispatcher sends that rendered string to the client as the message).
type Err struct {
	Code    Code
	Detail  Detail
	Context string
}

func (e *Err) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("Control rejected: %s", e.Detail)
	}
	return fmt.Sprintf("Control rejected: %s (%s)", e.Detail, e.Context)
}

// Key returns the stable D<code>_SCREAMING_SNAKE identifier for this error's
// detail, e.g. "D2400_RPC_MISSING_ID".
func (e *Err) Key() string {
	if k, ok := detailKeys[e.Detail]; ok {
		return k
	}
	return "D" + string(e.Code) + "_UNKNOWN"
}

// New constructs a control-rejected (2400) error with the given detail.
func New(detail Detail, context string) *Err {
	return &Err{Code: CodeControl, Detail: detail, Context: context}
}

// SessionDropped constructs the 2410 session-dropped error.
func SessionDropped(context string) *Err {
	return &Err{Code: CodeSessionDropped, Detail: DSessionDropped, Context: context}
}
