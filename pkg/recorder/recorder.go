// Package recorder implements record.start/record.stop: sampling a set of
// devices at independent rates into a long-form CSV file.
package recorder

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stonegate-lab/stonegate/pkg/errs"
	"github.com/stonegate-lab/stonegate/pkg/registry"
	"github.com/stonegate-lab/stonegate/pkg/util"
)

// Stream describes one device to sample at its own rate.
type Stream struct {
	DeviceID string   `json:"device_id"`
	Metrics  []string `json:"metrics,omitempty"`
	RateHz   float64  `json:"rate_hz"`
}

// StartParams is record.start's request shape.
type StartParams struct {
	Streams      []Stream `json:"streams"`
	ScriptName   string   `json:"script_name,omitempty"`
	OperatorName string   `json:"operator_name,omitempty"`
}

// StartResult is record.start's response shape.
type StartResult struct {
	RecordingID string `json:"recording_id"`
	Path        string `json:"path"`
}

// StopResult is record.stop's response shape.
type StopResult struct {
	RecordingID    string `json:"recording_id"`
	Path           string `json:"path"`
	SamplesWritten int64  `json:"samples_written"`
	StartedTsMs    int64  `json:"started_ts_ms"`
	StoppedTsMs    int64  `json:"stopped_ts_ms"`
}

// session is one running recording.
type session struct {
	recordingID    string
	path           string
	startedTsMs    int64
	stoppedTsMs    int64
	samplesWritten int64 // atomic

	writeMu sync.Mutex
	file    *os.File
	writer  *csv.Writer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Recorder owns every in-flight recording session.
type Recorder struct {
	mu            sync.Mutex
	reg           *registry.Registry
	recordingsDir string

	sessions map[string]*session
}

// New returns a Recorder that samples devices from reg and writes CSV files
// under recordingsDir.
func New(reg *registry.Registry, recordingsDir string) *Recorder {
	return &Recorder{
		reg:           reg,
		recordingsDir: recordingsDir,
		sessions:      make(map[string]*session),
	}
}

// Start validates params, opens a new CSV file, and spawns one sampling
// worker per valid stream.
func (r *Recorder) Start(params StartParams) (StartResult, error) {
	if len(params.Streams) == 0 {
		return StartResult{}, errs.New(errs.DRecordStreamsRequired, "")
	}

	valid := make([]Stream, 0, len(params.Streams))
	for _, s := range params.Streams {
		if s.DeviceID == "" {
			return StartResult{}, errs.New(errs.DRecordStreamMissingDevice, "")
		}
		if s.RateHz <= 0 {
			return StartResult{}, errs.New(errs.DRecordStreamRateInvalid, s.DeviceID)
		}
		if _, ok := r.reg.Get(s.DeviceID); !ok {
			continue // unknown device: skip this stream, not a hard failure
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return StartResult{}, errs.New(errs.DRecordNoValidStreams, "")
	}

	recordingID, err := util.RandomHex(8)
	if err != nil {
		return StartResult{}, errs.New(errs.DRecordOpenFileFailed, err.Error())
	}

	if err := os.MkdirAll(r.recordingsDir, 0755); err != nil {
		return StartResult{}, errs.New(errs.DRecordOpenFileFailed, err.Error())
	}
	path := filepath.Join(r.recordingsDir, recordingID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return StartResult{}, errs.New(errs.DRecordOpenFileFailed, err.Error())
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ts_ms", "device_id", "metric", "value"}); err != nil {
		f.Close()
		return StartResult{}, errs.New(errs.DRecordOpenFileFailed, err.Error())
	}
	w.Flush()

	sess := &session{
		recordingID: recordingID,
		path:        path,
		startedTsMs: time.Now().UnixMilli(),
		file:        f,
		writer:      w,
		stopCh:      make(chan struct{}),
	}

	r.mu.Lock()
	r.sessions[recordingID] = sess
	r.mu.Unlock()

	for _, stream := range valid {
		sess.wg.Add(1)
		go r.sample(sess, stream)
	}

	return StartResult{RecordingID: recordingID, Path: path}, nil
}

// Stop signals the session's workers, joins them, flushes and closes the
// file, and returns a summary. Stopping an unknown id is an error.
func (r *Recorder) Stop(recordingID string) (StopResult, error) {
	r.mu.Lock()
	sess, ok := r.sessions[recordingID]
	if ok {
		delete(r.sessions, recordingID)
	}
	r.mu.Unlock()
	if !ok {
		return StopResult{}, errs.New(errs.DUnknownRecordingID, recordingID)
	}

	close(sess.stopCh)
	sess.wg.Wait()

	sess.writeMu.Lock()
	sess.writer.Flush()
	sess.file.Close()
	sess.stoppedTsMs = time.Now().UnixMilli()
	sess.writeMu.Unlock()

	return StopResult{
		RecordingID:    sess.recordingID,
		Path:           sess.path,
		SamplesWritten: atomic.LoadInt64(&sess.samplesWritten),
		StartedTsMs:    sess.startedTsMs,
		StoppedTsMs:    sess.stoppedTsMs,
	}, nil
}

// StopAll stops every running session, for process shutdown.
func (r *Recorder) StopAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(id)
	}
}

// sample runs one stream's worker: sampling its device at rate_hz until the
// session is stopped. Per-tick device read errors are recovered and simply
// skipped — they never stop the session.
func (r *Recorder) sample(sess *session, stream Stream) {
	defer sess.wg.Done()

	interval := time.Duration(float64(time.Second) / stream.RateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.stopCh:
			return
		case <-ticker.C:
			r.tick(sess, stream)
		}
	}
}

func (r *Recorder) tick(sess *session, stream Stream) {
	defer func() { recover() }()

	dev, ok := r.reg.Get(stream.DeviceID)
	if !ok {
		return
	}
	reading := dev.ReadMeasurement()

	metrics := stream.Metrics
	if len(metrics) == 0 {
		metrics = make([]string, 0, len(reading))
		for k := range reading {
			metrics = append(metrics, k)
		}
	}

	tsMs := strconv.FormatInt(time.Now().UnixMilli(), 10)

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	for _, metric := range metrics {
		v, ok := reading[metric]
		if !ok {
			continue
		}
		sess.writer.Write([]string{tsMs, stream.DeviceID, metric, formatValue(v)})
		atomic.AddInt64(&sess.samplesWritten, 1)
	}
	sess.writer.Flush()
}

// formatValue normalizes a measurement value to a CSV field: numbers and
// booleans render as plain text, everything else serializes as a string
// (encoding/csv applies standard quoting where needed).
func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case int:
		return strconv.Itoa(n)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
