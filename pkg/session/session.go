// Package session implements the duplex websocket channel described in the
// session & protocol dispatcher: one connection per client at /status, an
// initial descriptor snapshot, a 500ms measurement broadcast, and the RPC +
// legacy control dispatch described alongside it.
package session

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stonegate-lab/stonegate/pkg/mirror"
	"github.com/stonegate-lab/stonegate/pkg/physics"
	"github.com/stonegate-lab/stonegate/pkg/recorder"
	"github.com/stonegate-lab/stonegate/pkg/registry"
	"github.com/stonegate-lab/stonegate/pkg/schematic"
	"github.com/stonegate-lab/stonegate/pkg/util"
)

// sendQueueDepth bounds each session's outbound frame queue. On overflow the
// oldest queued frame is dropped, never the newest.
const sendQueueDepth = 64

// upgrader allows any origin: stonegate serves a lab-console UI that may be
// hosted separately from the backend during development.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Session is one accepted websocket connection. All writes to it are
// serialized through its own writeLoop goroutine.
type Session struct {
	id      string
	conn    *websocket.Conn
	sendCh  chan []byte
	dropped int64

	mu sync.Mutex // guards dropped
}

func newSession(id string, conn *websocket.Conn) *Session {
	return &Session{id: id, conn: conn, sendCh: make(chan []byte, sendQueueDepth)}
}

// enqueue posts data onto the session's send queue, dropping the oldest
// queued frame first if the queue is full.
func (s *Session) enqueue(data []byte) {
	select {
	case s.sendCh <- data:
		return
	default:
	}
	select {
	case <-s.sendCh:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	default:
	}
	select {
	case s.sendCh <- data:
	default:
		// Queue refilled between the drop and this send; give up silently
		// rather than block the caller (broadcast loop or an RPC handler).
	}
}

// Dropped returns the number of frames dropped for overflow so far.
func (s *Session) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Session) writeLoop() {
	for data := range s.sendCh {
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Server owns every accepted session plus the domain components an RPC
// method may touch.
type Server struct {
	reg    *registry.Registry
	engine *physics.Engine
	store  *schematic.Store
	rec    *recorder.Recorder
	mir    *mirror.Mirror

	graphPath  string
	schemaPath string
	port       int
	mode       string

	mu       sync.RWMutex
	sessions map[string]*Session

	loopMu   sync.Mutex
	running  bool
	stopCh   chan struct{}
	loopDone chan struct{}

	totalDropped int64
}

// NewServer wires together the components a running StoneGate server needs
// to answer RPCs and broadcast measurements.
func NewServer(reg *registry.Registry, engine *physics.Engine, store *schematic.Store, rec *recorder.Recorder, mir *mirror.Mirror, graphPath, schemaPath string, port int, mode string) *Server {
	return &Server{
		reg:        reg,
		engine:     engine,
		store:      store,
		rec:        rec,
		mir:        mir,
		graphPath:  graphPath,
		schemaPath: schemaPath,
		port:       port,
		mode:       mode,
		sessions:   make(map[string]*Session),
	}
}

func (srv *Server) addSession(sess *Session) {
	srv.mu.Lock()
	srv.sessions[sess.id] = sess
	srv.mu.Unlock()
}

func (srv *Server) removeSession(id string) {
	srv.mu.Lock()
	delete(srv.sessions, id)
	srv.mu.Unlock()
}

func (srv *Server) snapshotSessions() []*Session {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	out := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		out = append(out, s)
	}
	return out
}

// HandleWebSocket upgrades the request and serves one session until the
// connection drops.
func (srv *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Warnf("session: websocket upgrade failed: %v", err)
		return
	}

	id, err := util.RandomHex(4)
	if err != nil {
		id = "anonymous"
	}
	sess := newSession(id, conn)
	srv.addSession(sess)
	util.WithSession(id).Info("session connected")

	go sess.writeLoop()

	snapshot, err := json.Marshal(map[string]any{
		"type":    "descriptor",
		"devices": srv.reg.DescriptorGraph(),
	})
	if err == nil {
		sess.enqueue(snapshot)
	}

	defer func() {
		srv.mu.Lock()
		srv.totalDropped += sess.Dropped()
		srv.mu.Unlock()
		srv.removeSession(id)
		conn.Close()
		util.WithSession(id).Info("session disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		srv.dispatch(sess, raw)
	}
}

// StartBroadcastLoop starts the periodic measurement_update broadcast. It is
// idempotent: calling it while already running is a no-op.
func (srv *Server) StartBroadcastLoop(interval time.Duration) {
	srv.loopMu.Lock()
	defer srv.loopMu.Unlock()
	if srv.running {
		return
	}
	srv.running = true
	srv.stopCh = make(chan struct{})
	srv.loopDone = make(chan struct{})

	go func() {
		defer close(srv.loopDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-srv.stopCh:
				return
			case <-ticker.C:
				srv.broadcastMeasurements()
			}
		}
	}()
}

// StopBroadcastLoop stops the broadcast goroutine. Safe to call multiple
// times, including when the loop was never started.
func (srv *Server) StopBroadcastLoop() {
	srv.loopMu.Lock()
	defer srv.loopMu.Unlock()
	if !srv.running {
		return
	}
	close(srv.stopCh)
	<-srv.loopDone
	srv.running = false
}

func (srv *Server) broadcastMeasurements() {
	updates := srv.reg.PollAll()
	data, err := json.Marshal(map[string]any{"type": "measurement_update", "updates": updates})
	if err != nil {
		return
	}
	srv.mir.PublishMeasurements(updates)
	srv.mir.PublishDescriptors(srv.reg.DescriptorGraph())
	for _, sess := range srv.snapshotSessions() {
		sess.enqueue(data)
	}
}

// broadcastLog emits a diagnostic backend.log frame to every session,
// best effort, echoing dispatcher-side events back to connected clients.
func (srv *Server) broadcastLog(kind, sessionID string, fields map[string]any) {
	entry := map[string]any{
		"type":       "backend.log",
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"ts_ms":      time.Now().UnixMilli(),
		"level":      "info",
		"origin":     "dispatcher",
		"session_id": sessionID,
		"kind":       kind,
		"fields":     fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	for _, sess := range srv.snapshotSessions() {
		sess.enqueue(data)
	}
}
