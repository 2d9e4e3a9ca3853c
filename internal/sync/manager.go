// Package sync owns the live collaboration sessions: one replica and
// document store per opened document, a websocket transport that
// exchanges replica ops with peers, and LAN discovery. Disconnection is
// a steady state here, not an error: every document operation keeps
// working against the local replica, ops queue while offline and replay
// when the link comes back.
package sync

import (
	"log"
	"sync"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/replica"
)

// Manager is an explicit factory for sessions. Whoever opens a document
// owns the handle and closes it; there is no process-wide registry.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Open returns the session for a document id, creating its replica and
// store on first open.
func (m *Manager) Open(documentID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[documentID]; ok {
		return s
	}
	d := replica.NewDoc()
	s := &Session{
		id:    documentID,
		doc:   d,
		store: doc.NewStore(d),
		done:  make(chan struct{}),
	}
	d.SetOnLocalOps(s.shipLocal)
	m.sessions[documentID] = s
	log.Printf("[sync] session %q opened (site %s)", documentID, d.Site())
	return s
}

// Close tears the session down and forgets it. The local replica and
// its data stay valid for reads; only replication stops.
func (m *Manager) Close(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
	s.shutdown()
	log.Printf("[sync] session %q closed", s.id)
}

// Session is one document's replication handle: the store UI code talks
// to, the connectivity signal, and the offline queue.
type Session struct {
	id    string
	doc   *replica.Doc
	store *doc.Store

	mu        sync.Mutex
	connected bool
	onStatus  func(bool)
	pending   []replica.Op
	send      func([]replica.Op) error

	done     chan struct{}
	shutOnce sync.Once
}

// Store returns the document store backed by this session's replica.
func (s *Session) Store() *doc.Store {
	return s.store
}

// ID returns the document id the session was opened for.
func (s *Session) ID() string {
	return s.id
}

// Connected reports whether a replication link is currently up.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SetOnStatus registers the connectivity listener.
func (s *Session) SetOnStatus(fn func(bool)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// shipLocal forwards freshly minted local ops to the transport, or
// queues them while disconnected for replay on reconnect.
func (s *Session) shipLocal(ops []replica.Op) {
	s.mu.Lock()
	send := s.send
	up := s.connected
	if !up || send == nil {
		s.pending = append(s.pending, ops...)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := send(ops); err != nil {
		log.Printf("[sync] send failed, queueing %d op(s): %v", len(ops), err)
		s.mu.Lock()
		s.pending = append(s.pending, ops...)
		s.mu.Unlock()
	}
}

// setConnected flips the connectivity signal and, on reconnect, flushes
// the offline queue.
func (s *Session) setConnected(up bool) {
	s.mu.Lock()
	changed := s.connected != up
	s.connected = up
	fn := s.onStatus
	var backlog []replica.Op
	send := s.send
	if up && len(s.pending) > 0 {
		backlog = s.pending
		s.pending = nil
	}
	s.mu.Unlock()

	if len(backlog) > 0 && send != nil {
		if err := send(backlog); err != nil {
			log.Printf("[sync] replay failed, requeueing %d op(s): %v", len(backlog), err)
			s.mu.Lock()
			s.pending = append(backlog, s.pending...)
			s.mu.Unlock()
		} else {
			log.Printf("[sync] replayed %d queued op(s)", len(backlog))
		}
	}
	if changed && fn != nil {
		fn(up)
	}
}

func (s *Session) setSend(fn func([]replica.Op) error) {
	s.mu.Lock()
	s.send = fn
	s.mu.Unlock()
}

func (s *Session) shutdown() {
	s.shutOnce.Do(func() { close(s.done) })
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
