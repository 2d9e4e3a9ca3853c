package sync

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SharedCanvas/internal/replica"
)

// syncMessage is the websocket frame: a batch of replica ops. The host
// sends its full op log as the first frame so a late joiner catches up
// before live traffic; everything after that is incremental. Ops are
// idempotent and order-independent, so redelivery and reordering across
// reconnects are harmless.
type syncMessage struct {
	Type string       `json:"type"` // "snapshot" or "ops"
	Ops  []replica.Op `json:"ops,omitempty"`
}

var upgrader = websocket.Upgrader{
	// Peers are on the local network; the document id is the only
	// shared secret this tool has.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans frames out to every connected peer, like the host's
// connection table. Writes are serialized per connection.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]*sync.Mutex)}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = &sync.Mutex{}
	h.mu.Unlock()
	log.Printf("[sync] peer connected from %s", c.RemoteAddr())
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	log.Printf("[sync] peer disconnected: %s", c.RemoteAddr())
}

func (h *hub) writeTo(c *websocket.Conn, msg syncMessage) error {
	h.mu.Lock()
	wmu, ok := h.conns[c]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("sync: connection already closed")
	}
	wmu.Lock()
	defer wmu.Unlock()
	return c.WriteJSON(msg)
}

// broadcast relays a frame to every peer except the one it came from.
func (h *hub) broadcast(msg syncMessage, exclude *websocket.Conn) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		if c != exclude {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()
	for _, c := range conns {
		if err := h.writeTo(c, msg); err != nil {
			log.Printf("[sync] broadcast to %s failed: %v", c.RemoteAddr(), err)
		}
	}
}

// Host serves the document over websocket on the given port. The host
// is itself always "connected": its replica is the rendezvous point.
func (s *Session) Host(port int) error {
	h := newHub()

	s.setSend(func(ops []replica.Op) error {
		h.broadcast(syncMessage{Type: "ops", Ops: ops}, nil)
		return nil
	})
	s.setConnected(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/sync/"+s.id, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[sync] upgrade failed: %v", err)
			return
		}
		h.add(conn)
		defer func() {
			h.remove(conn)
			conn.Close()
		}()

		if err := h.writeTo(conn, syncMessage{Type: "snapshot", Ops: s.doc.Ops()}); err != nil {
			log.Printf("[sync] snapshot send failed: %v", err)
			return
		}

		for {
			var msg syncMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.doc.Apply(msg.Ops)
			// Relay to the other peers.
			h.broadcast(syncMessage{Type: "ops", Ops: msg.Ops}, conn)
		}
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-s.done
		server.Close()
	}()
	go func() {
		log.Printf("[sync] hosting document %q on port %d", s.id, port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[sync] host server stopped: %v", err)
		}
	}()
	return nil
}

// Join connects to a host at addr (host:port) and keeps the link alive,
// reconnecting with a fixed backoff until the session closes. Document
// operations never block on this: while the link is down they hit the
// local replica and queue for replay.
func (s *Session) Join(addr string) error {
	url := fmt.Sprintf("ws://%s/sync/%s", addr, s.id)
	go func() {
		for !s.closed() {
			if err := s.runClient(url); err != nil {
				log.Printf("[sync] link to %s lost: %v", addr, err)
			}
			s.setConnected(false)
			select {
			case <-s.done:
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
	return nil
}

func (s *Session) runClient(url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	log.Printf("[sync] connected to %s", url)

	go func() {
		<-s.done
		conn.Close()
	}()

	var wmu sync.Mutex
	s.setSend(func(ops []replica.Op) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteJSON(syncMessage{Type: "ops", Ops: ops})
	})

	// Offer our op log so edits made while offline reach the host even
	// if they predate the queue.
	wmu.Lock()
	err = conn.WriteJSON(syncMessage{Type: "ops", Ops: s.doc.Ops()})
	wmu.Unlock()
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	s.setConnected(true)

	for {
		var msg syncMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.doc.Apply(msg.Ops)
	}
}
