package live

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/loomui/loom/pkg/ir"
)

// Message types pushed to connected dev tooling.
const (
	MsgReload      = "reload"
	MsgDiagnostics = "diagnostics"
)

// Message is the wire format of one push.
type Message struct {
	Type        string        `json:"type"`
	File        string        `json:"file,omitempty"`
	Diagnostics []DiagPayload `json:"diagnostics,omitempty"`
}

// DiagPayload is one diagnostic in wire form.
type DiagPayload struct {
	Kind string `json:"kind"`
	Pos  string `json:"pos"`
	Msg  string `json:"msg"`
}

func diagPayloads(diags []ir.Diagnostic) []DiagPayload {
	out := make([]DiagPayload, 0, len(diags))
	for _, d := range diags {
		out = append(out, DiagPayload{Kind: d.Kind.String(), Pos: d.Pos.String(), Msg: d.Msg})
	}
	return out
}

// Server broadcasts reload and diagnostic messages to websocket clients.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewServer creates an empty broadcast server.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dev tooling connects from arbitrary local origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWebSocket upgrades a connection and keeps it registered until the
// peer goes away. Incoming messages are ignored; the channel is push-only.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[live] websocket read: %v", err)
			}
			return
		}
	}
}

// Broadcast sends a message to every connected client.
func (s *Server) Broadcast(msg Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[live] broadcast to client: %v", err)
		}
	}
}

// ClientCount reports the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
