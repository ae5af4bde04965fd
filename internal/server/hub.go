// ABOUTME: WebSocket status feed for connected UIs
// ABOUTME: Broadcasts status messages and recording events to every subscriber
package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// sendBuffer is the per-client queue of pending events
	sendBuffer = 64

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Event types sent on the status feed
const (
	EventStatus   = "status"
	EventArtifact = "artifact"
)

// Event is one message on the status feed
type Event struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Message string    `json:"message,omitempty"`
	State   string    `json:"state,omitempty"`

	// Set on artifact events
	Artifact *ArtifactInfo `json:"artifact,omitempty"`
}

// Hub fans status events out to websocket clients. It implements
// recorder.StatusSink.
type Hub struct {
	logger *zap.Logger
	state  func() string

	mu      sync.RWMutex
	clients map[string]*hubClient
	last    *Event
	closed  bool
}

type hubClient struct {
	id       string
	conn     *websocket.Conn
	sendChan chan Event
	once     sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.sendChan) })
}

// NewHub creates a hub. state reports the recorder state attached to
// every status event and may be nil.
func NewHub(logger *zap.Logger, state func() string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		state:   state,
		clients: make(map[string]*hubClient),
	}
}

// SetStatus broadcasts a status message
func (h *Hub) SetStatus(message string) {
	event := Event{Type: EventStatus, Time: time.Now().UTC(), Message: message}
	if h.state != nil {
		event.State = h.state()
	}
	h.broadcast(event)
}

// ArtifactReady broadcasts a finished recording
func (h *Hub) ArtifactReady(info ArtifactInfo) {
	h.broadcast(Event{Type: EventArtifact, Time: time.Now().UTC(), Artifact: &info})
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if event.Type == EventStatus {
		h.last = &event
	}
	for _, client := range h.clients {
		select {
		case client.sendChan <- event:
		default:
			// A stalled UI must never hold up the recorder
			h.logger.Warn("status client send buffer full, dropping event",
				zap.String("client_id", client.id))
		}
	}
}

// Serve registers conn and blocks until the client goes away. The latest
// status is replayed first so a new UI starts current.
func (h *Hub) Serve(conn *websocket.Conn) {
	client := &hubClient{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan Event, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	if h.last != nil {
		client.sendChan <- *h.last
	}
	h.clients[client.id] = client
	h.mu.Unlock()

	h.logger.Debug("status client connected",
		zap.String("client_id", client.id),
		zap.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writer(client)
	}()

	// The feed is one-way; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("status client read error", zap.Error(err))
			}
			break
		}
	}

	h.remove(client)
	<-done
	_ = conn.Close()
	h.logger.Debug("status client disconnected", zap.String("client_id", client.id))
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	delete(h.clients, client.id)
	h.mu.Unlock()
	client.close()
}

// writer sends events to one client
func (h *Hub) writer(client *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.sendChan:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeDeadline))
				_ = client.conn.Close()
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("status client write failed", zap.Error(err))
				_ = client.conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*hubClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
