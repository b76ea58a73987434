package plot

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/logger"
)

// Message types pushed to websocket clients
const (
	MessageInitialData    = "initialData"
	MessageDrawingSaved   = "drawingSaved"
	MessageDrawingDeleted = "drawingDeleted"
	MessageSourceCleared  = "sourceCleared"
)

const (
	broadcastBuffer = 100
	writeTimeout    = 10 * time.Second
)

// Message is a frame sent over the websocket
type Message struct {
	Type    string         `json:"type"`
	Source  string         `json:"source,omitempty"`
	Payload map[string]any `json:"payload"`
}

// Hub keeps the websocket clients, each subscribed to one source
type Hub struct {
	sync.RWMutex
	clients   map[*websocket.Conn]string
	upgrader  websocket.Upgrader
	broadcast chan Message
	loader    core.DrawingStorage
	done      chan struct{}
	closeOnce sync.Once
	log       logger.Logger
}

// NewHub creates a hub and starts its broadcast loop
func NewHub(loader core.DrawingStorage, log logger.Logger) *Hub {
	h := &Hub{
		clients: make(map[*websocket.Conn]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		broadcast: make(chan Message, broadcastBuffer),
		loader:    loader,
		done:      make(chan struct{}),
		log:       log,
	}

	go h.run()

	return h
}

// Close stops the broadcast loop and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.Lock()
		defer h.Unlock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
	})
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client subscribed to msg.Source, or for every
// client when the source is empty. Messages are dropped once the hub is closed.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// DrawingSaved announces a stored drawing
func (h *Hub) DrawingSaved(d core.Drawing) {
	h.Broadcast(Message{
		Type:    MessageDrawingSaved,
		Source:  d.SourceID,
		Payload: map[string]any{"drawing": d},
	})
}

// DrawingDeleted announces a removed drawing; sourceID may be empty
func (h *Hub) DrawingDeleted(sourceID, id string) {
	h.Broadcast(Message{
		Type:    MessageDrawingDeleted,
		Source:  sourceID,
		Payload: map[string]any{"id": id},
	})
}

// SourceCleared announces that every drawing of a source was removed
func (h *Hub) SourceCleared(sourceID string) {
	h.Broadcast(Message{
		Type:    MessageSourceCleared,
		Source:  sourceID,
		Payload: map[string]any{},
	})
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg Message) {
	h.RLock()
	defer h.RUnlock()

	for conn, source := range h.clients {
		if msg.Source != "" && source != msg.Source {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.WithError(err).Warn("sending websocket message")
			// removed by the reader loop once it sees the closed connection
			conn.Close()
		}
	}
}

// HandleWebSocket upgrades the request and subscribes it to ?source=
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "missing source parameter", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Error("upgrading websocket connection")
		return
	}

	count := h.subscribe(r.Context(), conn, source)
	h.log.WithFields(map[string]any{"source": source, "clients": count}).Debug("websocket client connected")

	go h.handleClient(conn)
}

func (h *Hub) handleClient(conn *websocket.Conn) {
	defer func() {
		h.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.Unlock()

		conn.Close()
		h.log.WithField("clients", remaining).Debug("websocket client disconnected")
	}()

	conn.SetPingHandler(func(string) error {
		return conn.WriteControl(websocket.PongMessage, []byte{}, time.Now().Add(writeTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("websocket read")
			}
			return
		}
	}
}

// subscribe sends the current drawings of source and registers conn. Both happen
// under the write lock so no broadcast reaches the client before its initial data.
func (h *Hub) subscribe(ctx context.Context, conn *websocket.Conn, source string) int {
	drawings, err := h.loader.Load(ctx, source)
	if err != nil {
		h.log.WithError(err).WithField("source", source).Error("loading drawings for websocket client")
		drawings = []core.Drawing{}
	}

	h.Lock()
	defer h.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(Message{
		Type:    MessageInitialData,
		Source:  source,
		Payload: map[string]any{"drawings": drawings},
	}); err != nil {
		h.log.WithError(err).Warn("sending initial websocket data")
	}

	h.clients[conn] = source
	return len(h.clients)
}
