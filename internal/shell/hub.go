package shell

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	viewerSendBuffer   = 16
	viewerWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// viewer is one connected page. Only its write pump touches conn for
// writing.
type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// hub fans snapshots out to every connected viewer page. Sending never
// blocks: a viewer whose buffer is full is disconnected.
type hub struct {
	logger       *slog.Logger
	writeTimeout time.Duration

	// onJoin is called once a viewer is registered.
	onJoin func(v *viewer)
	// onMessage receives every text frame a viewer sends.
	onMessage func(viewer string, data []byte)

	mu      sync.Mutex
	clients map[*viewer]struct{}
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:       logger,
		writeTimeout: viewerWriteTimeout,
		clients:      make(map[*viewer]struct{}),
	}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("viewer upgrade failed", slog.String("error", err.Error()))
		return
	}
	v := &viewer{id: uuid.NewString(), conn: conn, send: make(chan []byte, viewerSendBuffer)}
	h.logger.Info("viewer connected", slog.String("viewer", v.id), slog.String("remote", r.RemoteAddr))

	h.mu.Lock()
	h.clients[v] = struct{}{}
	h.mu.Unlock()

	go h.writePump(v)
	go h.readPump(v)
	if h.onJoin != nil {
		h.onJoin(v)
	}
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.clients {
		h.enqueue(v, data)
	}
}

// sendTo queues data for one viewer if it is still connected.
func (h *hub) sendTo(v *viewer, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[v]; ok {
		h.enqueue(v, data)
	}
}

// enqueue must be called with h.mu held.
func (h *hub) enqueue(v *viewer, data []byte) {
	select {
	case v.send <- data:
	default:
		h.logger.Warn("viewer too slow, disconnecting", slog.String("viewer", v.id))
		h.dropLocked(v)
	}
}

// dropLocked unregisters v and stops its write pump. h.mu must be held.
func (h *hub) dropLocked(v *viewer) {
	if _, ok := h.clients[v]; !ok {
		return
	}
	delete(h.clients, v)
	close(v.send)
}

func (h *hub) drop(v *viewer) {
	h.mu.Lock()
	h.dropLocked(v)
	h.mu.Unlock()
}

func (h *hub) writePump(v *viewer) {
	defer func() {
		_ = v.conn.Close()
		h.drop(v)
	}()
	for data := range v.send {
		_ = v.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("viewer write failed", slog.String("viewer", v.id), slog.String("error", err.Error()))
			return
		}
	}
	_ = v.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *hub) readPump(v *viewer) {
	defer func() {
		h.drop(v)
		_ = v.conn.Close()
		h.logger.Info("viewer disconnected", slog.String("viewer", v.id))
	}()
	for {
		kind, data, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage && h.onMessage != nil {
			h.onMessage(v.id, data)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// closeAll disconnects every viewer.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.clients {
		h.dropLocked(v)
	}
}
