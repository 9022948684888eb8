package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"WaypointUpdater/internal/model"
	"WaypointUpdater/internal/parser"
	"WaypointUpdater/internal/path"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const (
	clientBuffer  = 16
	writeDeadline = time.Second
)

// wsClient is one websocket subscriber. Its writer goroutine drains send so
// a slow client never blocks the publisher.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writeLoop() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[hub] write to %s: %v", c.conn.RemoteAddr(), err)
			break
		}
	}
	// unblocks the read loop, which unregisters the client
	_ = c.conn.Close()
}

const maxBody = 32 << 20

// Receiver is the updater surface the hub feeds.
type Receiver interface {
	PoseReceiver
	LoadPath(wps []model.Waypoint) (string, error)
	SetTrafficWaypoint(i int)
	SetObstacleWaypoint(i int)
	Route() *Route
}

// PathStore persists loaded paths.
type PathStore interface {
	SavePath(id string, wps []model.Waypoint) error
}

// Hub is the HTTP side of the updater: it accepts poses, paths and the
// traffic/obstacle inputs, and streams published windows to websocket clients.
type Hub struct {
	Addr string

	recv    Receiver
	out     parser.Parser
	store   PathStore
	latest  atomic.Pointer[model.Window]
	clients map[*wsClient]struct{}
	mu      sync.Mutex
	server  *http.Server
	closed  bool
}

// NewHub constructs a Hub listening on addr. Windows are sent to websocket
// clients encoded with out.
func NewHub(addr string, recv Receiver, out parser.Parser) *Hub {
	return &Hub{Addr: addr, recv: recv, out: out, clients: map[*wsClient]struct{}{}}
}

// SetStore enables persistence of paths posted to the hub.
func (h *Hub) SetStore(s PathStore) { h.store = s }

// Handler returns the hub routes.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pose", h.handlePose)
	mux.HandleFunc("POST /api/path", h.handlePath)
	mux.HandleFunc("POST /api/traffic", h.handleRef(h.recv.SetTrafficWaypoint))
	mux.HandleFunc("POST /api/obstacle", h.handleRef(h.recv.SetObstacleWaypoint))
	mux.HandleFunc("GET /api/window", h.handleWindow)
	mux.HandleFunc("GET /api/distance", h.handleDistance)
	mux.HandleFunc("/ws", h.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start launches the HTTP server. This call blocks until the server stops or fails.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.server = &http.Server{Addr: h.Addr, Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := h.server
	h.mu.Unlock()

	log.Printf("[hub] listening on %s", h.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts down the HTTP server and disconnects websocket clients.
func (h *Hub) Stop() error {
	h.mu.Lock()
	h.closed = true
	srv := h.server
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Publish records w as the latest window and broadcasts it.
func (h *Hub) Publish(w model.Window) error {
	h.latest.Store(&w)
	msg, err := h.out.EncodeWindow(w)
	if err != nil {
		return err
	}
	h.broadcast(msg)
	return nil
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Latest returns the last published window.
func (h *Hub) Latest() (model.Window, bool) {
	w := h.latest.Load()
	if w == nil {
		return model.Window{}, false
	}
	return *w, true
}

// broadcast queues a message for every connected websocket client. A client
// whose queue is full is dropped.
func (h *Hub) broadcast(msg string) {
	b := []byte(msg)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			log.Printf("[hub] dropping slow client %s", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

// removeLocked unregisters c and stops its writer. h.mu must be held.
func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	wsClients.Set(float64(len(h.clients)))
}

// handlePose accepts a pose as JSON or as a CSV line.
func (h *Hub) handlePose(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read pose", http.StatusBadRequest)
		return
	}
	pose, err := parser.NewJSONParser().DecodePose(string(body))
	if err != nil {
		pose, err = parser.NewCSVParser().DecodePose(string(body))
		if err != nil {
			http.Error(w, "invalid pose", http.StatusBadRequest)
			return
		}
	}
	h.recv.UpdatePose(pose)
	w.WriteHeader(http.StatusOK)
}

// handlePath replaces the route with a JSON array or CSV body.
func (h *Hub) handlePath(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read path", http.StatusBadRequest)
		return
	}
	format := "csv"
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		format = "json"
	}
	wps, err := parser.ReadPath(bytes.NewReader(body), format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := h.recv.LoadPath(wps)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if h.store != nil {
		if err := h.store.SavePath(id, wps); err != nil {
			log.Printf("[hub] save path %s: %v", id, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"route_id": id, "waypoints": len(wps)})
}

// handleRef decodes a {"waypoint": i} body and passes i to set.
func (h *Hub) handleRef(set func(int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ref model.WaypointRef
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&ref); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		set(ref.Waypoint)
		w.WriteHeader(http.StatusOK)
	}
}

// handleWindow returns the most recently published window.
func (h *Hub) handleWindow(w http.ResponseWriter, r *http.Request) {
	win := h.latest.Load()
	if win == nil {
		http.Error(w, "no window published", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

// handleDistance returns the arc length of the current route between the
// from and to query indices.
func (h *Hub) handleDistance(w http.ResponseWriter, r *http.Request) {
	route := h.recv.Route()
	if route == nil {
		http.Error(w, "no route loaded", http.StatusNotFound)
		return
	}
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "from and to must be integers", http.StatusBadRequest)
		return
	}
	d, err := path.Distance(route.Waypoints, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"route_id": route.ID, "from": from, "to": to, "distance": d})
}

// handleWS upgrades HTTP to websocket and registers the client for broadcasts.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	wsClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	go c.writeLoop()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
		_ = conn.Close()
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[hub] warning: failed to write response: %v", err)
	}
}
