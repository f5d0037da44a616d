package handlers

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

const realtimePingInterval = 30 * time.Second

// realtimeHub fans dashboard events out to open websocket connections,
// grouped by the userId each connection registered with.
type realtimeHub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func newRealtimeHub() *realtimeHub {
	return &realtimeHub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *realtimeHub) add(userID string, c *websocket.Conn) {
	if h == nil || c == nil || strings.TrimSpace(userID) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.conns[userID]
	if m == nil {
		m = make(map[*websocket.Conn]struct{})
		h.conns[userID] = m
	}
	m[c] = struct{}{}
}

func (h *realtimeHub) remove(userID string, c *websocket.Conn) {
	if h == nil || c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.conns[userID]
	if m == nil {
		return
	}
	delete(m, c)
	if len(m) == 0 {
		delete(h.conns, userID)
	}
}

type hubConn struct {
	userID string
	conn   *websocket.Conn
}

// snapshot copies the connection set so sends happen outside the lock.
func (h *realtimeHub) snapshot() []hubConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hubConn, 0, len(h.conns))
	for uid, m := range h.conns {
		for c := range m {
			out = append(out, hubConn{userID: uid, conn: c})
		}
	}
	return out
}

// broadcastAll sends msg to every connection and drops the ones that fail.
func (h *realtimeHub) broadcastAll(msg []byte) int {
	if h == nil || len(msg) == 0 {
		return 0
	}
	sent := 0
	for _, hc := range h.snapshot() {
		if err := websocket.Message.Send(hc.conn, string(msg)); err != nil {
			_ = hc.conn.Close()
			h.remove(hc.userID, hc.conn)
			continue
		}
		sent++
	}
	return sent
}

func (h *realtimeHub) count() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.conns {
		n += len(m)
	}
	return n
}

func isLocalhostRemoteAddr(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil && h != "" {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// realtimeAllowed admits loopback clients, and remote ones that present
// INTERNAL_WS_SECRET in X-Internal-WS-Secret.
func realtimeAllowed(r *http.Request) bool {
	if isLocalhostRemoteAddr(r.RemoteAddr) {
		return true
	}
	sec := strings.TrimSpace(os.Getenv("INTERNAL_WS_SECRET"))
	if sec == "" {
		return false
	}
	return strings.TrimSpace(r.Header.Get("X-Internal-WS-Secret")) == sec
}

// EventsPing reports whether the caller may open the websocket and how many
// connections are open.
func (h *Handler) EventsPing(w http.ResponseWriter, r *http.Request) {
	ok := realtimeAllowed(r)
	resp := map[string]any{
		"ok":          ok,
		"loopback":    isLocalhostRemoteAddr(r.RemoteAddr),
		"connections": h.rt.count(),
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type realtimeEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	ID     string `json:"id,omitempty"`
	At     string `json:"at"`
}

// EventsWebSocket streams planner events to the dashboard.
//
// URL: /api/events/ws?userId=...
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if !realtimeAllowed(r) {
		log.Printf("[RealtimeWS] forbidden remote=%s host=%s", r.RemoteAddr, r.Host)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	userID := queryParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_userId")
		return
	}

	// x/net/websocket rejects mismatched Origin by default; access is
	// decided by realtimeAllowed instead.
	wsServer := websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(c *websocket.Conn) {
			log.Printf("[RealtimeWS] connect userId=%s remote=%s", userID, r.RemoteAddr)
			// The server's write timeout would otherwise outlive the handshake.
			_ = c.SetDeadline(time.Time{})
			h.rt.add(userID, c)
			defer h.rt.remove(userID, c)
			defer log.Printf("[RealtimeWS] disconnect userId=%s remote=%s", userID, r.RemoteAddr)

			send := func(ev realtimeEvent) error {
				ev.UserID = userID
				ev.At = time.Now().UTC().Format(time.RFC3339)
				b, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				return websocket.Message.Send(c, string(b))
			}
			_ = send(realtimeEvent{Type: "hello"})

			done := make(chan struct{})
			var doneOnce sync.Once
			closeDone := func() { doneOnce.Do(func() { close(done) }) }
			go func() {
				ticker := time.NewTicker(realtimePingInterval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := send(realtimeEvent{Type: "ping"}); err != nil {
							closeDone()
							return
						}
					}
				}
			}()

			// Reads only detect disconnects.
			for {
				var ignored string
				if err := websocket.Message.Receive(c, &ignored); err != nil {
					closeDone()
					break
				}
			}
		},
	}
	wsServer.ServeHTTP(w, r)
}

func (h *Handler) broadcastEvent(ev realtimeEvent) {
	if h == nil || h.rt == nil {
		return
	}
	if strings.TrimSpace(ev.At) == "" {
		ev.At = h.now().UTC().Format(time.RFC3339)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Realtime] marshal_failed type=%s err=%v", ev.Type, err)
		return
	}
	n := h.rt.broadcastAll(b)
	if n > 0 {
		log.Printf("[Realtime] emit type=%s id=%s subs=%d", ev.Type, ev.ID, n)
	}
}
