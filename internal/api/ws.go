package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	eventQueueSize = 16
)

// StatusHub fans session status transitions out to websocket subscribers.
// Each session's transitions are published as snapshots, so a client that
// connects mid-assessment still sees a complete view on every event.
type StatusHub struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan domain.SessionSnapshot]struct{}
}

// NewStatusHub creates a status hub.
func NewStatusHub(log *logrus.Logger) *StatusHub {
	if log == nil {
		log = logrus.New()
	}
	return &StatusHub{
		log:         log,
		subscribers: make(map[string]map[chan domain.SessionSnapshot]struct{}),
	}
}

// Publish delivers a snapshot to every subscriber of its session. Slow
// subscribers drop events rather than block the workflow.
func (h *StatusHub) Publish(snap domain.SessionSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[snap.SessionID] {
		select {
		case ch <- snap:
		default:
			h.log.WithField("session_id", snap.SessionID).Warn("Dropping status event for slow subscriber")
		}
	}
}

// Subscribe registers a listener for one session's transitions. The returned
// cancel function must be called when the listener is done.
func (h *StatusHub) Subscribe(sessionID string) (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, eventQueueSize)

	h.mu.Lock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[chan domain.SessionSnapshot]struct{})
	}
	h.subscribers[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers[sessionID], ch)
		if len(h.subscribers[sessionID]) == 0 {
			delete(h.subscribers, sessionID)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleSessionEvents streams session status transitions over a websocket.
func (s *Server) handleSessionEvents(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.hub.Subscribe(session.ID())
	defer cancel()

	// Send the current snapshot first so the client starts from a known
	// state.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(session.Snapshot()); err != nil {
		return
	}

	// Reader drains control frames and signals client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
