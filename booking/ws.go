package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"trailhead/models"
	"trailhead/utils"
)

const writeWait = 5 * time.Second

// subscriber serialises writes to one connection; gorilla allows a single writer.
type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans booking events out to the websocket connections of the booking's owner.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriber
	upgrader    websocket.Upgrader
	log         *logrus.Logger
}

// NewHub accepts upgrades from the given origins; an empty list or "*" allows any.
func NewHub(log *logrus.Logger, origins []string) *Hub {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	h := &Hub{
		subscribers: make(map[string][]*subscriber),
		log:         log,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
	return h
}

// HandleWS upgrades an authenticated request and keeps the connection registered until
// the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[userID] = append(h.subscribers[userID], sub)
	h.mu.Unlock()

	for {
		// nothing is read from clients; this only detects disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(userID, sub)
	conn.Close()
}

func (h *Hub) remove(userID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[userID]
	kept := make([]*subscriber, 0, len(subs))
	for _, s := range subs {
		if s != sub {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(h.subscribers, userID)
		return
	}
	h.subscribers[userID] = kept
}

// Notify sends ev to every connection of its owner. Writes happen outside the hub lock
// so a slow client only delays its own user. Dead connections are dropped.
func (h *Hub) Notify(ev models.BookingEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("marshal booking event")
		return
	}

	h.mu.Lock()
	subs := slices.Clone(h.subscribers[ev.UserID])
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(data); err != nil {
			h.log.WithError(err).WithField("userId", ev.UserID).Debug("dropping booking subscriber")
			h.remove(ev.UserID, sub)
			sub.conn.Close()
		}
	}
}

// Emit lets the hub act as the in-process Emitter when no broker is configured.
func (h *Hub) Emit(_ context.Context, ev models.BookingEvent) {
	h.Notify(ev)
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[userID])
}
