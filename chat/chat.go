// Package chat relays messages between websocket clients that joined the same room.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"trailhead/metrics"
	"trailhead/utils"
)

const (
	writeWait      = 5 * time.Second
	maxFrameBytes  = 8 << 10
	maxMessageLen  = 2000
	maxRoomLen     = 100
	sendBufferSize = 64
)

// Client events.
const (
	EventJoin  = "join_chat"
	EventLeave = "leave_chat"
	EventSend  = "send_message"
)

// Server events.
const (
	EventJoined  = "joined_chat"
	EventReceive = "receive_message"
	EventError   = "error"
)

type Inbound struct {
	Event   string `json:"event"`
	Room    string `json:"room"`
	Message string `json:"message,omitempty"`
}

type Outbound struct {
	Event     string `json:"event"`
	Room      string `json:"room,omitempty"`
	SenderID  string `json:"senderId,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

type request struct {
	from *client
	in   Inbound
}

// Hub owns room membership. All state is touched only by the Run goroutine, which is
// also the only sender on client channels.
type Hub struct {
	clients    map[*client]map[string]bool
	rooms      map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	requests   chan request
	done       chan struct{}
	upgrader   websocket.Upgrader
	now        func() time.Time
	log        *logrus.Logger
}

// NewHub accepts upgrades from the given origins; an empty list or "*" allows any.
func NewHub(log *logrus.Logger, origins []string) *Hub {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients:    make(map[*client]map[string]bool),
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		requests:   make(chan request),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
		now: time.Now,
		log: log,
	}
}

// Run processes joins, messages and disconnects until ctx ends, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = make(map[string]bool)
		case c := <-h.unregister:
			h.drop(c)
		case req := <-h.requests:
			h.handle(req)
		}
	}
}

func (h *Hub) handle(req request) {
	c, in := req.from, req.in
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	room := strings.TrimSpace(in.Room)

	switch in.Event {
	case EventJoin:
		if room == "" || len(room) > maxRoomLen {
			h.reply(c, Outbound{Event: EventError, Message: "room is required"})
			return
		}
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*client]bool)
		}
		h.rooms[room][c] = true
		joined[room] = true
		h.reply(c, Outbound{Event: EventJoined, Room: room})

	case EventLeave:
		h.leave(c, room)

	case EventSend:
		if !joined[room] {
			h.reply(c, Outbound{Event: EventError, Room: room, Message: "join the room before sending"})
			return
		}
		text := strings.TrimSpace(in.Message)
		if text == "" || utf8.RuneCountInString(text) > maxMessageLen {
			h.reply(c, Outbound{Event: EventError, Room: room, Message: "message must be 1-2000 characters"})
			return
		}
		data, err := json.Marshal(Outbound{
			Event:     EventReceive,
			Room:      room,
			SenderID:  c.userID,
			Message:   text,
			Timestamp: h.now().Unix(),
		})
		if err != nil {
			return
		}
		metrics.ChatMessages.Inc()
		for other := range h.rooms[room] {
			if other != c {
				h.deliver(other, data)
			}
		}

	default:
		h.reply(c, Outbound{Event: EventError, Message: "unknown event"})
	}
}

func (h *Hub) reply(c *client, out Outbound) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	h.deliver(c, data)
}

// deliver never blocks the hub; a client whose buffer is full is disconnected.
func (h *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.log.WithField("userId", c.userID).Warn("chat client too slow, disconnecting")
		h.drop(c)
	}
}

func (h *Hub) leave(c *client, room string) {
	delete(h.clients[c], room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) drop(c *client) {
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	for room := range joined {
		h.leave(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

// submit hands work to Run; it gives up once the hub has stopped.
func submit[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}

// HandleWS upgrades an authenticated request and relays its events until either side
// closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("chat upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize), userID: userID}
	if !submit(h, h.register, c) {
		conn.Close()
		return
	}

	go writePump(c)

	conn.SetReadLimit(maxFrameBytes)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			in = Inbound{}
		}
		if !submit(h, h.requests, request{from: c, in: in}) {
			break
		}
	}

	submit(h, h.unregister, c)
	conn.Close()
}

func writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
