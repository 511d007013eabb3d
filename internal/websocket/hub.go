package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"eskan-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

// Event is the frame pushed to connected clients.
type Event struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

type delivery struct {
	profileID uint
	payload   []byte
}

// Hub keeps the live connections of each profile and pushes notifications
// to them. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	direct     chan delivery
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        logrus.FieldLogger
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	profileID uint
}

func NewHub(log logrus.FieldLogger, allowedOrigins []string) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan delivery, 64),
		done:       make(chan struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		log:        log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = make(map[uint]map[*Client]bool)
			return

		case client := <-h.register:
			set, ok := h.clients[client.profileID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.profileID] = set
			}
			set[client] = true
			h.log.WithField("profile_id", client.profileID).Debug("websocket client connected")

		case client := <-h.unregister:
			h.drop(client)

		case d := <-h.direct:
			for client := range h.clients[d.profileID] {
				select {
				case client.send <- d.payload:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	set, ok := h.clients[client.profileID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.profileID)
	}
	close(client.send)
	h.log.WithField("profile_id", client.profileID).Debug("websocket client disconnected")
}

// Deliver queues n for every live connection of its recipient. Offline
// recipients are skipped; the stored row is their copy.
func (h *Hub) Deliver(ctx context.Context, n *models.Notification, recipient *models.UserProfile) error {
	payload, err := json.Marshal(Event{Type: "notification", Notification: n, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	select {
	case h.direct <- delivery{profileID: recipient.ID, payload: payload}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleWebSocket upgrades an authenticated request and attaches it to the
// caller's profile.
func (h *Hub) HandleWebSocket(c *gin.Context, profileID uint) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		profileID: profileID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client frames; it only keeps the read deadline alive
// and notices when the peer goes away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.WithError(err).Warn("websocket write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
