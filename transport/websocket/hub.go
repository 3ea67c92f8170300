// Package websocket pushes game state to browsers. Clients subscribe to
// one map over /ws?map=<id> and receive the state document after every
// simulation tick.
package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only listen, so
	// anything beyond a pong is noise.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one subscribed browser connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	mapID string
}

// Hub maintains the set of subscribed clients per map and fans state
// updates out to them.
type Hub struct {
	log *zap.Logger

	// Registered clients by map id.
	maps map[string]map[*Client]bool

	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
}

type broadcastMessage struct {
	mapID string
	data  []byte
}

// NewHub creates a hub. Run must be started before serving connections.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		log:        logger,
		maps:       make(map[string]map[*Client]bool),
		broadcast:  make(chan broadcastMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToMap(msg)
		}
	}
}

// ServeHTTP upgrades the connection and subscribes it to the map named
// in the "map" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mapID := r.URL.Query().Get("map")
	if mapID == "" {
		http.Error(w, "map query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		mapID: mapID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Broadcast queues a pre-encoded state message for every client watching
// mapID. It never blocks the caller; under backpressure the message is
// dropped and the next tick's state supersedes it.
func (h *Hub) Broadcast(mapID string, data []byte) {
	select {
	case h.broadcast <- broadcastMessage{mapID: mapID, data: data}:
	default:
	}
}

func (h *Hub) registerClient(client *Client) {
	if h.maps[client.mapID] == nil {
		h.maps[client.mapID] = make(map[*Client]bool)
	}
	h.maps[client.mapID][client] = true

	h.log.Info("websocket client subscribed",
		zap.String("map", client.mapID),
		zap.Int("clients", len(h.maps[client.mapID])))
}

func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.maps[client.mapID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.maps, client.mapID)
	}

	h.log.Info("websocket client gone",
		zap.String("map", client.mapID),
		zap.Int("clients", len(clients)))
}

func (h *Hub) broadcastToMap(msg broadcastMessage) {
	for client := range h.maps[msg.mapID] {
		select {
		case client.send <- msg.data:
		default:
			// Slow consumer; drop it.
			h.unregisterClient(client)
		}
	}
}

// readPump drains the connection to keep pong handling alive. Incoming
// client messages are ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read", zap.Error(err))
			}
			break
		}
	}
}

// writePump pumps queued state messages to the connection and keeps it
// alive with pings.
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
