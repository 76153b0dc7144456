package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/events"
)

const (
	clientSendBuffer = 256
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 50 * time.Second
	maxInboundBytes  = 512
)

const (
	messageSnapshot = "snapshot"
	messageLog      = "log"
	messageDevice   = "device"
	messageStatus   = "status"
)

// wsMessage is one JSON frame of the live feed.
type wsMessage struct {
	Type     string                   `json:"type"`
	Rev      uint64                   `json:"rev"`
	Snapshot *console.Snapshot        `json:"snapshot,omitempty"`
	Entry    *domain.LogEntry         `json:"entry,omitempty"`
	Device   *domain.DeviceInfo       `json:"device,omitempty"`
	Status   *events.ConnectionStatus `json:"status,omitempty"`
}

// Hub fans console events out to websocket clients. Every client starts with
// a snapshot and then receives only events newer than that snapshot.
type Hub struct {
	bus      bus.MessageBus
	snapshot func() console.Snapshot
	logger   *slog.Logger

	clients    map[*Client]uint64
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub(b bus.MessageBus, snapshot func() console.Snapshot, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default().With("component", "web.hub")
	}

	return &Hub{
		bus:        b,
		snapshot:   snapshot,
		logger:     logger,
		clients:    make(map[*Client]uint64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start subscribes before returning, so no event published afterwards is
// missed by clients registered later.
func (h *Hub) Start(ctx context.Context) {
	sub := h.bus.Subscribe(events.TopicConnStatus, events.TopicConsoleLog, events.TopicDeviceInfo)
	go h.run(ctx, sub)
}

func (h *Hub) run(ctx context.Context, sub bus.Subscription) {
	defer close(h.done)
	defer h.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}

			return
		case client := <-h.register:
			snap := h.snapshot()
			payload, err := json.Marshal(wsMessage{Type: messageSnapshot, Rev: snap.Rev, Snapshot: &snap})
			if err != nil {
				h.logger.Warn("encode snapshot", "error", err)
				close(client.send)

				continue
			}
			client.send <- payload
			h.clients[client] = snap.Rev
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case raw, ok := <-sub:
			if !ok {
				return
			}
			msg, ok := eventMessage(raw)
			if !ok {
				continue
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				h.logger.Warn("encode event", "type", msg.Type, "error", err)

				continue
			}
			h.broadcast(msg.Rev, payload)
		}
	}
}

func (h *Hub) broadcast(rev uint64, payload []byte) {
	for client, seen := range h.clients {
		if rev <= seen {
			continue
		}
		select {
		case client.send <- payload:
			h.clients[client] = rev
		default:
			h.logger.Debug("dropping slow websocket client")
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// Register hands a new connection to the hub and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, clientSendBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()

		return
	}

	go client.writePump()
	go client.readPump()
}

func eventMessage(raw any) (wsMessage, bool) {
	switch ev := raw.(type) {
	case events.LogAppended:
		return wsMessage{Type: messageLog, Rev: ev.Rev, Entry: &ev.Entry}, true
	case events.DeviceInfoChanged:
		return wsMessage{Type: messageDevice, Rev: ev.Rev, Device: &ev.Info}, true
	case events.ConnectionStatus:
		return wsMessage{Type: messageStatus, Rev: ev.Rev, Status: &ev}, true
	default:
		return wsMessage{}, false
	}
}

// readPump only drains control frames; the feed is one-way.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", "error", err)
			}

			return
		}
	}
}

// writePump is the only writer on the connection. Each event is its own
// text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
