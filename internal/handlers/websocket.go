package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 256
)

// WebSocketHandler streams events to connected clients. Clients subscribe to
// topics (job:{id}, project:{id}); a client with no subscriptions receives
// nothing. Slow clients have messages dropped rather than blocking the bus.
type WebSocketHandler struct {
	events   interfaces.EventService
	config   *common.WebSocketConfig
	logger   arbor.ILogger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	logger arbor.ILogger

	mu     sync.RWMutex
	topics map[string]bool

	// throttles job_output only; nil when throttling is disabled
	outputLimiter *rate.Limiter
}

type wsRequest struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type wsMessage struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewWebSocketHandler creates the handler and bridges it onto the event bus
func NewWebSocketHandler(events interfaces.EventService, config *common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		events:  events,
		config:  config,
		logger:  logger,
		clients: make(map[*wsClient]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	if err := events.SubscribeAll(h.handleEvent); err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe websocket bridge")
	}
	return h
}

// ServeHTTP upgrades the connection and runs the client pumps
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		topics: make(map[string]bool),
		logger: h.logger,
	}
	if h.config.OutputRateLimit > 0 {
		client.outputLimiter = rate.NewLimiter(rate.Limit(h.config.OutputRateLimit), h.config.OutputRateLimit*2)
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	go client.writePump()
	client.readPump(h)
}

// handleEvent fans a published event out to subscribed clients
func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	msg := wsMessage{
		Type:      string(event.Type),
		Topic:     event.Topic,
		Payload:   event.Payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.subscribed(event.Topic) {
			continue
		}
		if event.Type == interfaces.EventJobOutput && client.outputLimiter != nil && !client.outputLimiter.Allow() {
			continue
		}
		select {
		case client.send <- data:
		default:
			// slow client, drop
		}
	}
	return nil
}

func (h *WebSocketHandler) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// Close disconnects every client
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
}

func (c *wsClient) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.topics["*"] {
		return true
	}
	return c.topics[topic]
}

// readPump processes subscribe/unsubscribe requests until the client goes away
func (c *wsClient) readPump(h *WebSocketHandler) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		switch req.Action {
		case "subscribe":
			if req.Topic != "" {
				c.mu.Lock()
				c.topics[req.Topic] = true
				c.mu.Unlock()
			}
		case "unsubscribe":
			c.mu.Lock()
			delete(c.topics, req.Topic)
			c.mu.Unlock()
		}
	}
}

// writePump drains the send channel and keeps the connection alive with pings
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
