package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fair-casino-backend/internal/models"
	"fair-casino-backend/internal/services"
)

const (
	MessagePing          = "PING"
	MessagePong          = "PONG"
	MessageBalanceUpdate = "BALANCE_UPDATE"

	clientSendBuffer = 16
	hubBacklog       = 256
	writeWait        = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id,omitempty"`
	Data   any    `json:"data"`
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	send   chan []byte
}

// WebSocketHub fans round events out to the connections of each player. A
// player may hold several connections. It implements services.RoundPublisher.
type WebSocketHub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan directMessage
	done       chan struct{}
}

type directMessage struct {
	client *Client
	data   []byte
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, hubBacklog),
		direct:     make(chan directMessage, hubBacklog),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every connection.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range hub.clients {
				for client := range conns {
					close(client.send)
				}
			}
			hub.clients = make(map[int64]map[*Client]struct{})
			return

		case client := <-hub.register:
			conns, ok := hub.clients[client.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				hub.clients[client.UserID] = conns
			}
			conns[client] = struct{}{}
			slog.Debug("Client registered", "user_id", client.UserID, "connections", len(conns))

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case message := <-hub.direct:
			if _, ok := hub.clients[message.client.UserID][message.client]; ok {
				hub.deliver(message.client, message.data)
			}
		}
	}
}

// attach registers client; it reports false once the hub has stopped.
func (hub *WebSocketHub) attach(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) detach(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

// reply queues a message for one connection only.
func (hub *WebSocketHub) reply(client *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("Failed to encode websocket message", "type", msg.Type, "err", err)
		return
	}
	select {
	case hub.direct <- directMessage{client: client, data: data}:
	case <-hub.done:
	default:
		slog.Warn("Dropped websocket reply", "user_id", client.UserID, "type", msg.Type)
	}
}

func (hub *WebSocketHub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// slow consumer
		hub.remove(client)
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	conns, ok := hub.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(hub.clients, client.UserID)
	}
	slog.Debug("Client unregistered", "user_id", client.UserID)
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.Warn("Failed to encode websocket message", "type", message.Type, "err", err)
		return
	}

	for client := range hub.clients[message.UserID] {
		hub.deliver(client, data)
	}
}

var errHubBacklog = errors.New("websocket hub backlog is full")

// PublishRound queues a ROUND_SETTLED message for the round's owner.
func (hub *WebSocketHub) PublishRound(_ context.Context, round *models.RoundRecord) error {
	msg := &Message{
		Type:   services.EventRoundSettled,
		UserID: round.UserID,
		Data:   round,
	}
	select {
	case hub.broadcast <- msg:
		return nil
	default:
		return errHubBacklog
	}
}

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
	currencies []string
}

func NewWebSocketHandler(gameEngine *services.GameEngine, hub *WebSocketHub, currencies []string) *WebSocketHandler {
	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
		currencies: currencies,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Failed to upgrade to WebSocket", "user_id", userID, "err", err)
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, clientSendBuffer),
	}

	if !h.hub.attach(client) {
		conn.Close()
		return
	}
	go client.writePump()

	defer func() {
		h.hub.detach(client)
		conn.Close()
	}()

	h.sendBalance(c.Request.Context(), client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket error", "user_id", userID, "err", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessagePing:
		h.hub.reply(client, Message{
			Type: MessagePong,
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	}
}

func (h *WebSocketHandler) sendBalance(ctx context.Context, client *Client) {
	summary, err := h.gameEngine.Summary(ctx, client.UserID, h.currencies)
	if err != nil {
		slog.Warn("Failed to get balances for WS", "user_id", client.UserID, "err", err)
		return
	}

	h.hub.reply(client, Message{
		Type: MessageBalanceUpdate,
		Data: gin.H{
			"balances": summary.Balances,
			"seeds":    summary.Seeds,
		},
	})
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	defer c.Conn.Close()
	for data := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
