package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// Hub fans messages out to every websocket observer of a game. It is the
// push half of change propagation; clients that miss a push recover through
// the polling fallback and the snapshot read.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	gameCode string
	playerID uint // 0 for the host device
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %s joined game %s (player %d), %d clients connected", client.id, client.gameCode, client.playerID, h.clientCount())

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			log.Printf("Client %s left game %s, %d clients connected", client.id, client.gameCode, h.clientCount())
		}
	}
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastToGame sends one typed message to every client observing the
// game. Slow clients are dropped rather than allowed to block the send.
func (h *Hub) BroadcastToGame(code string, messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s message for game %s: %v", messageType, code, err)
		return
	}

	h.mutex.Lock()
	for client := range h.clients {
		if !strings.EqualFold(client.gameCode, code) {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()
}

// RunRedisBridge forwards per-game change signals published on redis to the
// local websocket clients. It returns when the context is done or the
// subscription dies; the polling fallback covers observers in between.
func (h *Hub) RunRedisBridge(ctx context.Context, redisClient *redis.Client) {
	if redisClient == nil {
		return
	}
	sub := redisClient.PSubscribe(ctx, ChangeChannelPrefix+"*")
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				log.Printf("Redis change subscription closed")
				return
			}
			code := strings.TrimPrefix(msg.Channel, ChangeChannelPrefix)
			h.BroadcastToGame(code, "state_changed", map[string]interface{}{
				"reason": msg.Payload,
			})
		}
	}
}

// RegisterClient attaches a websocket connection as an observer of a game
// and starts its pumps.
func (h *Hub) RegisterClient(conn *websocket.Conn, gameCode string, playerID uint) *Client {
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, 256),
		gameCode: strings.ToUpper(gameCode),
		playerID: playerID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for client %s: %v", c.id, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Bad message from client %s: %v", c.id, err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(Message{Type: "pong"})
		select {
		case c.send <- data:
		default:
		}

	case "request_refresh":
		// The snapshot endpoint is the single source of truth; nudge
		// the client to re-fetch it.
		data, _ := json.Marshal(Message{
			Type:    "state_changed",
			Payload: map[string]interface{}{"reason": "requested"},
		})
		select {
		case c.send <- data:
		default:
		}

	default:
		log.Printf("Unknown message type %q from client %s in game %s", msg.Type, c.id, c.gameCode)
	}
}
