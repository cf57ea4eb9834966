package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scribble/internal/ratelimit"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 256 * 1024
	messagesPerSecond = 100
	messageBurst      = 200
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. The hub owns delivery; the handler owns
// semantics.
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	roomID      string
	rateLimiter *ratelimit.Limiter
}

// ServeWS upgrades the request and starts the connection's pumps. Each
// connection gets a fresh id; the handler hears about it before any message.
func ServeWS(hub *Hub, handler Handler, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	client := &Client{
		id:          uuid.NewString(),
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 512),
		rateLimiter: ratelimit.NewLimiter(messagesPerSecond, messageBurst),
	}

	hub.add(client)
	handler.HandleConnect(client.id)

	go client.writePump()
	go client.readPump(handler)
}

func (c *Client) readPump(handler Handler) {
	defer func() {
		c.hub.remove(c)
		handler.HandleDisconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	rateLimitWarnings := 0

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if !c.rateLimiter.Allow() {
			rateLimitWarnings++
			if rateLimitWarnings%100 == 1 {
				log.Printf("Rate limit exceeded for connection %s (warning #%d)", c.id, rateLimitWarnings)
			}
			if rateLimitWarnings > 1000 {
				log.Printf("Disconnecting %s for excessive rate limit violations", c.id)
				return
			}
			continue
		}

		handler.HandleMessage(c.id, message)
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
