package realtime

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	clientSendBuffer = 32
	authorizeTimeout = 5 * time.Second

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
)

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	role   string

	// topics is touched only by readPump and hub.remove after readPump
	// exits, so it needs no lock of its own.
	topics map[string]struct{}
}

type subscriptionMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type subscriptionAck struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("realtime client read error", zap.Error(err))
			}
			return
		}

		var msg subscriptionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.ack(subscriptionAck{OK: false, Error: "malformed message"})
			continue
		}

		switch msg.Action {
		case actionSubscribe:
			if err := c.hub.subscribe(c, msg.Topic); err != nil {
				c.ack(subscriptionAck{Action: msg.Action, Topic: msg.Topic, OK: false, Error: err.Error()})
				continue
			}
			c.ack(subscriptionAck{Action: msg.Action, Topic: msg.Topic, OK: true})
		case actionUnsubscribe:
			c.hub.unsubscribe(c, msg.Topic)
			c.ack(subscriptionAck{Action: msg.Action, Topic: msg.Topic, OK: true})
		default:
			c.ack(subscriptionAck{Action: msg.Action, Topic: msg.Topic, OK: false, Error: "unknown action"})
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (c *client) ack(a subscriptionAck) {
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
