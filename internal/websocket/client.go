package websocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096
)

type Client struct {
	conn *websocket.Conn
	sub  *Subscription
	hub  *Hub
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeChat upgrades r and joins the caller to the broadcast channel. The
// subscription exists before the handshake completes, so a client that has
// connected sees every event published afterwards.
func ServeChat(w http.ResponseWriter, r *http.Request, hub *Hub, accountID, handle string) {
	sub := hub.Subscribe(accountID, handle)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.Unsubscribe(sub)
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	client := &Client{conn: conn, sub: sub, hub: hub}
	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
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
				log.WithError(err).WithField("account_id", c.sub.AccountID).Debug("chat connection closed")
			}
			return
		}
		msg, err := NewChatMessage(c.sub.AccountID, c.sub.Handle, raw)
		if errors.Is(err, ErrMalformedMessage) {
			continue
		}
		if _, err := c.hub.Publish(msg); err != nil {
			log.WithError(err).Error("publish chat message")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.sub.Messages():
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
