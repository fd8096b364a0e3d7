package server

import (
	"sync"
	"time"

	"request-monitor/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // subscribe commands only
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub  *DashboardServer
	conn *websocket.Conn
	send chan *models.MPushMessage

	mu  sync.RWMutex
	sub *models.MSubscription
}

// -----------------------------------------------------------------------------

// Subscription returns the page the client watches, if any.
func (c *Client) Subscription() (models.MSubscription, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sub == nil {
		return models.MSubscription{}, false
	}
	return *c.sub, true
}

// -----------------------------------------------------------------------------

func (c *Client) setSubscription(sub *models.MSubscription) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// trySend queues a direct reply without blocking; a full buffer drops it.
// The hub may already have closed send, so it holds the clients lock.
func (c *Client) trySend(msg *models.MPushMessage) {
	c.hub.clientsMu.RLock()
	defer c.hub.clientsMu.RUnlock()

	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.Logger.Warning("Client buffer full, dropping %s message", msg.Type)
	}
}

// -----------------------------------------------------------------------------
// readPump applies subscribe commands and detects dead peers via pong deadlines
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Live-refresh client closed unexpectedly: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump owns all writes: page pushes, replies and keepalive pings
// -----------------------------------------------------------------------------

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
				// Unregistered by the hub
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Push to client failed: %v", err)
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
