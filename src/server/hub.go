package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"request-monitor/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const refreshTimeout = 30 * time.Second

// pagePush carries a rendered page to every client subscribed to it.
type pagePush struct {
	sub     models.MSubscription
	message *models.MPushMessage
}

// -----------------------------------------------------------------------------
// Hub
// -----------------------------------------------------------------------------

// handleWebsockets owns client registration and fans page pushes out to
// matching subscribers until done is closed.
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			s.clientsMu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()
			return

		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.Metrics.wsClients.Set(float64(len(s.clients)))
			s.clientsMu.Unlock()

		case client := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.Metrics.wsClients.Set(float64(len(s.clients)))
			s.clientsMu.Unlock()

		case push := <-s.broadcast:
			s.clientsMu.Lock()
			for client := range s.clients {
				if sub, ok := client.Subscription(); !ok || sub != push.sub {
					continue
				}
				select {
				case client.send <- push.message:
					s.Metrics.pushes.Inc()
				default:
					// Slow consumer
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.Metrics.wsClients.Set(float64(len(s.clients)))
			s.clientsMu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Refresh Loop
// -----------------------------------------------------------------------------

// subscriptions returns the distinct subscriptions of connected clients.
func (s *DashboardServer) subscriptions() []models.MSubscription {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	seen := make(map[models.MSubscription]struct{})
	var subs []models.MSubscription
	for client := range s.clients {
		sub, ok := client.Subscription()
		if !ok {
			continue
		}
		if _, dup := seen[sub]; dup {
			continue
		}
		seen[sub] = struct{}{}
		subs = append(subs, sub)
	}
	return subs
}

// -----------------------------------------------------------------------------

// refreshSubscriptions renders each subscribed page once and queues the
// result for every client watching it.
func (s *DashboardServer) refreshSubscriptions() {
	subs := s.subscriptions()
	if len(subs) == 0 {
		return
	}
	s.Logger.Debug("Refreshing %d subscribed pages", len(subs))

	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		payload, err := s.render(ctx, sub.Page, sub.Service, sub.Hours)
		cancel()

		msg := &models.MPushMessage{Type: "UPDATE", Payload: payload}
		if err != nil {
			s.Logger.Warning("Refresh of %s/%s failed: %v", sub.Page, sub.Service, err)
			msg = &models.MPushMessage{Type: "ERROR", Error: err.Error()}
		}

		select {
		case s.broadcast <- &pagePush{sub: sub, message: msg}:
		case <-s.done:
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Upgrade
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Live-refresh upgrade rejected: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan *models.MPushMessage, 64),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Subscribe commands
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the
// current render of the requested page.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Malformed subscribe command, closing connection: %v", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "unsubscribe":
		client.setSubscription(nil)
		return
	case "subscribe":
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	payload, err := s.render(ctx, cmd.Page, cmd.Service, cmd.Hours)
	if err != nil {
		client.trySend(&models.MPushMessage{Type: "ERROR", Error: err.Error()})
		return
	}

	// Subscribe with the resolved window so equal requests share one render
	client.setSubscription(&models.MSubscription{Page: payload.Page, Service: payload.Service, Hours: payload.Hours})
	client.trySend(&models.MPushMessage{Type: "INITIAL", Payload: payload})
}
