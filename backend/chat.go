package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/bot"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/logger"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/session"
)

// ClientMessage is one inbound chat event.
type ClientMessage struct {
	Type     string `json:"type"` // "text" | "photo" | "skip" | "action"
	Text     string `json:"text,omitempty"`
	Photo    string `json:"photo,omitempty"`
	Action   string `json:"action,omitempty"`
	Position int    `json:"position,omitempty"`
}

// ServerEvent represents a server-sent event
type ServerEvent struct {
	Type string `json:"type"` // "reply" | "edit" | "notify" | "info" | "error"
	Data any    `json:"data,omitempty"`
}

var errClientBusy = errors.New("client send buffer full")

// Client represents a WebSocket client connection. It is the chat transport's
// bot.Interaction.
type Client struct {
	id   string
	ev   bot.Event
	conn *websocket.Conn
	send chan ServerEvent
	log  zerolog.Logger
}

func (c *Client) enqueue(evt ServerEvent) error {
	select {
	case c.send <- evt:
		return nil
	default:
		return errClientBusy
	}
}

func (c *Client) Reply(_ context.Context, r bot.Response) error {
	return c.enqueue(ServerEvent{Type: "reply", Data: r})
}

func (c *Client) EditLast(_ context.Context, r bot.Response) error {
	return c.enqueue(ServerEvent{Type: "edit", Data: r})
}

// Hub manages WebSocket client connections
type Hub struct {
	clientsByIdentity map[string]map[*Client]bool
	mu                sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clientsByIdentity: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clientsByIdentity[c.ev.Identity] == nil {
		h.clientsByIdentity[c.ev.Identity] = make(map[*Client]bool)
	}
	h.clientsByIdentity[c.ev.Identity][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.clientsByIdentity[c.ev.Identity]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.clientsByIdentity, c.ev.Identity)
		}
	}
}

// sendToIdentity fans evt out to every connection of identity and reports how
// many accepted it. Full buffers drop the event.
func (h *Hub) sendToIdentity(identity string, evt ServerEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clientsByIdentity[identity] {
		if c.enqueue(evt) == nil {
			delivered++
		}
	}
	return delivered
}

// closeAll drops every connection; readers exit and unregister themselves.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, peers := range h.clientsByIdentity {
		for c := range peers {
			_ = c.conn.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (a *app) wsChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, ok := a.auth.eventFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Warn().Err(err).Str("identity", ev.Identity).Msg("ws upgrade")
			return
		}

		id := uuid.NewString()
		client := &Client{
			id:   id,
			ev:   ev,
			conn: conn,
			send: make(chan ServerEvent, 16),
			log:  logger.WithContext(a.log, map[string]interface{}{"identity": ev.Identity, "conn_id": id}),
		}
		a.hub.register(client)
		client.send <- ServerEvent{Type: "info", Data: "connected"}

		go clientWriter(client)
		a.clientReader(client)
	}
}

func (a *app) clientReader(c *Client) {
	defer func() {
		a.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = c.enqueue(ServerEvent{Type: "error", Data: "invalid message format"})
			continue
		}

		ctx := bot.WithProfileLoader(context.Background(), bot.NewProfileLoader(a.profiles))
		resp, ok := a.dispatch(ctx, c.ev, msg)
		if !ok {
			c.log.Debug().Str("type", msg.Type).Msg("unknown message type")
			_ = c.enqueue(ServerEvent{Type: "error", Data: "unknown message type"})
			continue
		}
		if err := bot.Deliver(ctx, c, resp); err != nil {
			c.log.Warn().Err(err).Msg("reply dropped")
		}
		a.notify(resp.Notify)
	}
}

func (a *app) dispatch(ctx context.Context, ev bot.Event, msg ClientMessage) (bot.Response, bool) {
	switch msg.Type {
	case "text":
		return a.svc.HandleText(ctx, ev, msg.Text), true
	case "photo":
		return a.svc.Resume(ctx, ev, session.Photo(msg.Photo)), true
	case "skip":
		return a.svc.Resume(ctx, ev, session.Skip()), true
	case "action":
		return a.svc.CandidateAction(ctx, ev, bot.Action{Name: msg.Action, Position: msg.Position}), true
	}
	return bot.Response{}, false
}

func clientWriter(c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			// ping to keep the connection alive
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
