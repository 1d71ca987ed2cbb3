// Impostor
//
// Players join a single shared game with a display name and, in manual mode,
// each submits one word. Starting a round draws a common word, a starting
// player, and an impostor. Everybody but the impostor gets the common word
// when they ask for their role; the impostor only learns that they are one.
//
// Features:
// - One session per process, served over a WebSocket at $prefix/ws
// - Every request may carry an id; the answer comes back as an "ack" with
//   the same id, on the requesting connection only
// - Roster, round, reset and settings changes are pushed to all clients
// - The impostor's name is never part of any pushed event
// - Manual mode draws the word from submissions, automatic mode from a word list
// - Optional removal of players whose connections stay gone (--player-timeout)
// - Per-connection request rate limiting
// - QR code for the landing page, backed by go-qrcode

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 32
)

type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan any
	limiter *rate.Limiter

	// player name this connection last acted as; owned by the hub goroutine
	name string
}

type request struct {
	client  *Client
	msg     ClientMessage
	limited bool
}

type Hub struct {
	cfg     *Config
	session *Session
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	requests chan request
	removals chan string
	done     chan struct{}
}

func newHub(cfg *Config, session *Session) *Hub {
	return &Hub{
		cfg:      cfg,
		session:  session,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		requests: make(chan request),
		removals: make(chan string),
		done:     make(chan struct{}),
	}
}

func newClient(cfg *Config, conn *websocket.Conn) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan any, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
	}
}

// run is the only goroutine that touches the session or the client set.
func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()

			return

		case c := <-h.register:
			h.clients[c] = true

			logf(h.cfg, "GAMES: Client %s connected (%d connected)", c.id, len(h.clients))

			h.sendTo(c, playersUpdated(h.session))
			h.sendTo(c, settingsUpdated(h.session.settings()))

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

			logf(h.cfg, "GAMES: Client %s disconnected (%d connected)", c.id, len(h.clients))

			if c.name != "" && h.cfg.playerTimeout > 0 && !h.isBound(c.name) {
				h.scheduleRemoval(ctx, c.name, h.cfg.playerTimeout)
			}

		case r := <-h.requests:
			h.handleRequest(r)

		case name := <-h.removals:
			h.handleRemoval(name)
		}
	}
}

func (h *Hub) handleRequest(r request) {
	c := r.client

	var out outcome
	if r.limited {
		out = outcome{ack: failure(r.msg.ID, ErrRateLimited), err: ErrRateLimited}
	} else {
		out = route(h.session, r.msg)
	}

	if out.err != nil {
		logf(h.cfg, "GAMES: %s from %s failed: %v", r.msg.Event, c.id, out.err)
	} else {
		logf(h.cfg, "GAMES: %s from %s", r.msg.Event, c.id)
	}

	if out.bind != "" {
		c.name = out.bind
	}
	if out.unbind != "" && out.unbind == c.name {
		c.name = ""
	}
	if out.claim != "" && c.name == "" {
		c.name = out.claim
	}

	if r.msg.wantsAck() {
		h.sendTo(c, out.ack)
	}

	for _, event := range out.events {
		h.broadcast(event)
	}
}

// isBound reports whether any live connection acts as name.
func (h *Hub) isBound(name string) bool {
	for c := range h.clients {
		if c.name == name {
			return true
		}
	}

	return false
}

// scheduleRemoval queues name for removal after d. The removal itself runs
// on the hub goroutine.
func (h *Hub) scheduleRemoval(ctx context.Context, name string, d time.Duration) {
	logf(h.cfg, "GAMES: Player %q will be removed in %s unless they reconnect", name, d)

	time.AfterFunc(d, func() {
		select {
		case h.removals <- name:
		case <-ctx.Done():
		}
	})
}

func (h *Hub) handleRemoval(name string) {
	if h.isBound(name) {
		return
	}

	if !h.session.removePlayer(name) {
		return
	}

	logf(h.cfg, "GAMES: Player %q removed after disconnect", name)

	h.broadcast(playersUpdated(h.session))
}

// sendTo queues msg for a single client, dropping the client if it is not
// keeping up.
func (h *Hub) sendTo(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.sendTo(c, msg)
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Str("remote", realIP(r)).Msg("websocket upgrade failed")
			return
		}

		client := newClient(cfg, conn)

		logf(cfg, "SERVE: WebSocket %s opened by %s", client.id, realIP(r))

		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", c.id).Msg("websocket read failed")
			}

			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("ignoring malformed message")

			continue
		}

		select {
		case h.requests <- request{
			client:  c,
			msg:     msg,
			limited: !c.limiter.Allow(),
		}:
		case <-h.done:
			return
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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
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

// registerImpostorGame sets up routes so that:
//   - $path     → landing page
//   - $path/ws  → WebSocket for the session
//   - $path/qr  → PNG QR code for the landing page
func registerImpostorGame(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, words WordSource, errs chan<- error) {
	mode, _ := parseMode(cfg.mode)

	h := newHub(cfg, newSession(mode, words, nil))
	go h.run(ctx)

	mux.GET(cfg.prefix+path, serveHomePage(cfg, errs))
	mux.GET(cfg.prefix+path+"ws", serveWS(cfg, h))
	mux.GET(cfg.prefix+path+"qr", serveQR(cfg, errs))
}
