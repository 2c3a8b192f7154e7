// Peak Pursuit
//
// A multiplayer take on Can't Stop. Each game lives at $path/:gameid and is
// owned by a single hub goroutine, which applies intents through the engine,
// saves the result and pushes it to every connected client.
//
// Features:
// - WebSockets per game code: /path/:gameid and /path/:gameid/ws
// - Plain HTTP access for scripted clients: /path/:gameid/state and /path/:gameid/action
// - Players identified by cookie, so a reload keeps your seat
// - Disconnected players are unseated after a configurable timeout
// - Games auto-reaped after configurable idle timeout
// - Games kept in memory or in redis
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/cantstop/games/cantstop"
	"github.com/Seednode/cantstop/store"
)

const (
	maxMessageSize = 4096
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	writeWait      = 10 * time.Second
	sendBuffer     = 16
)

// Messages going to clients
type SessionInfoMessage struct {
	Type     string `json:"type"` // "session_info"
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type StateMessage struct {
	Type  string             `json:"type"` // "state"
	State cantstop.GameState `json:"state"`
}

type ResultMessage struct {
	Type    string `json:"type"` // "result"
	Intent  string `json:"intent"`
	Bust    bool   `json:"bust"`
	Message string `json:"message,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type actionResponse struct {
	OK    bool               `json:"ok"`
	State cantstop.GameState `json:"state"`
	Bust  bool               `json:"bust"`
}

// Client is a single websocket connection.
type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type actionResult struct {
	state cantstop.GameState
	bust  bool
	err   error
}

// actionRequest comes either from a websocket client, in which case the
// result is pushed back over that client, or from HTTP, in which case it
// is delivered on reply.
type actionRequest struct {
	playerID string
	intent   cantstop.Intent
	err      error
	client   *Client
	reply    chan actionResult
}

type Hub struct {
	id      string
	clients map[*Client]bool

	register  chan *Client
	unreg     chan *Client
	actions   chan actionRequest
	idle      chan string
	snapshots chan chan cantstop.GameState
	done      chan struct{}
	closeOnce sync.Once

	mu         sync.RWMutex
	lastActive time.Time

	engine *cantstop.Engine
	store  store.Store
	state  cantstop.GameState
}

func newHubRand() cantstop.Rand {
	var seed [32]byte
	_, _ = cryptorand.Read(seed[:])

	return cantstop.NewRand(seed)
}

func newHub(gameID string, st store.Store, state cantstop.GameState) *Hub {
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		idle:       make(chan string),
		snapshots:  make(chan chan cantstop.GameState),
		done:       make(chan struct{}),
		lastActive: time.Now(),
		engine:     cantstop.New(newHubRand()),
		store:      st,
		state:      state,
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.touch()
			h.clients[c] = true

			h.deliver(c, SessionInfoMessage{
				Type:     "session_info",
				GameID:   h.id,
				PlayerID: c.playerID,
			})
			h.deliver(c, StateMessage{Type: "state", State: h.state})

		case c := <-h.unreg:
			h.touch()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

			if cfg.playerTimeout > 0 && !h.connected(c.playerID) {
				h.scheduleRemoval(c.playerID, cfg.playerTimeout)
			}

		case req := <-h.actions:
			h.touch()

			if req.err != nil {
				if req.client != nil {
					h.deliver(req.client, ErrorMessage{Type: "error", Message: intentError(req.err)})
				}

				continue
			}

			state, bust, err := h.apply(cfg, req.playerID, req.intent)

			switch {
			case req.reply != nil:
				req.reply <- actionResult{state: state, bust: bust, err: err}
			case err != nil:
				h.deliver(req.client, ErrorMessage{Type: "error", Message: "unable to save game"})
			default:
				h.deliver(req.client, ResultMessage{
					Type:    "result",
					Intent:  req.intent.Name(),
					Bust:    bust,
					Message: state.Message,
				})
			}

		case playerID := <-h.idle:
			// The player may have reconnected while the timer was running.
			if h.connected(playerID) {
				continue
			}
			if _, seated := h.state.Players[playerID]; !seated {
				continue
			}

			logf(cfg, "GAMES: Removing disconnected player %s from %s", playerID, h.id)

			_, _, _ = h.apply(cfg, playerID, cantstop.RemovePlayerIntent{PlayerID: playerID})

		case reply := <-h.snapshots:
			reply <- h.state.Clone()

		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				_ = c.conn.Close()
			}

			return
		}
	}
}

// apply runs one intent against the current state. A state that cannot be
// saved is not adopted.
func (h *Hub) apply(cfg *Config, playerID string, in cantstop.Intent) (cantstop.GameState, bool, error) {
	if chat, ok := in.(cantstop.ChatIntent); ok && chat.Timestamp == 0 {
		chat.Timestamp = time.Now().UnixMilli()
		in = chat
	}

	prev := h.state
	next := h.engine.Apply(prev, playerID, in)

	// A roll that leaves no dice on the table lost the turn.
	_, isRoll := in.(cantstop.RollDiceIntent)
	bust := isRoll && prev.CanAct(playerID, cantstop.PhaseRolling) && next.Dice == nil

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.store.Save(ctx, h.id, next); err != nil {
		logf(cfg, "ERROR: Saving game %s: %v", h.id, err)

		return prev.Clone(), false, fmt.Errorf("save game %s: %w", h.id, err)
	}

	h.state = next

	if bust {
		logf(cfg, "GAMES: Player %s busted in %s", playerID, h.id)
	}
	if next.Winner != "" && prev.Winner == "" {
		logf(cfg, "GAMES: Player %s won %s", next.Winner, h.id)
	}

	h.broadcast(StateMessage{Type: "state", State: next})

	return next.Clone(), bust, nil
}

// deliver queues msg for c, dropping the client if it has fallen behind.
func (h *Hub) deliver(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
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
		h.deliver(c, msg)
	}
}

func (h *Hub) connected(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}

	return false
}

// scheduleRemoval asks the hub to unseat playerID once d has passed; the
// hub ignores the request if the player is back by then.
func (h *Hub) scheduleRemoval(playerID string, d time.Duration) {
	time.AfterFunc(d, func() {
		select {
		case h.idle <- playerID:
		case <-h.done:
		}
	})
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// do applies an intent on behalf of an HTTP caller.
func (h *Hub) do(ctx context.Context, playerID string, in cantstop.Intent) (cantstop.GameState, bool, error) {
	if h.closed() {
		return cantstop.GameState{}, false, errHubClosed
	}

	reply := make(chan actionResult, 1)

	select {
	case h.actions <- actionRequest{playerID: playerID, intent: in, reply: reply}:
	case <-h.done:
		return cantstop.GameState{}, false, errHubClosed
	case <-ctx.Done():
		return cantstop.GameState{}, false, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.state, res.bust, res.err
	case <-h.done:
		return cantstop.GameState{}, false, errHubClosed
	case <-ctx.Done():
		return cantstop.GameState{}, false, ctx.Err()
	}
}

func (h *Hub) snapshot(ctx context.Context) (cantstop.GameState, error) {
	if h.closed() {
		return cantstop.GameState{}, errHubClosed
	}

	reply := make(chan cantstop.GameState, 1)

	select {
	case h.snapshots <- reply:
	case <-h.done:
		return cantstop.GameState{}, errHubClosed
	case <-ctx.Done():
		return cantstop.GameState{}, ctx.Err()
	}

	select {
	case state := <-reply:
		return state, nil
	case <-h.done:
		return cantstop.GameState{}, errHubClosed
	case <-ctx.Done():
		return cantstop.GameState{}, ctx.Err()
	}
}

// close disconnects all clients of this hub (used by reaper).
func (h *Hub) close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func intentError(err error) string {
	if errors.Is(err, cantstop.ErrUnknownIntent) {
		return "Unknown intent"
	}

	return "Malformed intent"
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "cantstop_id"

func playerIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(playerCookieName)
	if err != nil {
		return ""
	}

	return c.Value
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if id := playerIDFromRequest(r); id != "" {
		return id
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id.String()
}

// GameManager holds a set of hubs keyed by game code, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	store       store.Store
	idleTimeout time.Duration
	rng         cantstop.Rand
	done        chan struct{}
	closeOnce   sync.Once
}

func newGameManager(st store.Store, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		store:       st,
		idleTimeout: idleTimeout,
		rng:         newHubRand(),
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// getHub returns the running hub for gameID, starting one from the stored
// state (or a fresh lobby) if needed.
func (gm *GameManager) getHub(ctx context.Context, cfg *Config, gameID string) (*Hub, error) {
	gm.mu.Lock()
	hub, ok := gm.hubs[gameID]
	gm.mu.Unlock()

	if ok {
		return hub, nil
	}

	state, err := gm.store.Load(ctx, gameID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state = cantstop.NewGameState()
	case err != nil:
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub = newHub(gameID, gm.store, state)
	gm.hubs[gameID] = hub
	go hub.run(cfg)

	return hub, nil
}

// newGameID picks a game code that is neither running nor stored.
func (gm *GameManager) newGameID(ctx context.Context) (string, error) {
	for {
		gm.mu.Lock()
		id := cantstop.NewGameCode(gm.rng)
		_, running := gm.hubs[id]
		gm.mu.Unlock()

		if running {
			continue
		}

		stored, err := gm.store.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !stored {
			return id, nil
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	var reaped []string

	gm.mu.Lock()
	for id, hub := range gm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(gm.hubs, id)
			hub.close()
			reaped = append(reaped, id)
		}
	}
	gm.mu.Unlock()

	for _, id := range reaped {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		_ = gm.store.Delete(ctx, id)
		cancel()
	}
}

func (gm *GameManager) close() {
	gm.closeOnce.Do(func() {
		close(gm.done)

		gm.mu.Lock()
		defer gm.mu.Unlock()

		for id, hub := range gm.hubs {
			delete(gm.hubs, id)
			hub.close()
		}
	})
}

func gameCode(ps httprouter.Params) (string, error) {
	gameID := ps.ByName("gameid")
	if !cantstop.ValidGameCode(gameID) {
		return "", errInvalidCode
	}

	return gameID, nil
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, err := gameCode(ps)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, errMissingPlayer.Error(), http.StatusInternalServerError)
			return
		}

		hub, err := gm.getHub(r.Context(), cfg, gameID)
		if err != nil {
			errs <- err
			http.Error(w, "unable to load game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrading connection from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, sendBuffer),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "GAMES: Player %s connected to %s from %s", playerID, gameID, realIP(r))

		go client.writePump()
		client.readPump(hub)
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
			return
		}

		in, err := cantstop.DecodeIntent(data)

		select {
		case h.actions <- actionRequest{playerID: c.playerID, intent: in, err: err, client: c}:
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
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

func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		gameID, err := gameCode(ps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		hub, err := gm.getHub(r.Context(), cfg, gameID)
		if err != nil {
			errs <- err
			writeError(w, http.StatusInternalServerError, errors.New("unable to load game"))
			return
		}

		state, err := hub.snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}

		written, err := writeJSON(w, http.StatusOK, state)
		if err != nil {
			errs <- err
			return
		}

		logf(cfg, "SERVE: State of %s (%s) to %s in %s",
			gameID,
			byteSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveAction(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		gameID, err := gameCode(ps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		playerID := playerIDFromRequest(r)
		if playerID == "" {
			writeError(w, http.StatusUnauthorized, errNoSession)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}

		in, err := cantstop.DecodeIntent(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New(intentError(err)))
			return
		}

		hub, err := gm.getHub(r.Context(), cfg, gameID)
		if err != nil {
			errs <- err
			writeError(w, http.StatusInternalServerError, errors.New("unable to load game"))
			return
		}

		state, bust, err := hub.do(r.Context(), playerID, in)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		written, err := writeJSON(w, http.StatusOK, actionResponse{OK: true, State: state, Bust: bust})
		if err != nil {
			errs <- err
			return
		}

		logf(cfg, "SERVE: %s in %s (%s) for %s in %s",
			in.Name(),
			gameID,
			byteSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// qrHandler generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, err := gameCode(ps); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		securityHeaders(cfg, w)

		if _, err := gameCode(ps); err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, newPage(cfg, "Invalid game code", "Game codes are five letters. Back to the start."))
			return
		}

		data, err := assets.ReadFile("assets/cantstop/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		_ = getOrSetPlayerID(w, r)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new random game code
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID, err := gm.newGameID(r.Context())
		if err != nil {
			errs <- err
			http.Error(w, "unable to create game", http.StatusInternalServerError)
			return
		}

		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerCantStopGame sets up routes so that:
//   - $path                  → redirects to new random game (5-letter code)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/state    → JSON snapshot of that game
//   - $path/:gameid/action   → POST an intent without a websocket
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerCantStopGame(cfg *Config, path string, mux *httprouter.Router, st store.Store, errs chan<- error) *GameManager {
	gm := newGameManager(st, cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm, errs))

	mux.POST(cfg.prefix+path+"/:gameid/action", serveAction(cfg, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return gm
}
