/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/cantstop/games/cantstop"
	"github.com/Seednode/cantstop/store"
)

const testGame = "ABCDE"

type actionReply struct {
	OK    bool               `json:"ok"`
	State cantstop.GameState `json:"state"`
	Bust  bool               `json:"bust"`
	Error string             `json:"error"`
}

func postAction(t *testing.T, srv *httptest.Server, game, playerID, body string) (int, actionReply) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/cantstop/"+game+"/action", strings.NewReader(body))
	require.NoError(t, err)
	if playerID != "" {
		req.AddCookie(&http.Cookie{Name: playerCookieName, Value: playerID})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out actionReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp.StatusCode, out
}

func getState(t *testing.T, srv *httptest.Server, game string) cantstop.GameState {
	t.Helper()

	resp, err := http.Get(srv.URL + "/cantstop/" + game + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state cantstop.GameState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))

	return state
}

func addPlayer(name, color string) string {
	return `{"intent":"addPlayer","parameters":{"name":"` + name + `","color":"` + color + `"}}`
}

func TestRedirectNewGame(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	resp, _ := get(t, srv.URL+"/cantstop")
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Regexp(t, `^/cantstop/[A-Z]{5}$`, resp.Header.Get("Location"))
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	resp, body := get(t, srv.URL+"/cantstop/"+testGame)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/assets/cantstop/app.js")

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == playerCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, 36)
	assert.True(t, cookie.HttpOnly)

	resp, _ = get(t, srv.URL+"/cantstop/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrSetPlayerIDKeepsCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: playerCookieName, Value: "known"})
	w := httptest.NewRecorder()

	assert.Equal(t, "known", getOrSetPlayerID(w, r))
	assert.Empty(t, w.Result().Cookies())
}

func TestActionFlow(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	status, reply := postAction(t, srv, testGame, "p1", addPlayer("Alice", "#2563eb"))
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reply.OK)
	assert.Contains(t, reply.State.Players, "p1")

	status, reply = postAction(t, srv, testGame, "p2", addPlayer("Bob", "#2563eb"))
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, reply.State.Players, "p2")
	assert.Equal(t, "That color is already taken by another player.", reply.State.Message)

	_, reply = postAction(t, srv, testGame, "p2", addPlayer("Bob", "#dc2626"))
	assert.Contains(t, reply.State.Players, "p2")

	_, reply = postAction(t, srv, testGame, "p2", `{"intent":"startGame"}`)
	require.True(t, reply.State.Started)
	assert.ElementsMatch(t, []string{"p1", "p2"}, reply.State.PlayerOrder)

	current := reply.State.CurrentPlayerID()
	waiting := "p1"
	if current == "p1" {
		waiting = "p2"
	}

	// Out of turn rolls change nothing.
	_, reply = postAction(t, srv, testGame, waiting, `{"intent":"rollDice"}`)
	assert.False(t, reply.Bust)
	assert.Nil(t, reply.State.Dice)
	assert.Equal(t, current, reply.State.CurrentPlayerID())

	_, reply = postAction(t, srv, testGame, current, `{"intent":"rollDice"}`)
	if reply.Bust {
		assert.Nil(t, reply.State.Dice)
		assert.Equal(t, waiting, reply.State.CurrentPlayerID())
	} else {
		assert.Equal(t, cantstop.PhasePairing, reply.State.Phase)
		assert.Len(t, reply.State.Dice, cantstop.DiceCount)
	}

	assert.Equal(t, reply.State, getState(t, srv, testGame))
}

func TestActionErrors(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	status, reply := postAction(t, srv, testGame, "", `{"intent":"rollDice"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, errNoSession.Error(), reply.Error)

	status, reply = postAction(t, srv, testGame, "p1", `{"intent":"cheat"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown intent", reply.Error)

	status, reply = postAction(t, srv, testGame, "p1", `{"intent":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Malformed intent", reply.Error)

	status, reply = postAction(t, srv, "nope", "p1", `{"intent":"rollDice"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errInvalidCode.Error(), reply.Error)

	status, _ = postAction(t, srv, testGame, "p1", `{"intent":"chat","parameters":{"message":"`+strings.Repeat("x", maxMessageSize)+`"}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	resp, _ := get(t, srv.URL+"/cantstop/"+testGame+"/action")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChatTimestampFilled(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	before := time.Now().UnixMilli()

	postAction(t, srv, testGame, "p1", addPlayer("Alice", "#2563eb"))
	_, reply := postAction(t, srv, testGame, "p1", `{"intent":"chat","parameters":{"message":"  hello  "}}`)

	require.Len(t, reply.State.Chats, 1)
	assert.Equal(t, "hello", reply.State.Chats[0].Message)
	assert.GreaterOrEqual(t, reply.State.Chats[0].Timestamp, before)
}

func TestStatePersisted(t *testing.T) {
	st := store.NewMemory()
	srv, gm := newTestServer(t, &Config{}, st)

	postAction(t, srv, testGame, "p1", addPlayer("Alice", "#2563eb"))

	saved, err := st.Load(context.Background(), testGame)
	require.NoError(t, err)
	assert.Contains(t, saved.Players, "p1")

	gm.reap(time.Now().Add(time.Hour))

	ok, err := st.Exists(context.Background(), testGame)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, getState(t, srv, testGame).Players)
}

func TestStateLoadedFromStore(t *testing.T) {
	st := store.NewMemory()

	s := cantstop.NewGameState()
	s.Players["p9"] = cantstop.Player{Color: "#16a34a", Name: "Nine"}
	s.PlayerOrder = []string{"p9"}
	require.NoError(t, st.Save(context.Background(), testGame, s))

	srv, gm := newTestServer(t, &Config{}, st)

	assert.Contains(t, getState(t, srv, testGame).Players, "p9")

	id, err := gm.newGameID(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, testGame, id)
	assert.True(t, cantstop.ValidGameCode(id))
}

type failingStore struct {
	*store.Memory
}

func (failingStore) Save(context.Context, string, cantstop.GameState) error {
	return errors.New("disk on fire")
}

func TestSaveFailureKeepsState(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, failingStore{store.NewMemory()})

	status, reply := postAction(t, srv, testGame, "p1", addPlayer("Alice", "#2563eb"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, reply.Error, "disk on fire")

	assert.Empty(t, getState(t, srv, testGame).Players)
}

// fixedRand always returns zero, so every die shows a one.
type fixedRand struct{}

func (fixedRand) IntN(int) int { return 0 }

func TestHubDetectsBust(t *testing.T) {
	cfg := &Config{}

	s := cantstop.NewGameState()
	s.Players["p1"] = cantstop.Player{Color: "#2563eb", Name: "Alice"}
	s.Players["p2"] = cantstop.Player{Color: "#dc2626", Name: "Bob"}
	s.PlayerOrder = []string{"p1", "p2"}
	s.Started = true
	s.Phase = cantstop.PhaseRolling

	h := newHub(testGame, store.NewMemory(), s)
	h.engine = cantstop.New(fixedRand{})

	next, bust, err := h.apply(cfg, "p1", cantstop.RollDiceIntent{})
	require.NoError(t, err)
	assert.False(t, bust)
	assert.Equal(t, []int{1, 1, 1, 1}, next.Dice)

	s.LockedColumns[2] = "p2"
	h = newHub(testGame, store.NewMemory(), s)
	h.engine = cantstop.New(fixedRand{})

	next, bust, err = h.apply(cfg, "p1", cantstop.RollDiceIntent{})
	require.NoError(t, err)
	assert.True(t, bust)
	assert.Equal(t, "p2", next.CurrentPlayerID())

	// Rejected rolls are never reported as busts.
	_, bust, err = h.apply(cfg, "p1", cantstop.RollDiceIntent{})
	require.NoError(t, err)
	assert.False(t, bust)
}

func TestHubDetectsSoloBust(t *testing.T) {
	s := cantstop.NewGameState()
	s.Players["p1"] = cantstop.Player{Color: "#2563eb", Name: "Alice"}
	s.PlayerOrder = []string{"p1"}
	s.Started = true
	s.Phase = cantstop.PhaseRolling
	s.LockedColumns[2] = "p1"

	h := newHub(testGame, store.NewMemory(), s)
	h.engine = cantstop.New(fixedRand{})

	next, bust, err := h.apply(&Config{}, "p1", cantstop.RollDiceIntent{})
	require.NoError(t, err)
	assert.True(t, bust)
	assert.Equal(t, "p1", next.CurrentPlayerID())
}

func TestQRCode(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	resp, body := get(t, srv.URL+"/cantstop/"+testGame+"/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))

	resp, _ = get(t, srv.URL+"/cantstop/x/qr")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func dial(t *testing.T, srv *httptest.Server, game, playerID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/cantstop/" + game + "/ws"
	header := http.Header{}
	header.Set("Cookie", playerCookieName+"="+playerID)

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

type wireMessage struct {
	Type     string             `json:"type"`
	PlayerID string             `json:"playerId"`
	GameID   string             `json:"gameId"`
	State    cantstop.GameState `json:"state"`
	Intent   string             `json:"intent"`
	Bust     bool               `json:"bust"`
	Message  string             `json:"message"`
}

func read(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	conn := dial(t, srv, testGame, "p1")

	msg := read(t, conn)
	require.Equal(t, "session_info", msg.Type)
	assert.Equal(t, "p1", msg.PlayerID)
	assert.Equal(t, testGame, msg.GameID)

	msg = read(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Empty(t, msg.State.Players)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(addPlayer("Alice", "#2563eb"))))

	msg = read(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Contains(t, msg.State.Players, "p1")

	msg = read(t, conn)
	require.Equal(t, "result", msg.Type)
	assert.Equal(t, "addPlayer", msg.Intent)
	assert.False(t, msg.Bust)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"intent":"cheat"}`)))

	msg = read(t, conn)
	require.Equal(t, "error", msg.Type)
	assert.Equal(t, "Unknown intent", msg.Message)
}

func TestWebsocketSeesHTTPActions(t *testing.T) {
	srv, _ := newTestServer(t, &Config{}, store.NewMemory())

	conn := dial(t, srv, testGame, "p1")
	read(t, conn)
	read(t, conn)

	postAction(t, srv, testGame, "p2", addPlayer("Bob", "#dc2626"))

	msg := read(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Contains(t, msg.State.Players, "p2")
}

func TestDisconnectedPlayerRemoved(t *testing.T) {
	srv, _ := newTestServer(t, &Config{playerTimeout: 50 * time.Millisecond}, store.NewMemory())

	conn := dial(t, srv, testGame, "p1")
	read(t, conn)
	read(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(addPlayer("Alice", "#2563eb"))))
	read(t, conn)
	read(t, conn)

	postAction(t, srv, testGame, "p2", addPlayer("Bob", "#dc2626"))
	require.Len(t, getState(t, srv, testGame).Players, 2)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		players := getState(t, srv, testGame).Players
		_, stillThere := players["p1"]
		return !stillThere && len(players) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReconnectKeepsSeat(t *testing.T) {
	srv, _ := newTestServer(t, &Config{playerTimeout: 100 * time.Millisecond}, store.NewMemory())

	conn := dial(t, srv, testGame, "p1")
	read(t, conn)
	read(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(addPlayer("Alice", "#2563eb"))))
	read(t, conn)
	read(t, conn)
	require.NoError(t, conn.Close())

	again := dial(t, srv, testGame, "p1")
	read(t, again)
	read(t, again)

	time.Sleep(300 * time.Millisecond)

	assert.Contains(t, getState(t, srv, testGame).Players, "p1")
}

func TestClosedManagerRejectsRequests(t *testing.T) {
	srv, gm := newTestServer(t, &Config{}, store.NewMemory())

	hub, err := gm.getHub(context.Background(), &Config{}, testGame)
	require.NoError(t, err)

	gm.close()

	_, _, err = hub.do(context.Background(), "p1", cantstop.RollDiceIntent{})
	assert.ErrorIs(t, err, errHubClosed)

	_, err = hub.snapshot(context.Background())
	assert.ErrorIs(t, err, errHubClosed)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
