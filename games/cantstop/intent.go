/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownIntent is returned by DecodeIntent for an unrecognized tag.
var ErrUnknownIntent = errors.New("unknown intent")

// Intent is a single action requested by a player. The concrete types
// below are the only implementations.
type Intent interface {
	// Name returns the wire tag of the intent.
	Name() string
}

type RollDiceIntent struct{}

type ChoosePairsIntent struct {
	Pairs []Pair `json:"pairs"`
}

type HoldIntent struct{}

type StartGameIntent struct{}

type UpdatePlayerInfoIntent struct {
	Color string `json:"color"`
	Name  string `json:"name"`
}

// QuitGameIntent removes the acting player.
type QuitGameIntent struct{}

// AddPlayerIntent seats PlayerID, or the acting player when it is empty.
type AddPlayerIntent struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	Name     string `json:"name"`
}

type RemovePlayerIntent struct {
	PlayerID string `json:"playerId"`
}

// ChatIntent carries a chat line. A zero Timestamp is left for the caller
// to fill in before the intent is applied.
type ChatIntent struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (RollDiceIntent) Name() string         { return "rollDice" }
func (ChoosePairsIntent) Name() string      { return "choosePairs" }
func (HoldIntent) Name() string             { return "hold" }
func (StartGameIntent) Name() string        { return "startGame" }
func (UpdatePlayerInfoIntent) Name() string { return "updatePlayerInfo" }
func (QuitGameIntent) Name() string         { return "quitGame" }
func (AddPlayerIntent) Name() string        { return "addPlayer" }
func (RemovePlayerIntent) Name() string     { return "removePlayer" }
func (ChatIntent) Name() string             { return "chat" }

type envelope struct {
	Intent     string          `json:"intent"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// DecodeIntent parses {"intent": "...", "parameters": {...}}.
func DecodeIntent(data []byte) (Intent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}

	switch env.Intent {
	case "rollDice":
		return RollDiceIntent{}, nil
	case "hold":
		return HoldIntent{}, nil
	case "startGame":
		return StartGameIntent{}, nil
	case "quitGame":
		return QuitGameIntent{}, nil
	case "choosePairs":
		return decodeParameters[ChoosePairsIntent](env)
	case "updatePlayerInfo":
		return decodeParameters[UpdatePlayerInfoIntent](env)
	case "addPlayer":
		return decodeParameters[AddPlayerIntent](env)
	case "removePlayer":
		return decodeParameters[RemovePlayerIntent](env)
	case "chat":
		return decodeParameters[ChatIntent](env)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownIntent, env.Intent)
	}
}

func decodeParameters[T Intent](env envelope) (Intent, error) {
	var in T
	if len(env.Parameters) == 0 || bytes.Equal(env.Parameters, []byte("null")) {
		return in, nil
	}

	if err := json.Unmarshal(env.Parameters, &in); err != nil {
		return nil, fmt.Errorf("decode %s parameters: %w", env.Intent, err)
	}

	return in, nil
}

// EncodeIntent returns the wire form of in.
func EncodeIntent(in Intent) ([]byte, error) {
	env := envelope{Intent: in.Name()}

	switch in.(type) {
	case RollDiceIntent, HoldIntent, StartGameIntent, QuitGameIntent:
	default:
		params, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		env.Parameters = params
	}

	return json.Marshal(env)
}

// Apply dispatches in to the matching operation on behalf of playerID.
// Unrecognized intents leave s untouched.
func (e *Engine) Apply(s GameState, playerID string, in Intent) GameState {
	switch in := in.(type) {
	case RollDiceIntent:
		return e.RollDice(s, playerID)
	case ChoosePairsIntent:
		return e.ChoosePairs(s, playerID, in.Pairs)
	case HoldIntent:
		return e.Hold(s, playerID)
	case StartGameIntent:
		return e.StartGame(s)
	case UpdatePlayerInfoIntent:
		return e.UpdatePlayerInfo(s, playerID, in.Color, in.Name)
	case QuitGameIntent:
		return e.RemovePlayer(s, playerID)
	case AddPlayerIntent:
		id := in.PlayerID
		if id == "" {
			id = playerID
		}

		return e.AddPlayer(s, id, in.Color, in.Name)
	case RemovePlayerIntent:
		return e.RemovePlayer(s, in.PlayerID)
	case ChatIntent:
		return e.AddChat(s, playerID, in.Message, in.Timestamp)
	}

	return s
}
