/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"maps"
	"slices"
)

// Phase is the step of the active player's turn.
type Phase string

const (
	PhaseRolling Phase = "rolling"
	PhasePairing Phase = "pairing"
)

// DiceCount is the number of dice thrown per roll.
const DiceCount = 4

// Piece is a permanent marker committed to a column.
type Piece struct {
	PlayerID string `json:"playerId"`
	Slot     int    `json:"slot"`
}

// Player is the public identity of a seated player.
type Player struct {
	Color string `json:"color"`
	Name  string `json:"name"`
}

// ChatEntry is a single line of table talk.
type ChatEntry struct {
	ID        string `json:"id"`
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// GameState is the whole of a single game. Engine operations never modify
// the value they are given; they return a new one.
type GameState struct {
	Pieces        map[int][]Piece   `json:"pieces"`
	Players       map[string]Player `json:"players"`
	LockedColumns map[int]string    `json:"lockedColumns"`
	PlayerOrder   []string          `json:"playerOrder"`
	TurnIndex     int               `json:"turnIndex"`
	Started       bool              `json:"started"`

	Phase         Phase       `json:"phase"`
	Dice          []int       `json:"dice"`
	NeutralPieces map[int]int `json:"neutralPieces"`
	Winner        string      `json:"winner,omitempty"`
	Message       string      `json:"message,omitempty"`
	NextGame      string      `json:"nextGame,omitempty"`
	Chats         []ChatEntry `json:"chats"`
}

// NewGameState returns the empty state of a freshly referenced game.
func NewGameState() GameState {
	return GameState{
		Pieces:        make(map[int][]Piece),
		Players:       make(map[string]Player),
		LockedColumns: make(map[int]string),
		PlayerOrder:   []string{},
		Phase:         PhaseRolling,
		NeutralPieces: make(map[int]int),
		Chats:         []ChatEntry{},
	}
}

// CurrentPlayerID returns the id of the player whose turn it is, or the
// empty string if the turn index does not resolve.
func (s GameState) CurrentPlayerID() string {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.PlayerOrder) {
		return ""
	}

	return s.PlayerOrder[s.TurnIndex]
}

// LockedCount returns the number of columns locked by playerID.
func (s GameState) LockedCount(playerID string) int {
	n := 0
	for _, owner := range s.LockedColumns {
		if owner == playerID {
			n++
		}
	}

	return n
}

// Clone returns a deep copy of s. Nil collections come back empty.
func (s GameState) Clone() GameState {
	out := s

	out.Pieces = make(map[int][]Piece, len(s.Pieces))
	for col, pieces := range s.Pieces {
		out.Pieces[col] = slices.Clone(pieces)
	}

	out.Players = make(map[string]Player, len(s.Players))
	maps.Copy(out.Players, s.Players)

	out.LockedColumns = make(map[int]string, len(s.LockedColumns))
	maps.Copy(out.LockedColumns, s.LockedColumns)

	out.PlayerOrder = append([]string{}, s.PlayerOrder...)

	if s.Dice != nil {
		out.Dice = slices.Clone(s.Dice)
	}

	out.NeutralPieces = copyNeutral(s.NeutralPieces)

	out.Chats = append([]ChatEntry{}, s.Chats...)

	return out
}

func copyNeutral(neutral map[int]int) map[int]int {
	out := make(map[int]int, MaxNeutralPieces)
	maps.Copy(out, neutral)

	return out
}

func (s GameState) withMessage(msg string) GameState {
	s.Message = msg

	return s
}

// CanAct reports whether playerID holds the turn of a running game and the
// turn is in phase.
func (s GameState) CanAct(playerID string, phase Phase) bool {
	if playerID == "" || !s.Started || s.Winner != "" {
		return false
	}

	return s.CurrentPlayerID() == playerID && s.Phase == phase
}

func (s GameState) isLocked(col int) bool {
	_, ok := s.LockedColumns[col]

	return ok
}

// startSlot is the slot a new neutral marker for playerID would occupy in
// col: one above their highest permanent piece there, or the bottom.
func (s GameState) startSlot(col int, playerID string) int {
	highest := -1
	for _, p := range s.Pieces[col] {
		if p.PlayerID == playerID && p.Slot > highest {
			highest = p.Slot
		}
	}

	return highest + 1
}

func (s GameState) colorTaken(color, playerID string) bool {
	for id, p := range s.Players {
		if id != playerID && p.Color == color {
			return true
		}
	}

	return false
}
