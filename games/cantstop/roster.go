/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"slices"
)

const msgColorTaken = "That color is already taken by another player."

// AddPlayer seats playerID at the end of the turn order. Colors are unique
// across seated players, so a taken color is refused. Adding a player
// who is already seated does nothing.
func (e *Engine) AddPlayer(s GameState, playerID, color, name string) GameState {
	if playerID == "" {
		return s
	}
	if _, ok := s.Players[playerID]; ok {
		return s
	}
	if s.colorTaken(color, playerID) {
		return s.withMessage(msgColorTaken)
	}

	next := s.Clone()
	next.Players[playerID] = Player{Color: color, Name: name}
	if !slices.Contains(next.PlayerOrder, playerID) {
		next.PlayerOrder = append(next.PlayerOrder, playerID)
	}
	next.Message = ""

	return next
}

// RemovePlayer unseats playerID and strips their permanent pieces. The
// turn pointer is pulled back when the removed seat was at or before it.
// Removing the last player resets the game to an empty lobby.
func (e *Engine) RemovePlayer(s GameState, playerID string) GameState {
	_, seated := s.Players[playerID]
	removedIndex := slices.Index(s.PlayerOrder, playerID)
	if !seated && removedIndex < 0 {
		return s
	}

	next := s.Clone()
	delete(next.Players, playerID)
	next.PlayerOrder = slices.DeleteFunc(next.PlayerOrder, func(id string) bool {
		return id == playerID
	})

	if len(next.Players) == 0 {
		return resetRoster(next)
	}

	if removedIndex >= 0 && removedIndex <= s.TurnIndex && len(next.PlayerOrder) > 0 {
		next.TurnIndex = max(0, s.TurnIndex-1)
	}
	if next.TurnIndex >= len(next.PlayerOrder) {
		next.TurnIndex = 0
	}

	for col, pieces := range next.Pieces {
		kept := withoutPlayer(pieces, playerID)
		if len(kept) == 0 {
			delete(next.Pieces, col)
			continue
		}
		next.Pieces[col] = kept
	}

	if s.CurrentPlayerID() == playerID {
		next.NeutralPieces = make(map[int]int)
		next.Dice = nil
		next.Phase = PhaseRolling
	}
	next.Message = ""

	return next
}

func resetRoster(s GameState) GameState {
	s.Players = make(map[string]Player)
	s.PlayerOrder = []string{}
	s.TurnIndex = 0
	s.Started = false
	s.Phase = PhaseRolling
	s.Dice = nil
	s.NeutralPieces = make(map[int]int)
	s.Pieces = make(map[int][]Piece)
	s.LockedColumns = make(map[int]string)
	s.Winner = ""
	s.Message = ""
	s.NextGame = ""

	return s
}

// UpdatePlayerInfo changes the color and name of a seated player, unless
// another player already uses that color.
func (e *Engine) UpdatePlayerInfo(s GameState, playerID, color, name string) GameState {
	if _, ok := s.Players[playerID]; !ok {
		return s
	}
	if s.colorTaken(color, playerID) {
		return s.withMessage(msgColorTaken)
	}

	next := s.Clone()
	next.Players[playerID] = Player{Color: color, Name: name}
	next.Message = ""

	return next
}
