/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"maps"
	"slices"
)

// StartGame closes the lobby and deals a random turn order over everyone
// seated. It does nothing once the game has started or with nobody seated.
func (e *Engine) StartGame(s GameState) GameState {
	if s.Started || len(s.Players) == 0 {
		return s
	}

	ids := slices.Sorted(maps.Keys(s.Players))

	next := s.Clone()
	next.PlayerOrder = shuffled(e.rng, ids)
	next.Started = true
	next.TurnIndex = 0
	next.Phase = PhaseRolling
	next.Dice = nil
	next.NeutralPieces = make(map[int]int)
	next.Winner = ""
	next.Message = ""

	return next
}
