/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"slices"
)

// Engine applies player intents to a GameState. Every operation is total:
// an illegal call returns the state it was given, optionally carrying a
// Message that explains the rejection.
//
// An Engine is not safe for concurrent use; callers serialize operations
// per game, which also serializes access to the Rand.
type Engine struct {
	rng Rand
}

// New returns an Engine that draws dice, turn orders and game codes
// from rng.
func New(rng Rand) *Engine {
	return &Engine{rng: rng}
}

// Pair is one pair of dice picked from a roll. A nil entry leaves the pair
// unfilled; unfilled pairs are ignored.
type Pair [2]*int

// NewPair returns a filled Pair.
func NewPair(a, b int) Pair {
	return Pair{&a, &b}
}

func (p Pair) filled() bool {
	return p[0] != nil && p[1] != nil
}

// RollDice throws four dice for the active player. If no grouping offers
// a usable column the turn is lost and passes on; callers detect that by
// the change in TurnIndex.
func (e *Engine) RollDice(s GameState, playerID string) GameState {
	if !s.CanAct(playerID, PhaseRolling) {
		return s
	}

	dice := make([]int, DiceCount)
	for i := range dice {
		dice[i] = rollDie(e.rng)
	}

	return applyRoll(s, dice)
}

func applyRoll(s GameState, dice []int) GameState {
	if !HasAnyValidMove(s, dice) {
		return advanceTurn(s)
	}

	next := s.Clone()
	next.Dice = dice
	next.Phase = PhasePairing
	next.Message = ""

	return next
}

// ChoosePairs moves neutral markers according to up to two pairs taken
// from the current roll.
func (e *Engine) ChoosePairs(s GameState, playerID string, pairs []Pair) GameState {
	if !s.CanAct(playerID, PhasePairing) || len(s.Dice) != DiceCount || len(pairs) > 2 {
		return s
	}

	chosen := make([][2]int, 0, 2)
	for _, p := range pairs {
		if p.filled() {
			chosen = append(chosen, [2]int{*p[0], *p[1]})
		}
	}
	if len(chosen) == 0 {
		return s
	}

	left, ok := consume(s.Dice, chosen)
	if !ok {
		return s
	}

	if len(chosen) == 1 {
		// Project the submitted pair onto a scratch copy of the markers
		// and see whether the leftover dice would still be playable.
		scratch := s
		scratch.NeutralPieces = copyNeutral(s.NeutralPieces)

		submitted := chosen[0][0] + chosen[0][1]
		if msg := place(scratch, scratch.NeutralPieces, submitted, playerID); msg == msgBeyondTop {
			return s.withMessage(msg)
		}

		if canPlace(scratch, left[0]+left[1], playerID) {
			return s.withMessage(msgUseBoth)
		}
	}

	next := s.Clone()
	for _, pair := range chosen {
		if msg := place(s, next.NeutralPieces, pair[0]+pair[1], playerID); msg != "" {
			return s.withMessage(msg)
		}
	}

	next.Phase = PhaseRolling
	next.Dice = nil
	next.Message = ""

	return next
}

// Hold commits the active player's neutral markers to permanent pieces.
// A marker held at the top of its column locks that column; locking the
// third column wins the game and keeps the turn where it is.
func (e *Engine) Hold(s GameState, playerID string) GameState {
	if !s.CanAct(playerID, PhaseRolling) || len(s.NeutralPieces) == 0 {
		return s
	}

	next := s.Clone()

	for col, slot := range s.NeutralPieces {
		next.Pieces[col] = append(withoutPlayer(next.Pieces[col], playerID), Piece{
			PlayerID: playerID,
			Slot:     slot,
		})

		if slot == TopSlot(col) {
			next.LockedColumns[col] = playerID
			next.Pieces[col] = onlyPlayer(next.Pieces[col], playerID)
		}
	}

	next.NeutralPieces = make(map[int]int)

	if next.LockedCount(playerID) >= ColumnsToWin {
		next.Winner = playerID
		if next.NextGame == "" {
			next.NextGame = NewGameCode(e.rng)
		}
		next.Message = ""

		return next
	}

	return advanceTurn(next)
}

// AdvanceTurn passes the turn to the next player in order who is still
// seated, discarding any roll or markers in progress.
func (e *Engine) AdvanceTurn(s GameState) GameState {
	return advanceTurn(s)
}

func advanceTurn(s GameState) GameState {
	next := s.Clone()

	n := len(s.PlayerOrder)
	for i := 1; i <= n; i++ {
		candidate := (s.TurnIndex + i) % n
		if _, ok := s.Players[s.PlayerOrder[candidate]]; ok {
			next.TurnIndex = candidate
			break
		}
	}

	next.Dice = nil
	next.NeutralPieces = make(map[int]int)
	next.Phase = PhaseRolling
	next.Message = ""

	return next
}

func withoutPlayer(pieces []Piece, playerID string) []Piece {
	return slices.DeleteFunc(slices.Clone(pieces), func(p Piece) bool {
		return p.PlayerID == playerID
	})
}

func onlyPlayer(pieces []Piece, playerID string) []Piece {
	return slices.DeleteFunc(slices.Clone(pieces), func(p Piece) bool {
		return p.PlayerID != playerID
	})
}
