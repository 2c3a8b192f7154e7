/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import "testing"

// scriptedRand replays values in order, wrapping around.
type scriptedRand struct {
	values []int
	next   int
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[r.next%len(r.values)]
	r.next++

	return v % n
}

// rolls scripts dice faces (1-6) for RollDice.
func rolls(faces ...int) *scriptedRand {
	values := make([]int, len(faces))
	for i, f := range faces {
		values[i] = f - 1
	}

	return &scriptedRand{values: values}
}

// seated returns a started game with ids seated in the given order and the
// first id holding the turn.
func seated(t *testing.T, ids ...string) GameState {
	t.Helper()

	colors := []string{"#2563eb", "#dc2626", "#16a34a", "#ca8a04", "#9333ea"}

	e := New(&scriptedRand{})
	s := NewGameState()
	for i, id := range ids {
		s = e.AddPlayer(s, id, colors[i%len(colors)], id)
	}
	s.Started = true

	return s
}

func pairing(s GameState, dice ...int) GameState {
	s.Phase = PhasePairing
	s.Dice = dice

	return s
}
