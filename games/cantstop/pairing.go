/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

const (
	msgUseBoth     = "You must use both pairs since the remaining dice form a valid pair."
	msgCannotPlace = "Invalid move: cannot place a neutral piece in that column."
	msgBeyondTop   = "Invalid move: cannot advance piece beyond the top of the column."
)

// Grouping is one way of splitting four dice into two pairs.
type Grouping [2][2]int

// Sums returns the column each pair of g points at.
func (g Grouping) Sums() (int, int) {
	return g[0][0] + g[0][1], g[1][0] + g[1][1]
}

// Groupings returns the three ways of pairing a four dice roll.
func Groupings(dice [DiceCount]int) [3]Grouping {
	return [3]Grouping{
		{{dice[0], dice[1]}, {dice[2], dice[3]}},
		{{dice[0], dice[2]}, {dice[1], dice[3]}},
		{{dice[0], dice[3]}, {dice[1], dice[2]}},
	}
}

// canUseSum reports whether sum could take a neutral marker this turn. It
// is the bust test, so it ignores where the player's permanent piece sits.
func canUseSum(s GameState, sum int) bool {
	if slot, ok := s.NeutralPieces[sum]; ok {
		return slot < TopSlot(sum)
	}

	return ValidColumn(sum) && len(s.NeutralPieces) < MaxNeutralPieces && !s.isLocked(sum)
}

// HasAnyValidMove reports whether at least one grouping of dice offers a
// usable sum. A roll without one is a bust.
func HasAnyValidMove(s GameState, dice []int) bool {
	if len(dice) != DiceCount {
		return false
	}

	for _, g := range Groupings([DiceCount]int(dice)) {
		a, b := g.Sums()
		if canUseSum(s, a) || canUseSum(s, b) {
			return true
		}
	}

	return false
}

// canPlace is canUseSum plus the check that playerID has a free slot above
// their permanent piece when a new marker would be started.
func canPlace(s GameState, sum int, playerID string) bool {
	if slot, ok := s.NeutralPieces[sum]; ok {
		return slot < TopSlot(sum)
	}

	return ValidColumn(sum) &&
		len(s.NeutralPieces) < MaxNeutralPieces &&
		!s.isLocked(sum) &&
		s.startSlot(sum, playerID) <= TopSlot(sum)
}

// place moves the marker for sum within neutral, starting one if needed.
// Pieces and locks are read from s. It returns a rejection message, or the
// empty string if the marker moved.
func place(s GameState, neutral map[int]int, sum int, playerID string) string {
	if slot, ok := neutral[sum]; ok {
		if slot >= TopSlot(sum) {
			return msgBeyondTop
		}
		neutral[sum] = slot + 1

		return ""
	}

	next := s.startSlot(sum, playerID)
	if !ValidColumn(sum) || len(neutral) >= MaxNeutralPieces || s.isLocked(sum) || next > TopSlot(sum) {
		return msgCannotPlace
	}
	neutral[sum] = next

	return ""
}

// consume removes each chosen die from a copy of roll, one value at a time.
// It returns the dice left over, or false if a value is not available.
func consume(roll []int, chosen [][2]int) ([]int, bool) {
	left := append([]int{}, roll...)

	for _, pair := range chosen {
		for _, v := range pair {
			i := indexOf(left, v)
			if i < 0 {
				return nil, false
			}
			left = append(left[:i], left[i+1:]...)
		}
	}

	return left, true
}

func indexOf(values []int, v int) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}

	return -1
}
