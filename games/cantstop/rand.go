/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"math/rand/v2"
	"regexp"
	"slices"
)

// Rand is the randomness consumed by dice rolls, turn order shuffles and
// game codes. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// NewRand returns a generator seeded with seed.
func NewRand(seed [32]byte) *rand.Rand {
	return rand.New(rand.NewChaCha8(seed))
}

const (
	gameCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	gameCodeLength  = 5
)

var gameCodePattern = regexp.MustCompile(`^[A-Z]{5}$`)

// NewGameCode returns a random five letter game code.
func NewGameCode(r Rand) string {
	out := make([]byte, gameCodeLength)
	for i := range out {
		out[i] = gameCodeLetters[r.IntN(len(gameCodeLetters))]
	}

	return string(out)
}

// ValidGameCode reports whether code could have come from NewGameCode.
func ValidGameCode(code string) bool {
	return gameCodePattern.MatchString(code)
}

func rollDie(r Rand) int {
	return r.IntN(6) + 1
}

// shuffled returns a Fisher-Yates permutation of ids.
func shuffled(r Rand, ids []string) []string {
	out := slices.Clone(ids)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
