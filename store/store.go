/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists game states keyed by game code.
package store

import (
	"context"
	"errors"

	"github.com/Seednode/cantstop/games/cantstop"
)

// ErrNotFound is returned by Load for a game that was never saved.
var ErrNotFound = errors.New("game not found")

// Store reads and writes whole game states. Callers are responsible for
// serializing read-modify-write cycles on the same game.
type Store interface {
	Load(ctx context.Context, gameID string) (cantstop.GameState, error)
	Save(ctx context.Context, gameID string, state cantstop.GameState) error
	Exists(ctx context.Context, gameID string) (bool, error)
	Delete(ctx context.Context, gameID string) error
	Close() error
}
