/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"sync"

	"github.com/Seednode/cantstop/games/cantstop"
)

// Memory keeps games in process. States are copied on the way in and out.
type Memory struct {
	mu    sync.RWMutex
	games map[string]cantstop.GameState
}

func NewMemory() *Memory {
	return &Memory{
		games: make(map[string]cantstop.GameState),
	}
}

func (m *Memory) Load(_ context.Context, gameID string) (cantstop.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.games[gameID]
	if !ok {
		return cantstop.GameState{}, ErrNotFound
	}

	return state.Clone(), nil
}

func (m *Memory) Save(_ context.Context, gameID string, state cantstop.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.games[gameID] = state.Clone()

	return nil
}

func (m *Memory) Exists(_ context.Context, gameID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.games[gameID]

	return ok, nil
}

func (m *Memory) Delete(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.games, gameID)

	return nil
}

func (m *Memory) Close() error {
	return nil
}
