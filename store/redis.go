/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Seednode/cantstop/games/cantstop"
)

const keyPrefix = "cantstop:game:"

// RedisConfig selects the Redis server games are kept in.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// TTL expires a game this long after its last save. Zero keeps games
	// until they are deleted.
	TTL time.Duration
}

// Redis keeps each game as a JSON document under its own key.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and checks the server answers.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return &Redis{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func gameKey(gameID string) string {
	return keyPrefix + gameID
}

func (r *Redis) Load(ctx context.Context, gameID string) (cantstop.GameState, error) {
	data, err := r.client.Get(ctx, gameKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cantstop.GameState{}, ErrNotFound
	}
	if err != nil {
		return cantstop.GameState{}, fmt.Errorf("failed to load game %s: %w", gameID, err)
	}

	var state cantstop.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return cantstop.GameState{}, fmt.Errorf("failed to decode game %s: %w", gameID, err)
	}

	return state.Clone(), nil
}

func (r *Redis) Save(ctx context.Context, gameID string, state cantstop.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode game %s: %w", gameID, err)
	}

	if err := r.client.Set(ctx, gameKey(gameID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save game %s: %w", gameID, err)
	}

	return nil
}

func (r *Redis) Exists(ctx context.Context, gameID string) (bool, error) {
	n, err := r.client.Exists(ctx, gameKey(gameID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check game %s: %w", gameID, err)
	}

	return n > 0, nil
}

func (r *Redis) Delete(ctx context.Context, gameID string) error {
	if err := r.client.Del(ctx, gameKey(gameID)).Err(); err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}

	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
