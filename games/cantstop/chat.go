/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

import (
	"strconv"
	"strings"
)

// MaxChats is the number of chat entries kept with a game.
const MaxChats = 100

// AddChat appends a message from a seated player, keeping only the most
// recent MaxChats entries.
func (e *Engine) AddChat(s GameState, playerID, message string, timestamp int64) GameState {
	player, ok := s.Players[playerID]
	message = strings.TrimSpace(message)
	if !ok || message == "" {
		return s
	}

	next := s.Clone()
	next.Chats = append(next.Chats, ChatEntry{
		ID:        playerID + "-" + strconv.FormatInt(timestamp, 10),
		PlayerID:  playerID,
		Name:      player.Name,
		Color:     player.Color,
		Message:   message,
		Timestamp: timestamp,
	})

	if over := len(next.Chats) - MaxChats; over > 0 {
		next.Chats = append([]ChatEntry{}, next.Chats[over:]...)
	}

	return next
}
