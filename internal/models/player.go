package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is one seat at a live match: the link between a user account
// and the engine's seat-indexed state.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Seat      int             `json:"seat"`
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`

	User *User `json:"-"`
}
