package models

import "github.com/google/uuid"

// Lobby represents a row in the lobbies table.
type Lobby struct {
	ID         uuid.UUID `json:"id"`
	HostUserID uuid.UUID `json:"host_user_id"`
	Type       string    `json:"type"` // 'private' or 'public'

	// AutoStart indicates if the lobby starts its countdown once all
	// players are ready.
	AutoStart bool `json:"auto_start"`
}
