package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	// Lifetime tallies, updated when a match round is recorded.
	RoundsWon    int `json:"rounds_won"`
	RoundsPlayed int `json:"rounds_played"`
}
