// internal/match/events.go
package match

import (
	"github.com/google/uuid"

	"github.com/lastcard-club/lastcard/internal/engine"
)

// EventType is an enum-like type for broadcasting match actions.
type EventType string

const (
	EventRoundStart  EventType = "match_round_start" // Public: a round was dealt
	EventPlayerTurn  EventType = "match_player_turn" // Public notification of whose turn it is
	EventPlayerDraw  EventType = "player_draw"       // Public draw notification (count only)
	EventPrivateDraw EventType = "private_draw"      // Private draw details for the drawer

	// EventPrivateDrawChoice tells the drawer their card is playable
	// and the round is waiting on action_play_drawn / action_keep_drawn.
	EventPrivateDrawChoice EventType = "private_draw_choice"

	EventPlayerPlay     EventType = "player_play"      // Public: card hit the discard pile
	EventPlayerLastCard EventType = "player_last_card" // Public: "last card" was called
	EventPlayerPenalty  EventType = "player_penalty"   // Public: missed-call penalty applied
	EventPlayerOut      EventType = "player_out"       // Public: a player emptied their hand
	EventRoundEnd       EventType = "match_round_end"  // Public: round finished + finish order

	EventPrivateHand      EventType = "private_hand"       // Private full-hand reveal
	EventPrivateSyncState EventType = "private_sync_state" // Private state sync on connect/reconnect
	EventError            EventType = "error"              // Private rejection of an action
)

// EventUser is used within Event payloads for user identification.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// Event holds data about a match occurrence that can be broadcast to
// the clients in a consistent format.
type Event struct {
	Type  EventType     `json:"type"`
	User  *EventUser    `json:"user,omitempty"`
	Card  *engine.Card  `json:"card,omitempty"`
	Cards []engine.Card `json:"cards,omitempty"`
	Count int           `json:"count,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *RoundView `json:"state,omitempty"`
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Payload: map[string]interface{}{"message": msg}}
}
