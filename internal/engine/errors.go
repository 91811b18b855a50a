// internal/engine/errors.go
package engine

import "errors"

// Every invalid transition is rejected with one of these sentinels
// before any state is mutated. Callers match with errors.Is and
// re-prompt; the engine never retries on its own.
var (
	// ErrConfig is returned when a Game is constructed with a player
	// count outside [2, 10].
	ErrConfig = errors.New("player count must be between 2 and 10")

	// ErrNoActiveRound is returned when an operation needs a live,
	// unfinished round and there is none.
	ErrNoActiveRound = errors.New("no active round")

	// ErrRoundFinished is returned when an operation is attempted on a
	// round that has already ended.
	ErrRoundFinished = errors.New("round is finished")

	// ErrPlayerOutOfRange is returned when a player index does not
	// point at a still-active player of the current round.
	ErrPlayerOutOfRange = errors.New("player index out of range")

	// ErrPlayerNotFound is returned when a player name cannot be
	// resolved against the current round.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrCardOutOfRange is returned when a card index does not point
	// at a card in the acting player's hand.
	ErrCardOutOfRange = errors.New("card index out of range")

	// ErrNotYourTurn is returned on any play attempt by a player who
	// is not in turn. There is no jump-in.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrIllegalPlay is returned when the chosen card matches neither
	// the symbol nor the color of the discard top and is not a wild.
	ErrIllegalPlay = errors.New("card does not match discard top")

	// ErrColorRequired is returned when a wild is played without a
	// chosen color.
	ErrColorRequired = errors.New("wild play requires a chosen color")

	// ErrInvalidColor is returned when the chosen color for a wild is
	// not one of the four real colors.
	ErrInvalidColor = errors.New("chosen color is not a real color")

	// ErrInvalidDraw is returned when a draw is requested for fewer
	// than one card.
	ErrInvalidDraw = errors.New("draw amount must be positive")

	// ErrDecisionPending is returned when a new operation arrives
	// while a draw decision is still waiting to be resolved.
	ErrDecisionPending = errors.New("draw decision pending resolution")

	// ErrDecisionResolved is returned when a draw decision is resolved
	// a second time.
	ErrDecisionResolved = errors.New("draw decision already resolved")
)
