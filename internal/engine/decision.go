// internal/engine/decision.go
package engine

// DrawDecision is the deferred choice handed back when a player in
// turn draws a single playable card. The round accepts nothing else
// from that player until exactly one of PlayNow or Keep resolves it.
// It is a plain two-variant choice point, not a concurrency boundary.
type DrawDecision struct {
	// Card is a copy of the drawn card, for display. The live card
	// sits at the end of the drawer's hand.
	Card Card

	round    *Round
	player   int
	resolved bool
}

// PlayNow plays the drawn card immediately. A wild still needs its
// chosen color. On legality or color errors the decision stays open
// and the caller may retry or Keep.
func (d *DrawDecision) PlayNow(color Color) (Card, error) {
	if d.resolved {
		return Card{}, ErrDecisionResolved
	}
	seat := d.round.Players[d.player]
	return d.round.Play(d.player, len(d.round.Hands[seat])-1, color)
}

// Keep leaves the drawn card in hand and ends the turn.
func (d *DrawDecision) Keep() error {
	if d.resolved {
		return ErrDecisionResolved
	}
	return d.round.EndTurn()
}

// Resolved reports whether the decision has been consumed.
func (d *DrawDecision) Resolved() bool {
	return d.resolved
}
