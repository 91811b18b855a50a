// internal/engine/game.go
package engine

import (
	"math/rand"
	"time"
)

// Game is the session entry point. It owns the player roster for the
// lifetime of the session and creates and replaces rounds; all round
// mutation goes through its forwarding operations. The roster is
// fixed at construction; only rounds track eliminations.
//
// Game performs no locking of its own (see the match package for the
// concurrent host boundary).
type Game struct {
	players []string
	rng     *rand.Rand

	// Round is the current round, nil until NewRound is called. It is
	// exported for host layers that render state; mutating it
	// directly voids the engine's invariants.
	Round *Round
}

// Option configures a Game at construction.
type Option func(*Game)

// WithRand injects the random source used for every shuffle, making
// deck order deterministic under a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rng = r }
}

// NewGame creates a session for the given roster. Between 2 and 10
// players are required.
func NewGame(players []string, opts ...Option) (*Game, error) {
	if len(players) < 2 || len(players) > 10 {
		return nil, ErrConfig
	}
	g := &Game{players: append([]string(nil), players...)}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g, nil
}

// Players returns the session roster in seat order.
func (g *Game) Players() []string {
	return append([]string(nil), g.players...)
}

// PlayerName resolves a seat to its roster name.
func (g *Game) PlayerName(seat int) (string, error) {
	if seat < 0 || seat >= len(g.players) {
		return "", ErrPlayerOutOfRange
	}
	return g.players[seat], nil
}

// NewRound deals a fresh round, discarding any previous one. No state
// carries over between rounds.
func (g *Game) NewRound(startingPlayer int) (*Round, error) {
	if startingPlayer < 0 || startingPlayer >= len(g.players) {
		return nil, ErrPlayerOutOfRange
	}
	g.Round = newRound(len(g.players), startingPlayer, g.rng)
	return g.Round, nil
}

// Draw forwards to the current round. See Round.Draw.
func (g *Game) Draw(player, amount int) (*DrawDecision, error) {
	if g.Round == nil {
		return nil, ErrNoActiveRound
	}
	return g.Round.Draw(player, amount)
}

// Play forwards to the current round. See Round.Play.
func (g *Game) Play(player, cardIndex int, color Color) (Card, error) {
	if g.Round == nil {
		return Card{}, ErrNoActiveRound
	}
	return g.Round.Play(player, cardIndex, color)
}

// CallLastCard forwards to the current round. See Round.CallLastCard.
func (g *Game) CallLastCard(player int) error {
	if g.Round == nil {
		return ErrNoActiveRound
	}
	return g.Round.CallLastCard(player)
}

// EndTurn forwards to the current round. See Round.EndTurn.
func (g *Game) EndTurn() error {
	if g.Round == nil {
		return ErrNoActiveRound
	}
	return g.Round.EndTurn()
}

// DrawPile returns a copy of the current round's draw pile.
func (g *Game) DrawPile() ([]Card, error) {
	r, err := g.activeRound()
	if err != nil {
		return nil, err
	}
	return append([]Card(nil), r.DrawPile...), nil
}

// DiscardPile returns a copy of the current round's discard pile.
func (g *Game) DiscardPile() ([]Card, error) {
	r, err := g.activeRound()
	if err != nil {
		return nil, err
	}
	return append([]Card(nil), r.DiscardPile...), nil
}

// GetPlayerCards returns a copy of the hand of the player at the
// given index into the current round's active player list.
func (g *Game) GetPlayerCards(player int) ([]Card, error) {
	r, err := g.activeRound()
	if err != nil {
		return nil, err
	}
	if player < 0 || player >= len(r.Players) {
		return nil, ErrPlayerOutOfRange
	}
	seat := r.Players[player]
	return append([]Card(nil), r.Hands[seat]...), nil
}

// GetPlayerCardsByName resolves a roster name against the current
// round and returns a copy of that player's hand. Eliminated players
// resolve to ErrPlayerNotFound.
func (g *Game) GetPlayerCardsByName(name string) ([]Card, error) {
	r, err := g.activeRound()
	if err != nil {
		return nil, err
	}
	for seat, n := range g.players {
		if n != name {
			continue
		}
		if idx := r.IndexOfSeat(seat); idx >= 0 {
			return g.GetPlayerCards(idx)
		}
	}
	return nil, ErrPlayerNotFound
}

// Playable reports whether card may be played on the discard top.
func (g *Game) Playable(card Card) (bool, error) {
	r, err := g.activeRound()
	if err != nil {
		return false, err
	}
	return r.Playable(card), nil
}

// PlayableCards returns the subset of cards playable on the discard
// top, or nil when none are.
func (g *Game) PlayableCards(cards []Card) ([]Card, error) {
	r, err := g.activeRound()
	if err != nil {
		return nil, err
	}
	return r.PlayableCards(cards), nil
}

func (g *Game) activeRound() (*Round, error) {
	if g.Round == nil || g.Round.Finished {
		return nil, ErrNoActiveRound
	}
	return g.Round, nil
}
