// internal/engine/round.go
package engine

import "math/rand"

// handSize is the number of cards dealt to each player at round start.
const handSize = 7

// penaltyDrawCount is how many cards a player draws for failing to
// call "last card" in time.
const penaltyDrawCount = 2

// Round is the state machine for a single play-through, from deal to
// elimination endpoint. It is owned by a Game and mutated exclusively
// through Draw, Play, CallLastCard and EndTurn; hosts embedding the
// engine in a concurrent setting must serialize those calls.
//
// Players holds the still-active seats in join order and shrinks as
// players go out; Turn indexes into it. Hands stays keyed by seat so
// eliminations never reshuffle hand ownership.
type Round struct {
	Players           []int
	Turn              int
	Clockwise         bool
	DrawPile          []Card
	DiscardPile       []Card
	Hands             map[int][]Card
	PendingCallerSeat int
	Winners           []int
	Finished          bool

	rng      *rand.Rand
	decision *DrawDecision
}

// newRound deals a fresh round for playerCount seats. The deck is
// built and shuffled with rng, each seat receives seven cards in seat
// order, then the first discard is turned per the table rules.
func newRound(playerCount, starting int, rng *rand.Rand) *Round {
	r := &Round{
		Turn:              starting,
		Clockwise:         true,
		Hands:             make(map[int][]Card, playerCount),
		PendingCallerSeat: -1,
		rng:               rng,
	}
	r.Players = make([]int, playerCount)
	for seat := range r.Players {
		r.Players[seat] = seat
	}
	r.DrawPile = NewDeck(rng)
	for _, seat := range r.Players {
		r.Hands[seat] = r.take(handSize)
	}
	r.firstDiscard()
	return r
}

// firstDiscard turns the opening card. A wild-draw-four may not open
// the round: it goes back into the pile, the pile is reshuffled and a
// new card is turned. The loop terminates because only 4 of the 108
// cards are wild-draw-fours. Action cards take effect before the
// first player acts; a plain wild keeps its wild color until the
// first play resolves it.
func (r *Round) firstDiscard() {
	var card Card
	for {
		card = r.take(1)[0]
		if card.Symbol != SymbolWildDrawFour {
			break
		}
		r.DrawPile = append(r.DrawPile, card)
		shuffle(r.rng, r.DrawPile)
	}
	r.DiscardPile = append(r.DiscardPile, card)

	switch card.Symbol {
	case SymbolReverse:
		r.Clockwise = false
		r.endTurn()
	case SymbolSkip:
		r.endTurn()
	case SymbolDrawTwo:
		seat := r.Players[r.Turn]
		r.refill(penaltyDrawCount)
		r.Hands[seat] = append(r.Hands[seat], r.take(penaltyDrawCount)...)
		r.endTurn()
	}
}

// Draw moves amount cards from the draw pile into player's hand,
// recycling the discard pile first if the draw pile runs short.
//
// A single-card draw by the player in turn whose drawn card is
// playable returns a DrawDecision: the round is inert until the
// caller either plays that card or keeps it and ends the turn. Every
// other draw ends the turn on its own and returns (nil, nil).
func (r *Round) Draw(player, amount int) (*DrawDecision, error) {
	if r.Finished {
		return nil, ErrRoundFinished
	}
	if r.decision != nil {
		return nil, ErrDecisionPending
	}
	if player < 0 || player >= len(r.Players) {
		return nil, ErrPlayerOutOfRange
	}
	if amount < 1 {
		return nil, ErrInvalidDraw
	}

	r.resolvePendingCall()

	seat := r.Players[player]
	r.refill(amount)
	drawn := r.take(amount)
	r.Hands[seat] = append(r.Hands[seat], drawn...)

	if amount == 1 && player == r.Turn && len(drawn) == 1 && drawn[0].matches(r.Top()) {
		d := &DrawDecision{round: r, player: player, Card: drawn[0]}
		r.decision = d
		return d, nil
	}
	r.endTurn()
	return nil, nil
}

// Play discards the card at cardIndex of the in-turn player's hand.
// There is no jump-in: player must be the current turn. A wild must
// arrive with a real chosen color, which the card is rebound to
// before it hits the discard pile. The (rebound) card is returned.
func (r *Round) Play(player, cardIndex int, color Color) (Card, error) {
	if r.Finished {
		return Card{}, ErrRoundFinished
	}
	if player < 0 || player >= len(r.Players) {
		return Card{}, ErrPlayerOutOfRange
	}
	if player != r.Turn {
		return Card{}, ErrNotYourTurn
	}
	seat := r.Players[player]
	if cardIndex < 0 || cardIndex >= len(r.Hands[seat]) {
		return Card{}, ErrCardOutOfRange
	}
	if r.decision != nil && cardIndex != len(r.Hands[seat])-1 {
		// An unresolved draw decision only permits playing the card
		// that was just drawn.
		return Card{}, ErrDecisionPending
	}

	r.resolvePendingCall()

	card := r.Hands[seat][cardIndex]
	if !card.matches(r.Top()) {
		return Card{}, ErrIllegalPlay
	}
	if card.Color == ColorWild {
		if color == "" {
			return Card{}, ErrColorRequired
		}
		if !color.Valid() {
			return Card{}, ErrInvalidColor
		}
		card.Color = color
	}

	hand := r.Hands[seat]
	r.Hands[seat] = append(hand[:cardIndex], hand[cardIndex+1:]...)
	r.DiscardPile = append(r.DiscardPile, card)
	r.clearDecision()

	switch card.Symbol {
	case SymbolReverse:
		r.Clockwise = !r.Clockwise
		// With two players the flip alone skips the opponent, so the
		// same player goes again.
		if len(r.Players) != 2 {
			r.endTurn()
		}
	case SymbolSkip:
		r.endTurn()
		r.endTurn()
	case SymbolDrawTwo:
		r.forceDraw(2)
	case SymbolWildDrawFour:
		r.forceDraw(4)
	default:
		r.endTurn()
	}
	return card, nil
}

// CallLastCard is the verbal "last card" call. The pending player
// calling in time clears the flag without penalty. Anyone else
// calling while a flag is pending counts as the pending player having
// been caught, and the penalty applies immediately. Calling when
// nothing is pending is a no-op.
func (r *Round) CallLastCard(player int) error {
	if r.Finished {
		return ErrRoundFinished
	}
	if player < 0 || player >= len(r.Players) {
		return ErrPlayerOutOfRange
	}
	if r.PendingCallerSeat < 0 {
		return nil
	}
	if r.Players[player] == r.PendingCallerSeat {
		r.PendingCallerSeat = -1
		return nil
	}
	r.resolvePendingCall()
	return nil
}

// EndTurn advances the turn without playing. It is the "keep the
// drawn card" arm of a draw decision and is also exposed for
// host-driven turn passes.
func (r *Round) EndTurn() error {
	if r.Finished {
		return ErrRoundFinished
	}
	r.clearDecision()
	r.endTurn()
	return nil
}

// Top returns the discard top, which defines current play legality.
func (r *Round) Top() Card {
	return r.DiscardPile[len(r.DiscardPile)-1]
}

// CurrentSeat returns the seat whose turn it is.
func (r *Round) CurrentSeat() int {
	return r.Players[r.Turn]
}

// IndexOfSeat translates a seat into its index among the still-active
// players, or -1 if the seat is already out.
func (r *Round) IndexOfSeat(seat int) int {
	for i, s := range r.Players {
		if s == seat {
			return i
		}
	}
	return -1
}

// Playable reports whether card may be played on the discard top.
func (r *Round) Playable(card Card) bool {
	return card.matches(r.Top())
}

// PlayableCards filters cards down to those playable on the discard
// top, preserving order. Returns nil when none match.
func (r *Round) PlayableCards(cards []Card) []Card {
	var out []Card
	for _, c := range cards {
		if c.matches(r.Top()) {
			out = append(out, c)
		}
	}
	return out
}

// CardCount returns the total number of cards across the draw pile,
// the discard pile and every hand. It is constant at 108 for the
// lifetime of a round.
func (r *Round) CardCount() int {
	n := len(r.DrawPile) + len(r.DiscardPile)
	for _, hand := range r.Hands {
		n += len(hand)
	}
	return n
}

// resolvePendingCall applies the missed-call penalty: if a player
// still owes a "last card" call, they draw two and the flag clears.
// Runs at the start of every Draw and Play.
func (r *Round) resolvePendingCall() {
	if r.PendingCallerSeat < 0 {
		return
	}
	seat := r.PendingCallerSeat
	r.PendingCallerSeat = -1
	r.refill(penaltyDrawCount)
	r.Hands[seat] = append(r.Hands[seat], r.take(penaltyDrawCount)...)
}

// forceDraw is the shared draw-two / wild-draw-four effect: the next
// player in direction draws n cards and loses their turn.
func (r *Round) forceDraw(n int) {
	r.endTurn()
	if r.Finished {
		return
	}
	seat := r.Players[r.Turn]
	r.refill(n)
	r.Hands[seat] = append(r.Hands[seat], r.take(n)...)
	r.endTurn()
}

// refill recycles the discard pile into the draw pile when the draw
// pile cannot cover a draw of amount cards. The discard top stays
// where it is; everything underneath moves over, wilds reverting to
// the wild color, and the draw pile is reshuffled.
func (r *Round) refill(amount int) {
	if amount <= len(r.DrawPile) || len(r.DiscardPile) <= 1 {
		return
	}
	top := r.Top()
	recycled := r.DiscardPile[:len(r.DiscardPile)-1]
	for i := range recycled {
		if recycled[i].IsWild() {
			recycled[i].Color = ColorWild
		}
	}
	r.DrawPile = append(r.DrawPile, recycled...)
	r.DiscardPile = []Card{top}
	shuffle(r.rng, r.DrawPile)
}

// take pops up to n cards off the draw pile tail.
func (r *Round) take(n int) []Card {
	if n > len(r.DrawPile) {
		n = len(r.DrawPile)
	}
	cut := len(r.DrawPile) - n
	out := make([]Card, n)
	copy(out, r.DrawPile[cut:])
	r.DrawPile = r.DrawPile[:cut]
	return out
}

func (r *Round) clearDecision() {
	if r.decision != nil {
		r.decision.resolved = true
		r.decision = nil
	}
}

// endTurn is the single turn transition. A player left holding one
// card owes a "last card" call; a player with an empty hand is
// recorded as a winner and removed. The round ends once fewer than
// two players hold cards, with the stragglers appended to the finish
// order. Otherwise the pointer advances exactly one step in the
// current direction, accounting for the index shift a removal causes.
func (r *Round) endTurn() {
	if r.Finished {
		return
	}
	seat := r.Players[r.Turn]
	removed := false
	switch len(r.Hands[seat]) {
	case 1:
		r.PendingCallerSeat = seat
	case 0:
		r.Winners = append(r.Winners, seat)
		r.Players = append(r.Players[:r.Turn], r.Players[r.Turn+1:]...)
		if r.PendingCallerSeat == seat {
			r.PendingCallerSeat = -1
		}
		if len(r.Players) < 2 {
			r.Winners = append(r.Winners, r.Players...)
			r.Finished = true
			return
		}
		removed = true
	}

	if r.Clockwise {
		// Removing the current player already shifted the successor
		// into this index.
		if !removed {
			r.Turn++
		}
		r.Turn %= len(r.Players)
	} else {
		r.Turn--
		if r.Turn < 0 {
			r.Turn = len(r.Players) - 1
		}
	}
}
