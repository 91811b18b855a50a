// internal/engine/round_test.go
package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(color Color, symbol Symbol) Card {
	return Card{Color: color, Symbol: symbol}
}

// riggedRound builds a round with fully controlled hands and piles so
// tests do not depend on shuffle order. The discard top starts as a
// red five unless the test overwrites it.
func riggedRound(hands ...[]Card) *Round {
	r := &Round{
		Clockwise:         true,
		Hands:             make(map[int][]Card, len(hands)),
		PendingCallerSeat: -1,
		DiscardPile:       []Card{card(ColorRed, SymbolFive)},
		rng:               rand.New(rand.NewSource(1)),
	}
	for seat, hand := range hands {
		r.Players = append(r.Players, seat)
		r.Hands[seat] = append([]Card(nil), hand...)
	}
	for i := 0; i < 20; i++ {
		r.DrawPile = append(r.DrawPile, card(ColorYellow, SymbolOne))
	}
	return r
}

func TestPlayMatchingColor(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	played, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, card(ColorRed, SymbolSeven), played)
	assert.Equal(t, card(ColorRed, SymbolSeven), r.Top())
	assert.Len(t, r.Hands[0], 1)
	assert.Equal(t, 1, r.Turn)
}

func TestPlayMatchingSymbol(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolFive), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
	)

	played, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, card(ColorBlue, SymbolFive), played)
}

func TestPlayIllegalCard(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolTwo), card(ColorRed, SymbolOne)},
		[]Card{card(ColorGreen, SymbolThree)},
	)

	_, err := r.Play(0, 0, "")
	assert.ErrorIs(t, err, ErrIllegalPlay)
	assert.Len(t, r.Hands[0], 2, "rejected play must not mutate the hand")
	assert.Equal(t, 0, r.Turn)
}

func TestPlayOutOfTurn(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	_, err := r.Play(1, 0, "")
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestPlayCardIndexOutOfRange(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven)},
		[]Card{card(ColorRed, SymbolThree)},
	)

	_, err := r.Play(0, 5, "")
	assert.ErrorIs(t, err, ErrCardOutOfRange)
	_, err = r.Play(0, -1, "")
	assert.ErrorIs(t, err, ErrCardOutOfRange)
	_, err = r.Play(7, 0, "")
	assert.ErrorIs(t, err, ErrPlayerOutOfRange)
}

func TestPlayWildRequiresColor(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorWild, SymbolWild), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
	)

	_, err := r.Play(0, 0, "")
	assert.ErrorIs(t, err, ErrColorRequired)
	assert.Len(t, r.Hands[0], 2)

	_, err = r.Play(0, 0, Color("purple"))
	assert.ErrorIs(t, err, ErrInvalidColor)

	played, err := r.Play(0, 0, ColorGreen)
	require.NoError(t, err)
	assert.Equal(t, ColorGreen, played.Color)
	assert.Equal(t, SymbolWild, played.Symbol)
	assert.Equal(t, ColorGreen, r.Top().Color)
}

func TestWildRebindSticksForLegality(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorWild, SymbolWild), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree), card(ColorRed, SymbolNine)},
	)

	_, err := r.Play(0, 0, ColorGreen)
	require.NoError(t, err)

	// Legality now keys off the rebound green, never off "wild".
	assert.True(t, r.Playable(card(ColorGreen, SymbolNine)))
	assert.False(t, r.Playable(card(ColorRed, SymbolNine)))
	assert.True(t, r.Playable(card(ColorWild, SymbolWildDrawFour)))
}

func TestUnresolvedWildTopAllowsAnything(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolTwo), card(ColorGreen, SymbolNine)},
		[]Card{card(ColorGreen, SymbolThree)},
	)
	// First discard was a plain wild nobody resolved yet.
	r.DiscardPile = []Card{card(ColorWild, SymbolWild)}

	assert.True(t, r.Playable(card(ColorBlue, SymbolTwo)))
	assert.True(t, r.Playable(card(ColorGreen, SymbolNine)))

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, card(ColorBlue, SymbolTwo), r.Top())
}

func TestReverseWithTwoPlayersKeepsTurn(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolReverse), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.False(t, r.Clockwise)
	assert.Equal(t, 0, r.Turn, "direction flip alone skips the opponent")
}

func TestReverseWithThreePlayers(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolReverse), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
		[]Card{card(ColorGreen, SymbolFour), card(ColorYellow, SymbolSix)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.False(t, r.Clockwise)
	assert.Equal(t, 2, r.Turn, "counter-clockwise step from player 0 wraps to player 2")
}

func TestSkipConsumesNextTurn(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSkip), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
		[]Card{card(ColorGreen, SymbolFour)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Turn)
}

func TestDrawTwoFeedsVictimAndSkipsThem(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolDrawTwo), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree), card(ColorGreen, SymbolFour)},
		[]Card{card(ColorGreen, SymbolFive)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.Len(t, r.Hands[1], 4, "victim draws two")
	assert.Equal(t, 2, r.Turn, "victim's turn is consumed")
}

func TestWildDrawFourFeedsVictimFour(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorWild, SymbolWildDrawFour), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
		[]Card{card(ColorGreen, SymbolFive), card(ColorYellow, SymbolSix)},
	)

	played, err := r.Play(0, 0, ColorBlue)
	require.NoError(t, err)
	assert.Equal(t, ColorBlue, played.Color)
	assert.Len(t, r.Hands[1], 5, "victim draws four")
	assert.Equal(t, 2, r.Turn)
}

func TestDrawRecyclesDiscardKeepingTop(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven)},
		[]Card{card(ColorGreen, SymbolThree)},
	)
	r.DrawPile = nil
	r.DiscardPile = []Card{
		card(ColorBlue, SymbolOne),
		card(ColorGreen, SymbolTwo),
		card(ColorYellow, SymbolNine),
		card(ColorGreen, SymbolWild), // a played wild goes back to wild color
		card(ColorRed, SymbolFive),   // top, stays put
	}

	before := r.CardCount()
	_, err := r.Draw(0, 2)
	require.NoError(t, err)

	assert.Len(t, r.DiscardPile, 1)
	assert.Equal(t, card(ColorRed, SymbolFive), r.Top())
	assert.Len(t, r.DrawPile, 2, "4 recycled minus 2 drawn")
	assert.Len(t, r.Hands[0], 3)
	assert.Equal(t, before, r.CardCount())

	for _, c := range append(append([]Card(nil), r.DrawPile...), r.Hands[0]...) {
		if c.IsWild() {
			assert.Equal(t, ColorWild, c.Color, "recycled wilds revert to wild color")
		}
	}
}

func TestDrawDecisionPlayNow(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolTwo), card(ColorGreen, SymbolNine)},
		[]Card{card(ColorGreen, SymbolThree)},
	)
	r.DrawPile = append(r.DrawPile, card(ColorRed, SymbolNine)) // next draw, playable on red five

	d, err := r.Draw(0, 1)
	require.NoError(t, err)
	require.NotNil(t, d, "playable single draw must return a decision")
	assert.Equal(t, card(ColorRed, SymbolNine), d.Card)
	assert.Equal(t, 0, r.Turn, "turn is held open while the decision is pending")

	// Round is inert for other draws until resolved.
	_, err = r.Draw(0, 1)
	assert.ErrorIs(t, err, ErrDecisionPending)

	played, err := d.PlayNow("")
	require.NoError(t, err)
	assert.Equal(t, card(ColorRed, SymbolNine), played)
	assert.Equal(t, card(ColorRed, SymbolNine), r.Top())
	assert.Equal(t, 1, r.Turn)
	assert.True(t, d.Resolved())

	_, err = d.PlayNow("")
	assert.ErrorIs(t, err, ErrDecisionResolved)
}

func TestDrawDecisionKeep(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree), card(ColorGreen, SymbolFour)},
	)
	r.DrawPile = append(r.DrawPile, card(ColorRed, SymbolNine))

	d, err := r.Draw(0, 1)
	require.NoError(t, err)
	require.NotNil(t, d)

	require.NoError(t, d.Keep())
	assert.Len(t, r.Hands[0], 2, "kept card stays in hand")
	assert.Equal(t, 1, r.Turn)
	assert.ErrorIs(t, d.Keep(), ErrDecisionResolved)
}

func TestDrawUnplayableEndsTurn(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
	)
	r.DrawPile = append(r.DrawPile, card(ColorGreen, SymbolNine)) // green nine on red five: no match

	d, err := r.Draw(0, 1)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, 1, r.Turn)
	assert.Len(t, r.Hands[0], 2)
}

func TestDrawMultipleEndsTurn(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorGreen, SymbolThree)},
	)

	d, err := r.Draw(0, 3)
	require.NoError(t, err)
	assert.Nil(t, d, "multi-card draws never offer a decision")
	assert.Len(t, r.Hands[0], 4)
	assert.Equal(t, 1, r.Turn)

	_, err = r.Draw(0, 0)
	assert.ErrorIs(t, err, ErrInvalidDraw)
}

func TestMissedLastCardCallPenalty(t *testing.T) {
	// Scenario: A plays down to one card and does not call; B's next
	// play costs A two penalty cards.
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
		[]Card{card(ColorGreen, SymbolFive), card(ColorYellow, SymbolSix)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 0, r.PendingCallerSeat)

	_, err = r.Play(1, 0, "")
	require.NoError(t, err)
	assert.Len(t, r.Hands[0], 3, "one card plus two penalty cards")
	assert.Equal(t, -1, r.PendingCallerSeat)
}

func TestLastCardCalledInTime(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	require.Equal(t, 0, r.PendingCallerSeat)

	require.NoError(t, r.CallLastCard(r.IndexOfSeat(0)))
	assert.Equal(t, -1, r.PendingCallerSeat)

	_, err = r.Play(1, 0, "")
	require.NoError(t, err)
	assert.Len(t, r.Hands[0], 1, "no penalty after a timely call")
}

func TestForeignCallTriggersPenalty(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	require.Equal(t, 0, r.PendingCallerSeat)

	// Opponent calls it first: the pending player is caught.
	require.NoError(t, r.CallLastCard(1))
	assert.Len(t, r.Hands[0], 3)
	assert.Equal(t, -1, r.PendingCallerSeat)
}

func TestPrematureCallIsNoop(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorRed, SymbolThree)},
	)

	require.NoError(t, r.CallLastCard(0))
	assert.Equal(t, -1, r.PendingCallerSeat)
	assert.Len(t, r.Hands[0], 2)
}

func TestEliminationFinishesTwoPlayerRound(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.True(t, r.Finished)
	assert.Equal(t, []int{0, 1}, r.Winners, "loser is appended after the winner")

	_, err = r.Play(0, 0, "")
	assert.ErrorIs(t, err, ErrRoundFinished)
	_, err = r.Draw(0, 1)
	assert.ErrorIs(t, err, ErrRoundFinished)
	assert.ErrorIs(t, r.EndTurn(), ErrRoundFinished)
	assert.ErrorIs(t, r.CallLastCard(0), ErrRoundFinished)
}

func TestEliminationKeepsRoundGoingWithThree(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorRed, SymbolSeven)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
		[]Card{card(ColorGreen, SymbolFive), card(ColorYellow, SymbolSix)},
	)

	_, err := r.Play(0, 0, "")
	require.NoError(t, err)
	assert.False(t, r.Finished)
	assert.Equal(t, []int{0}, r.Winners)
	assert.Equal(t, []int{1, 2}, r.Players)
	assert.Equal(t, 1, r.CurrentSeat(), "turn passes to the next player in direction")
	assert.Equal(t, -1, r.IndexOfSeat(0))
}

func TestCounterClockwiseEliminationAdvance(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorGreen, SymbolFive), card(ColorYellow, SymbolSix)},
		[]Card{card(ColorRed, SymbolSeven)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
	)
	r.Clockwise = false
	r.Turn = 1

	_, err := r.Play(1, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, r.Players)
	assert.Equal(t, 0, r.CurrentSeat(), "counter-clockwise passes to the lower index")
}

func TestEndTurnAdvancesOneStep(t *testing.T) {
	r := riggedRound(
		[]Card{card(ColorGreen, SymbolFive), card(ColorBlue, SymbolOne)},
		[]Card{card(ColorRed, SymbolSeven), card(ColorBlue, SymbolTwo)},
		[]Card{card(ColorRed, SymbolThree), card(ColorGreen, SymbolFour)},
	)

	require.NoError(t, r.EndTurn())
	assert.Equal(t, 1, r.Turn)
	require.NoError(t, r.EndTurn())
	assert.Equal(t, 2, r.Turn)
	require.NoError(t, r.EndTurn())
	assert.Equal(t, 0, r.Turn)

	r.Clockwise = false
	require.NoError(t, r.EndTurn())
	assert.Equal(t, 2, r.Turn)
}

func TestFreshRoundInvariants(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			r := newRound(4, 0, rng)

			assert.Equal(t, DeckSize, r.CardCount())
			require.NotEmpty(t, r.DiscardPile)
			assert.NotEqual(t, SymbolWildDrawFour, r.DiscardPile[0].Symbol,
				"wild-draw-four may not open a round")
			assert.GreaterOrEqual(t, r.Turn, 0)
			assert.Less(t, r.Turn, len(r.Players))
			for seat, hand := range r.Hands {
				assert.GreaterOrEqual(t, len(hand), handSize, "seat %d", seat)
			}
		})
	}
}

func TestCardConservationAcrossDraws(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	r := newRound(3, 0, rng)

	for i := 0; i < 60 && !r.Finished; i++ {
		d, err := r.Draw(r.Turn, 1)
		require.NoError(t, err)
		if d != nil {
			require.NoError(t, d.Keep())
		}
		assert.Equal(t, DeckSize, r.CardCount(), "iteration %d", i)
		assert.GreaterOrEqual(t, r.Turn, 0)
		assert.Less(t, r.Turn, len(r.Players))
		assert.NotEmpty(t, r.DiscardPile)
	}
}
