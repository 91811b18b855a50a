// internal/engine/deck.go
package engine

import "math/rand"

// DeckSize is the fixed card count of a full deck.
const DeckSize = 108

// NewDeck builds the standard 108-card deck and shuffles it with r.
// Per color: one zero, two of each 1-9, two reverse, two skip, two
// draw-two. Plus four wild and four wild-draw-four. The shuffle is a
// uniform Fisher-Yates permutation, so a seeded r makes the deck
// fully deterministic.
func NewDeck(r *rand.Rand) []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range Colors {
		deck = append(deck, Card{Color: color, Symbol: SymbolZero})
		for _, sym := range digits[1:] {
			deck = append(deck,
				Card{Color: color, Symbol: sym},
				Card{Color: color, Symbol: sym},
			)
		}
		for _, sym := range []Symbol{SymbolReverse, SymbolSkip, SymbolDrawTwo} {
			deck = append(deck,
				Card{Color: color, Symbol: sym},
				Card{Color: color, Symbol: sym},
			)
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: ColorWild, Symbol: SymbolWild})
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: ColorWild, Symbol: SymbolWildDrawFour})
	}

	shuffle(r, deck)
	return deck
}

func shuffle(r *rand.Rand, cards []Card) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
