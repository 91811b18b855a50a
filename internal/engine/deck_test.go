// internal/engine/deck_test.go
package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(42)))
	require.Len(t, deck, DeckSize)

	type face struct {
		color  Color
		symbol Symbol
	}
	histogram := map[face]int{}
	for _, c := range deck {
		histogram[face{c.Color, c.Symbol}]++
	}

	for _, color := range Colors {
		assert.Equal(t, 1, histogram[face{color, SymbolZero}], "%s zero", color)
		for _, sym := range digits[1:] {
			assert.Equal(t, 2, histogram[face{color, sym}], "%s %s", color, sym)
		}
		for _, sym := range []Symbol{SymbolReverse, SymbolSkip, SymbolDrawTwo} {
			assert.Equal(t, 2, histogram[face{color, sym}], "%s %s", color, sym)
		}
	}
	assert.Equal(t, 4, histogram[face{ColorWild, SymbolWild}])
	assert.Equal(t, 4, histogram[face{ColorWild, SymbolWildDrawFour}])
	assert.Len(t, histogram, 4*13+2)
}

func TestNewDeckDeterministicUnderSeed(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(7)))
	b := NewDeck(rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b, "same seed must yield same permutation")

	c := NewDeck(rand.New(rand.NewSource(8)))
	assert.NotEqual(t, a, c, "different seeds should permute differently")
}

func TestCardPredicates(t *testing.T) {
	assert.True(t, Card{Color: ColorWild, Symbol: SymbolWild}.IsWild())
	assert.True(t, Card{Color: ColorWild, Symbol: SymbolWildDrawFour}.IsWild())
	assert.False(t, Card{Color: ColorRed, Symbol: SymbolReverse}.IsWild())

	assert.True(t, Card{Color: ColorRed, Symbol: SymbolSkip}.IsAction())
	assert.True(t, Card{Color: ColorWild, Symbol: SymbolWild}.IsAction())
	assert.False(t, Card{Color: ColorBlue, Symbol: SymbolNine}.IsAction())

	assert.True(t, ColorGreen.Valid())
	assert.False(t, ColorWild.Valid())
	assert.False(t, Color("purple").Valid())
}
