// internal/engine/card.go
package engine

import "fmt"

// Color is one of the four playable card colors, or ColorWild for a
// wild card whose color has not been chosen yet.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorWild   Color = "wild"
)

// Colors lists the four real colors a wild card may be rebound to.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// Valid reports whether c is one of the four real colors.
func (c Color) Valid() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorBlue:
		return true
	}
	return false
}

// Symbol is the face of a card: a digit or an action.
type Symbol string

const (
	SymbolZero  Symbol = "0"
	SymbolOne   Symbol = "1"
	SymbolTwo   Symbol = "2"
	SymbolThree Symbol = "3"
	SymbolFour  Symbol = "4"
	SymbolFive  Symbol = "5"
	SymbolSix   Symbol = "6"
	SymbolSeven Symbol = "7"
	SymbolEight Symbol = "8"
	SymbolNine  Symbol = "9"

	SymbolReverse      Symbol = "reverse"
	SymbolSkip         Symbol = "skip"
	SymbolDrawTwo      Symbol = "draw-two"
	SymbolWild         Symbol = "wild"
	SymbolWildDrawFour Symbol = "wild-draw-four"
)

// digits in deck order; each color gets one zero and two of each other digit.
var digits = []Symbol{
	SymbolZero, SymbolOne, SymbolTwo, SymbolThree, SymbolFour,
	SymbolFive, SymbolSix, SymbolSeven, SymbolEight, SymbolNine,
}

// Card is a single playing card. Cards are plain values with
// structural equality; the only mutation a card ever sees is the
// one-time color rebind of a wild at play time, and that happens on
// the round's own copy, never on a card handed out to callers.
type Card struct {
	Color  Color  `json:"color"`
	Symbol Symbol `json:"symbol"`
}

// IsWild reports whether the card started life as a wild, regardless
// of any color it has since been rebound to.
func (c Card) IsWild() bool {
	return c.Symbol == SymbolWild || c.Symbol == SymbolWildDrawFour
}

// IsAction reports whether playing the card triggers a side effect.
func (c Card) IsAction() bool {
	switch c.Symbol {
	case SymbolReverse, SymbolSkip, SymbolDrawTwo, SymbolWild, SymbolWildDrawFour:
		return true
	}
	return false
}

func (c Card) String() string {
	return fmt.Sprintf("%s %s", c.Color, c.Symbol)
}

// matches reports whether c may be played on top. A card matches on
// symbol, on color, or by being an (unresolved) wild. If top itself
// still carries the wild color the first discard was a plain wild
// nobody has resolved yet, and anything goes.
func (c Card) matches(top Card) bool {
	if top.Color == ColorWild {
		return true
	}
	return c.Color == ColorWild || c.Symbol == top.Symbol || c.Color == top.Color
}
