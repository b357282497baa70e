package mau

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mathrand "math/rand"
)

// DeckPreset selects the initial card composition (spec §4.2,
// rule key deck_preset).
type DeckPreset string

const (
	DeckPresetClassic DeckPreset = "classic"
	DeckPresetSmall    DeckPreset = "small"
	DeckPresetWild     DeckPreset = "wild"
	DeckPresetCustom   DeckPreset = "custom"
)

var deckColors = [4]Color{Red, Yellow, Green, Blue}

// buildComposition returns the initial card multiset for a preset.
// Classic is the official 108-card distribution: per color, one 0 and
// two each of 1-9, two Skip, two Turn, two Take (25 cards), plus 4
// Wild + 4 TakeFour. Small has, per color, one each of 0-5 and one
// Skip, Turn and Take (9 cards), plus 2 Wild and no TakeFour (38
// cards). Wild raises wild density instead of number density.
func buildComposition(preset DeckPreset, custom []Card) []Card {
	switch preset {
	case DeckPresetCustom:
		out := make([]Card, len(custom))
		copy(out, custom)
		return out
	case DeckPresetSmall:
		var cards []Card
		for _, c := range deckColors {
			cards = append(cards, NewNumberCard(c, 0))
			for v := int8(1); v <= 5; v++ {
				cards = append(cards, NewNumberCard(c, v))
			}
			cards = append(cards, NewSkipCard(c), NewTurnCard(c), NewTakeCard(c))
		}
		cards = append(cards, NewWildCard(), NewWildCard())
		return cards
	case DeckPresetWild:
		cards := buildComposition(DeckPresetClassic, nil)
		for i := 0; i < 8; i++ {
			cards = append(cards, NewWildCard(), NewTakeFourCard())
		}
		return cards
	default: // DeckPresetClassic
		var cards []Card
		for _, c := range deckColors {
			cards = append(cards, NewNumberCard(c, 0))
			for v := int8(1); v <= 9; v++ {
				cards = append(cards, NewNumberCard(c, v), NewNumberCard(c, v))
			}
			for i := 0; i < 2; i++ {
				cards = append(cards, NewSkipCard(c), NewTurnCard(c), NewTakeCard(c))
			}
		}
		for i := 0; i < 4; i++ {
			cards = append(cards, NewWildCard(), NewTakeFourCard())
		}
		return cards
	}
}

// Deck holds the draw pile (face-down, LIFO draw from the end of the
// slice) and the discard pile (face-up, top is the last element)
// (spec §3/§4.2).
type Deck struct {
	draw    []Card
	discard []Card
	rng     *mathrand.Rand
}

// NewDeck builds a deck from the given preset, in composition order;
// it does not shuffle (Shuffle does). rng drives Shuffle and the
// reshuffle of the discard pile. Pass a seeded rng for deterministic
// tests; NewProductionRand for a fresh per-game seed.
func NewDeck(preset DeckPreset, custom []Card, rng *mathrand.Rand) *Deck {
	d := &Deck{
		draw: buildComposition(preset, custom),
		rng:  rng,
	}
	return d
}

// NewProductionRand returns an RNG seeded from the OS CSPRNG, one per
// game (spec §4.2/§9: "production uses a fresh seed per game").
func NewProductionRand() *mathrand.Rand {
	max := big.NewInt(1 << 62)
	n, err := rand.Int(rand.Reader, max)
	var seed int64
	if err != nil {
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		seed = int64(binary.BigEndian.Uint64(buf[:]))
	} else {
		seed = n.Int64()
	}
	return mathrand.New(mathrand.NewSource(seed))
}

// Shuffle randomizes the draw pile in place (Fisher-Yates).
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.draw), func(i, j int) {
		d.draw[i], d.draw[j] = d.draw[j], d.draw[i]
	})
}

// Take draws n cards from the top of the draw pile, reshuffling the
// discard pile (minus its top card) into the draw pile if necessary.
// It fails with ErrDeckEmpty, making no mutation, if fewer than n
// cards remain even after reshuffling.
func (d *Deck) Take(n int) ([]Card, error) {
	available := len(d.draw)
	if len(d.discard) > 0 {
		available += len(d.discard) - 1
	}
	if available < n {
		return nil, ErrDeckEmpty
	}
	if len(d.draw) < n {
		d.reshuffleFromDiscard()
	}
	start := len(d.draw) - n
	taken := make([]Card, n)
	copy(taken, d.draw[start:])
	d.draw = d.draw[:start]
	return taken, nil
}

func (d *Deck) reshuffleFromDiscard() {
	if len(d.discard) <= 1 {
		return
	}
	top := d.discard[len(d.discard)-1]
	rest := make([]Card, len(d.discard)-1)
	copy(rest, d.discard[:len(d.discard)-1])
	d.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	d.draw = append(d.draw, rest...)
	d.discard = []Card{top}
}

// Put places a card face-up on the discard pile.
func (d *Deck) Put(card Card) {
	d.discard = append(d.discard, card)
}

// Top returns the current discard pile top. Only valid once the game
// has dealt an opening card.
func (d *Deck) Top() Card {
	if len(d.discard) == 0 {
		return Card{}
	}
	return d.discard[len(d.discard)-1]
}

// SetTopColor overwrites the effective color of the top discard card,
// used once a Wild/TakeFour's color has been chosen (spec testable
// property 4: "after choose_color, top color is the chosen color").
func (d *Deck) SetTopColor(c Color) {
	if len(d.discard) == 0 {
		return
	}
	d.discard[len(d.discard)-1].Color = c
}

// CountUntilCover scans the draw pile from the top down, counting
// cards until one would legally cover top under the current rules and
// take counter (rule key take_until_cover, spec §4.2). It returns the
// length of the draw pile if no such card is found without reshuffling.
func (d *Deck) CountUntilCover(top Card, rules *Rules, takeCounter int) int {
	count := 0
	for i := len(d.draw) - 1; i >= 0; i-- {
		count++
		if d.draw[i].CanCover(top, rules, takeCounter) {
			return count
		}
	}
	return count
}

// DrawPileLen and DiscardPileLen expose pile sizes for diagnostics and
// the deck-conservation property test (spec §8 property 1).
func (d *Deck) DrawPileLen() int    { return len(d.draw) }
func (d *Deck) DiscardPileLen() int { return len(d.discard) }

// Composition returns every card currently in draw + discard, for the
// deck-conservation invariant test.
func (d *Deck) Composition() []Card {
	out := make([]Card, 0, len(d.draw)+len(d.discard))
	out = append(out, d.draw...)
	out = append(out, d.discard...)
	return out
}
