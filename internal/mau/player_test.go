package mau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeFirstHandDealsSeven(t *testing.T) {
	d := NewDeck(DeckPresetClassic, nil, seededRand())
	p := NewPlayer("u1", "Alice")
	require.NoError(t, p.TakeFirstHand(d))
	assert.Len(t, p.Hand, 7)
	assert.Equal(t, 101, d.DrawPileLen())
}

func TestRemoveCardAtOutOfRange(t *testing.T) {
	p := NewPlayer("u1", "Alice")
	p.Hand = []Card{NewNumberCard(Red, 1)}
	_, err := p.RemoveCardAt(5)
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestCoverCardsSplitsHand(t *testing.T) {
	rules := NewRules()
	p := NewPlayer("u1", "Alice")
	p.Hand = []Card{NewNumberCard(Red, 1), NewNumberCard(Blue, 2), NewWildCard()}
	top := NewNumberCard(Red, 9)

	cover, uncover := p.CoverCards(top, rules, 0)
	assert.Equal(t, []int{0, 2}, cover)
	assert.Equal(t, []int{1}, uncover)
}

func TestHasColorMatchIgnoresWild(t *testing.T) {
	p := NewPlayer("u1", "Alice")
	p.Hand = []Card{NewWildCard(), NewTakeFourCard()}
	assert.False(t, p.HasColorMatch(Red))

	p.Hand = append(p.Hand, NewNumberCard(Red, 3))
	assert.True(t, p.HasColorMatch(Red))
}

func TestSwapHandWithEmptyTarget(t *testing.T) {
	a := NewPlayer("a", "A")
	b := NewPlayer("b", "B")
	a.Hand = []Card{NewNumberCard(Red, 1)}
	b.Hand = nil

	a.SwapHandWith(b)
	assert.Empty(t, a.Hand)
	assert.Equal(t, []Card{NewNumberCard(Red, 1)}, b.Hand)
}
