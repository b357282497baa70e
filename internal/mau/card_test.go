package mau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardIdentityRoundTrip(t *testing.T) {
	cards := []Card{
		NewNumberCard(Red, 0),
		NewNumberCard(Blue, 7),
		NewSkipCard(Green),
		NewTurnCard(Yellow),
		NewTakeCard(Red),
		NewWildCard(),
		NewTakeFourCard(),
	}
	for _, c := range cards {
		id := c.Identity()
		parsed, err := ParseCard(id)
		require.NoError(t, err)
		assert.Equal(t, c, parsed, "round trip of %q", id)
	}
}

func TestParseCardRejectsColoredWild(t *testing.T) {
	_, err := ParseCard("bc")
	assert.Error(t, err)
}

func TestCanCoverBaseMatching(t *testing.T) {
	rules := NewRules()
	top := NewNumberCard(Red, 5)

	assert.True(t, NewNumberCard(Red, 2).CanCover(top, rules, 0), "color match")
	assert.True(t, NewNumberCard(Blue, 5).CanCover(top, rules, 0), "value match")
	assert.True(t, NewWildCard().CanCover(top, rules, 0), "wild always covers")
	assert.False(t, NewNumberCard(Blue, 2).CanCover(top, rules, 0), "no match")

	assert.True(t, NewSkipCard(Blue).CanCover(NewSkipCard(Red), rules, 0), "same action kind covers across colors")
}

func TestCanCoverTakeStacking(t *testing.T) {
	rules := NewRules()
	top := NewTakeCard(Red)

	assert.True(t, NewTakeCard(Blue).CanCover(top, rules, 2), "take stacks on take regardless of color")
	assert.True(t, NewTakeFourCard().CanCover(top, rules, 2), "take_four stacks on take by default")
	assert.False(t, NewNumberCard(Red, 3).CanCover(top, rules, 2), "nothing else covers a pending counter")

	require.NoError(t, rules.SetBool(RuleIntervention, true))
	assert.False(t, NewTakeFourCard().CanCover(top, rules, 2), "intervention blocks take_four stacking on take")
}

func TestCardCost(t *testing.T) {
	assert.Equal(t, 7, NewNumberCard(Red, 7).Cost())
	assert.Equal(t, 20, NewSkipCard(Red).Cost())
	assert.Equal(t, 50, NewWildCard().Cost())
	assert.Equal(t, 50, NewTakeFourCard().Cost())
}
