package mau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesDefaults(t *testing.T) {
	r := NewRules()
	assert.False(t, r.Bool(RuleShotgun))
	assert.Equal(t, string(DeckPresetClassic), r.Value(RuleDeckPreset))
}

func TestRulesSetBoolRejectsUnknown(t *testing.T) {
	r := NewRules()
	err := r.SetBool("not_a_rule", true)
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestRulesSetBoolRoundTrip(t *testing.T) {
	r := NewRules()
	require.NoError(t, r.SetBool(RuleShotgun, true))
	assert.True(t, r.Bool(RuleShotgun))
}

func TestRulesKeysStableOrder(t *testing.T) {
	r := NewRules()
	keys := r.Keys()
	require.Len(t, keys, len(ruleOrder))
	assert.Equal(t, RuleKey("wild_color"), keys[0])
	assert.Equal(t, RuleKey("deck_preset"), keys[len(keys)-1])
}
