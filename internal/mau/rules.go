package mau

import "sync"

// RuleKey names a single rule flag (spec §4.3).
type RuleKey string

const (
	RuleWildColor          RuleKey = "wild_color"
	RuleRandomColor        RuleKey = "random_color"
	RuleAutoChooseColor    RuleKey = "auto_choose_color"
	RuleChooseRandomColor  RuleKey = "choose_random_color"
	RuleRotateCards        RuleKey = "rotate_cards"
	RuleTwistHand          RuleKey = "twist_hand"
	RuleShotgun            RuleKey = "shotgun"
	RuleSingleShotgun      RuleKey = "single_shotgun"
	RuleIntervention       RuleKey = "intervention"
	RuleAheadOfCurve       RuleKey = "ahead_of_curve"
	RuleTakeUntilCover     RuleKey = "take_until_cover"
	RuleDebugCards         RuleKey = "debug_cards"
	RuleDeckPreset         RuleKey = "deck_preset"
)

// ruleOrder is the stable declared order used for UI rendering
// (spec §4.3 "Rules iterate in a stable declared order").
var ruleOrder = []RuleKey{
	RuleWildColor,
	RuleRandomColor,
	RuleAutoChooseColor,
	RuleChooseRandomColor,
	RuleRotateCards,
	RuleTwistHand,
	RuleShotgun,
	RuleSingleShotgun,
	RuleIntervention,
	RuleAheadOfCurve,
	RuleTakeUntilCover,
	RuleDebugCards,
	RuleDeckPreset,
}

func isKnownRule(key RuleKey) bool {
	for _, k := range ruleOrder {
		if k == key {
			return true
		}
	}
	return false
}

// Rules is a mutable flag/enum map (spec §3 "Rules"). Boolean rules
// default to inactive; deck_preset defaults to "classic". Mid-game
// toggles are permitted (spec §9 Open Question (a)): a flag is read
// fresh by whatever transition consults it, so a toggle only affects
// transitions evaluated afterward.
type Rules struct {
	mu     sync.RWMutex
	flags  map[RuleKey]bool
	values map[RuleKey]string
}

// NewRules returns a rule set with spec defaults.
func NewRules() *Rules {
	return &Rules{
		flags:  make(map[RuleKey]bool),
		values: map[RuleKey]string{RuleDeckPreset: string(DeckPresetClassic)},
	}
}

// Bool returns whether a boolean rule is active. Unknown keys report
// inactive (missing keys default to inactive per spec §6).
func (r *Rules) Bool(key RuleKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[key]
}

// Value returns an enum rule's payload.
func (r *Rules) Value(key RuleKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[key]
}

// SetBool sets a boolean rule flag. Unknown keys are rejected.
func (r *Rules) SetBool(key RuleKey, active bool) error {
	if !isKnownRule(key) {
		return ErrUnknownRule
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[key] = active
	return nil
}

// SetValue sets an enum rule's payload (currently only deck_preset).
func (r *Rules) SetValue(key RuleKey, value string) error {
	if !isKnownRule(key) {
		return ErrUnknownRule
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

// Keys returns every rule key in stable declared order.
func (r *Rules) Keys() []RuleKey {
	out := make([]RuleKey, len(ruleOrder))
	copy(out, ruleOrder)
	return out
}
