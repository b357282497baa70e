package mau

import mathrand "math/rand"

// Player represents one seat at a Game (spec §3/§4.4). A Player holds
// no back-reference to its Game, avoiding the Player<->Game cycle
// (design note, spec §9); the Game finds a player by scanning its
// Players slice for the user ID.
type Player struct {
	UserID         string
	Name           string
	Hand           []Card
	Bluffing       bool
	TookCard       bool
	ShotgunCurrent int
	AntiCheat      int64
}

// NewPlayer constructs a fresh player with an empty hand.
func NewPlayer(userID, name string) *Player {
	return &Player{UserID: userID, Name: name}
}

// TakeFirstHand deals the player's opening 7-card hand. Deck.Take is
// all-or-nothing, so on DeckEmpty no card is drawn and the hand is
// left unchanged.
func (p *Player) TakeFirstHand(d *Deck) error {
	cards, err := d.Take(7)
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, cards...)
	return nil
}

// DrawCards draws n cards from the deck into the player's hand.
func (p *Player) DrawCards(d *Deck, n int) error {
	cards, err := d.Take(n)
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, cards...)
	return nil
}

// RemoveCardAt pops the card at index i out of the hand.
func (p *Player) RemoveCardAt(i int) (Card, error) {
	if i < 0 || i >= len(p.Hand) {
		return Card{}, ErrIllegalMove
	}
	card := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return card, nil
}

// CoverCards splits the hand into indices of cards that can (cover)
// and cannot (uncover) legally be played over top under the current
// rules and take counter (spec §4.4 get_cover_cards).
func (p *Player) CoverCards(top Card, rules *Rules, takeCounter int) (cover, uncover []int) {
	for i, c := range p.Hand {
		if c.CanCover(top, rules, takeCounter) {
			cover = append(cover, i)
		} else {
			uncover = append(uncover, i)
		}
	}
	return cover, uncover
}

// HasColorMatch reports whether the hand holds any non-wild card of
// the given color, used to resolve TakeFour bluffing (spec §4.4/§4.5).
func (p *Player) HasColorMatch(color Color) bool {
	for _, c := range p.Hand {
		if c.Kind != KindWild && c.Kind != KindTakeFour && c.Color == color {
			return true
		}
	}
	return false
}

// Shotgun increments the player's chamber and fires with probability
// chamber/8, returning true on a hit (spec §4.4).
func (p *Player) Shotgun(rng *mathrand.Rand) bool {
	p.ShotgunCurrent++
	if p.ShotgunCurrent >= 8 {
		return true
	}
	return rng.Float64() < float64(p.ShotgunCurrent)/8.0
}

// SwapHandWith exchanges hands with another player (spec §4.4
// twist_hand). A target with zero cards still swaps (spec §9 Open
// Question (c)): the initiator simply ends up with an empty hand.
func (p *Player) SwapHandWith(other *Player) {
	p.Hand, other.Hand = other.Hand, p.Hand
}

// BumpAntiCheat increments and returns the player's monotonic
// inline-query revision counter (spec §3), consulted by the
// anti-cheat velocity scorer (internal/anticheat).
func (p *Player) BumpAntiCheat() int64 {
	p.AntiCheat++
	return p.AntiCheat
}

// ReturnHandToDiscard returns the player's hand to the deck's discard
// pile, used on leave/elimination unless the player is the last one
// remaining (spec §3 "Lifecycles").
func (p *Player) ReturnHandToDiscard(d *Deck) {
	for _, c := range p.Hand {
		d.Put(c)
	}
	p.Hand = nil
}

// IsEmpty reports whether the player has no cards left (a win,
// spec §4.5 "Winning").
func (p *Player) IsEmpty() bool {
	return len(p.Hand) == 0
}
