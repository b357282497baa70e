package mau

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"
)

// State is a node in the per-game state machine (spec §4.5).
type State int

const (
	StateLobby State = iota
	StateNext
	StateChooseColor
	StateTwistHand
	StateShotgun
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateNext:
		return "next"
	case StateChooseColor:
		return "choose_color"
	case StateTwistHand:
		return "twist_hand"
	case StateShotgun:
		return "shotgun"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

type gameCommand struct {
	fn    func() error
	reply chan error
}

// Game is one room's state machine, turn scheduler, and journal
// (spec §3/§4.5). Commands are serialised through a single actor
// goroutine per game, directly generalising the teacher's
// Table.gameLoop / Table.actions channel (internal/game/table.go in
// the retrieval pack) from a betting-round scheduler to mau's turn
// scheduler.
type Game struct {
	RoomID         string
	Owner          *Player
	Players        []*Player
	Current        int
	Direction      int
	Deck           *Deck
	Rules          *Rules
	State          State
	TakeCounter    int
	ColorOverride  *Color
	BluffPlayer    *Player
	ShotgunCurrent int
	GameStart      time.Time
	TurnStart      time.Time
	Winners        []*Player
	Losers         []*Player
	Open           bool
	Started        bool
	Journal        Journal

	rng      *mathrand.Rand
	commands chan gameCommand
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewGame constructs a game in LOBBY state with an injected journal
// and a fresh per-game RNG seed (spec §2 flow, §4.2).
func NewGame(roomID string, journal Journal) *Game {
	return newGame(roomID, journal, NewProductionRand())
}

// NewGameWithRand constructs a game using the given RNG, for
// deterministic tests.
func NewGameWithRand(roomID string, journal Journal, rng *mathrand.Rand) *Game {
	return newGame(roomID, journal, rng)
}

func newGame(roomID string, journal Journal, rng *mathrand.Rand) *Game {
	g := &Game{
		RoomID:    roomID,
		Direction: 1,
		Rules:     NewRules(),
		State:     StateLobby,
		Open:      true,
		Journal:   journal,
		rng:       rng,
		commands:  make(chan gameCommand, 16),
		stopCh:    make(chan struct{}),
	}
	g.wg.Add(1)
	go g.loop()
	return g
}

func (g *Game) loop() {
	defer g.wg.Done()
	for {
		select {
		case cmd := <-g.commands:
			err := cmd.fn()
			_ = g.Journal.Send(context.Background())
			cmd.reply <- err
		case <-g.stopCh:
			return
		}
	}
}

// Stop terminates the game's actor goroutine. Safe to call once.
func (g *Game) Stop() {
	close(g.stopCh)
	g.wg.Wait()
}

func (g *Game) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case g.commands <- gameCommand{fn: fn, reply: reply}:
	case <-g.stopCh:
		return ErrNoGameInChat
	}
	return <-reply
}

func (g *Game) emit(kind EventKind, playerID, data string) {
	g.Journal.Add(Event{Kind: kind, GameID: g.RoomID, PlayerID: playerID, Data: data, Ts: nowUnix()})
}

func (g *Game) currentPlayer() *Player {
	if g.Current < 0 || g.Current >= len(g.Players) {
		return nil
	}
	return g.Players[g.Current]
}

func (g *Game) findByUserID(userID string) *Player {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (g *Game) findIndex(p *Player) int {
	for i, pl := range g.Players {
		if pl == p {
			return i
		}
	}
	return -1
}

func (g *Game) stepIndex(idx, steps int) int {
	n := len(g.Players)
	if n == 0 {
		return 0
	}
	return ((idx+steps*g.Direction)%n + n) % n
}

// resolveState sets the state a new current player enters: SHOTGUN
// when a shotgun rule is active and the pending draw has grown large
// enough, NEXT otherwise (spec §4.5).
func (g *Game) resolveState() {
	if g.TakeCounter >= 3 && (g.Rules.Bool(RuleShotgun) || g.Rules.Bool(RuleSingleShotgun)) {
		g.State = StateShotgun
		return
	}
	g.State = StateNext
}

// settleTurn finalises a turn change once Current has already been
// repositioned (by advanceTurn or a removal), resetting the new
// current player's took_card flag and emitting GAME_TURN.
func (g *Game) settleTurn() {
	if len(g.Players) == 0 {
		g.State = StateEnd
		return
	}
	g.Players[g.Current].TookCard = false
	g.TurnStart = time.Now()
	g.resolveState()
	g.emit(EventGameTurn, g.Players[g.Current].UserID, "")
}

func (g *Game) advanceTurn(steps int) {
	if len(g.Players) == 0 {
		g.State = StateEnd
		return
	}
	g.Current = g.stepIndex(g.Current, steps)
	g.settleTurn()
}

// removePlayer drops p from the active list, repositioning Current by
// player identity rather than arithmetic so it stays correct regardless
// of which direction is active and who was removed (spec §9: never
// store a Game handle on Player, so removal can't rely on a stashed
// back-reference either).
func (g *Game) removePlayer(p *Player) {
	idx := g.findIndex(p)
	if idx < 0 {
		return
	}
	wasCurrent := idx == g.Current

	var nextPlayer *Player
	if len(g.Players) > 1 {
		if wasCurrent {
			nextPlayer = g.Players[g.stepIndex(idx, 1)]
		} else {
			nextPlayer = g.Players[g.Current]
		}
	}

	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if len(g.Players) == 0 {
		g.Current = 0
		return
	}
	if nextPlayer != nil && nextPlayer != p {
		if ni := g.findIndex(nextPlayer); ni >= 0 {
			g.Current = ni
			return
		}
	}
	if g.Current >= len(g.Players) {
		g.Current = len(g.Players) - 1
	}
}

// checkEnd ends the game once at most one active player remains
// (spec §4.5 "Winning"), appending the sole survivor to losers.
func (g *Game) checkEnd() bool {
	if len(g.Players) > 1 {
		return false
	}
	if len(g.Players) == 1 {
		g.Losers = append(g.Losers, g.Players[0])
	}
	g.State = StateEnd
	g.emit(EventGameEnd, "", "")
	return true
}

func (g *Game) rotateHands() {
	n := len(g.Players)
	if n < 2 {
		return
	}
	hands := make([][]Card, n)
	for i, p := range g.Players {
		hands[i] = p.Hand
	}
	for i, p := range g.Players {
		src := ((i-g.Direction)%n + n) % n
		p.Hand = hands[src]
	}
}

func majorityColor(hand []Card) Color {
	counts := map[Color]int{}
	for _, c := range hand {
		if c.Kind != KindWild && c.Kind != KindTakeFour {
			counts[c.Color]++
		}
	}
	best, bestCount := Red, -1
	for _, c := range deckColors {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// --- Command API (spec §6) ---

// AddPlayer adds a new player while the lobby is open (spec §4.5 LOBBY).
func (g *Game) AddPlayer(userID, name string) error {
	return g.do(func() error {
		if g.Started {
			return ErrGameAlreadyStarted
		}
		if !g.Open {
			return ErrLobbyClosed
		}
		if g.findByUserID(userID) != nil {
			return ErrAlreadyJoined
		}
		p := NewPlayer(userID, name)
		g.Players = append(g.Players, p)
		if g.Owner == nil {
			g.Owner = p
		}
		g.emit(EventGameJoin, userID, "")
		return nil
	})
}

// RemovePlayer removes a player, advancing the turn first if they are
// the current player (spec §4 supplemented features, ported from
// original_source's SessionManager.leave ordering).
func (g *Game) RemovePlayer(userID string) error {
	return g.do(func() error {
		p := g.findByUserID(userID)
		if p == nil {
			return ErrPlayerNotFound
		}
		idx := g.findIndex(p)
		if g.Started && g.State != StateEnd && idx == g.Current && len(g.Players) > 1 {
			g.advanceTurn(1)
		}
		if len(g.Players) > 1 && g.Deck != nil {
			p.ReturnHandToDiscard(g.Deck)
		}
		g.removePlayer(p)
		g.emit(EventGameLeave, userID, "")
		if g.Started && g.State != StateEnd {
			g.checkEnd()
		}
		return nil
	})
}

// Start deals the deck and enters NEXT (spec §4.5 LOBBY -> NEXT).
func (g *Game) Start() error {
	return g.do(func() error {
		if g.Started {
			return ErrGameAlreadyStarted
		}
		if len(g.Players) < 2 {
			return ErrNotEnoughPlayers
		}
		preset := DeckPreset(g.Rules.Value(RuleDeckPreset))
		deck := NewDeck(preset, nil, g.rng)
		if deck.DrawPileLen() < 7*len(g.Players)+1 {
			return ErrDeckEmpty
		}
		g.Deck = deck
		if !g.Rules.Bool(RuleDebugCards) {
			g.Deck.Shuffle()
		}
		for _, p := range g.Players {
			if err := p.TakeFirstHand(g.Deck); err != nil {
				return err
			}
		}
		top, err := g.Deck.Take(1)
		if err != nil {
			return err
		}
		g.Deck.Put(top[0])

		g.Current = 0
		g.Direction = 1
		g.Started = true
		g.Open = false
		g.GameStart = time.Now()
		g.TurnStart = time.Now()
		g.resolveState()
		g.emit(EventGameStart, "", top[0].Identity())
		g.emit(EventGameTurn, g.Players[g.Current].UserID, "")
		return nil
	})
}

// OpenLobby reopens the lobby to new joins.
func (g *Game) OpenLobby() error {
	return g.do(func() error {
		if g.Started {
			return ErrGameAlreadyStarted
		}
		g.Open = true
		return nil
	})
}

// CloseLobby stops accepting new joins without starting the game.
func (g *Game) CloseLobby() error {
	return g.do(func() error {
		g.Open = false
		return nil
	})
}

// SetRule toggles a boolean rule flag (spec §4.3/§9 Open Question (a):
// applies only to transitions evaluated from now on).
func (g *Game) SetRule(key RuleKey, active bool) error {
	return g.do(func() error { return g.Rules.SetBool(key, active) })
}

// SetRuleValue sets an enum rule's payload (currently deck_preset).
func (g *Game) SetRuleValue(key RuleKey, value string) error {
	return g.do(func() error { return g.Rules.SetValue(key, value) })
}

// PutCard plays the card at hand index for the current player
// (spec §4.5 NEXT -> {NEXT, SHOTGUN, CHOOSE_COLOR, TWIST_HAND, end}).
func (g *Game) PutCard(userID string, index int) error {
	return g.do(func() error {
		if !g.Started || g.State == StateEnd {
			return ErrGameNotStarted
		}
		if g.State != StateNext {
			return ErrIllegalMove
		}
		player := g.currentPlayer()
		if player == nil || player.UserID != userID {
			return ErrNotYourTurn
		}
		if index < 0 || index >= len(player.Hand) {
			return ErrIllegalMove
		}
		card := player.Hand[index]
		top := g.Deck.Top()
		if !card.CanCover(top, g.Rules, g.TakeCounter) {
			return ErrIllegalMove
		}

		if card.Kind == KindTakeFour {
			player.Bluffing = player.HasColorMatch(top.Color)
		}

		if _, err := player.RemoveCardAt(index); err != nil {
			return err
		}
		g.Deck.Put(card)
		g.emit(EventGameState, userID, card.Identity())

		if player.IsEmpty() {
			g.Winners = append(g.Winners, player)
			g.emit(EventGameUno, userID, "")
			g.removePlayer(player)
			if g.checkEnd() {
				return nil
			}
			g.settleTurn()
			return nil
		}

		g.applyCardEffect(card, player)
		return nil
	})
}

func (g *Game) applyCardEffect(card Card, player *Player) {
	switch card.Kind {
	case KindNumber:
		if card.Value == 0 && g.Rules.Bool(RuleRotateCards) {
			g.rotateHands()
			g.emit(EventGameRotate, player.UserID, "")
		}
		if card.Value == 7 && g.Rules.Bool(RuleTwistHand) {
			g.State = StateTwistHand
			return
		}
		g.advanceTurn(1)
	case KindSkip:
		g.advanceTurn(2)
	case KindTurn:
		if len(g.Players) == 2 {
			// Open Question (d): with exactly two players, Turn
			// re-yields to the player who played it, exactly like Skip.
			g.advanceTurn(2)
		} else {
			g.Direction = -g.Direction
			g.advanceTurn(1)
		}
	case KindTake:
		g.TakeCounter += 2
		g.advanceTurn(1)
	case KindWild:
		g.resolveWildColor()
	case KindTakeFour:
		g.TakeCounter += 4
		g.BluffPlayer = player
		g.resolveWildColor()
	}
}

// resolveWildColor picks the next state after a color-choosing card:
// auto_choose_color wins over choose_random_color when both are active
// (spec §9 Open Question (b)).
func (g *Game) resolveWildColor() {
	player := g.currentPlayer()
	switch {
	case g.Rules.Bool(RuleAutoChooseColor):
		g.Deck.SetTopColor(majorityColor(player.Hand))
		g.advanceTurn(1)
	case g.Rules.Bool(RuleRandomColor):
		g.Deck.SetTopColor(deckColors[g.rng.Intn(len(deckColors))])
		g.advanceTurn(1)
	default:
		g.State = StateChooseColor
		if g.Rules.Bool(RuleChooseRandomColor) {
			suggestion := deckColors[g.rng.Intn(len(deckColors))]
			g.ColorOverride = &suggestion
		}
	}
}

// ChooseColor resolves a pending CHOOSE_COLOR state (spec §4.5).
func (g *Game) ChooseColor(userID string, color Color) error {
	return g.do(func() error {
		if g.State != StateChooseColor {
			return ErrIllegalMove
		}
		player := g.currentPlayer()
		if player == nil || player.UserID != userID {
			return ErrNotYourTurn
		}
		if color == Wild {
			return ErrIllegalMove
		}
		g.Deck.SetTopColor(color)
		g.ColorOverride = nil
		g.emit(EventGameSelectColor, userID, color.String())
		g.advanceTurn(1)
		return nil
	})
}

// TwistHand resolves a pending TWIST_HAND state by swapping hands with
// target (spec §4.4/§4.5, rule key twist_hand).
func (g *Game) TwistHand(userID, targetUserID string) error {
	return g.do(func() error {
		if g.State != StateTwistHand {
			return ErrIllegalMove
		}
		player := g.currentPlayer()
		if player == nil || player.UserID != userID {
			return ErrNotYourTurn
		}
		target := g.findByUserID(targetUserID)
		if target == nil || target == player {
			return ErrIllegalMove
		}
		player.SwapHandWith(target)
		g.emit(EventGameSelectPlayer, userID, targetUserID)
		g.emit(EventGameRotate, userID, "")
		g.advanceTurn(1)
		return nil
	})
}

// TakeCards draws the pending take counter (or 1 if none is pending)
// for the caller and advances the turn. Under ahead_of_curve, a
// non-current player may absorb the pending counter on the current
// player's behalf without becoming current themselves (spec §4.3).
func (g *Game) TakeCards(userID string) error {
	return g.do(func() error {
		if !g.Started || g.State == StateEnd {
			return ErrGameNotStarted
		}
		if g.State != StateNext && g.State != StateShotgun {
			return ErrIllegalMove
		}
		current := g.currentPlayer()
		if current == nil {
			return ErrIllegalMove
		}

		var actor *Player
		switch {
		case current.UserID == userID:
			actor = current
		case g.Rules.Bool(RuleAheadOfCurve) && g.TakeCounter > 0:
			actor = g.findByUserID(userID)
			if actor == nil {
				return ErrPlayerNotFound
			}
		default:
			return ErrNotYourTurn
		}

		n := g.TakeCounter
		if n == 0 {
			n = 1
		}
		if err := actor.DrawCards(g.Deck, n); err != nil {
			return err
		}
		actor.TookCard = true
		g.TakeCounter = 0
		g.BluffPlayer = nil
		g.emit(EventGameTake, actor.UserID, "")
		g.advanceTurn(1)
		return nil
	})
}

// Shotgun resolves a pending SHOTGUN state for the current player
// (spec §4.4/§4.5, rule keys shotgun/single_shotgun).
func (g *Game) Shotgun(userID string) error {
	return g.do(func() error {
		if g.State != StateShotgun {
			return ErrIllegalMove
		}
		current := g.currentPlayer()
		if current == nil || current.UserID != userID {
			return ErrNotYourTurn
		}

		var fired bool
		if g.Rules.Bool(RuleSingleShotgun) {
			g.ShotgunCurrent++
			if g.ShotgunCurrent >= 8 {
				fired = true
			} else {
				fired = g.rng.Float64() < float64(g.ShotgunCurrent)/8.0
			}
		} else {
			fired = current.Shotgun(g.rng)
		}

		if fired {
			g.TakeCounter = 0
			g.BluffPlayer = nil
			g.Losers = append(g.Losers, current)
			if len(g.Players) > 1 && g.Deck != nil {
				current.ReturnHandToDiscard(g.Deck)
			}
			g.removePlayer(current)
			g.emit(EventGameState, userID, "shotgun_hit")
			if g.checkEnd() {
				return nil
			}
			g.settleTurn()
			return nil
		}

		g.TakeCounter = int(float64(g.TakeCounter)*1.5 + 0.5)
		g.emit(EventGameState, userID, "shotgun_miss")
		g.advanceTurn(1)
		return nil
	})
}

// Bluff challenges the player who played the pending TakeFour. If they
// had a legal color match they were bluffing and draw the counter
// themselves; otherwise the challenger draws counter+2 (spec §4.5).
func (g *Game) Bluff(userID string) error {
	return g.do(func() error {
		if g.BluffPlayer == nil || g.TakeCounter <= 0 {
			return ErrIllegalMove
		}
		current := g.currentPlayer()
		if current == nil || current.UserID != userID {
			return ErrNotYourTurn
		}
		bluffer := g.BluffPlayer
		if bluffer.Bluffing {
			if err := bluffer.DrawCards(g.Deck, g.TakeCounter); err != nil {
				return err
			}
			g.emit(EventGameBluff, userID, "success")
		} else {
			if err := current.DrawCards(g.Deck, g.TakeCounter+2); err != nil {
				return err
			}
			g.emit(EventGameBluff, userID, "failed")
		}
		g.TakeCounter = 0
		g.BluffPlayer = nil
		g.advanceTurn(1)
		return nil
	})
}

// NextTurn lets the room owner force-advance a stalled turn.
func (g *Game) NextTurn(callerUserID string) error {
	return g.do(func() error {
		if g.Owner == nil || g.Owner.UserID != callerUserID {
			return ErrIllegalMove
		}
		if !g.Started || g.State == StateEnd {
			return ErrGameNotStarted
		}
		g.TakeCounter = 0
		g.BluffPlayer = nil
		g.advanceTurn(1)
		return nil
	})
}

// End lets the room owner force-terminate the game early.
func (g *Game) End(callerUserID string) error {
	return g.do(func() error {
		if g.Owner == nil || g.Owner.UserID != callerUserID {
			return ErrIllegalMove
		}
		if g.State == StateEnd {
			return nil
		}
		g.Losers = append(g.Losers, g.Players...)
		g.Players = nil
		g.State = StateEnd
		g.emit(EventGameEnd, "", "forced")
		return nil
	})
}

// FindPlayer looks up a player by user ID, routed through the actor
// loop so it never races a concurrent command.
func (g *Game) FindPlayer(userID string) *Player {
	var found *Player
	_ = g.do(func() error {
		found = g.findByUserID(userID)
		return nil
	})
	return found
}

// BumpAntiCheat increments userID's anti-cheat revision counter
// (Player.BumpAntiCheat), routed through the actor loop so the
// increment is never split from a concurrent command. Returns the new
// revision and whether the player was found.
func (g *Game) BumpAntiCheat(userID string) (revision int64, ok bool) {
	_ = g.do(func() error {
		p := g.findByUserID(userID)
		if p == nil {
			return nil
		}
		revision = p.BumpAntiCheat()
		ok = true
		return nil
	})
	return revision, ok
}

// PlayerSnapshot is a read-only view of one seat, for adapters.
type PlayerSnapshot struct {
	UserID   string
	Name     string
	HandSize int
}

// Snapshot is a read-only, race-free view of a Game for transport and
// REST adapters (internal/transport/ws, cmd/mauserver).
type Snapshot struct {
	RoomID        string
	CurrentUserID string
	Direction     int
	State         State
	TakeCounter   int
	Top           Card
	Players       []PlayerSnapshot
	Winners       []string
	Losers        []string
	Started       bool
	Open          bool
}

// Snapshot captures the game's current externally-visible state.
func (g *Game) Snapshot() Snapshot {
	var out Snapshot
	_ = g.do(func() error {
		out.RoomID = g.RoomID
		if cp := g.currentPlayer(); cp != nil {
			out.CurrentUserID = cp.UserID
		}
		out.Direction = g.Direction
		out.State = g.State
		out.TakeCounter = g.TakeCounter
		if g.Deck != nil {
			out.Top = g.Deck.Top()
		}
		for _, p := range g.Players {
			out.Players = append(out.Players, PlayerSnapshot{UserID: p.UserID, Name: p.Name, HandSize: len(p.Hand)})
		}
		for _, p := range g.Winners {
			out.Winners = append(out.Winners, p.UserID)
		}
		for _, p := range g.Losers {
			out.Losers = append(out.Losers, p.UserID)
		}
		out.Started = g.Started
		out.Open = g.Open
		return nil
	})
	return out
}
