package mau

import (
	"context"
	"sync"
	"time"
)

// EventKind identifies the kind of state change an Event records.
type EventKind string

const (
	EventSessionStart     EventKind = "SESSION_START"
	EventGameJoin         EventKind = "GAME_JOIN"
	EventGameLeave        EventKind = "GAME_LEAVE"
	EventGameStart        EventKind = "GAME_START"
	EventGameEnd          EventKind = "GAME_END"
	EventGameTurn         EventKind = "GAME_TURN"
	EventGameTake         EventKind = "GAME_TAKE"
	EventGameRotate       EventKind = "GAME_ROTATE"
	EventGameSelectColor  EventKind = "GAME_SELECT_COLOR"
	EventGameSelectPlayer EventKind = "GAME_SELECT_PLAYER"
	EventGameUno          EventKind = "GAME_UNO"
	EventGameBluff        EventKind = "GAME_BLUFF"
	EventGameState        EventKind = "GAME_STATE"
)

// Event is the envelope published through a Journal (spec §4.6/§6).
type Event struct {
	Kind     EventKind
	GameID   string
	PlayerID string
	Data     string
	Ts       int64
}

// Journal is a pluggable sink the engine publishes events to. The
// engine never inspects delivery; Add must not suspend, so that a
// state mutation and its event append are never separated by an
// external await (spec §5). Send may suspend (transport I/O) and is
// invoked once per command, after every Add for that command.
type Journal interface {
	Add(event Event)
	Send(ctx context.Context) error
}

// RecordingJournal is an in-memory Journal used by tests to assert on
// emitted events, generalising the "a test handler records events for
// assertions" design note (spec §9).
type RecordingJournal struct {
	mu     sync.Mutex
	events []Event
}

func NewRecordingJournal() *RecordingJournal {
	return &RecordingJournal{}
}

func (r *RecordingJournal) Add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *RecordingJournal) Send(ctx context.Context) error {
	return nil
}

// Events returns a copy of the events recorded so far, in append order.
func (r *RecordingJournal) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func nowUnix() int64 {
	return time.Now().UnixNano()
}
