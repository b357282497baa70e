package mau

import (
	"log"
	"sync"
)

// BaseUser identifies a player independent of any particular room,
// matching the caller-supplied identity a transport adapter hands to
// SessionManager.Create/Join (spec §4.6/§4.7).
type BaseUser struct {
	UserID string
	Name   string
}

// SessionManager owns every active Game, keyed by room, plus a
// user_id -> room_id index so a player's current room can be found
// without scanning every game (spec §4.7, grounded on the teacher's
// EngineRegistry singleton in internal/game/rules/registry.go and on
// original_source's mau/session.py SessionManager).
type SessionManager struct {
	mu         sync.Mutex
	games      map[string]*Game
	userToRoom map[string]string
}

// NewSessionManager returns an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		games:      make(map[string]*Game),
		userToRoom: make(map[string]string),
	}
}

// Create opens a new room owned by owner, who joins as its first
// player. Returns ErrRoomExists if roomID is already in use.
func (m *SessionManager) Create(roomID string, owner BaseUser, journal Journal) (*Game, error) {
	m.mu.Lock()
	if _, exists := m.games[roomID]; exists {
		m.mu.Unlock()
		return nil, ErrRoomExists
	}
	g := NewGame(roomID, journal)
	m.games[roomID] = g
	m.mu.Unlock()

	log.Printf("mau: session created room=%s owner=%s", roomID, owner.UserID)

	if err := g.AddPlayer(owner.UserID, owner.Name); err != nil {
		m.mu.Lock()
		delete(m.games, roomID)
		m.mu.Unlock()
		g.Stop()
		return nil, err
	}

	m.mu.Lock()
	m.userToRoom[owner.UserID] = roomID
	m.mu.Unlock()
	return g, nil
}

// Join adds a player to an existing room.
func (m *SessionManager) Join(roomID, userID, name string) error {
	m.mu.Lock()
	g, ok := m.games[roomID]
	m.mu.Unlock()
	if !ok {
		return ErrNoGameInChat
	}
	if err := g.AddPlayer(userID, name); err != nil {
		return err
	}
	m.mu.Lock()
	m.userToRoom[userID] = roomID
	m.mu.Unlock()
	log.Printf("mau: user joined room=%s user=%s", roomID, userID)
	return nil
}

// Leave removes a player from whatever room they're currently in.
// If the game had already started and at most one active player is
// left afterward, the game ends (handled inside Game.RemovePlayer).
func (m *SessionManager) Leave(userID string) error {
	m.mu.Lock()
	roomID, ok := m.userToRoom[userID]
	if !ok {
		m.mu.Unlock()
		return ErrNoGameInChat
	}
	g := m.games[roomID]
	m.mu.Unlock()

	if err := g.RemovePlayer(userID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.userToRoom, userID)
	m.mu.Unlock()
	log.Printf("mau: user left room=%s user=%s", roomID, userID)
	return nil
}

// GetPlayer looks up a player's current Player record by user ID.
func (m *SessionManager) GetPlayer(userID string) *Player {
	m.mu.Lock()
	roomID, ok := m.userToRoom[userID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	g := m.games[roomID]
	m.mu.Unlock()
	return g.FindPlayer(userID)
}

// GetGame returns the Game for a room, or nil if none exists.
func (m *SessionManager) GetGame(roomID string) *Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.games[roomID]
}

// RoomOf returns the room a user is currently seated in, if any.
func (m *SessionManager) RoomOf(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.userToRoom[userID]
	return roomID, ok
}

// Remove tears a room down entirely, stopping its actor goroutine and
// clearing every seated player from the user index.
func (m *SessionManager) Remove(roomID string) error {
	m.mu.Lock()
	g, ok := m.games[roomID]
	if ok {
		delete(m.games, roomID)
	}
	m.mu.Unlock()
	if !ok {
		log.Printf("mau: warning: remove requested for missing room=%s", roomID)
		return ErrNoGameInChat
	}

	m.mu.Lock()
	for userID, r := range m.userToRoom {
		if r == roomID {
			delete(m.userToRoom, userID)
		}
	}
	m.mu.Unlock()

	g.Stop()
	log.Printf("mau: session removed room=%s", roomID)
	return nil
}
