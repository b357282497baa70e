package mau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerCreateJoinLeave(t *testing.T) {
	m := NewSessionManager()
	owner := BaseUser{UserID: "u1", Name: "Alice"}

	g, err := m.Create("room1", owner, NewRecordingJournal())
	require.NoError(t, err)
	defer g.Stop()

	_, err = m.Create("room1", owner, NewRecordingJournal())
	assert.ErrorIs(t, err, ErrRoomExists)

	require.NoError(t, m.Join("room1", "u2", "Bob"))
	roomID, ok := m.RoomOf("u2")
	require.True(t, ok)
	assert.Equal(t, "room1", roomID)

	assert.NotNil(t, m.GetPlayer("u1"))
	assert.Nil(t, m.GetPlayer("unknown"))

	require.NoError(t, m.Leave("u2"))
	_, ok = m.RoomOf("u2")
	assert.False(t, ok)
	assert.Nil(t, m.GetGame("room1").FindPlayer("u2"))
}

func TestSessionManagerJoinUnknownRoom(t *testing.T) {
	m := NewSessionManager()
	err := m.Join("nope", "u1", "Alice")
	assert.ErrorIs(t, err, ErrNoGameInChat)
}

func TestSessionManagerLeaveUnknownUser(t *testing.T) {
	m := NewSessionManager()
	err := m.Leave("nobody")
	assert.ErrorIs(t, err, ErrNoGameInChat)
}

func TestSessionManagerRemoveClearsUserIndex(t *testing.T) {
	m := NewSessionManager()
	owner := BaseUser{UserID: "u1", Name: "Alice"}
	_, err := m.Create("room1", owner, NewRecordingJournal())
	require.NoError(t, err)
	require.NoError(t, m.Join("room1", "u2", "Bob"))

	require.NoError(t, m.Remove("room1"))
	assert.Nil(t, m.GetGame("room1"))
	_, ok := m.RoomOf("u1")
	assert.False(t, ok)
	_, ok = m.RoomOf("u2")
	assert.False(t, ok)
}
