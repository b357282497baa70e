package mau

import "errors"

// Error kinds surfaced synchronously to callers (spec §7). The engine
// never retries and never partially mutates state on a rejected
// command.
var (
	ErrNoGameInChat      = errors.New("mau: no game in chat")
	ErrLobbyClosed       = errors.New("mau: lobby closed")
	ErrAlreadyJoined     = errors.New("mau: already joined")
	ErrDeckEmpty         = errors.New("mau: deck empty")
	ErrNotEnoughPlayers  = errors.New("mau: not enough players")
	ErrNotYourTurn       = errors.New("mau: not your turn")
	ErrIllegalMove       = errors.New("mau: illegal move")
	ErrGameNotStarted    = errors.New("mau: game not started")
	ErrGameAlreadyStarted = errors.New("mau: game already started")
	ErrRoomExists        = errors.New("mau: room exists")
	ErrPlayerNotFound    = errors.New("mau: player not found")
	ErrUnknownRule       = errors.New("mau: unknown rule")
)
