// Package ws bridges WebSocket connections to mau.SessionManager
// commands, adapting the teacher's GameServer
// (cmd/game-server/main.go's handleWebSocket/handleMessage in the
// retrieval pack) from a single-table poker action relay to mau's
// room/command model.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mau/internal/anticheat"
	"mau/internal/mau"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inbound is the envelope a client sends for every command.
type inbound struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Index    int    `json:"index"`
	Color    string `json:"color"`
	RuleKey  string `json:"rule_key"`
	RuleBool bool   `json:"rule_bool"`
	RuleVal  string `json:"rule_value"`
	Target   string `json:"target_user_id"`
}

// outbound is the envelope sent back to a client.
type outbound struct {
	Type     string        `json:"type"`
	Message  string        `json:"message,omitempty"`
	Snapshot *mau.Snapshot `json:"snapshot,omitempty"`
}

// Server upgrades HTTP connections to WebSocket and routes client
// commands to the shared SessionManager, the same role
// GameServer.handleWebSocket/handleMessage played for poker tables.
type Server struct {
	Sessions *mau.SessionManager
	Journal  func() mau.Journal
	Scorer   *anticheat.Scorer // nil disables anti-cheat velocity tracking

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool // roomID -> set of conns
}

// New constructs a Server backed by sessions. journalFactory builds a
// fresh Journal for each newly created room (spec §4.6: a journal
// adapter owns its own delivery semantics per game). scorer may be nil
// to disable anti-cheat revision tracking entirely.
func New(sessions *mau.SessionManager, journalFactory func() mau.Journal, scorer *anticheat.Scorer) *Server {
	return &Server{
		Sessions: sessions,
		Journal:  journalFactory,
		Scorer:   scorer,
		conns:    make(map[string]map[*websocket.Conn]bool),
	}
}

// HandleConn upgrades w/r to a WebSocket and serves one client
// connection until it disconnects.
func (s *Server) HandleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("mau/ws: upgrade error: %v", err)
		return
	}
	defer conn.Close()

	var joinedRoom, joinedUser string
	defer func() {
		if joinedRoom != "" {
			s.untrack(joinedRoom, conn)
		}
		if joinedUser != "" {
			_ = s.Sessions.Leave(joinedUser)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("mau/ws: read error: %v", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(conn, "invalid message")
			continue
		}

		room, user := s.handleMessage(conn, msg)
		if room != "" {
			joinedRoom, joinedUser = room, user
		}
	}
}

// handleMessage dispatches one decoded client command, returning the
// room/user it joined (if the command was "create" or "join") so the
// caller can track the connection for broadcast and clean up on
// disconnect.
func (s *Server) handleMessage(conn *websocket.Conn, msg inbound) (room, user string) {
	switch msg.Type {
	case "create":
		g, err := s.Sessions.Create(msg.RoomID, mau.BaseUser{UserID: msg.UserID, Name: msg.Name}, s.Journal())
		if err != nil {
			s.sendError(conn, err.Error())
			return "", ""
		}
		s.track(msg.RoomID, conn)
		s.broadcastSnapshot(msg.RoomID, g)
		return msg.RoomID, msg.UserID

	case "join":
		if err := s.Sessions.Join(msg.RoomID, msg.UserID, msg.Name); err != nil {
			s.sendError(conn, err.Error())
			return "", ""
		}
		s.track(msg.RoomID, conn)
		s.broadcastSnapshot(msg.RoomID, s.Sessions.GetGame(msg.RoomID))
		return msg.RoomID, msg.UserID

	case "start":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.Start() })

	case "put_card":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.PutCard(msg.UserID, msg.Index) })

	case "take_cards":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.TakeCards(msg.UserID) })

	case "choose_color":
		color, ok := parseColor(msg.Color)
		if !ok {
			s.sendError(conn, "unknown color "+strconv.Quote(msg.Color))
			return "", ""
		}
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.ChooseColor(msg.UserID, color) })

	case "twist_hand":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.TwistHand(msg.UserID, msg.Target) })

	case "shotgun":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.Shotgun(msg.UserID) })

	case "bluff":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.Bluff(msg.UserID) })

	case "set_rule":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error {
			return g.SetRule(mau.RuleKey(msg.RuleKey), msg.RuleBool)
		})

	case "set_rule_value":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error {
			return g.SetRuleValue(mau.RuleKey(msg.RuleKey), msg.RuleVal)
		})

	case "next_turn":
		s.dispatch(conn, msg.RoomID, msg.UserID, func(g *mau.Game) error { return g.NextTurn(msg.UserID) })

	case "leave":
		if err := s.Sessions.Leave(msg.UserID); err != nil {
			s.sendError(conn, err.Error())
		}

	default:
		s.sendError(conn, "unknown message type "+strconv.Quote(msg.Type))
	}
	return "", ""
}

// dispatch runs fn against roomID's game and broadcasts the resulting
// snapshot to every tracked connection on success. On success it also
// bumps userID's anti-cheat revision counter and feeds the resulting
// cadence into the velocity Scorer, the transport-layer analogue of an
// inline-query revision bump (spec §3).
func (s *Server) dispatch(conn *websocket.Conn, roomID, userID string, fn func(*mau.Game) error) {
	g := s.Sessions.GetGame(roomID)
	if g == nil {
		s.sendError(conn, mau.ErrNoGameInChat.Error())
		return
	}
	if err := fn(g); err != nil {
		s.sendError(conn, err.Error())
		return
	}
	s.recordVelocity(g, userID)
	s.broadcastSnapshot(roomID, g)
}

// recordVelocity bumps userID's anti-cheat revision counter and
// records the new cadence with the Scorer, if one is configured.
func (s *Server) recordVelocity(g *mau.Game, userID string) {
	if s.Scorer == nil || userID == "" {
		return
	}
	revision, ok := g.BumpAntiCheat(userID)
	if !ok {
		return
	}
	s.Scorer.Record(userID, revision, time.Now())
}

func parseColor(s string) (mau.Color, bool) {
	switch s {
	case "red":
		return mau.Red, true
	case "yellow":
		return mau.Yellow, true
	case "green":
		return mau.Green, true
	case "blue":
		return mau.Blue, true
	default:
		return mau.Wild, false
	}
}

func (s *Server) track(roomID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.conns[roomID]
	if !ok {
		set = make(map[*websocket.Conn]bool)
		s.conns[roomID] = set
	}
	set[conn] = true
}

func (s *Server) untrack(roomID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.conns[roomID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(s.conns, roomID)
		}
	}
}

func (s *Server) broadcastSnapshot(roomID string, g *mau.Game) {
	if g == nil {
		return
	}
	snap := g.Snapshot()
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns[roomID]))
	for c := range s.conns[roomID] {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(outbound{Type: "snapshot", Snapshot: &snap}); err != nil {
			log.Printf("mau/ws: write error: %v", err)
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(outbound{Type: "error", Message: message}); err != nil {
		log.Printf("mau/ws: write error: %v", err)
	}
}
