package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"mau/internal/anticheat"
	"mau/internal/mau"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	sessions := mau.NewSessionManager()
	srv := New(sessions, func() mau.Journal { return mau.NewRecordingJournal() }, anticheat.NewScorer(anticheat.DefaultConfig(), 50))
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.HandleConn))
	t.Cleanup(httpSrv.Close)
	return httpSrv, srv
}

func dial(t *testing.T, httpSrv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestWSCreateAndJoinBroadcastsSnapshot(t *testing.T) {
	httpSrv, _ := newTestServer(t)

	owner := dial(t, httpSrv)
	require.NoError(t, owner.WriteJSON(inbound{Type: "create", RoomID: "r1", UserID: "u1", Name: "Alice"}))
	snap := readOutbound(t, owner)
	require.Equal(t, "snapshot", snap.Type)
	require.NotNil(t, snap.Snapshot)
	require.Len(t, snap.Snapshot.Players, 1)

	joiner := dial(t, httpSrv)
	require.NoError(t, joiner.WriteJSON(inbound{Type: "join", RoomID: "r1", UserID: "u2", Name: "Bob"}))

	gotOwnerUpdate := readOutbound(t, owner)
	require.Equal(t, "snapshot", gotOwnerUpdate.Type)
	require.Len(t, gotOwnerUpdate.Snapshot.Players, 2)
}

func TestWSUnknownMessageTypeSendsError(t *testing.T) {
	httpSrv, _ := newTestServer(t)
	conn := dial(t, httpSrv)

	require.NoError(t, conn.WriteJSON(inbound{Type: "nonsense"}))
	out := readOutbound(t, conn)
	require.Equal(t, "error", out.Type)
}

func TestWSJoinUnknownRoomSendsError(t *testing.T) {
	httpSrv, _ := newTestServer(t)
	conn := dial(t, httpSrv)

	require.NoError(t, conn.WriteJSON(inbound{Type: "join", RoomID: "nope", UserID: "u1", Name: "A"}))
	out := readOutbound(t, conn)
	require.Equal(t, "error", out.Type)
}

func TestWSStartRequiresTwoPlayers(t *testing.T) {
	httpSrv, _ := newTestServer(t)
	owner := dial(t, httpSrv)
	require.NoError(t, owner.WriteJSON(inbound{Type: "create", RoomID: "r2", UserID: "u1", Name: "Alice"}))
	_ = readOutbound(t, owner) // initial snapshot

	require.NoError(t, owner.WriteJSON(inbound{Type: "start", RoomID: "r2", UserID: "u1"}))
	out := readOutbound(t, owner)
	require.Equal(t, "error", out.Type)
}

func TestWSDispatchRecordsAntiCheatVelocity(t *testing.T) {
	httpSrv, srv := newTestServer(t)

	owner := dial(t, httpSrv)
	require.NoError(t, owner.WriteJSON(inbound{Type: "create", RoomID: "r3", UserID: "u1", Name: "Alice"}))
	_ = readOutbound(t, owner) // initial snapshot

	joiner := dial(t, httpSrv)
	require.NoError(t, joiner.WriteJSON(inbound{Type: "join", RoomID: "r3", UserID: "u2", Name: "Bob"}))
	_ = readOutbound(t, owner) // join snapshot

	require.NoError(t, owner.WriteJSON(inbound{Type: "start", RoomID: "r3", UserID: "u1"}))
	out := readOutbound(t, owner)
	require.Equal(t, "snapshot", out.Type)

	require.Equal(t, 1, srv.Scorer.Score("u1").SampleCount)
}

func TestParseColorRejectsUnknown(t *testing.T) {
	_, ok := parseColor("purple")
	require.False(t, ok)

	c, ok := parseColor("red")
	require.True(t, ok)
	require.Equal(t, mau.Red, c)
}
