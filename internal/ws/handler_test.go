package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/hub"
	"github.com/DoyleJ11/housie-backend/internal/lobby"
	"github.com/DoyleJ11/housie-backend/internal/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T) (*hub.Hub, *lobby.Lobby, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, hub.Options{Logger: zaptest.NewLogger(t), BcryptCost: bcrypt.MinCost})
	lb, err := h.Create(ctx, "RAVI", "DIWALI23", "")
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(h, Options{Logger: zaptest.NewLogger(t)}))
	t.Cleanup(srv.Close)
	return h, lb, srv
}

func dial(t *testing.T, srv *httptest.Server, code, username string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?code=" + code + "&username=" + username
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func recvMsg(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, m types.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(m)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	_, _, srv := setup(t)

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{name: "no code", query: "?username=ravi", want: http.StatusBadRequest},
		{name: "no username", query: "?code=DIWALI23", want: http.StatusBadRequest},
		{name: "unknown room", query: "?code=NOPE42&username=ravi", want: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/" + tc.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

// dialStatus attempts a handshake and returns the HTTP status it got back.
func dialStatus(t *testing.T, srv *httptest.Server, query string, header http.Header) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err == nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	require.NotNil(t, resp)
	return resp.StatusCode
}

func TestHandler_OnlyMembersMaySubscribe(t *testing.T) {
	_, lb, srv := setup(t)
	ctx := context.Background()

	assert.Equal(t, http.StatusForbidden, dialStatus(t, srv, "?code=DIWALI23&username=meera", nil))

	_, err := lb.Apply(ctx, engine.Command{Type: engine.CmdJoin, Actor: "ANITA"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, dialStatus(t, srv, "?code=DIWALI23&username=anita", nil))

	_, err = lb.Apply(ctx, engine.Command{Type: engine.CmdRemovePlayer, Actor: "RAVI", Player: "ANITA"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, dialStatus(t, srv, "?code=DIWALI23&username=anita", nil))
}

func TestHandler_OriginPatterns(t *testing.T) {
	h, _, strict := setup(t)
	loose := httptest.NewServer(Handler(h, Options{
		OriginPatterns: []string{"housie.example:*"},
		Logger:         zaptest.NewLogger(t),
	}))
	t.Cleanup(loose.Close)

	origin := http.Header{"Origin": {"http://housie.example:3000"}}
	assert.Equal(t, http.StatusForbidden, dialStatus(t, strict, "?code=DIWALI23&username=ravi", origin))
	assert.Equal(t, http.StatusSwitchingProtocols, dialStatus(t, loose, "?code=DIWALI23&username=ravi", origin))
}

func TestHandler_SnapshotThenBroadcasts(t *testing.T) {
	_, lb, srv := setup(t)

	host := dial(t, srv, "diwali23", "ravi")
	first := recvMsg(t, host)
	assert.Equal(t, types.MsgState, first.Type)
	require.NotNil(t, first.Room)
	assert.Equal(t, "DIWALI23", first.Room.Code)
	assert.Equal(t, engine.PhaseCreated, first.Room.Status)

	_, err := lb.Apply(context.Background(), engine.Command{Type: engine.CmdJoin, Actor: "ANITA"})
	require.NoError(t, err)
	joined := recvMsg(t, host)
	assert.Equal(t, types.MsgPlayerJoined, joined.Type)
	assert.Equal(t, "ANITA", joined.Player)

	send(t, host, types.ClientMessage{Type: "start"})
	assert.Equal(t, types.MsgGameStarted, recvMsg(t, host).Type)

	send(t, host, types.ClientMessage{Type: "call"})
	called := recvMsg(t, host)
	assert.Equal(t, types.MsgCodeCalled, called.Type)
	assert.Len(t, called.Item, 2)
	assert.NotEmpty(t, called.Meaning)
	assert.Equal(t, 3, called.Version)
}

func TestHandler_PrivateRepliesGoToSenderOnly(t *testing.T) {
	_, lb, srv := setup(t)
	ctx := context.Background()

	_, err := lb.Apply(ctx, engine.Command{Type: engine.CmdJoin, Actor: "ANITA"})
	require.NoError(t, err)

	host := dial(t, srv, "DIWALI23", "RAVI")
	player := dial(t, srv, "DIWALI23", "ANITA")
	_ = recvMsg(t, host)
	_ = recvMsg(t, player)

	// Not the host: only the player hears about it.
	send(t, player, types.ClientMessage{Type: "call"})
	refused := recvMsg(t, player)
	assert.Equal(t, types.MsgError, refused.Type)
	assert.Contains(t, refused.Error, "only the host")

	send(t, player, types.ClientMessage{Type: "ticket"})
	issued := recvMsg(t, player)
	assert.Equal(t, types.MsgTicketIssued, issued.Type)
	require.NotNil(t, issued.Ticket)
	assert.Len(t, strings.Split(issued.Ticket.TicketString, `\`), 3)

	send(t, host, types.ClientMessage{Type: "start"})
	assert.Equal(t, types.MsgGameStarted, recvMsg(t, host).Type)
	assert.Equal(t, types.MsgGameStarted, recvMsg(t, player).Type)

	send(t, player, types.ClientMessage{Type: "claim", ClaimType: "Full House"})
	verdict := recvMsg(t, player)
	assert.Equal(t, types.MsgClaimRejected, verdict.Type)
	assert.NotEmpty(t, verdict.Message)

	// The host's next message is the next public event, not the rejection.
	send(t, host, types.ClientMessage{Type: "call"})
	assert.Equal(t, types.MsgCodeCalled, recvMsg(t, host).Type)
}

func TestHandler_UnknownMessage(t *testing.T) {
	_, _, srv := setup(t)
	conn := dial(t, srv, "DIWALI23", "RAVI")
	_ = recvMsg(t, conn)

	send(t, conn, types.ClientMessage{Type: "dance"})
	msg := recvMsg(t, conn)
	assert.Equal(t, types.MsgError, msg.Type)
	assert.Equal(t, "unknown type", msg.Error)
}

func TestHandler_RemovedPlayerIsDisconnected(t *testing.T) {
	_, lb, srv := setup(t)
	ctx := context.Background()
	_, err := lb.Apply(ctx, engine.Command{Type: engine.CmdJoin, Actor: "ANITA"})
	require.NoError(t, err)

	player := dial(t, srv, "DIWALI23", "ANITA")
	_ = recvMsg(t, player)

	_, err = lb.Apply(ctx, engine.Command{Type: engine.CmdRemovePlayer, Actor: "RAVI", Player: "ANITA"})
	require.NoError(t, err)

	readCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, _, err = player.Read(readCtx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestToEngineCommand(t *testing.T) {
	cases := []struct {
		in   types.ClientMessage
		want engine.CommandType
		ok   bool
	}{
		{in: types.ClientMessage{Type: "start"}, want: engine.CmdStart, ok: true},
		{in: types.ClientMessage{Type: "call"}, want: engine.CmdCallNext, ok: true},
		{in: types.ClientMessage{Type: "close"}, want: engine.CmdClose, ok: true},
		{in: types.ClientMessage{Type: "ticket"}, want: engine.CmdGenerateTicket, ok: true},
		{in: types.ClientMessage{Type: "toggle-mark", Symbol: "DY"}, want: engine.CmdToggleMark, ok: true},
		{in: types.ClientMessage{Type: "set-marks", MarkedItems: []string{"DY"}}, want: engine.CmdSetMarks, ok: true},
		{in: types.ClientMessage{Type: "claim", ClaimType: "FirstFive"}, want: engine.CmdClaim, ok: true},
		{in: types.ClientMessage{Type: "LockPick"}, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.in.Type, func(t *testing.T) {
			cmd, ok := toEngineCommand(tc.in, "ANITA")
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, cmd.Type)
				assert.Equal(t, "ANITA", cmd.Actor)
			}
		})
	}
}
