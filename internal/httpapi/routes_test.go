package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/hub"
	"github.com/DoyleJ11/housie-backend/internal/identity"
	"github.com/DoyleJ11/housie-backend/internal/lobby"
	"github.com/DoyleJ11/housie-backend/internal/store"
	"github.com/DoyleJ11/housie-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zaptest.NewLogger(t)
	mem := store.NewMemory()
	h := hub.NewHub(ctx, hub.Options{
		RandSource: func(string) *rand.Rand { return rand.New(rand.NewPCG(5, 8)) },
		Store:      mem,
		Logger:     log,
		BcryptCost: bcrypt.MinCost,
	})
	users := identity.New(mem, log, identity.WithCost(bcrypt.MinCost))

	srv := httptest.NewServer(SetupRoutes(Deps{Hub: h, Users: users, Logger: log}))
	t.Cleanup(srv.Close)
	return srv
}

// do sends body as JSON and decodes the response into out when out is non-nil.
func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

type msg struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", nil, nil))
}

func TestUsers_RegisterAndLogin(t *testing.T) {
	srv := newServer(t)
	creds := map[string]string{"username": "ravi", "password": "diwali"}

	var reg userBody
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/users/register", creds, &reg))
	assert.Equal(t, "RAVI", reg.Username)

	var dup msg
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/users/register", creds, &dup))
	assert.False(t, dup.Success)

	var login userBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/users/login", creds, &login))
	assert.Equal(t, "RAVI", login.Username)

	bad := map[string]string{"username": "ravi", "password": "holi"}
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodPost, "/users/login", bad, nil))
}

func TestLongPasswordsAreBadRequests(t *testing.T) {
	srv := newServer(t)
	long := strings.Repeat("p", 80)

	var reg msg
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/users/register", map[string]string{"username": "ravi", "password": long}, &reg))
	assert.False(t, reg.Success)

	var room msg
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/rooms", map[string]string{"host": "ravi", "code": "diwali23", "password": long}, &room))
	assert.Contains(t, room.Message, "72 bytes")
}

// The full happy path of one game over REST.
func TestGameFlow(t *testing.T) {
	srv := newServer(t)

	var room types.RoomView
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/rooms", map[string]string{"host": "ravi", "code": "diwali23"}, &room))
	assert.Equal(t, "DIWALI23", room.Code)
	assert.Equal(t, engine.PhaseCreated, room.Status)
	assert.Equal(t, catalog.Diwali().Len(), room.Remaining)

	var joined joinBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/join", map[string]string{"player": "anita"}, &joined))
	assert.Equal(t, []string{"ANITA"}, joined.Room.Players)

	var tv types.TicketView
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/tickets", map[string]string{"username": "anita", "code": "DIWALI23"}, &tv))
	require.NotEmpty(t, tv.ID)
	grid := tv.Grid
	require.Len(t, grid, 3)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/tickets", map[string]string{"username": "anita", "code": "DIWALI23"}, nil))

	var again types.TicketView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/tickets?username=anita&code=DIWALI23", nil, &again))
	assert.Equal(t, tv.TicketString, again.TicketString)

	// Calling before the start is refused.
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/rooms/DIWALI23/call", map[string]string{"host": "RAVI"}, nil))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/start", map[string]string{"host": "RAVI"}, nil))
	assert.Equal(t, http.StatusForbidden, do(t, srv, http.MethodPost, "/rooms/DIWALI23/call", map[string]string{"host": "ANITA"}, nil))

	// Call until five of ANITA's symbols are out.
	onTicket := map[string]bool{}
	for _, row := range grid {
		for _, c := range row {
			if c != "" {
				onTicket[c] = true
			}
		}
	}
	var hits []string
	for len(hits) < 5 {
		var called callBody
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/call", map[string]string{"host": "RAVI"}, &called))
		if onTicket[called.Item] {
			hits = append(hits, called.Item)
		}
	}

	var hist historyBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/rooms/DIWALI23/history", nil, &hist))
	assert.Equal(t, catalog.Diwali().Len()-len(hist.CalledCodes), hist.Remaining)

	// Claiming before marking is a rejected verdict, not an error.
	var verdict verdictBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/verify-claim", map[string]string{"player": "ANITA", "type": "First Five"}, &verdict))
	assert.False(t, verdict.Accepted)

	var marked types.TicketView
	path := fmt.Sprintf("/tickets/%s/mark", tv.ID)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPatch, path, map[string]any{"username": "anita", "code": "DIWALI23", "markedItems": hits}, &marked))
	assert.Equal(t, hits, marked.MarkedItems)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPatch, "/tickets/bogus/mark", map[string]any{"username": "anita", "code": "DIWALI23", "markedItems": hits}, nil))

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/verify-claim", map[string]string{"player": "ANITA", "type": "First Five"}, &verdict))
	assert.True(t, verdict.Accepted, verdict.Message)
	assert.True(t, verdict.Success)

	var board []types.LeaderboardEntry
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/rooms/DIWALI23/leaderboard", nil, &board))
	require.Len(t, board, 1)
	assert.Equal(t, "ANITA", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)

	var mine []types.RoomView
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/rooms/host/anita", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "RAVI", mine[0].Host)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/close", map[string]string{"host": "RAVI"}, nil))
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/rooms/DIWALI23/call", map[string]string{"host": "RAVI"}, nil))
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/close", map[string]string{"host": "RAVI"}, nil), "close is idempotent")
}

func TestRooms_Errors(t *testing.T) {
	srv := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/rooms", map[string]string{"host": "ravi", "code": "DIWALI23", "password": "lamp"}, nil))

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "code taken", method: http.MethodPost, path: "/rooms", body: map[string]string{"host": "anita", "code": "diwali23"}, want: http.StatusConflict},
		{name: "bad code", method: http.MethodPost, path: "/rooms", body: map[string]string{"host": "anita", "code": "x"}, want: http.StatusBadRequest},
		{name: "no host", method: http.MethodPost, path: "/rooms", body: map[string]string{"code": "HOLI24"}, want: http.StatusBadRequest},
		{name: "bad json", method: http.MethodPost, path: "/rooms", body: "not an object", want: http.StatusBadRequest},
		{name: "unknown room", method: http.MethodGet, path: "/rooms/NOPE42", want: http.StatusNotFound},
		{name: "wrong password", method: http.MethodPost, path: "/rooms/DIWALI23/join", body: map[string]string{"player": "anita", "password": "diya"}, want: http.StatusForbidden},
		{name: "remove by non-host", method: http.MethodPost, path: "/rooms/DIWALI23/remove-player", body: map[string]string{"player": "RAVI", "host": "ANITA"}, want: http.StatusForbidden},
		{name: "remove stranger", method: http.MethodPost, path: "/rooms/DIWALI23/remove-player", body: map[string]string{"player": "MEERA", "host": "RAVI"}, want: http.StatusNotFound},
		{name: "ticket for stranger", method: http.MethodPost, path: "/tickets", body: map[string]string{"username": "meera", "code": "DIWALI23"}, want: http.StatusNotFound},
		{name: "claim before start", method: http.MethodPost, path: "/rooms/DIWALI23/verify-claim", body: map[string]string{"player": "anita", "type": "Full House"}, want: http.StatusConflict},
		{name: "no ticket yet", method: http.MethodGet, path: "/tickets?username=anita&code=DIWALI23", want: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body msg
			got := do(t, srv, tc.method, tc.path, tc.body, &body)
			assert.Equal(t, tc.want, got)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRemovePlayer(t *testing.T) {
	srv := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/rooms", map[string]string{"host": "ravi", "code": "DIWALI23"}, nil))
	for _, p := range []string{"anita", "vikram"} {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/join", map[string]string{"player": p}, nil))
	}

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/rooms/DIWALI23/remove-player", map[string]string{"player": "anita", "host": "ravi"}, nil))

	var players []string
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/rooms/DIWALI23/players", nil, &players))
	assert.Equal(t, []string{"VIKRAM"}, players)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: engine.ErrMissingName, want: http.StatusBadRequest},
		{err: engine.ErrNotHost, want: http.StatusForbidden},
		{err: engine.ErrPlayerNotFound, want: http.StatusNotFound},
		{err: engine.ErrCodeConflict, want: http.StatusConflict},
		{err: engine.ErrGameOver, want: http.StatusConflict},
		{err: engine.ErrPoolExhausted, want: http.StatusConflict},
		{err: lobby.ErrStopped, want: http.StatusServiceUnavailable},
		{err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}
