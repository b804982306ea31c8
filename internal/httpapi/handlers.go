package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/housie-backend/internal/claim"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/hub"
	"github.com/DoyleJ11/housie-backend/internal/identity"
	"github.com/DoyleJ11/housie-backend/internal/lobby"
	"github.com/DoyleJ11/housie-backend/internal/types"
	"github.com/go-chi/chi/v5"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userBody struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

func Register(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		name, err := users.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, userBody{Success: true, Username: name, Message: "registered"})
	}
}

func Login(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		name, err := users.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, userBody{Success: true, Username: name})
	}
}

type createRoomRequest struct {
	Host     string `json:"host"`
	Code     string `json:"code,omitempty"`
	Password string `json:"password,omitempty"`
}

func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		lb, err := h.Create(r.Context(), req.Host, req.Code, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := lb.View(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.NewRoomView(v.State))
	}
}

func RoomsForUser(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := h.RoomsFor(r.Context(), chi.URLParam(r, "user"))
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]types.RoomView, len(views))
		for i, v := range views {
			out[i] = types.NewRoomView(v.State)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// roomView loads the room named in the URL.
func roomView(h *hub.Hub, r *http.Request) (lobby.View, error) {
	lb, err := h.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		return lobby.View{}, err
	}
	return lb.View(r.Context())
}

// apply runs cmd against the room named by code.
func apply(h *hub.Hub, r *http.Request, code string, cmd engine.Command) (lobby.Result, error) {
	lb, err := h.Get(r.Context(), code)
	if err != nil {
		return lobby.Result{}, err
	}
	return lb.Apply(r.Context(), cmd)
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := roomView(h, r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewRoomView(v.State))
	}
}

type historyBody struct {
	Code        string   `json:"code"`
	CalledCodes []string `json:"calledCodes"`
	Remaining   int      `json:"remaining"`
}

func History(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := roomView(h, r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, historyBody{
			Code:        v.State.Code,
			CalledCodes: types.Codes(v.State.Called),
			Remaining:   len(v.State.Pool),
		})
	}
}

func Players(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := roomView(h, r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewRoomView(v.State).Players)
	}
}

func Leaderboard(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := roomView(h, r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewLeaderboard(v.State.Leaderboard))
	}
}

type joinRequest struct {
	Player   string `json:"player"`
	Password string `json:"password,omitempty"`
}

type joinBody struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Room    types.RoomView `json:"room"`
}

func JoinRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := apply(h, r, chi.URLParam(r, "code"), engine.Command{Type: engine.CmdJoin, Actor: req.Player, Password: req.Password})
		if err != nil {
			writeError(w, err)
			return
		}
		msg := "joined"
		if len(res.Events) == 0 {
			msg = "already joined"
		}
		writeJSON(w, http.StatusOK, joinBody{Success: true, Message: msg, Room: types.NewRoomView(res.State)})
	}
}

type hostRequest struct {
	Host string `json:"host"`
}

// hostAction covers the host-only commands that take no arguments.
func hostAction(h *hub.Hub, typ engine.CommandType, done string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hostRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if _, err := apply(h, r, chi.URLParam(r, "code"), engine.Command{Type: typ, Actor: req.Host}); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, okBody{Success: true, Message: done})
	}
}

func StartGame(h *hub.Hub) http.HandlerFunc { return hostAction(h, engine.CmdStart, "game started") }

func CloseRoom(h *hub.Hub) http.HandlerFunc { return hostAction(h, engine.CmdClose, "room closed") }

type callBody struct {
	Item      string `json:"item"`
	Meaning   string `json:"meaning"`
	Remaining int    `json:"remaining"`
}

func CallNext(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hostRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := apply(h, r, chi.URLParam(r, "code"), engine.Command{Type: engine.CmdCallNext, Actor: req.Host})
		if err != nil {
			writeError(w, err)
			return
		}
		called := res.Events[0]
		writeJSON(w, http.StatusOK, callBody{
			Item:      string(called.Code),
			Meaning:   called.Meaning,
			Remaining: len(res.State.Pool),
		})
	}
}

type removeRequest struct {
	Player string `json:"player"`
	Host   string `json:"host"`
}

func RemovePlayer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req removeRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		cmd := engine.Command{Type: engine.CmdRemovePlayer, Actor: req.Host, Player: req.Player}
		if _, err := apply(h, r, chi.URLParam(r, "code"), cmd); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, okBody{Success: true, Message: "player removed"})
	}
}

type claimRequest struct {
	Player string `json:"player"`
	Type   string `json:"type"`
}

type verdictBody struct {
	Accepted bool   `json:"accepted"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// VerifyClaim answers 200 for both verdicts. Only a refused command (wrong
// phase, unknown player, no ticket) is an error.
func VerifyClaim(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req claimRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		typ, ok := claim.Parse(req.Type)
		if !ok {
			typ = claim.Type(req.Type)
		}
		res, err := apply(h, r, chi.URLParam(r, "code"), engine.Command{Type: engine.CmdClaim, Actor: req.Player, ClaimType: typ})
		if err != nil {
			writeError(w, err)
			return
		}
		e := res.Events[0]
		accepted := e.Type == engine.EvtClaimAccepted
		writeJSON(w, http.StatusOK, verdictBody{Accepted: accepted, Success: accepted, Message: e.Message})
	}
}

type ticketRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

func CreateTicket(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ticketRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := apply(h, r, req.Code, engine.Command{Type: engine.CmdGenerateTicket, Actor: req.Username})
		if err != nil {
			writeError(w, err)
			return
		}
		t := res.State.Tickets[res.Events[0].Player]
		writeJSON(w, http.StatusCreated, types.NewTicketView(t))
	}
}

func GetTicket(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lb, err := h.Get(r.Context(), q.Get("code"))
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := lb.View(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		t, ok := v.State.Tickets[engine.Normalize(q.Get("username"))]
		if !ok {
			writeError(w, engine.ErrTicketNotFound)
			return
		}
		writeJSON(w, http.StatusOK, types.NewTicketView(t))
	}
}

type markRequest struct {
	Username    string   `json:"username"`
	Code        string   `json:"code"`
	MarkedItems []string `json:"markedItems"`
}

// MarkTicket replaces the marked set of the ticket in the URL.
func MarkTicket(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		cmd := engine.Command{
			Type:     engine.CmdSetMarks,
			Actor:    req.Username,
			TicketID: chi.URLParam(r, "id"),
			Marks:    types.ToCodes(req.MarkedItems),
		}
		res, err := apply(h, r, req.Code, cmd)
		if err != nil {
			writeError(w, err)
			return
		}
		t := res.State.Tickets[engine.Normalize(req.Username)]
		writeJSON(w, http.StatusOK, types.NewTicketView(t))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
