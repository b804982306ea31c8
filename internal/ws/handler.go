package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/claim"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/hub"
	"github.com/DoyleJ11/housie-backend/internal/lobby"
	"github.com/DoyleJ11/housie-backend/internal/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	OutboxSize   int
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
	Logger         *zap.Logger
}

func (o *Options) defaults() {
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.OutboxSize == 0 {
		o.OutboxSize = 32
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts.defaults()
	log := opts.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		player := engine.Normalize(r.URL.Query().Get("username"))
		if player == "" {
			http.Error(w, "missing username", http.StatusBadRequest)
			return
		}

		lb, err := h.Get(r.Context(), code)
		if errors.Is(err, engine.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		v, err := lb.View(r.Context())
		if err != nil {
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
			return
		}
		if player != v.State.Host && !v.State.HasPlayer(player) {
			http.Error(w, "not a member of this room", http.StatusForbidden)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Notification, opts.OutboxSize)
		clientID := uuid.NewString()
		log := log.With(zap.String("room", lb.Code()), zap.String("player", player), zap.String("client", clientID))

		if err := lb.Subscribe(r.Context(), clientID, player, out); err != nil {
			conn.Close(websocket.StatusGoingAway, "room unavailable")
			return
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = lb.Unsubscribe(ctx, clientID)
			cancel()
		}()
		log.Debug("subscribed")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case n, ok := <-out:
					if !ok {
						// The room let go of this client.
						conn.Close(websocket.StatusGoingAway, "unsubscribed")
						return
					}
					if err := writeJSON(writeCtx, conn, opts.WriteTimeout, toServerMessage(n, player)); err != nil {
						log.Debug("write failed", zap.Error(err))
						writeCancel()
						conn.Close(websocket.StatusInternalError, "write failed")
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), opts.ReadTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(r.Context(), conn, opts.WriteTimeout, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			cmd, ok := toEngineCommand(cm, player)
			if !ok {
				_ = writeJSON(r.Context(), conn, opts.WriteTimeout, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
				continue
			}

			if err := lb.Send(r.Context(), clientID, cmd); err != nil {
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// toServerMessage renders a notification for one subscriber. Snapshots carry
// only that subscriber's own ticket.
func toServerMessage(n lobby.Notification, player string) types.ServerMessage {
	switch {
	case n.Err != nil:
		return types.ServerMessage{Type: types.MsgError, Version: n.Version, Error: n.Err.Error()}

	case n.Snapshot != nil:
		view := types.NewRoomView(*n.Snapshot)
		msg := types.ServerMessage{Type: types.MsgState, Version: n.Version, Room: &view}
		if t, ok := n.Snapshot.Tickets[player]; ok {
			tv := types.NewTicketView(t)
			msg.Ticket = &tv
		}
		return msg

	case n.Event != nil:
		msg := types.EventMessage(n.Version, *n.Event)
		if n.Event.Type == engine.EvtTicketIssued || n.Event.Type == engine.EvtMarksUpdated {
			msg.Ticket = &types.TicketView{
				ID:          n.Event.TicketID,
				Username:    n.Event.Player,
				MarkedItems: types.Codes(n.Event.Marks),
			}
			if n.Event.Type == engine.EvtTicketIssued {
				msg.Ticket.TicketString = n.Event.Grid.Encode()
				msg.Ticket.MarkedItems = []string{}
			}
		}
		return msg
	}
	return types.ServerMessage{Type: types.MsgError, Error: "empty notification"}
}

func toEngineCommand(m types.ClientMessage, player string) (engine.Command, bool) {
	switch m.Type {
	case "start":
		return engine.Command{Type: engine.CmdStart, Actor: player}, true
	case "call":
		return engine.Command{Type: engine.CmdCallNext, Actor: player}, true
	case "close":
		return engine.Command{Type: engine.CmdClose, Actor: player}, true
	case "ticket":
		return engine.Command{Type: engine.CmdGenerateTicket, Actor: player}, true
	case "toggle-mark":
		return engine.Command{Type: engine.CmdToggleMark, Actor: player, Symbol: catalog.Code(m.Symbol)}, true
	case "set-marks":
		return engine.Command{Type: engine.CmdSetMarks, Actor: player, Marks: types.ToCodes(m.MarkedItems)}, true
	case "claim":
		typ, ok := claim.Parse(m.ClaimType)
		if !ok {
			// Unknown names still go through so the player gets a verdict.
			typ = claim.Type(m.ClaimType)
		}
		return engine.Command{Type: engine.CmdClaim, Actor: player, ClaimType: typ}, true
	default:
		return engine.Command{}, false
	}
}
