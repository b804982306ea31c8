package lobby

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("lobby stopped")

const (
	inboxSize      = 64
	journalTimeout = 3 * time.Second
)

type Msg interface{ isLobbyMsg() }

// Do runs a command and reports the outcome on Reply.
type Do struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Do) isLobbyMsg() {}

// FromClient runs a command sent over a realtime connection. Errors and
// private events (tickets, marks, rejected claims) go back to that subscriber
// only.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

type Subscribe struct {
	ClientID string
	Player   string
	Outbox   chan Notification // where this client wants to receive notifications
	// MembersOnly refuses anyone but the host and joined players by closing
	// Outbox straight away.
	MembersOnly bool
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Result struct {
	Version int
	Events  []engine.Event
	State   engine.State // room after the command; only set for Do
	Err     error
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Notification is what subscribers receive. Exactly one of Event, Snapshot or
// Err is set.
type Notification struct {
	Version  int
	Event    *engine.Event
	Snapshot *engine.State
	Err      error
}

// Journal records committed events. Failures are logged, never surfaced.
type Journal interface {
	AppendEvents(ctx context.Context, room string, fromVersion int, events []engine.Event) error
}

type Options struct {
	Catalog *catalog.Catalog
	Rand    *rand.Rand
	Now     func() time.Time
	Journal Journal
	Logger  *zap.Logger
	Version int
}

type subscriber struct {
	player string
	outbox chan Notification
}

type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]subscriber
	env     engine.Env
	journal Journal
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, initial engine.State, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Catalog == nil {
		opts.Catalog = catalog.Diwali()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:    initial.Code,
		inbox:   make(chan Msg, inboxSize),
		state:   initial,
		version: opts.Version,
		clients: make(map[string]subscriber),
		env:     engine.Env{Catalog: opts.Catalog, Rand: opts.Rand, Now: opts.Now},
		journal: opts.Journal,
		log:     opts.Logger.With(zap.String("room", initial.Code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				player := engine.Normalize(msg.Player)
				if msg.MembersOnly && !l.member(player) {
					l.log.Debug("subscribe refused", zap.String("player", player))
					close(msg.Outbox)
					break
				}
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = subscriber{player: player, outbox: msg.Outbox}
				snap := l.state.Clone()
				l.sendTo(msg.ClientID, Notification{Version: l.version, Snapshot: &snap})

			case Unsubscribe:
				if sub, ok := l.clients[msg.ClientID]; ok {
					close(sub.outbox)
					delete(l.clients, msg.ClientID)
				}

			case Do:
				res := l.handle(msg.Cmd)
				if res.Err == nil {
					res.State = l.state.Clone()
				}
				msg.Reply <- res

			case FromClient:
				res := l.handle(msg.Cmd)
				if res.Err != nil {
					l.sendTo(msg.ClientID, Notification{Version: l.version, Err: res.Err})
					break
				}
				for i := range res.Events {
					if !Public(res.Events[i].Type) {
						l.sendTo(msg.ClientID, Notification{Version: res.Version, Event: &res.Events[i]})
					}
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// handle commits, journals, then broadcasts, in that order, before the
// caller hears back.
func (l *Lobby) handle(cmd engine.Command) Result {
	events, newState, err := engine.Apply(l.state, cmd, l.env)
	if err != nil {
		l.log.Debug("command refused",
			zap.String("cmd", string(cmd.Type)),
			zap.String("actor", cmd.Actor),
			zap.Error(err))
		return Result{Version: l.version, Err: err}
	}
	if len(events) == 0 {
		return Result{Version: l.version}
	}

	from := l.version
	l.state = newState
	l.version++

	if l.journal != nil {
		ctx, cancel := context.WithTimeout(l.ctx, journalTimeout)
		if err := l.journal.AppendEvents(ctx, l.code, from, events); err != nil {
			l.log.Warn("journal append failed", zap.Int("version", l.version), zap.Error(err))
		}
		cancel()
	}

	for i := range events {
		e := events[i]
		l.log.Info("event",
			zap.String("event", string(e.Type)),
			zap.String("player", e.Player),
			zap.String("code", string(e.Code)),
			zap.Int("version", l.version))

		if e.Type == engine.EvtPlayerRemoved {
			l.dropPlayer(e.Player)
		}
		if Public(e.Type) {
			l.broadcast(Notification{Version: l.version, Event: &e})
		}
	}
	return Result{Version: l.version, Events: events}
}

// Public reports whether every room member should hear about an event.
// Tickets, marks and rejected claims stay private.
func Public(t engine.EventType) bool {
	switch t {
	case engine.EvtPlayerJoined, engine.EvtGameStarted, engine.EvtCodeCalled,
		engine.EvtGameClosed, engine.EvtPlayerRemoved, engine.EvtClaimAccepted:
		return true
	}
	return false
}

func (l *Lobby) member(player string) bool {
	return player == l.state.Host || l.state.HasPlayer(player)
}

func (l *Lobby) shutdown() {
	for id, sub := range l.clients {
		close(sub.outbox) // Tell client no more notifications
		delete(l.clients, id)
	}
	l.cancel()

	// Subscribers still queued would otherwise wait on their outbox forever.
	for {
		select {
		case m := <-l.inbox:
			if sub, ok := m.(Subscribe); ok {
				close(sub.Outbox)
			}
		default:
			return
		}
	}
}

func (l *Lobby) broadcast(n Notification) {
	for id := range l.clients {
		l.sendTo(id, n)
	}
}

func (l *Lobby) sendTo(id string, n Notification) {
	sub, ok := l.clients[id]
	if !ok {
		return
	}
	select {
	case sub.outbox <- n:
		//ok
	default:
		// Client is slow/full - drop them.
		l.log.Debug("dropping slow subscriber", zap.String("client", id))
		close(sub.outbox)
		delete(l.clients, id)
	}
}

// dropPlayer ends every subscription held by a removed player.
func (l *Lobby) dropPlayer(player string) {
	for id, sub := range l.clients {
		if sub.player == player {
			close(sub.outbox)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// send delivers m unless the lobby or ctx is done first.
func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-l.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply runs cmd through the room and waits for the committed result.
func (l *Lobby) Apply(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, Do{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-l.ctx.Done():
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Subscribe registers a realtime client for player. Only the host and joined
// players are accepted; anyone else finds outbox closed.
func (l *Lobby) Subscribe(ctx context.Context, clientID, player string, outbox chan Notification) error {
	return l.send(ctx, Subscribe{ClientID: clientID, Player: player, Outbox: outbox, MembersOnly: true})
}

func (l *Lobby) Unsubscribe(ctx context.Context, clientID string) error {
	return l.send(ctx, Unsubscribe{ClientID: clientID})
}

func (l *Lobby) Send(ctx context.Context, clientID string, cmd engine.Command) error {
	return l.send(ctx, FromClient{ClientID: clientID, Cmd: cmd})
}
