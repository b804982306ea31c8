package hub

import (
	"cmp"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"slices"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/lobby"
	"github.com/DoyleJ11/housie-backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeCharset    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength     = 6
	minCodeLength  = 3
	maxCodeLength  = 16
	maxCodeRetries = 10
	saveTimeout    = 5 * time.Second
)

var (
	ErrStopped      = errors.New("hub stopped")
	ErrInvalidCode  = fmt.Errorf("%w: room code must be %d-%d letters or digits", engine.ErrInvalidInput, minCodeLength, maxCodeLength)
	ErrRoomNotFound = fmt.Errorf("%w: no such room", engine.ErrNotFound)
)

type HubMsg interface{ isHubMsg() }

// ReserveCode holds a room code while the room is saved. An empty Code asks
// the hub to pick one.
type ReserveCode struct {
	Code  string
	Reply chan ReserveResult
}

type ReserveResult struct {
	Code string
	Err  error
}

// RegisterRoom starts the lobby for a saved room and frees its reservation.
type RegisterRoom struct {
	State engine.State
	Reply chan *lobby.Lobby
}

// ReleaseCode gives up a reservation whose save failed.
type ReleaseCode struct {
	Code string
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []*lobby.Lobby
}

// RestoreLobby brings a persisted room back without saving it again.
type RestoreLobby struct {
	Room  store.Room
	Reply chan error
}

type ShutdownHub struct{}

func (ReserveCode) isHubMsg()  {}
func (RegisterRoom) isHubMsg() {}
func (ReleaseCode) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (ListLobbies) isHubMsg()  {}
func (RestoreLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Persister stores rooms and their event journal.
type Persister interface {
	lobby.Journal
	SaveRoom(ctx context.Context, s engine.State) error
}

type Loader interface {
	LoadRooms(ctx context.Context) ([]store.Room, error)
}

type Options struct {
	Catalog    *catalog.Catalog
	Rules      engine.Rules
	RandSource func(code string) *mrand.Rand
	Now        func() time.Time
	Store      Persister
	Logger     *zap.Logger
	BcryptCost int
}

type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	reserved map[string]bool // codes whose rooms are still being saved
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if opts.Catalog == nil {
		opts.Catalog = catalog.Diwali()
	}
	if opts.RandSource == nil {
		opts.RandSource = func(string) *mrand.Rand {
			return mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
		}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if len(opts.Rules.ClaimTypes) == 0 {
		opts.Rules.ClaimTypes = engine.DefaultRules().ClaimTypes
	}

	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		reserved: make(map[string]bool),
		opts:     opts,
		log:      opts.Logger.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case ReserveCode:
				code, err := h.reserve(msg.Code)
				msg.Reply <- ReserveResult{Code: code, Err: err}

			case RegisterRoom:
				delete(h.reserved, msg.State.Code)
				lb := h.start(msg.State, 0)
				h.log.Info("room created", zap.String("room", msg.State.Code), zap.String("host", msg.State.Host))
				msg.Reply <- lb

			case ReleaseCode:
				delete(h.reserved, msg.Code)

			case GetLobby:
				msg.Reply <- h.lobbies[engine.Normalize(msg.Code)] // May be nil

			case ListLobbies:
				out := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					out = append(out, lb)
				}
				msg.Reply <- out

			case RestoreLobby:
				msg.Reply <- h.restore(msg.Room)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// reserve claims code, or a generated one, for a room about to be saved.
func (h *Hub) reserve(code string) (string, error) {
	code = engine.Normalize(code)
	switch {
	case code == "":
		var err error
		if code, err = h.freeCode(); err != nil {
			return "", err
		}
	case !ValidCode(code):
		return "", ErrInvalidCode
	case h.taken(code):
		return "", fmt.Errorf("%w: %s", engine.ErrCodeConflict, code)
	}
	h.reserved[code] = true
	return code, nil
}

func (h *Hub) taken(code string) bool {
	return h.lobbies[code] != nil || h.reserved[code]
}

// freeCode draws generated codes until one is unused.
func (h *Hub) freeCode() (string, error) {
	for range maxCodeRetries {
		c, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if !h.taken(c) {
			return c, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", c))
	}
	return "", fmt.Errorf("%w: no free room code after %d attempts", engine.ErrCodeConflict, maxCodeRetries)
}

func (h *Hub) restore(room store.Room) error {
	code := room.Initial.Code
	if h.taken(code) {
		return fmt.Errorf("%w: %s", engine.ErrCodeConflict, code)
	}
	h.start(room.State(), room.Version)
	return nil
}

func (h *Hub) start(state engine.State, version int) *lobby.Lobby {
	var journal lobby.Journal
	if h.opts.Store != nil {
		journal = h.opts.Store
	}
	lb := lobby.NewLobby(h.ctx, state, lobby.Options{
		Catalog: h.opts.Catalog,
		Rand:    h.opts.RandSource(state.Code),
		Now:     h.opts.Now,
		Journal: journal,
		Logger:  h.opts.Logger,
		Version: version,
	})
	h.lobbies[state.Code] = lb
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		default:
			// inbox full; the cancel below stops it anyway
		}
	}
	clear(h.lobbies)
	clear(h.reserved)
	h.cancel()
}

// GenerateCode returns a random room code.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// ValidCode reports whether a normalized, caller-chosen code is acceptable.
func ValidCode(code string) bool {
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create opens a room hosted by host. code may be empty. A non-empty password
// is required for every later join.
func (h *Hub) Create(ctx context.Context, host, code, password string) (*lobby.Lobby, error) {
	if engine.Normalize(host) == "" {
		return nil, engine.ErrMissingName
	}

	var hash []byte
	if p := engine.Normalize(password); p != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(p), h.opts.BcryptCost); err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				return nil, fmt.Errorf("%w: room password is longer than 72 bytes", engine.ErrInvalidInput)
			}
			return nil, fmt.Errorf("hash room password: %w", err)
		}
	}

	reserved := make(chan ReserveResult, 1)
	if err := h.send(ctx, ReserveCode{Code: code, Reply: reserved}); err != nil {
		return nil, err
	}
	var res ReserveResult
	select {
	case res = <-reserved:
	case <-h.ctx.Done():
		return nil, ErrStopped
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// The hub keeps serving other rooms while this one is written.
	state := engine.NewState(h.opts.Catalog, res.Code, host, hash, h.opts.Rules, h.opts.Now())
	if h.opts.Store != nil {
		sctx, cancel := context.WithTimeout(ctx, saveTimeout)
		err := h.opts.Store.SaveRoom(sctx, state)
		cancel()
		if err != nil {
			_ = h.send(context.Background(), ReleaseCode{Code: res.Code})
			return nil, err
		}
	}

	registered := make(chan *lobby.Lobby, 1)
	if err := h.send(context.Background(), RegisterRoom{State: state, Reply: registered}); err != nil {
		return nil, err
	}
	select {
	case lb := <-registered:
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	}
}

func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, ErrRoomNotFound
		}
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) lobbiesSnapshot(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	if err := h.send(ctx, ListLobbies{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case out := <-reply:
		return out, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RoomsFor lists the rooms user hosts or has joined, newest first.
func (h *Hub) RoomsFor(ctx context.Context, user string) ([]lobby.View, error) {
	user = engine.Normalize(user)
	if user == "" {
		return nil, engine.ErrMissingName
	}

	all, err := h.lobbiesSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := []lobby.View{}
	for _, lb := range all {
		v, err := lb.View(ctx)
		if errors.Is(err, lobby.ErrStopped) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if v.State.Host == user || v.State.HasPlayer(user) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b lobby.View) int {
		if c := b.State.CreatedAt.Compare(a.State.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.State.Code, b.State.Code)
	})
	return out, nil
}

// Restore loads every persisted room and returns how many came back.
func (h *Hub) Restore(ctx context.Context, loader Loader) (int, error) {
	rooms, err := loader.LoadRooms(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, room := range rooms {
		reply := make(chan error, 1)
		if err := h.send(ctx, RestoreLobby{Room: room, Reply: reply}); err != nil {
			return n, err
		}
		select {
		case err := <-reply:
			if err != nil {
				h.log.Warn("room not restored", zap.String("room", room.Initial.Code), zap.Error(err))
				continue
			}
			n++
		case <-h.ctx.Done():
			return n, ErrStopped
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
	h.log.Info("rooms restored", zap.Int("count", n))
	return n, nil
}

// Shutdown stops the hub and every room it owns.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}
