package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/housie-backend/internal/hub"
	"github.com/DoyleJ11/housie-backend/internal/identity"
	"github.com/DoyleJ11/housie-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Hub    *hub.Hub
	Users  *identity.Service
	WS     ws.Options
	Logger *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := d.Hub

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(d.Logger.Named("http")))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, d.WS))

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", Register(d.Users))
		r.Post("/login", Login(d.Users))
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", CreateRoom(h))
		r.Get("/host/{user}", RoomsForUser(h))

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", GetRoom(h))
			r.Get("/history", History(h))
			r.Get("/players", Players(h))
			r.Get("/leaderboard", Leaderboard(h))
			r.Post("/join", JoinRoom(h))
			r.Post("/start", StartGame(h))
			r.Post("/call", CallNext(h))
			r.Post("/close", CloseRoom(h))
			r.Post("/remove-player", RemovePlayer(h))
			r.Post("/verify-claim", VerifyClaim(h))
		})
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Post("/", CreateTicket(h))
		r.Get("/", GetTicket(h))
		r.Patch("/{id}/mark", MarkTicket(h))
	})

	return r
}
