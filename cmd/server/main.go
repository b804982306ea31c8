package main

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/config"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/httpapi"
	"github.com/DoyleJ11/housie-backend/internal/hub"
	"github.com/DoyleJ11/housie-backend/internal/identity"
	"github.com/DoyleJ11/housie-backend/internal/store"
	"github.com/DoyleJ11/housie-backend/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// backend is what the hub and identity service need from storage.
type backend interface {
	hub.Persister
	hub.Loader
	identity.Users
}

func main() {
	cfg, source, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("source", source), zap.String("addr", cfg.HTTP.Addr()))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.Diwali()

	var db backend
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, rooms live in memory only")
		db = store.NewMemory()
	} else {
		pg, err := store.Open(cfg.Database.URL, cat, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		db = pg
	}

	h := hub.NewHub(ctx, hub.Options{
		Catalog:    cat,
		Rules:      engine.Rules{MultipleWinners: cfg.Game.MultipleWinners, ClaimTypes: cfg.Game.ClaimTypes},
		RandSource: randSource(cfg.Game.Seed),
		Store:      db,
		Logger:     logger,
	})
	defer h.Shutdown()

	if _, err := h.Restore(ctx, db); err != nil {
		return err
	}

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:   h,
		Users: identity.New(db, logger),
		WS: ws.Options{
			WriteTimeout:   cfg.WebSocket.WriteTimeout,
			ReadTimeout:    cfg.WebSocket.ReadTimeout,
			OriginPatterns: cfg.WebSocket.OriginPatterns,
			Logger:         logger,
		},
		Logger: logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// randSource gives every room its own generator. With a fixed seed the same
// room code always replays the same tickets and calls.
func randSource(seed *uint64) func(code string) *rand.Rand {
	if seed == nil {
		return func(string) *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	return func(code string) *rand.Rand {
		f := fnv.New64a()
		_, _ = f.Write([]byte(code))
		return rand.New(rand.NewPCG(*seed, f.Sum64()))
	}
}
