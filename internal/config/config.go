package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/claim"
	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
}

func (h HTTPServer) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

type Database struct {
	URL string // empty keeps everything in memory
}

type Log struct {
	Level       string
	Development bool
}

type Game struct {
	MultipleWinners bool
	ClaimTypes      []claim.Type
	Seed            *uint64 // fixed seed for reproducible rooms
}

type WebSocket struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	// OriginPatterns lists extra hosts allowed to open sockets, e.g. the
	// web client's "localhost:3000" during development.
	OriginPatterns []string
}

type Config struct {
	HTTP      HTTPServer
	Database  Database
	Log       Log
	Game      Game
	WebSocket WebSocket
}

// Load reads the env file named by -config (or .env when present) and then
// builds the config from the environment.
func Load(args []string) (*Config, string, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", "", "path env file")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	source := ".env"
	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			return nil, "", fmt.Errorf("load env from %s: %w", *configPath, err)
		}
		source = *configPath
	} else if err := godotenv.Load(); err != nil {
		source = "environment"
	}

	cfg, err := FromEnv()
	return cfg, source, err
}

func FromEnv() (*Config, error) {
	game, err := newGame()
	if err != nil {
		return nil, err
	}
	ws, err := newWebSocket()
	if err != nil {
		return nil, err
	}
	dev, err := getbool("LOG_DEVELOPMENT", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTP: HTTPServer{
			Host: getenv("HTTP_HOST", "0.0.0.0"),
			Port: getenv("HTTP_PORT", "8080"),
		},
		Database: Database{URL: os.Getenv("DATABASE_URL")},
		Log: Log{
			Level:       getenv("LOG_LEVEL", "info"),
			Development: dev,
		},
		Game:      *game,
		WebSocket: *ws,
	}, nil
}

func newGame() (*Game, error) {
	multi, err := getbool("GAME_MULTIPLE_WINNERS", false)
	if err != nil {
		return nil, err
	}
	g := &Game{MultipleWinners: multi}

	if raw := os.Getenv("GAME_CLAIM_TYPES"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			t, ok := claim.Parse(name)
			if !ok {
				return nil, fmt.Errorf("GAME_CLAIM_TYPES: unknown claim type %q", strings.TrimSpace(name))
			}
			g.ClaimTypes = append(g.ClaimTypes, t)
		}
	}

	if raw := os.Getenv("GAME_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GAME_SEED: %w", err)
		}
		g.Seed = &seed
	}
	return g, nil
}

func newWebSocket() (*WebSocket, error) {
	write, err := getduration("WS_WRITE_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	read, err := getduration("WS_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	return &WebSocket{
		WriteTimeout:   write,
		ReadTimeout:    read,
		OriginPatterns: getlist("WS_ORIGIN_PATTERNS"),
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getlist splits a comma separated variable, skipping blanks.
func getlist(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getbool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
