// Package identity registers and authenticates player accounts. Room
// operations trust the names the HTTP layer passes in; accounts only gate
// the login page.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 4
	maxPasswordLen = 72 // bcrypt refuses longer input
)

var (
	ErrBadCredentials = fmt.Errorf("%w: wrong username or password", engine.ErrForbidden)
	ErrWeakPassword   = fmt.Errorf("%w: password must be at least %d characters", engine.ErrInvalidInput, minPasswordLen)
	ErrLongPassword   = fmt.Errorf("%w: password must be at most %d bytes", engine.ErrInvalidInput, maxPasswordLen)
)

type Users interface {
	SaveUser(ctx context.Context, u store.User) error
	FindUser(ctx context.Context, username string) (store.User, error)
}

type Service struct {
	users Users
	cost  int
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Service)

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option { return func(s *Service) { s.cost = cost } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(users Users, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		users: users,
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
		log:   log.Named("identity"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates an account and returns the normalized username.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	name := engine.Normalize(username)
	if name == "" {
		return "", engine.ErrMissingName
	}
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	if len(password) > maxPasswordLen {
		return "", ErrLongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SaveUser(ctx, store.User{Username: name, PasswordHash: hash, CreatedAt: s.now()}); err != nil {
		return "", err
	}

	s.log.Info("user registered", zap.String("player", name))
	return name, nil
}

// Login checks the password and returns the normalized username. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	name := engine.Normalize(username)
	if name == "" {
		return "", engine.ErrMissingName
	}

	u, err := s.users.FindUser(ctx, name)
	if errors.Is(err, store.ErrUserNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		s.log.Debug("login refused", zap.String("player", name))
		return "", ErrBadCredentials
	}
	return name, nil
}
