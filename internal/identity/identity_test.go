package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	users := store.NewMemory()
	return New(users, zaptest.NewLogger(t), WithCost(bcrypt.MinCost)), users
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(t)

	name, err := svc.Register(ctx, "  ravi ", "diwali")
	require.NoError(t, err)
	assert.Equal(t, "RAVI", name)

	u, err := users.FindUser(ctx, "RAVI")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("diwali"), u.PasswordHash, "password must be hashed")

	_, err = svc.Register(ctx, "Ravi", "another")
	require.ErrorIs(t, err, engine.ErrAlreadyExists)
}

func TestRegister_Rejections(t *testing.T) {
	svc, _ := newService(t)

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{name: "blank username", username: "   ", password: "diwali", want: engine.ErrMissingName},
		{name: "short password", username: "anita", password: "abc", want: engine.ErrInvalidInput},
		{name: "long password", username: "anita", password: strings.Repeat("x", 73), want: ErrLongPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.username, tc.password)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Register(ctx, "anita", "rangoli")
	require.NoError(t, err)

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{name: "ok", username: "anita", password: "rangoli"},
		{name: "case-insensitive username", username: "ANITA", password: "rangoli"},
		{name: "wrong password", username: "anita", password: "Rangoli", want: ErrBadCredentials},
		{name: "unknown user", username: "vikram", password: "rangoli", want: ErrBadCredentials},
		{name: "blank username", username: "", password: "rangoli", want: engine.ErrMissingName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, err := svc.Login(ctx, tc.username, tc.password)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ANITA", name)
		})
	}
}

func TestLogin_BadCredentialsIsForbidden(t *testing.T) {
	assert.ErrorIs(t, ErrBadCredentials, engine.ErrForbidden)
	assert.ErrorIs(t, ErrLongPassword, engine.ErrInvalidInput)
}
