package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/safelink/internal/auth"
	"github.com/serroba/safelink/internal/ratelimit"
	"github.com/serroba/safelink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return string(hash)
}

func newAuthenticator(t *testing.T, limiter auth.Limiter) *auth.Authenticator {
	t.Helper()

	if limiter == nil {
		limiter = ratelimit.NewFixedWindowLimiter(store.NewRateLimitMemoryStore(), ratelimit.DefaultPolicy(),
			ratelimit.WithClock(func() time.Time { return time.Unix(1_700_000_040, 0) }))
	}

	a, err := auth.NewAuthenticator(
		map[string]string{"static-token": "service-owner"},
		map[string]string{"Alice@Example.com": hashPassword(t, "correct horse")},
		store.NewSessionMemoryStore(),
		limiter,
		time.Hour,
		zap.NewNop(),
	)
	require.NoError(t, err)

	return a
}

func TestAuthenticator_Authenticate(t *testing.T) {
	a := newAuthenticator(t, nil)

	t.Run("static api token", func(t *testing.T) {
		owner, err := a.Authenticate(context.Background(), "static-token")

		require.NoError(t, err)
		assert.Equal(t, "service-owner", owner)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), "")

		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), "nope")

		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("session token from login", func(t *testing.T) {
		session, err := a.Login(context.Background(), " alice@example.com ", "correct horse")
		require.NoError(t, err)

		assert.Len(t, session.Token, 32)
		assert.Equal(t, "alice@example.com", session.OwnerID)

		owner, err := a.Authenticate(context.Background(), session.Token)

		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", owner)
	})
}

func TestAuthenticator_Login(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		a := newAuthenticator(t, nil)

		_, err := a.Login(context.Background(), "alice@example.com", "wrong")

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		a := newAuthenticator(t, nil)

		_, err := a.Login(context.Background(), "bob@example.com", "correct horse")

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("sixth attempt in a minute is rate limited even with the right password", func(t *testing.T) {
		a := newAuthenticator(t, nil)

		for range 5 {
			_, err := a.Login(context.Background(), "alice@example.com", "wrong")
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		}

		_, err := a.Login(context.Background(), "ALICE@example.com", "correct horse")

		assert.ErrorIs(t, err, ratelimit.ErrRateLimited)
	})

	t.Run("limiter failure rejects the login", func(t *testing.T) {
		a := newAuthenticator(t, limiterFunc(func(context.Context, string, ratelimit.Scope) error {
			return errors.New("redis down")
		}))

		_, err := a.Login(context.Background(), "alice@example.com", "correct horse")

		require.ErrorIs(t, err, auth.ErrUnavailable)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, ratelimit.ErrRateLimited)
	})

	t.Run("session store failure is reported as unavailable", func(t *testing.T) {
		limiter := limiterFunc(func(context.Context, string, ratelimit.Scope) error { return nil })
		a, err := auth.NewAuthenticator(
			nil,
			map[string]string{"alice@example.com": hashPassword(t, "correct horse")},
			failingSessions{},
			limiter,
			time.Hour,
			zap.NewNop(),
		)
		require.NoError(t, err)

		_, err = a.Login(context.Background(), "alice@example.com", "correct horse")

		assert.ErrorIs(t, err, auth.ErrUnavailable)
	})
}

type failingSessions struct{}

func (failingSessions) Save(context.Context, string, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingSessions) Get(context.Context, string) (string, error) {
	return "", errors.New("redis down")
}

type limiterFunc func(ctx context.Context, identity string, scope ratelimit.Scope) error

func (f limiterFunc) Admit(ctx context.Context, identity string, scope ratelimit.Scope) error {
	return f(ctx, identity, scope)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "joh***@example.com", auth.MaskEmail("john.doe@example.com"))
	assert.Equal(t, "jo***@example.com", auth.MaskEmail("jo@example.com"))
	assert.Equal(t, "***", auth.MaskEmail("not-an-email"))
}

func TestParseAPITokens(t *testing.T) {
	tokens, err := auth.ParseAPITokens("tok1=owner-1, tok2=owner-2,")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tok1": "owner-1", "tok2": "owner-2"}, tokens)

	_, err = auth.ParseAPITokens("tok1")
	assert.Error(t, err)
}

func TestParseUsers(t *testing.T) {
	users, err := auth.ParseUsers("Alice@Example.com:$2a$10$abcdefghijklmnopqrstuv")

	require.NoError(t, err)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", users["alice@example.com"])

	_, err = auth.ParseUsers("alice@example.com:plaintext")
	assert.Error(t, err)

	empty, err := auth.ParseUsers("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserEntry(t *testing.T) {
	entry, err := auth.UserEntry(" Bob@Example.com ", "hunter2")
	require.NoError(t, err)

	users, err := auth.ParseUsers(entry)
	require.NoError(t, err)
	require.Contains(t, users, "bob@example.com")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users["bob@example.com"]), []byte("hunter2")))

	_, err = auth.UserEntry("bob@example.com", "")
	assert.Error(t, err)
}
