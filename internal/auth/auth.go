package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/serroba/safelink/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSessionTTL is how long a login session stays valid.
	DefaultSessionTTL = 24 * time.Hour
	tokenLength       = 32
)

var (
	// ErrUnauthenticated is returned for missing, unknown or expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned when the email or password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound is returned by a SessionStore for unknown tokens.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnavailable wraps failures of the session store or the login rate limit counter.
	ErrUnavailable = errors.New("authentication unavailable")
)

// SessionStore persists login sessions.
type SessionStore interface {
	Save(ctx context.Context, token, ownerID string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
}

// Limiter admits a request for an identity within a scope.
type Limiter interface {
	Admit(ctx context.Context, identity string, scope ratelimit.Scope) error
}

// Session is an issued login token.
type Session struct {
	Token     string
	OwnerID   string
	ExpiresAt time.Time
}

// Authenticator resolves bearer tokens to owners and issues sessions.
type Authenticator struct {
	apiTokens map[string]string
	users     map[string][]byte
	dummy     []byte
	sessions  SessionStore
	limiter   Limiter
	ttl       time.Duration
	newToken  func() string
	logger    *zap.Logger
}

// NewAuthenticator creates an Authenticator. apiTokens maps static tokens to owners,
// users maps normalized emails to bcrypt hashes.
func NewAuthenticator(
	apiTokens map[string]string,
	users map[string]string,
	sessions SessionStore,
	limiter Limiter,
	ttl time.Duration,
	logger *zap.Logger,
) (*Authenticator, error) {
	newToken, err := nanoid.Standard(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("init token generator: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	// Unknown emails are compared against this hash so both paths cost one bcrypt run.
	dummy, err := bcrypt.GenerateFromPassword([]byte(newToken()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("init dummy hash: %w", err)
	}

	hashes := make(map[string][]byte, len(users))
	for email, hash := range users {
		hashes[NormalizeEmail(email)] = []byte(hash)
	}

	return &Authenticator{
		apiTokens: apiTokens,
		users:     hashes,
		dummy:     dummy,
		sessions:  sessions,
		limiter:   limiter,
		ttl:       ttl,
		newToken:  newToken,
		logger:    logger,
	}, nil
}

// Authenticate returns the owner for a bearer token.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	if owner, ok := a.apiTokens[token]; ok {
		return owner, nil
	}

	owner, err := a.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrUnauthenticated
		}

		return "", fmt.Errorf("%w: get session: %w", ErrUnavailable, err)
	}

	return owner, nil
}

// Login checks the login rate limit for email, then the password, and issues a session.
// The owner of a login session is the normalized email.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	if err := a.limiter.Admit(ctx, email, ratelimit.ScopeLogin); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			a.logger.Warn("login rate limit exceeded", zap.String("email", MaskEmail(email)))

			return nil, err
		}

		return nil, fmt.Errorf("%w: login rate limit: %w", ErrUnavailable, err)
	}

	hash, ok := a.users[email]
	if !ok {
		hash = a.dummy
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		a.logger.Warn("login failed", zap.String("email", MaskEmail(email)))

		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:     a.newToken(),
		OwnerID:   email,
		ExpiresAt: time.Now().Add(a.ttl),
	}

	if err := a.sessions.Save(ctx, session.Token, session.OwnerID, a.ttl); err != nil {
		return nil, fmt.Errorf("%w: save session: %w", ErrUnavailable, err)
	}

	a.logger.Info("login succeeded", zap.String("email", MaskEmail(email)))

	return session, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaskEmail keeps the first three characters of the local part and the domain.
// Example: john.doe@example.com -> joh***@example.com
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}

	if len(local) > 3 {
		local = local[:3]
	}

	return local + "***@" + domain
}
