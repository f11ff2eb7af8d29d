package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/safelink/internal/auth"
	"go.uber.org/zap"
)

// SecurityScheme is the OpenAPI security scheme name for bearer tokens.
const SecurityScheme = "bearer"

type ownerKey struct{}

// Authenticator resolves a bearer token to an owner id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// ContextWithOwner adds the authenticated owner to context.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the authenticated owner, or "" when the request is anonymous.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)

	return owner
}

// Authenticate is a middleware that requires a valid bearer token on operations
// declaring the bearer security scheme. Other operations pass through untouched.
func Authenticate(
	api huma.API,
	authn Authenticator,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !requiresAuth(ctx.Operation()) {
			next(ctx)

			return
		}

		token, ok := bearerToken(ctx.Header("Authorization"))
		if !ok {
			ctx.SetHeader("WWW-Authenticate", `Bearer realm="safelink"`)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer token")

			return
		}

		owner, err := authn.Authenticate(ctx.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				ctx.SetHeader("WWW-Authenticate", `Bearer realm="safelink", error="invalid_token"`)
				_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid or expired token")

				return
			}

			logger.Error("authentication failed", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "authentication unavailable")

			return
		}

		ctx = huma.WithContext(ctx, ContextWithOwner(ctx.Context(), owner))

		next(ctx)
	}
}

func requiresAuth(op *huma.Operation) bool {
	if op == nil {
		return false
	}

	for _, req := range op.Security {
		if _, ok := req[SecurityScheme]; ok {
			return true
		}
	}

	return false
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
