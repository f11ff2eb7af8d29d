package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/safelink/internal/ratelimit"
	"go.uber.org/zap"
)

// MetadataKey is the operation metadata key for per-endpoint rate limit configuration.
const MetadataKey = "ratelimit"

// EndpointConfig configures the global per-IP limit for an endpoint.
type EndpointConfig struct {
	// Disabled skips the global limit for this endpoint.
	Disabled bool
}

// GetEndpointConfig extracts the endpoint configuration from operation metadata.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	if cfg, ok := op.Metadata[MetadataKey].(EndpointConfig); ok {
		return &cfg
	}

	return nil
}

// GlobalRateLimiter returns a Huma middleware that admits every request against
// the global scope, keyed by client IP. Store failures reject with 503.
func GlobalRateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if cfg := GetEndpointConfig(ctx); cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		ip := MetaFromContext(ctx.Context()).ClientIP
		if ip == "" {
			ip = extractClientIP(ctx, false)
		}

		err := limiter.Admit(ctx.Context(), ip, ratelimit.ScopeGlobal)
		if err == nil {
			next(ctx)

			return
		}

		var exceeded *ratelimit.LimitExceeded
		if errors.As(err, &exceeded) {
			logger.Warn("rate limit exceeded",
				zap.String("path", operationPath(ctx)),
				zap.String("method", ctx.Method()),
				zap.String("scope", string(exceeded.Scope)),
				zap.Int64("count", exceeded.Count),
				zap.Int64("max", exceeded.Config.Max),
				zap.String("client_ip", ip),
			)
			ctx.SetHeader("Retry-After", RetryAfterSeconds(exceeded.RetryAfter))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		logger.Error("rate limit check failed", zap.String("path", operationPath(ctx)), zap.Error(err))
		_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "service temporarily unavailable")
	}
}

// RetryAfterSeconds formats d as a Retry-After value, rounded up to whole seconds.
func RetryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}

	return strconv.FormatInt(secs, 10)
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}
