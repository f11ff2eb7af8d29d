package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/safelink/internal/auth"
	"github.com/serroba/safelink/internal/middleware"
	"github.com/serroba/safelink/internal/quota"
	"github.com/serroba/safelink/internal/ratelimit"
	"github.com/serroba/safelink/internal/shortener"
	"github.com/serroba/safelink/internal/urlsafety"
)

// notFoundMessage does not reveal whether a code was never issued or is malformed.
const notFoundMessage = "This is a 404 error, which means you've entered an invalid URL"

// toHTTPError maps service errors to API errors.
func toHTTPError(err error) error {
	var (
		rejected *urlsafety.ValidationError
		exceeded *quota.ExceededError
		limited  *ratelimit.LimitExceeded
	)

	switch {
	case errors.As(err, &rejected):
		return huma.Error422UnprocessableEntity("URL " + rejected.Reason.Message())
	case errors.As(err, &exceeded):
		return huma.Error422UnprocessableEntity(
			fmt.Sprintf("link limit reached: an account can hold at most %d links", exceeded.Limit))
	case errors.As(err, &limited):
		return huma.ErrorWithHeaders(
			huma.Error429TooManyRequests("rate limit exceeded, try again later"),
			http.Header{"Retry-After": {middleware.RetryAfterSeconds(limited.RetryAfter)}},
		)
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound(notFoundMessage)
	case errors.Is(err, shortener.ErrMissingOwner), errors.Is(err, auth.ErrUnauthenticated):
		return huma.Error401Unauthorized("authentication required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return huma.Error401Unauthorized("Invalid email address or password")
	case errors.Is(err, shortener.ErrUnavailable), errors.Is(err, auth.ErrUnavailable):
		return huma.Error503ServiceUnavailable("service temporarily unavailable")
	default:
		return huma.Error500InternalServerError("internal server error")
	}
}

// rejection describes an admission rejection for the rejected-link event.
// ok is false for errors that are not admission decisions.
func rejection(err error) (stage, reason string, ok bool) {
	var (
		rejected *urlsafety.ValidationError
		limited  *ratelimit.LimitExceeded
	)

	switch {
	case errors.As(err, &rejected):
		return shortener.StageValidation, string(rejected.Reason), true
	case errors.Is(err, quota.ErrQuotaExceeded):
		return shortener.StageQuota, "limit_reached", true
	case errors.As(err, &limited):
		return shortener.StageRateLimit, string(limited.Scope), true
	default:
		return "", "", false
	}
}
