package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/safelink/internal/quota"
	"github.com/serroba/safelink/internal/ratelimit"
	"github.com/serroba/safelink/internal/urlsafety"
	"go.uber.org/zap"
)

// DefaultListLimit caps ListLinks.
const DefaultListLimit = 100

// Admission stages reported to the Observer.
const (
	StageRateLimit  = "rate_limit"
	StageQuota      = "quota"
	StageValidation = "validation"
	StageStore      = "store"
)

// Admission outcomes reported to the Observer.
const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// URLValidator decides whether a raw URL is safe to store.
type URLValidator interface {
	Validate(ctx context.Context, raw string) urlsafety.Outcome
}

// Limiter admits a request for an identity within a scope.
type Limiter interface {
	Admit(ctx context.Context, identity string, scope ratelimit.Scope) error
}

// QuotaEnforcer admits a new link for an owner.
type QuotaEnforcer interface {
	Admit(ctx context.Context, ownerID string) error
}

// Observer receives one call per admission stage a request passes or fails.
type Observer interface {
	ObserveAdmission(stage, outcome, reason string)
}

type noopObserver struct{}

func (noopObserver) ObserveAdmission(string, string, string) {}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithObserver reports admission decisions to o.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// WithNow overrides time.Now for CreatedAt.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// Service runs every create and resolve request through the admission pipeline.
type Service struct {
	store     Repository
	allocator *Allocator
	validator URLValidator
	quota     QuotaEnforcer
	limiter   Limiter
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the admission pipeline.
func NewService(
	store Repository,
	allocator *Allocator,
	validator URLValidator,
	quota QuotaEnforcer,
	limiter Limiter,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		store:     store,
		allocator: allocator,
		validator: validator,
		quota:     quota,
		limiter:   limiter,
		observer:  noopObserver{},
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateLink validates raw and stores it for owner under a fresh code.
// Checks run in order: create rate limit, quota, URL safety. The first failure
// is returned and nothing is stored.
func (s *Service) CreateLink(ctx context.Context, ownerID, raw string) (*ShortLink, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	if err := s.admitRate(ctx, ownerID, ratelimit.ScopeCreate); err != nil {
		return nil, err
	}

	if err := s.admitQuota(ctx, ownerID); err != nil {
		return nil, err
	}

	if err := s.admitURL(ctx, raw); err != nil {
		return nil, err
	}

	link := &ShortLink{
		OwnerID:     ownerID,
		OriginalURL: urlsafety.Normalize(raw),
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Insert(ctx, link); err != nil {
		s.observer.ObserveAdmission(StageStore, OutcomeError, "insert")

		return nil, fmt.Errorf("%w: insert link: %w", ErrUnavailable, err)
	}

	code, err := s.allocator.Encode(link.ID)
	if err == nil {
		err = s.store.AttachCode(ctx, link.ID, code)
	}

	if err != nil {
		s.discard(ctx, link.ID, err)
		s.observer.ObserveAdmission(StageStore, OutcomeError, "attach_code")

		return nil, fmt.Errorf("%w: attach code: %w", ErrUnavailable, err)
	}

	link.Code = code

	s.observer.ObserveAdmission(StageStore, OutcomeAdmitted, "")
	s.logger.Info("link created",
		zap.String("owner", ownerID),
		zap.String("code", string(code)),
		zap.Int64("id", link.ID),
	)

	return link, nil
}

// ResolveLink returns the visible link for code. Resolves are limited per caller IP.
func (s *Service) ResolveLink(ctx context.Context, callerIP string, code Code) (*ShortLink, error) {
	if err := s.admitRate(ctx, callerIP, ratelimit.ScopeResolve); err != nil {
		return nil, err
	}

	if _, err := s.allocator.Decode(code); err != nil {
		return nil, err
	}

	link, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		s.logger.Error("resolve lookup failed", zap.String("code", string(code)), zap.Error(err))

		return nil, fmt.Errorf("%w: get link: %w", ErrUnavailable, err)
	}

	return link, nil
}

// ListLinks returns the owner's visible links, newest first.
func (s *Service) ListLinks(ctx context.Context, ownerID string) ([]*ShortLink, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	links, err := s.store.ListByOwner(ctx, ownerID, DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list links: %w", ErrUnavailable, err)
	}

	return links, nil
}

func (s *Service) admitRate(ctx context.Context, identity string, scope ratelimit.Scope) error {
	err := s.limiter.Admit(ctx, identity, scope)

	switch {
	case err == nil:
		s.observer.ObserveAdmission(StageRateLimit, OutcomeAdmitted, string(scope))

		return nil
	case errors.Is(err, ratelimit.ErrRateLimited):
		s.observer.ObserveAdmission(StageRateLimit, OutcomeRejected, string(scope))
		s.logger.Warn("rate limit exceeded",
			zap.String("scope", string(scope)),
			zap.String("identity", identity),
		)

		return err
	default:
		s.observer.ObserveAdmission(StageRateLimit, OutcomeError, string(scope))
		s.logger.Error("rate limiter unavailable", zap.String("scope", string(scope)), zap.Error(err))

		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (s *Service) admitQuota(ctx context.Context, ownerID string) error {
	err := s.quota.Admit(ctx, ownerID)

	switch {
	case err == nil:
		s.observer.ObserveAdmission(StageQuota, OutcomeAdmitted, "")

		return nil
	case errors.Is(err, quota.ErrQuotaExceeded):
		s.observer.ObserveAdmission(StageQuota, OutcomeRejected, "limit_reached")
		s.logger.Warn("link quota exceeded", zap.String("owner", ownerID))

		return err
	default:
		s.observer.ObserveAdmission(StageQuota, OutcomeError, "")
		s.logger.Error("quota check failed", zap.String("owner", ownerID), zap.Error(err))

		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (s *Service) admitURL(ctx context.Context, raw string) error {
	outcome := s.validator.Validate(ctx, raw)
	if outcome.Accepted() {
		s.observer.ObserveAdmission(StageValidation, OutcomeAdmitted, "")

		return nil
	}

	s.observer.ObserveAdmission(StageValidation, OutcomeRejected, string(outcome.Reason))
	s.logger.Warn("url rejected",
		zap.String("reason", string(outcome.Reason)),
		zap.String("detail", outcome.Detail),
	)

	return outcome.Err()
}

// discard removes a row whose code could not be attached. It runs even when
// the request context is already cancelled.
func (s *Service) discard(ctx context.Context, id int64, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("failed to discard pending link",
			zap.Int64("id", id),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	}
}
