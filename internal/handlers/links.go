package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/serroba/safelink/internal/analytics"
	"github.com/serroba/safelink/internal/messaging"
	"github.com/serroba/safelink/internal/middleware"
	"github.com/serroba/safelink/internal/shortener"
	"go.uber.org/zap"
)

// DecodePath is the public route prefix of short links.
const DecodePath = "/api/v1/short_urls/decode/"

// LinkService creates, resolves and lists short links.
type LinkService interface {
	CreateLink(ctx context.Context, ownerID, raw string) (*shortener.ShortLink, error)
	ResolveLink(ctx context.Context, callerIP string, code shortener.Code) (*shortener.ShortLink, error)
	ListLinks(ctx context.Context, ownerID string) ([]*shortener.ShortLink, error)
}

// LinkHandler handles short link operations.
type LinkHandler struct {
	service    LinkService
	baseURL    string
	publishers *analytics.Publishers
	logger     *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	service LinkService,
	baseURL string,
	publishers *analytics.Publishers,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		service:    service,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		publishers: publishers,
		logger:     logger,
	}
}

func (h *LinkHandler) Encode(ctx context.Context, req *EncodeRequest) (*EncodeResponse, error) {
	owner := middleware.OwnerFromContext(ctx)
	meta := middleware.MetaFromContext(ctx)
	ctx = messaging.ContextWithCorrelationID(ctx, meta.RequestID)
	raw := req.Body.ShortURL.URL

	link, err := h.service.CreateLink(ctx, owner, raw)
	if err != nil {
		if stage, reason, ok := rejection(err); ok {
			h.publishRejected(ctx, &analytics.LinkRejectedEvent{
				Stage:      stage,
				Reason:     reason,
				OwnerID:    owner,
				RawURL:     redactURL(raw),
				RejectedAt: time.Now().UTC(),
				ClientIP:   meta.ClientIP,
				RequestID:  meta.RequestID,
			})
		}

		return nil, toHTTPError(err)
	}

	event := &analytics.LinkCreatedEvent{
		ID:          link.ID,
		Code:        string(link.Code),
		OwnerID:     link.OwnerID,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		RequestID:   meta.RequestID,
	}

	if err := h.publishers.Created(ctx, event); err != nil {
		h.logger.Error("failed to publish analytics event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	encoded := h.encodedURL(link.Code)

	resp := &EncodeResponse{}
	resp.Headers.Location = encoded
	resp.Body.Message = "Link encoded successfully"
	resp.Body.Data.EncodedURL = encoded
	resp.Body.Data.Code = string(link.Code)
	resp.Body.Data.OriginalURL = link.OriginalURL

	return resp, nil
}

func (h *LinkHandler) Decode(ctx context.Context, req *DecodeRequest) (*DecodeResponse, error) {
	meta := middleware.MetaFromContext(ctx)
	ctx = messaging.ContextWithCorrelationID(ctx, meta.RequestID)

	link, err := h.service.ResolveLink(ctx, meta.ClientIP, shortener.Code(req.Code))
	if err != nil {
		if stage, reason, ok := rejection(err); ok {
			h.publishRejected(ctx, &analytics.LinkRejectedEvent{
				Stage:      stage,
				Reason:     reason,
				RejectedAt: time.Now().UTC(),
				ClientIP:   meta.ClientIP,
				RequestID:  meta.RequestID,
			})
		}

		return nil, toHTTPError(err)
	}

	event := &analytics.LinkResolvedEvent{
		Code:       req.Code,
		ResolvedAt: time.Now().UTC(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
		RequestID:  meta.RequestID,
	}

	if err := h.publishers.Resolved(ctx, event); err != nil {
		h.logger.Error("failed to publish access event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &DecodeResponse{}
	resp.Body.Message = "Link decoded successfully"
	resp.Body.Data.DecodedURL = link.OriginalURL

	return resp, nil
}

func (h *LinkHandler) List(ctx context.Context, _ *struct{}) (*ListResponse, error) {
	links, err := h.service.ListLinks(ctx, middleware.OwnerFromContext(ctx))
	if err != nil {
		return nil, toHTTPError(err)
	}

	resp := &ListResponse{}
	resp.Body.Data.Links = make([]LinkItem, 0, len(links))

	for _, link := range links {
		resp.Body.Data.Links = append(resp.Body.Data.Links, LinkItem{
			Code:        string(link.Code),
			EncodedURL:  h.encodedURL(link.Code),
			OriginalURL: link.OriginalURL,
			CreatedAt:   link.CreatedAt,
		})
	}

	resp.Body.Data.Count = len(resp.Body.Data.Links)

	return resp, nil
}

func (h *LinkHandler) encodedURL(code shortener.Code) string {
	return fmt.Sprintf("%s%s%s", h.baseURL, DecodePath, code)
}

func (h *LinkHandler) publishRejected(ctx context.Context, event *analytics.LinkRejectedEvent) {
	if err := h.publishers.Rejected(ctx, event); err != nil {
		h.logger.Error("failed to publish rejection event",
			zap.String("stage", event.Stage),
			zap.Error(err),
		)
	}
}

// redactURL masks the password of a submitted URL before it leaves the process.
func redactURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.User == nil {
		return raw
	}

	return u.Redacted()
}

// Compile-time check.
var _ LinkService = (*shortener.Service)(nil)
