package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/safelink/internal/middleware"
)

var bearer = []map[string][]string{{middleware.SecurityScheme: {}}}

// RegisterRoutes registers the link and session routes.
func RegisterRoutes(api huma.API, links *LinkHandler, sessions *SessionHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "encode-link",
		Method:        http.MethodPost,
		Path:          "/api/v1/short_urls/encode",
		Summary:       "Create short URL",
		Description:   "Validates a URL and issues a short code for the authenticated owner.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
	}, links.Encode)

	// Resolves are limited per IP by the resolve scope, so the global limit is skipped.
	huma.Register(api, huma.Operation{
		OperationID: "decode-link",
		Method:      http.MethodGet,
		Path:        DecodePath + "{code}",
		Summary:     "Resolve short URL",
		Description: "Returns the original URL associated with the short code.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			middleware.MetadataKey: middleware.EndpointConfig{Disabled: true},
		},
	}, links.Decode)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/api/v1/short_urls",
		Summary:     "List short URLs",
		Description: "Lists the authenticated owner's links, newest first.",
		Tags:        []string{"Links"},
		Security:    bearer,
	}, links.List)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/sessions",
		Summary:     "Log in",
		Description: "Exchanges an email address and password for a session token.",
		Tags:        []string{"Sessions"},
	}, sessions.Login)
}
