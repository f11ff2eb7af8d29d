package handlers

import "time"

// EncodeRequest is the request body for creating a short link.
type EncodeRequest struct {
	Body struct {
		ShortURL struct {
			URL string `doc:"The URL to shorten" example:"https://codesubmit.io/library/react" json:"url" minLength:"1"`
		} `json:"shortUrl"`
	}
}

// EncodeResponse is the response for a successfully created short link.
type EncodeResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Message string `json:"message"`
		Data    struct {
			EncodedURL  string `doc:"The full short URL" example:"http://localhost:8888/api/v1/short_urls/decode/Xk9aQ2" json:"encodedUrl"`
			Code        string `doc:"The short code"     example:"Xk9aQ2"                                                json:"code"`
			OriginalURL string `doc:"The original URL"   example:"https://codesubmit.io/library/react"                   json:"originalUrl"`
		} `json:"data"`
	}
}

// DecodeRequest is the request for resolving a short code.
type DecodeRequest struct {
	Code string `doc:"The short code" example:"Xk9aQ2" maxLength:"64" path:"code"`
}

// DecodeResponse carries the original URL of a short code.
type DecodeResponse struct {
	Body struct {
		Message string `json:"message"`
		Data    struct {
			DecodedURL string `doc:"The original URL" example:"https://codesubmit.io/library/react" json:"decodedUrl"`
		} `json:"data"`
	}
}

// LinkItem is one entry of a link listing.
type LinkItem struct {
	Code        string    `json:"code"`
	EncodedURL  string    `json:"encodedUrl"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListResponse lists the caller's links.
type ListResponse struct {
	Body struct {
		Data struct {
			Count int        `json:"count"`
			Links []LinkItem `json:"links"`
		} `json:"data"`
	}
}

// LoginRequest is the request body for creating a session.
type LoginRequest struct {
	Body struct {
		EmailAddress string `example:"user@example.com" format:"email" json:"emailAddress" minLength:"3"`
		Password     string `json:"password"           minLength:"1"`
	}
}

// LoginResponse carries a new session token.
type LoginResponse struct {
	Body struct {
		Message string `json:"message"`
		Data    struct {
			Token     string    `json:"token"`
			OwnerID   string    `json:"ownerId"`
			ExpiresAt time.Time `json:"expiresAt"`
		} `json:"data"`
	}
}
