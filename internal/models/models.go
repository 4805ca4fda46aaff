// Package models holds the request/response shapes, domain records and
// sentinel errors shared by the storage, service and router layers.
package models

import "errors"

// ShortLink is a stored short code together with its ad counters.
type ShortLink struct {
	ID          int64  `json:"id"`
	Short       string `json:"short"`
	Long        string `json:"long"`
	UserID      int64  `json:"user_id"`
	Clicks      int64  `json:"clicks"`
	Impressions int64  `json:"impressions"`
}

type ShortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type ShortenResponse struct {
	Result string `json:"result"`
}

// UserURL is one row of a user's link listing.
type UserURL struct {
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	Clicks      int64  `json:"clicks"`
	Impressions int64  `json:"impressions"`
}

type UserUrls []UserURL

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	Revenue     float64 `json:"revenue"`
}

type InternalStatsResponse struct {
	URLs  int64 `json:"urls"`
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// AdChain selects how many interstitial pages a visitor passes before the final redirect.
type AdChain string

const (
	// AdChainDirect counts an impression and a click and redirects right away.
	AdChainDirect AdChain = "direct"

	// AdChainSingle renders the ad page at the entry URL.
	AdChainSingle AdChain = "single"

	// AdChainDouble forwards the entry URL to a separate impression page.
	AdChainDouble AdChain = "double"
)

// StepKind tells the router what to do with a ChainStep.
type StepKind int

const (
	StepExternalRedirect StepKind = iota
	StepInternalRedirect
	StepRenderAd
)

// ChainStep is the outcome of one hop of the redirect chain.
type ChainStep struct {
	Kind     StepKind
	Location string
}

var (
	ErrUsernameTaken             = errors.New("username already exists")
	ErrInvalidCredentials        = errors.New("invalid username or password")
	ErrShortCodeTaken            = errors.New("short code already exists")
	ErrShortCodeAttemptsExceeded = errors.New("the number of attempts to generate a unique short code has been exceeded")
	ErrLinkNotFound              = errors.New("short link not found")
	ErrInvalidURL                = errors.New("there is no valid http(s) URL in the request")
	ErrPasswordTooLong           = errors.New("password is longer than 72 bytes")
)
