package constants

import "time"

const (
	DefaultMaxGuesses   = 6
	DefaultWinTolerance = 4
	DefaultDailyLossCap = 5
)

const (
	// HistoryCapacity bounds the recently served ring; oldest ids are
	// evicted first once the ring is full.
	HistoryCapacity = 25

	// SelectAttempts bounds how many candidate resolutions a single
	// round fetch may cost before giving up.
	SelectAttempts = 10

	// MaxCallerExcludes caps the exclude list a client may pass on the
	// round-fetch endpoint; only the most recent entries are honored.
	MaxCallerExcludes = 15
)

const (
	FeaturedCacheTTL = 1 * time.Hour
	CatalogCacheTTL  = 12 * time.Hour
)

const (
	SessionCookieName = "session_id"
)

const (
	RouteGame   = "/api/game"
	RouteGuess  = "/api/guess"
	RouteState  = "/api/state"
	RouteStats  = "/api/stats"
	RouteHealth = "/healthz"
)

const (
	ErrorCodeNoRound       = "no_active_round"
	ErrorCodeRoundOver     = "round_over"
	ErrorCodeInvalidGuess  = "invalid_guess"
	ErrorCodeDailyLimit    = "daily_limit_reached"
	ErrorCodeNoTitles      = "no_eligible_titles"
	ErrorCodeUpstreamError = "upstream_error"
)

const (
	// StatsKeyPrefix scopes one Stats Snapshot per player session.
	StatsKeyPrefix = "steamcodle:stats:"

	// HistoryKey holds the process-wide recently served ring.
	HistoryKey = "steamcodle:recent_apps"
)

const (
	RequestIDKey ContextKey = "request_id"
)

type ContextKey string
