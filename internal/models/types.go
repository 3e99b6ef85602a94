package models

import (
	"strings"
	"time"
)

// Title is one candidate game resolved from the Steam catalog. Immutable
// once fetched; ReviewScore is the guessing target.
type Title struct {
	ID                 int      `json:"id"`
	Kind               string   `json:"kind"`
	Name               string   `json:"name"`
	ImageURL           string   `json:"imageUrl"`
	Description        string   `json:"description"`
	Genres             []string `json:"genres"`
	ReviewScore        *int     `json:"reviewScore,omitempty"`
	ReviewSummaryLabel string   `json:"reviewSummaryLabel,omitempty"`
	PositiveCount      *int     `json:"positiveCount,omitempty"`
	NegativeCount      *int     `json:"negativeCount,omitempty"`
	TotalReviewCount   *int     `json:"totalReviewCount,omitempty"`
}

// Eligible reports whether the title may be served: base games only, with
// enough review volume for the approval percentage to be meaningful.
func (t *Title) Eligible() bool {
	if !strings.EqualFold(t.Kind, "game") {
		return false
	}
	return t.TotalReviewCount != nil && *t.TotalReviewCount >= 100
}

// Redacted returns a copy of the title with every field the answer could
// be read or derived from withheld: the score itself, the review counts
// and the summary label that brackets it.
func (t *Title) Redacted() *Title {
	copied := *t
	copied.ReviewScore = nil
	copied.ReviewSummaryLabel = ""
	copied.PositiveCount = nil
	copied.NegativeCount = nil
	copied.TotalReviewCount = nil
	return &copied
}

// Round is the ephemeral per-session state for one served title.
type Round struct {
	Title          *Title    `json:"title"`
	Guesses        []int     `json:"guesses"`
	Resolved       bool      `json:"resolved"`
	Won            bool      `json:"won"`
	LastAccessTime time.Time `json:"lastAccessTime"`
}

// StatsSnapshot is the durable per-player record, persisted as one JSON
// value and read-modify-written as a whole. Version 0 snapshots carried a
// playedToday counter which is migrated to lossesToday on load.
type StatsSnapshot struct {
	Version        int    `json:"version"`
	TotalGuesses   int    `json:"totalGuesses"`
	CorrectGames   int    `json:"correctGames"`
	IncorrectGames int    `json:"incorrectGames"`
	CurrentStreak  int    `json:"currentStreak"`
	BestStreak     int    `json:"bestStreak"`
	LastPlayedDate string `json:"lastPlayedDate,omitempty"`
	LossesToday    int    `json:"lossesToday"`
	PlayedToday    int    `json:"playedToday,omitempty"`
}

// Config collects every game-policy and server knob read from the
// environment at startup.
type Config struct {
	MaxGuesses     int
	WinTolerance   int
	DailyLossCap   int
	Unlimited      bool
	CookieMaxAge   time.Duration
	SessionTTL     time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	RateLimiterTTL time.Duration
	RedisAddr      string
	IsProduction   bool
}
