// Package game holds the round state machine: guess bookkeeping, win/loss
// detection and the day-scoped play limiter over persisted stats.
package game

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SantiZetina/steamcodle/internal/clock"
	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/models"
	"github.com/SantiZetina/steamcodle/internal/repositories/progress"
	"github.com/SantiZetina/steamcodle/internal/util"
)

const dayFormat = "2006-01-02"

var (
	ErrNoActiveRound     = errors.New(constants.ErrorCodeNoRound)
	ErrRoundOver         = errors.New(constants.ErrorCodeRoundOver)
	ErrInvalidGuess      = errors.New(constants.ErrorCodeInvalidGuess)
	ErrDailyLimitReached = errors.New(constants.ErrorCodeDailyLimit)
)

// Selector resolves the next title to serve.
type Selector interface {
	SelectTitle(ctx context.Context, exclude map[int]struct{}) (*models.Title, error)
}

// Config holds the game policy surface.
type Config struct {
	MaxGuesses   int
	WinTolerance int

	// DailyLossCap bounds losses per UTC calendar day; wins never count
	// against it.
	DailyLossCap int

	// Unlimited disables the day-scoped limiter entirely (dev mode).
	Unlimited bool

	Clock clock.Clock
}

// Service implements the round state machine over per-session rounds.
type Service struct {
	config   *Config
	selector Selector
	repo     progress.Repository
	clock    clock.Clock

	mu     sync.RWMutex
	rounds map[string]*models.Round
}

// NewService creates the game service.
func NewService(cfg *Config, selector Selector, repo progress.Repository) (*Service, error) {
	if selector == nil || repo == nil {
		return nil, errors.New("selector and repo cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxGuesses <= 0 {
		cfg.MaxGuesses = constants.DefaultMaxGuesses
	}
	if cfg.WinTolerance <= 0 {
		cfg.WinTolerance = constants.DefaultWinTolerance
	}
	if cfg.DailyLossCap <= 0 {
		cfg.DailyLossCap = constants.DefaultDailyLossCap
	}
	c := cfg.Clock
	if c == nil {
		c = &clock.DefaultClock{}
	}
	return &Service{
		config:   cfg,
		selector: selector,
		repo:     repo,
		clock:    c,
		rounds:   make(map[string]*models.Round),
	}, nil
}

// MaxGuesses exposes the configured attempt bound.
func (s *Service) MaxGuesses() int { return s.config.MaxGuesses }

// StartRound begins a new round for the session. An unresolved round left
// behind counts as a loss before it is discarded, and a session at its
// daily loss cap is refused before any upstream call is made.
func (s *Service) StartRound(ctx context.Context, sessionID string, exclude map[int]struct{}) (*models.Round, error) {
	stats, err := s.loadStats(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	abandoned := s.rounds[sessionID]
	delete(s.rounds, sessionID)
	s.mu.Unlock()

	dirty := false
	if abandoned != nil && !abandoned.Resolved {
		s.finalizeLoss(abandoned, stats)
		dirty = true
		util.LogInfo("Session %s abandoned an unresolved round, counted as loss", sessionID)
	}
	if dirty {
		if err := s.saveStats(ctx, sessionID, stats); err != nil {
			return nil, err
		}
	}

	if !s.config.Unlimited && stats.LossesToday >= s.config.DailyLossCap {
		return nil, ErrDailyLimitReached
	}

	title, err := s.selector.SelectTitle(ctx, exclude)
	if err != nil {
		return nil, err
	}

	round := &models.Round{
		Title:          title,
		Guesses:        []int{},
		LastAccessTime: s.clock.Now(),
	}
	s.mu.Lock()
	s.rounds[sessionID] = round
	s.mu.Unlock()

	util.LogInfo("Session %s started round with title %d (%s)", sessionID, title.ID, title.Name)
	return copyRound(round), nil
}

// SubmitGuess validates and applies one guess. Invalid input is rejected
// before any state or counter changes.
func (s *Service) SubmitGuess(ctx context.Context, sessionID, input string) (*models.Round, error) {
	guess, err := parseGuess(input)
	if err != nil {
		return nil, err
	}

	stats, err := s.loadStats(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	round, err := s.applyGuess(sessionID, guess, stats)
	if err != nil {
		return nil, err
	}

	if err := s.saveStats(ctx, sessionID, stats); err != nil {
		return nil, err
	}
	return round, nil
}

// applyGuess gates and applies one guess. Gate and mutation share one
// critical section so concurrent submissions for a session cannot all pass
// the gate and push the guess sequence past its bound.
func (s *Service) applyGuess(sessionID string, guess int, stats *models.StatsSnapshot) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, exists := s.rounds[sessionID]
	if !exists {
		return nil, ErrNoActiveRound
	}
	if round.Resolved || len(round.Guesses) >= s.config.MaxGuesses {
		return nil, ErrRoundOver
	}
	if round.Title.ReviewScore == nil {
		return nil, ErrNoActiveRound
	}

	round.Guesses = append(round.Guesses, guess)
	round.LastAccessTime = s.clock.Now()
	stats.TotalGuesses++

	actual := *round.Title.ReviewScore
	switch {
	case abs(guess-actual) <= s.config.WinTolerance:
		s.finalizeWin(round, stats)
		util.LogInfo("Session %s won in %d/%d guesses (actual %d)",
			sessionID, len(round.Guesses), s.config.MaxGuesses, actual)
	case len(round.Guesses) >= s.config.MaxGuesses:
		s.finalizeLoss(round, stats)
		util.LogInfo("Session %s lost after %d guesses (actual %d)",
			sessionID, len(round.Guesses), actual)
	}
	return copyRound(round), nil
}

// Round returns the session's current round, or nil.
func (s *Service) Round(sessionID string) *models.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, exists := s.rounds[sessionID]
	if !exists {
		return nil
	}
	return copyRound(round)
}

// Stats returns the session's day-normalized snapshot.
func (s *Service) Stats(ctx context.Context, sessionID string) (*models.StatsSnapshot, error) {
	return s.loadStats(ctx, sessionID)
}

// ActiveRounds reports the number of in-memory rounds.
func (s *Service) ActiveRounds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}

// CleanupStale drops rounds untouched for longer than ttl and reports how
// many were removed.
func (s *Service) CleanupStale(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-ttl)
	removed := 0
	for sessionID, round := range s.rounds {
		if round.LastAccessTime.Before(cutoff) {
			delete(s.rounds, sessionID)
			removed++
		}
	}
	return removed
}

// finalizeWin latches resolution; counters move at most once per round.
func (s *Service) finalizeWin(round *models.Round, stats *models.StatsSnapshot) {
	if round.Resolved {
		return
	}
	round.Resolved = true
	round.Won = true
	stats.CorrectGames++
	stats.CurrentStreak++
	if stats.CurrentStreak > stats.BestStreak {
		stats.BestStreak = stats.CurrentStreak
	}
}

// finalizeLoss latches resolution; counters move at most once per round.
func (s *Service) finalizeLoss(round *models.Round, stats *models.StatsSnapshot) {
	if round.Resolved {
		return
	}
	round.Resolved = true
	round.Won = false
	stats.IncorrectGames++
	stats.CurrentStreak = 0
	stats.LossesToday++
}

// loadStats reads the snapshot and normalizes the day-scoped fields: a
// stored date other than today resets the loss counter before any use.
func (s *Service) loadStats(ctx context.Context, sessionID string) (*models.StatsSnapshot, error) {
	stats, err := s.repo.GetStats(ctx, &progress.GetStatsInput{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	today := s.clock.Now().UTC().Format(dayFormat)
	if stats.LastPlayedDate != today {
		stats.LossesToday = 0
		stats.LastPlayedDate = today
	}
	return stats, nil
}

func (s *Service) saveStats(ctx context.Context, sessionID string, stats *models.StatsSnapshot) error {
	return s.repo.SaveStats(ctx, &progress.SaveStatsInput{SessionID: sessionID, Stats: stats})
}

// parseGuess gates raw input: trimmed, integral, within [0,100].
func parseGuess(input string) (int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidGuess
	}
	guess, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, ErrInvalidGuess
	}
	if guess < 0 || guess > 100 {
		return 0, ErrInvalidGuess
	}
	return guess, nil
}

// copyRound detaches a round from the service lock so callers can read and
// serialize it while later guesses mutate the stored one.
func copyRound(round *models.Round) *models.Round {
	copied := *round
	copied.Guesses = append([]int(nil), round.Guesses...)
	return &copied
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
