// Package picker draws a random unused title from the catalog pools and
// resolves it into a playable, eligible Title.
package picker

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"github.com/samber/lo"

	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/models"
	"github.com/SantiZetina/steamcodle/internal/repositories/progress"
	"github.com/SantiZetina/steamcodle/internal/score"
	"github.com/SantiZetina/steamcodle/internal/steam"
	"github.com/SantiZetina/steamcodle/internal/util"
)

// ErrNoEligibleTitles is returned when the attempt budget runs out without
// a single resolvable, eligible candidate and no fetch error occurred.
var ErrNoEligibleTitles = errors.New("no eligible titles available")

// CatalogSource supplies the two candidate id listings.
type CatalogSource interface {
	FeaturedIDs(ctx context.Context) []int
	AllIDs(ctx context.Context) []int
}

// DetailClient resolves one candidate's detail and review data.
type DetailClient interface {
	AppDetails(ctx context.Context, appID int) (*steam.AppDetails, error)
	ReviewSummary(ctx context.Context, appID int) (*steam.ReviewSummary, error)
}

// Config holds configuration for the selector.
type Config struct {
	Catalog CatalogSource
	Client  DetailClient
	Repo    progress.Repository

	// Attempts bounds resolution cost per round fetch; zero selects the
	// default budget.
	Attempts int

	// HistorySize bounds the recently served ring; zero selects the
	// default capacity.
	HistorySize int
}

// Selector owns the recently served ring and the candidate draw loop. One
// instance per process; the ring is shared across sessions.
type Selector struct {
	catalog     CatalogSource
	client      DetailClient
	repo        progress.Repository
	attempts    int
	historySize int

	mu      sync.Mutex
	history []int
}

// NewSelector creates a candidate selector.
func NewSelector(cfg *Config) (*Selector, error) {
	if cfg == nil || cfg.Catalog == nil || cfg.Client == nil || cfg.Repo == nil {
		return nil, errors.New("selector config, catalog, client and repo cannot be nil")
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = constants.SelectAttempts
	}
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = constants.HistoryCapacity
	}
	return &Selector{
		catalog:     cfg.Catalog,
		client:      cfg.Client,
		repo:        cfg.Repo,
		attempts:    attempts,
		historySize: historySize,
	}, nil
}

// LoadHistory primes the ring from the persisted value. Called once at
// startup; a missing value starts the ring empty.
func (s *Selector) LoadHistory(ctx context.Context) error {
	ids, err := s.repo.GetHistory(ctx)
	if err != nil {
		return err
	}
	if len(ids) > s.historySize {
		ids = ids[len(ids)-s.historySize:]
	}
	s.mu.Lock()
	s.history = ids
	s.mu.Unlock()
	util.LogInfo("Loaded %d recently served ids", len(ids))
	return nil
}

// History returns a copy of the ring contents, oldest first.
func (s *Selector) History() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.history))
	copy(out, s.history)
	return out
}

type pool struct {
	ids      []int
	filtered bool
}

// SelectTitle draws and resolves a random eligible title, avoiding the
// caller's excludes and the recently served ring. The avoidance is a bias,
// not a guarantee: when exclusion has consumed every pool, the raw pools
// are used and repeats become possible.
func (s *Selector) SelectTitle(ctx context.Context, exclude map[int]struct{}) (*models.Title, error) {
	// The two listings have no ordering dependency; refresh them
	// concurrently.
	featuredCh := make(chan []int, 1)
	go func() {
		featuredCh <- s.catalog.FeaturedIDs(ctx)
	}()
	full := s.catalog.AllIDs(ctx)
	featured := <-featuredCh

	excluded := make(map[int]struct{}, len(exclude)+s.historySize)
	for id := range exclude {
		excluded[id] = struct{}{}
	}
	s.mu.Lock()
	for _, id := range s.history {
		excluded[id] = struct{}{}
	}
	s.mu.Unlock()

	var lastErr error
	attempts := 0
	for attempts < s.attempts {
		pools := buildPools([][]int{featured, full}, excluded)
		if len(pools) == 0 {
			break
		}

		// Uniform over pools, not over combined ids: the small
		// featured set is drawn as often as the huge full catalog.
		chosen := pools[randIndex(len(pools))]
		id := chosen.ids[randIndex(len(chosen.ids))]

		if chosen.filtered {
			if _, ok := excluded[id]; ok {
				// Stale draw; retry without spending a fetch.
				continue
			}
		}

		attempts++
		title, err := s.resolve(ctx, id)
		if err != nil {
			util.LogWarn("Failed to resolve candidate %d: %v", id, err)
			lastErr = err
			continue
		}
		if !title.Eligible() {
			continue
		}

		s.pushHistory(ctx, id)
		excluded[id] = struct{}{}
		return title, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoEligibleTitles
}

// buildPools returns the exclusion-filtered pools, or the raw ones when
// filtering empties every catalog.
func buildPools(catalogs [][]int, excluded map[int]struct{}) []pool {
	var pools []pool
	for _, ids := range catalogs {
		filtered := lo.Filter(ids, func(id int, _ int) bool {
			_, ok := excluded[id]
			return !ok
		})
		if len(filtered) > 0 {
			pools = append(pools, pool{ids: filtered, filtered: true})
		}
	}
	if len(pools) > 0 {
		return pools
	}
	for _, ids := range catalogs {
		if len(ids) > 0 {
			pools = append(pools, pool{ids: ids, filtered: false})
		}
	}
	return pools
}

// resolve fetches detail and review data for one candidate. Both are
// required before eligibility can be judged, so they run concurrently.
func (s *Selector) resolve(ctx context.Context, id int) (*models.Title, error) {
	type detailResult struct {
		details *steam.AppDetails
		err     error
	}
	detailCh := make(chan detailResult, 1)
	go func() {
		details, err := s.client.AppDetails(ctx, id)
		detailCh <- detailResult{details: details, err: err}
	}()

	summary, reviewErr := s.client.ReviewSummary(ctx, id)
	detail := <-detailCh

	if detail.err != nil {
		return nil, detail.err
	}
	if reviewErr != nil {
		return nil, reviewErr
	}

	title := &models.Title{
		ID:          id,
		Kind:        detail.details.Type,
		Name:        detail.details.Name,
		ImageURL:    detail.details.HeaderImage,
		Description: detail.details.ShortDescription,
		Genres: lo.Map(detail.details.Genres, func(g steam.Genre, _ int) string {
			return g.Description
		}),
		ReviewSummaryLabel: summary.ReviewScoreDesc,
	}

	positive := summary.TotalPositive
	negative := summary.TotalNegative
	total := summary.TotalReviews
	title.PositiveCount = &positive
	title.NegativeCount = &negative
	title.TotalReviewCount = &total

	var fallback *float64
	if detail.details.Metacritic != nil {
		fallback = &detail.details.Metacritic.Score
	}
	if value, ok := score.Normalize(&positive, &total, fallback); ok {
		title.ReviewScore = &value
	}

	return title, nil
}

// pushHistory appends to the ring, evicting the oldest beyond capacity,
// and persists the new contents. A persistence failure costs durability
// only, never the round.
func (s *Selector) pushHistory(ctx context.Context, id int) {
	s.mu.Lock()
	s.history = append(s.history, id)
	if len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
	ids := make([]int, len(s.history))
	copy(ids, s.history)
	s.mu.Unlock()

	if err := s.repo.SaveHistory(ctx, &progress.SaveHistoryInput{IDs: ids}); err != nil {
		util.LogWarn("Failed to persist recent-history ring: %v", err)
	}
}

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		util.LogWarn("Error generating random number: %v, using fallback", err)
		return 0
	}
	return int(v.Int64())
}
