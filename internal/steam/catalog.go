package steam

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/util"
)

// catalogCache is one read-through id cache. Refreshes overwrite the id
// slice wholesale; entries are never merged. The warned flag latches the
// fallback warning so a degraded upstream logs once, not once per call.
type catalogCache struct {
	mu        sync.Mutex
	ids       []int
	expiresAt time.Time
	ttl       time.Duration
	warned    bool
}

// CatalogConfig holds configuration for the catalog source.
type CatalogConfig struct {
	Client           *Client
	FeaturedFallback []int
	CatalogFallback  []int
	FeaturedTTL      time.Duration
	CatalogTTL       time.Duration
}

// Catalog supplies candidate identifiers from two independent upstream
// listings, each with its own cache and static fallback dataset.
type Catalog struct {
	client           *Client
	featured         catalogCache
	full             catalogCache
	featuredFallback []int
	catalogFallback  []int
}

// NewCatalog creates the catalog source. An empty fallback dataset is a
// fatal misconfiguration, not a runtime case.
func NewCatalog(cfg *CatalogConfig) (*Catalog, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, errors.New("catalog config and client cannot be nil")
	}
	if len(cfg.FeaturedFallback) == 0 || len(cfg.CatalogFallback) == 0 {
		return nil, errors.New("fallback datasets cannot be empty")
	}
	featuredTTL := cfg.FeaturedTTL
	if featuredTTL == 0 {
		featuredTTL = constants.FeaturedCacheTTL
	}
	catalogTTL := cfg.CatalogTTL
	if catalogTTL == 0 {
		catalogTTL = constants.CatalogCacheTTL
	}
	return &Catalog{
		client:           cfg.Client,
		featured:         catalogCache{ttl: featuredTTL},
		full:             catalogCache{ttl: catalogTTL},
		featuredFallback: cfg.FeaturedFallback,
		catalogFallback:  cfg.CatalogFallback,
	}, nil
}

// FeaturedIDs returns the curated featured-set identifiers. Never fails:
// upstream trouble falls back to the bundled dataset. Callers must not
// mutate the returned slice.
func (c *Catalog) FeaturedIDs(ctx context.Context) []int {
	return c.cachedOrRefresh(ctx, &c.featured, c.fetchFeatured, c.featuredFallback, "featured")
}

// AllIDs returns the full-catalog identifiers under the same contract as
// FeaturedIDs.
func (c *Catalog) AllIDs(ctx context.Context) []int {
	return c.cachedOrRefresh(ctx, &c.full, c.client.AppList, c.catalogFallback, "full catalog")
}

func (c *Catalog) cachedOrRefresh(ctx context.Context, cache *catalogCache, fetch func(context.Context) ([]int, error), fallback []int, name string) []int {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	now := time.Now()
	if len(cache.ids) > 0 && now.Before(cache.expiresAt) {
		return cache.ids
	}

	ids, err := fetch(ctx)
	if err != nil || len(ids) == 0 {
		if !cache.warned {
			util.LogWarn("Falling back to bundled %s dataset: %v", name, err)
			cache.warned = true
		}
		// The fallback gets normal TTL bookkeeping so a degraded
		// upstream is not hammered on every call.
		cache.ids = fallback
		cache.expiresAt = now.Add(cache.ttl)
		return fallback
	}

	cache.warned = false
	cache.ids = ids
	cache.expiresAt = now.Add(cache.ttl)
	util.LogInfo("Refreshed %s listing with %d ids", name, len(ids))
	return ids
}

// fetchFeatured flattens every featured category into one deduplicated id
// list. Items carrying an explicit non-game type are dropped; the store
// omits the type for ordinary games, so an absent type stays in.
func (c *Catalog) fetchFeatured(ctx context.Context) ([]int, error) {
	categories, err := c.client.FeaturedCategories(ctx)
	if err != nil {
		return nil, err
	}

	items := lo.FlatMap(categories, func(category FeaturedCategory, _ int) []FeaturedItem {
		return category.Items
	})
	eligible := lo.Filter(items, func(item FeaturedItem, _ int) bool {
		return item.ID > 0 && (item.Type == "" || strings.EqualFold(item.Type, "game"))
	})
	ids := lo.Uniq(lo.Map(eligible, func(item FeaturedItem, _ int) int {
		return item.ID
	}))

	if len(ids) == 0 {
		return nil, errors.New("featured listing contained no games")
	}
	return ids, nil
}

// LoadFallback reads a bundled known-good identifier dataset from disk.
// Called once at startup; the list is served from memory afterwards.
func LoadFallback(path string) ([]int, error) {
	util.LogInfo("Loading fallback ids from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list FallbackList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	ids := lo.Filter(list.AppIDs, func(id int, _ int) bool {
		if id <= 0 {
			util.LogWarn("Skipping fallback id %d: not a valid app id", id)
			return false
		}
		return true
	})

	util.LogInfo("Successfully loaded %d fallback ids", len(ids))
	return ids, nil
}
