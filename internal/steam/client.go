// Package steam talks to the Steam store and web APIs: the featured and
// full catalog listings, per-title details and per-title review summaries.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultStoreBaseURL = "https://store.steampowered.com"
	defaultAPIBaseURL   = "https://api.steampowered.com"

	userAgent = "steamcodle/1.0"
)

// ClientConfig holds configuration for the Steam API client.
type ClientConfig struct {
	HTTPClient   *http.Client
	StoreBaseURL string
	APIBaseURL   string
}

// Client is a read-only HTTP+JSON client for the three upstream endpoints.
type Client struct {
	httpClient   *http.Client
	storeBaseURL string
	apiBaseURL   string
}

// NewClient creates a Steam API client. A nil config selects the public
// endpoints and a 10s timeout.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	storeBase := cfg.StoreBaseURL
	if storeBase == "" {
		storeBase = defaultStoreBaseURL
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	return &Client{
		httpClient:   httpClient,
		storeBaseURL: storeBase,
		apiBaseURL:   apiBase,
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// FeaturedCategories fetches the curated featured listing. Each envelope
// value that decodes as a category with items is returned; the status flag
// and non-category values (query metadata) are handled here so callers see
// only categories.
func (c *Client) FeaturedCategories(ctx context.Context) ([]FeaturedCategory, error) {
	url := c.storeBaseURL + "/api/featuredcategories"

	var envelope map[string]json.RawMessage
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}

	if raw, ok := envelope["status"]; ok {
		var status int
		if err := json.Unmarshal(raw, &status); err == nil && status != 1 {
			return nil, fmt.Errorf("featured listing returned status %d", status)
		}
	}

	var categories []FeaturedCategory
	for key, raw := range envelope {
		if key == "status" {
			continue
		}
		var category FeaturedCategory
		if err := json.Unmarshal(raw, &category); err != nil {
			continue
		}
		if len(category.Items) == 0 {
			continue
		}
		categories = append(categories, category)
	}

	if len(categories) == 0 {
		return nil, errors.New("featured listing contained no categories")
	}
	return categories, nil
}

// AppList fetches the complete catalog of app identifiers. Tens of
// thousands of entries; no type information is available at this stage.
func (c *Client) AppList(ctx context.Context) ([]int, error) {
	url := c.apiBaseURL + "/ISteamApps/GetAppList/v2/"

	var envelope appListEnvelope
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}

	apps := envelope.AppList.Apps
	if len(apps) == 0 {
		return nil, errors.New("app list was empty")
	}

	ids := make([]int, 0, len(apps))
	for _, app := range apps {
		if app.AppID > 0 {
			ids = append(ids, app.AppID)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("app list contained no valid ids")
	}
	return ids, nil
}

// AppDetails fetches and unwraps the per-title detail payload.
func (c *Client) AppDetails(ctx context.Context, appID int) (*AppDetails, error) {
	url := fmt.Sprintf("%s/api/appdetails?appids=%d", c.storeBaseURL, appID)

	var envelope map[string]appDetailsEnvelope
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}

	entry, ok := envelope[fmt.Sprintf("%d", appID)]
	if !ok {
		return nil, fmt.Errorf("app details for %d missing from response", appID)
	}
	if !entry.Success || entry.Data == nil {
		return nil, fmt.Errorf("app details for %d unavailable", appID)
	}
	return entry.Data, nil
}

// ReviewSummary fetches and unwraps the per-title review aggregate.
func (c *Client) ReviewSummary(ctx context.Context, appID int) (*ReviewSummary, error) {
	url := fmt.Sprintf("%s/appreviews/%d?json=1&language=all&purchase_type=all&num_per_page=0", c.storeBaseURL, appID)

	var envelope reviewsEnvelope
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}

	if envelope.Success != 1 || envelope.QuerySummary == nil {
		return nil, fmt.Errorf("review summary for %d unavailable", appID)
	}
	return envelope.QuerySummary, nil
}
