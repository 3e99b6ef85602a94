package steam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(&ClientConfig{
		HTTPClient:   server.Client(),
		StoreBaseURL: server.URL,
		APIBaseURL:   server.URL,
	})
	return client, server
}

func TestFeaturedCategories(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/featuredcategories", r.URL.Path)
		w.Write([]byte(`{
			"status": 1,
			"top_sellers": {"id": "cat_topsellers", "name": "Top Sellers", "items": [
				{"id": 570, "name": "Dota 2"},
				{"id": 1001, "type": "dlc", "name": "Some DLC"}
			]},
			"specials": {"id": "cat_specials", "name": "Specials", "items": [
				{"id": 730, "name": "Counter-Strike 2"}
			]},
			"new_releases": {"id": "cat_newreleases", "name": "New Releases", "items": []}
		}`))
	}))
	defer server.Close()

	categories, err := client.FeaturedCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2, "empty categories should be dropped")
}

func TestFeaturedCategoriesBadStatus(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0}`))
	}))
	defer server.Close()

	_, err := client.FeaturedCategories(context.Background())
	assert.Error(t, err)
}

func TestFeaturedCategoriesHTTPError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := client.FeaturedCategories(context.Background())
	assert.Error(t, err)
}

func TestAppList(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamApps/GetAppList/v2/", r.URL.Path)
		w.Write([]byte(`{"applist": {"apps": [
			{"appid": 570, "name": "Dota 2"},
			{"appid": 0, "name": ""},
			{"appid": 730, "name": "Counter-Strike 2"}
		]}}`))
	}))
	defer server.Close()

	ids, err := client.AppList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{570, 730}, ids)
}

func TestAppListEmpty(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"applist": {"apps": []}}`))
	}))
	defer server.Close()

	_, err := client.AppList(context.Background())
	assert.Error(t, err)
}

func TestAppDetails(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appdetails", r.URL.Path)
		assert.Equal(t, "570", r.URL.Query().Get("appids"))
		w.Write([]byte(`{"570": {"success": true, "data": {
			"type": "game",
			"name": "Dota 2",
			"steam_appid": 570,
			"short_description": "Every day, millions of players...",
			"header_image": "https://example.com/570.jpg",
			"genres": [{"id": "1", "description": "Action"}, {"id": "2", "description": "Strategy"}],
			"metacritic": {"score": 90, "url": "https://example.com/metacritic"}
		}}}`))
	}))
	defer server.Close()

	details, err := client.AppDetails(context.Background(), 570)
	require.NoError(t, err)
	assert.Equal(t, "game", details.Type)
	assert.Equal(t, "Dota 2", details.Name)
	assert.Len(t, details.Genres, 2)
	require.NotNil(t, details.Metacritic)
	assert.Equal(t, float64(90), details.Metacritic.Score)
}

func TestAppDetailsUnavailable(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"570": {"success": false}}`))
	}))
	defer server.Close()

	_, err := client.AppDetails(context.Background(), 570)
	assert.Error(t, err)
}

func TestReviewSummary(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appreviews/570", r.URL.Path)
		w.Write([]byte(`{"success": 1, "query_summary": {
			"review_score": 8,
			"review_score_desc": "Very Positive",
			"total_positive": 1500000,
			"total_negative": 200000,
			"total_reviews": 1700000
		}}`))
	}))
	defer server.Close()

	summary, err := client.ReviewSummary(context.Background(), 570)
	require.NoError(t, err)
	assert.Equal(t, "Very Positive", summary.ReviewScoreDesc)
	assert.Equal(t, 1700000, summary.TotalReviews)
}

func TestReviewSummaryUnavailable(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": 2}`))
	}))
	defer server.Close()

	_, err := client.ReviewSummary(context.Background(), 570)
	assert.Error(t, err)
}

func TestReviewSummaryMalformedJSON(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := client.ReviewSummary(context.Background(), 570)
	assert.Error(t, err)
}
