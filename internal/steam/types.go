package steam

// FeaturedItem is one entry inside a featured-category listing. The store
// omits Type for ordinary games, so an empty type counts as a game.
type FeaturedItem struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// FeaturedCategory is one named group in the featured listing, e.g. top
// sellers or new releases.
type FeaturedCategory struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Items []FeaturedItem `json:"items"`
}

type appListEnvelope struct {
	AppList struct {
		Apps []struct {
			AppID int    `json:"appid"`
			Name  string `json:"name"`
		} `json:"apps"`
	} `json:"applist"`
}

// Genre is one genre tag on a title's detail payload.
type Genre struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Metacritic is the optional critic score block on a detail payload.
type Metacritic struct {
	Score float64 `json:"score"`
	URL   string  `json:"url"`
}

// AppDetails is the unwrapped per-title detail payload.
type AppDetails struct {
	Type             string      `json:"type"`
	Name             string      `json:"name"`
	SteamAppID       int         `json:"steam_appid"`
	ShortDescription string      `json:"short_description"`
	HeaderImage      string      `json:"header_image"`
	Genres           []Genre     `json:"genres"`
	Metacritic       *Metacritic `json:"metacritic"`
}

type appDetailsEnvelope struct {
	Success bool        `json:"success"`
	Data    *AppDetails `json:"data"`
}

// ReviewSummary is the unwrapped per-title review aggregate.
type ReviewSummary struct {
	ReviewScore     int    `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalPositive   int    `json:"total_positive"`
	TotalNegative   int    `json:"total_negative"`
	TotalReviews    int    `json:"total_reviews"`
}

type reviewsEnvelope struct {
	Success      int            `json:"success"`
	QuerySummary *ReviewSummary `json:"query_summary"`
}

// FallbackList is the bundled known-good identifier dataset shape.
type FallbackList struct {
	AppIDs []int `json:"appIds"`
}
