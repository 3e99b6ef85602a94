package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/game"
	"github.com/SantiZetina/steamcodle/internal/models"
	"github.com/SantiZetina/steamcodle/internal/picker"
	"github.com/SantiZetina/steamcodle/internal/session"
	"github.com/SantiZetina/steamcodle/internal/util"
)

// App wires the HTTP surface to the game service and holds server-scoped
// state: rate limiters and uptime bookkeeping.
type App struct {
	Config       models.Config
	Game         *game.Service
	StartTime    time.Time
	LimiterMap   map[string]*RateLimiterEntry
	LimiterMutex sync.RWMutex
}

type guessRequest struct {
	Guess string `json:"guess"`
}

// GameHandler serves the round-fetch endpoint: starts a new round for the
// session and returns the resolved title. An optional comma-separated
// exclude list is honored up to the most recent entries.
func GameHandler(app *App, c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := session.GetOrCreate(c, app.Config.CookieMaxAge, app.Config.IsProduction)

	exclude := parseExcludes(c.Query("exclude"))
	round, err := app.Game.StartRound(ctx, sessionID, exclude)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrDailyLimitReached):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": constants.ErrorCodeDailyLimit})
		case errors.Is(err, picker.ErrNoEligibleTitles):
			util.LogWarn("Round fetch exhausted candidates for session %s", sessionID)
			c.JSON(http.StatusBadGateway, gin.H{"error": constants.ErrorCodeNoTitles})
		default:
			util.LogWarn("Round fetch failed for session %s: %v", sessionID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": constants.ErrorCodeUpstreamError})
		}
		return
	}

	c.JSON(http.StatusOK, round.Title.Redacted())
}

// GuessHandler applies one guess to the session's active round.
func GuessHandler(app *App, c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := session.GetOrCreate(c, app.Config.CookieMaxAge, app.Config.IsProduction)

	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.ErrorCodeInvalidGuess})
		return
	}

	round, err := app.Game.SubmitGuess(ctx, sessionID, req.Guess)
	if err != nil {
		switch err {
		case game.ErrInvalidGuess:
			c.JSON(http.StatusBadRequest, gin.H{"error": constants.ErrorCodeInvalidGuess})
		case game.ErrNoActiveRound:
			c.JSON(http.StatusNotFound, gin.H{"error": constants.ErrorCodeNoRound})
		case game.ErrRoundOver:
			c.JSON(http.StatusConflict, gin.H{"error": constants.ErrorCodeRoundOver})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, roundView(app, round))
}

// StateHandler returns the session's current round.
func StateHandler(app *App, c *gin.Context) {
	sessionID := session.GetOrCreate(c, app.Config.CookieMaxAge, app.Config.IsProduction)

	round := app.Game.Round(sessionID)
	if round == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": constants.ErrorCodeNoRound})
		return
	}
	c.JSON(http.StatusOK, roundView(app, round))
}

// StatsHandler returns the session's persisted, day-normalized snapshot.
func StatsHandler(app *App, c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := session.GetOrCreate(c, app.Config.CookieMaxAge, app.Config.IsProduction)

	stats, err := app.Game.Stats(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HealthzHandler reports process diagnostics.
func HealthzHandler(app *App, c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	app.LimiterMutex.RLock()
	limiterCount := len(app.LimiterMap)
	app.LimiterMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.Config.IsProduction],
		"active_rounds":   app.Game.ActiveRounds(),
		"active_limiters": limiterCount,
		"memory_alloc_mb": m.Alloc / 1024 / 1024,
		"memory_sys_mb":   m.Sys / 1024 / 1024,
		"memory_gc_count": m.NumGC,
		"uptime":          util.FormatUptime(time.Since(app.StartTime)),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// roundView renders a round for the client. The answer stays server-side
// until the round resolves; only then does the view carry the full title.
func roundView(app *App, round *models.Round) gin.H {
	title := round.Title
	if !round.Resolved {
		title = title.Redacted()
	}
	return gin.H{
		"title":      title,
		"guesses":    round.Guesses,
		"maxGuesses": app.Game.MaxGuesses(),
		"resolved":   round.Resolved,
		"won":        round.Won,
	}
}

// parseExcludes turns the exclude query parameter into an id set. Only the
// most recent entries are honored; junk entries are dropped.
func parseExcludes(raw string) map[int]struct{} {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) > constants.MaxCallerExcludes {
		parts = parts[len(parts)-constants.MaxCallerExcludes:]
	}
	ids := lo.FilterMap(parts, func(part string, _ int) (int, bool) {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		return id, err == nil && id > 0
	})
	return lo.SliceToMap(ids, func(id int) (int, struct{}) {
		return id, struct{}{}
	})
}
