package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/game"
	"github.com/SantiZetina/steamcodle/internal/handlers"
	"github.com/SantiZetina/steamcodle/internal/models"
	"github.com/SantiZetina/steamcodle/internal/picker"
	"github.com/SantiZetina/steamcodle/internal/repositories/progress"
	"github.com/SantiZetina/steamcodle/internal/steam"
	"github.com/SantiZetina/steamcodle/internal/util"
)

func main() {
	_ = godotenv.Load()

	isProduction := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	util.LogInfo("Starting Steamcodle in %s mode", map[bool]string{true: "production", false: "development"}[isProduction])

	cfg := loadConfig(isProduction)
	if cfg.Unlimited {
		util.LogInfo("Unlimited mode enabled, daily loss cap is bypassed")
	}

	featuredFallback, err := steam.LoadFallback("data/fallback_featured.json")
	if err != nil {
		util.LogFatal("Failed to load featured fallback dataset: %v", err)
	}
	catalogFallback, err := steam.LoadFallback("data/fallback_catalog.json")
	if err != nil {
		util.LogFatal("Failed to load catalog fallback dataset: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	repo, err := progress.NewRedis(&progress.Config{RedisClient: redisClient})
	if err != nil {
		util.LogFatal("Failed to create progress repository: %v", err)
	}

	catalog, err := steam.NewCatalog(&steam.CatalogConfig{
		Client:           steam.NewClient(nil),
		FeaturedFallback: featuredFallback,
		CatalogFallback:  catalogFallback,
	})
	if err != nil {
		util.LogFatal("Failed to create catalog source: %v", err)
	}

	selector, err := picker.NewSelector(&picker.Config{
		Catalog: catalog,
		Client:  steam.NewClient(nil),
		Repo:    repo,
	})
	if err != nil {
		util.LogFatal("Failed to create selector: %v", err)
	}
	if err := selector.LoadHistory(context.Background()); err != nil {
		util.LogWarn("Failed to load recent-history ring, starting empty: %v", err)
	}

	gameService, err := game.NewService(&game.Config{
		MaxGuesses:   cfg.MaxGuesses,
		WinTolerance: cfg.WinTolerance,
		DailyLossCap: cfg.DailyLossCap,
		Unlimited:    cfg.Unlimited,
	}, selector, repo)
	if err != nil {
		util.LogFatal("Failed to create game service: %v", err)
	}

	app := &handlers.App{
		Config:     cfg,
		Game:       gameService,
		StartTime:  time.Now(),
		LimiterMap: make(map[string]*handlers.RateLimiterEntry),
	}

	router := gin.Default()

	router.Use(handlers.RequestIDMiddleware())
	router.Use(handlers.SecurityHeadersMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))

	// Round and stats responses must never be served stale.
	router.Use(cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	}))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	router.GET(constants.RouteGame, app.RateLimitMiddleware(), func(c *gin.Context) { handlers.GameHandler(app, c) })
	router.POST(constants.RouteGuess, app.RateLimitMiddleware(), func(c *gin.Context) { handlers.GuessHandler(app, c) })
	router.GET(constants.RouteState, func(c *gin.Context) { handlers.StateHandler(app, c) })
	router.GET(constants.RouteStats, func(c *gin.Context) { handlers.StatsHandler(app, c) })
	router.GET(constants.RouteHealth, func(c *gin.Context) { handlers.HealthzHandler(app, c) })

	startCleanupRoutines(app, gameService, cfg)

	startServer(router)
}

func loadConfig(isProduction bool) models.Config {
	return models.Config{
		MaxGuesses:     util.GetEnvInt("MAX_GUESSES", constants.DefaultMaxGuesses),
		WinTolerance:   util.GetEnvInt("WIN_TOLERANCE", constants.DefaultWinTolerance),
		DailyLossCap:   util.GetEnvInt("DAILY_LOSS_CAP", constants.DefaultDailyLossCap),
		Unlimited:      util.GetEnvBool("UNLIMITED_MODE", false),
		CookieMaxAge:   util.GetEnvDuration("COOKIE_MAX_AGE", 24*time.Hour),
		SessionTTL:     util.GetEnvDuration("SESSION_TTL", 3*time.Hour),
		RateLimitRPS:   util.GetEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: util.GetEnvInt("RATE_LIMIT_BURST", 10),
		RateLimiterTTL: util.GetEnvDuration("RATE_LIMITER_TTL", 1*time.Hour),
		RedisAddr:      util.GetEnvString("REDIS_ADDR", "localhost:6379"),
		IsProduction:   isProduction,
	}
}

func startCleanupRoutines(app *handlers.App, gameService *game.Service, cfg models.Config) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			if removed := gameService.CleanupStale(cfg.SessionTTL); removed > 0 {
				util.LogInfo("Cleaned up %d stale rounds", removed)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			app.CleanupStaleRateLimiters()
		}
	}()

	util.LogInfo("Started cleanup routines for rounds and rate limiters")
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		util.LogInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			util.LogWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	util.LogInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		util.LogFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	util.LogInfo("Server shutdown complete")
}
