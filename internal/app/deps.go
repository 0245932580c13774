package app

import (
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/handlers"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers.
func buildDependencies(pool db.Pool, store handlers.MediaStorage, cfg *config.Config) handlers.Dependencies {
	users := repositories.NewPostgresUserRepository(pool)
	tokens := auth.NewManager(cfg.TokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, users)

	prober := media.NewCachingProber(
		media.NewFFProbeProber(cfg.FFProbePath, cfg.FFProbeTimeout),
		cfg.ProbeCacheTTL,
	)

	authLimiter := middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute)

	return handlers.Dependencies{
		Users:           users,
		Tokens:          tokens,
		AccessValidator: tokens,
		Videos:          repositories.NewPostgresVideoRepository(pool),
		Tweets:          repositories.NewPostgresTweetRepository(pool),
		Subscriptions:   repositories.NewPostgresSubscriptionRepository(pool),
		Media:           store,
		Prober:          prober,
		AuthLimiter:     authLimiter,
		CookieSecure:    cfg.CookieSecure,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	}
}
