package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/videotube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by the HTTP handlers.
type Dependencies struct {
	Users           UserStore
	Tokens          TokenService
	AccessValidator middleware.AccessValidator
	Videos          VideoStore
	Tweets          TweetStore
	Subscriptions   SubscriptionStore
	Media           MediaStorage
	Prober          DurationProber
	AuthLimiter     RateLimiter
	CookieSecure    bool
	MaxUploadBytes  int64
}

// NewRouter wires all HTTP handlers into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	health := HealthHandler{}
	users := UserHandler{
		Users:        deps.Users,
		Tokens:       deps.Tokens,
		Media:        deps.Media,
		Limiter:      deps.AuthLimiter,
		CookieSecure: deps.CookieSecure,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Media:          deps.Media,
		Prober:         deps.Prober,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	tweets := TweetHandler{Tweets: deps.Tweets}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}

	authenticate := middleware.Authenticate(deps.AccessValidator, deps.Users)

	r := chi.NewRouter()
	r.Get("/healthz", health.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/refresh-token", users.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", users.Logout)
				r.Get("/current", users.Current)
				r.Patch("/password", users.ChangePassword)
				r.Patch("/account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", videos.List)
			r.Get("/{videoId}", videos.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", videos.Upload)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/{videoId}/toggle-status", videos.ToggleStatus)
			})
		})

		r.Route("/tweets", func(r chi.Router) {
			r.Get("/user/{userId}", tweets.ListByUser)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", tweets.Create)
				r.Patch("/{tweetId}", tweets.Update)
				r.Delete("/{tweetId}", tweets.Delete)
			})
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/{channelId}/subscribers", subscriptions.Subscribers)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/{channelId}", subscriptions.Toggle)
				r.Get("/subscribed", subscriptions.Subscribed)
			})
		})
	})

	return r
}
