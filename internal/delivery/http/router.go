package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"eventticketing/internal/delivery/http/controllers"
	h "eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// RouterConfig holds the router's tunables.
type RouterConfig struct {
	CORSOrigins []string
	// AuthRateLimit is the number of /auth requests allowed per client IP per
	// AuthRateWindow. Zero disables the limit.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Controllers groups the controllers the router dispatches to.
type Controllers struct {
	Auth   *controllers.AuthController
	Events *controllers.EventController
	Users  *controllers.UserController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(cfg RouterConfig, c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Auth
	r.Route("/auth", func(r chi.Router) {
		if cfg.AuthRateLimit > 0 {
			r.Use(httprate.Limit(cfg.AuthRateLimit, cfg.AuthRateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeTooManyRequests, "too many requests")
				}),
			))
		}
		r.Post("/signup", c.Auth.SignUp)
		r.Post("/register", c.Auth.Register)
		r.Post("/login", c.Auth.Login)
	})

	// Public event views
	r.Route("/events", func(r chi.Router) {
		r.Get("/", c.Events.ListEvents)
		r.Get("/{eventID}", c.Events.GetEvent)
		r.Get("/{eventID}/reviews", c.Events.ListEventReviews)
	})

	requireAuth := middleware.RequireAuth(verifier, logger)

	// Admin: the services check the admin flag against the stored user.
	r.Route("/admin/events", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", c.Events.CreateEvent)
		r.Put("/{eventID}", c.Events.EditEvent)
		r.Delete("/{eventID}", c.Events.DeleteEvent)
	})

	// Per-user routes: the caller must be {username}.
	r.Route("/u/{username}", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/events", c.Users.ListUserEvents)
		r.Post("/bookings/{eventID}", c.Users.Book)
		r.Delete("/bookings/{eventID}", c.Users.Unbook)
		r.Post("/reviews/{eventID}", c.Users.SubmitReview)
	})

	return r
}
