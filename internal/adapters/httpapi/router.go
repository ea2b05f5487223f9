package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/ports"
)

// Services regroupe ce que l'API expose; un service nil désactive ses routes.
type Services struct {
	Settings *app.SettingsService
	Screens  *app.ScreenService
	Search   *app.SearchService
	Details  *app.DetailService
	Watch    *app.WatchService
	History  *app.HistoryService
	Bus      ports.EventBus
	// Limiter, si présent, est reporté par /health.
	Limiter *app.DynamicLimiter
}

type Server struct {
	logger zerolog.Logger
	svc    Services
}

func NewServer(logger zerolog.Logger, svc Services) *Server {
	return &Server{logger: logger, svc: svc}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/openapi.json", s.handleOpenAPI)
		// SSE: pas de timeout de requête.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			if s.svc.Settings != nil {
				NewSettingsHandler(s.svc.Settings).Routes(r)
			}
			if s.svc.Screens != nil {
				NewScreensHandler(s.svc.Screens).Routes(r)
			}
			if s.svc.Details != nil {
				NewMoviesHandler(s.svc.Details, s.svc.Watch).Routes(r)
			}
			if s.svc.Search != nil {
				NewSearchHandler(s.svc.Search).Routes(r)
			}
			if s.svc.History != nil {
				NewHistoryHandler(s.svc.History).Routes(r)
			}
		})
	})

	return r
}
