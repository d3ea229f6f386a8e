package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tavernbuddy/tavernbuddy-backend/api/controllers"
	"github.com/tavernbuddy/tavernbuddy-backend/api/middleware"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/cron"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// Params are the dependencies the HTTP surface needs.
type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	Readiness map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer

	Cron      controllers.CronRunner
	Users     controllers.ProfileStore
	Square    controllers.SquareConnector
	Dashboard controllers.DashboardSource
	Reports   controllers.ReportService
	Chat      controllers.ChatService
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.URL, !cfg.App.IsProd()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.CronSecret(cfg.Cron.Secret, logg))
		r.Get("/sync", controllers.CronTrigger(p.Cron, cron.JobNightlySync, logg))
		r.Get("/weekly-reports", controllers.CronTrigger(p.Cron, cron.JobWeeklyReports, logg))
	})

	// Square redirects the browser here without our session header.
	r.Get("/api/v1/square/callback", controllers.SquareCallback(p.Square))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/square", func(r chi.Router) {
			r.Get("/connect", controllers.SquareConnect(p.Square, logg))
			r.Post("/disconnect", controllers.SquareDisconnect(p.Square, logg))
		})
		r.Get("/user", controllers.UserProfile(p.Users, logg))
		r.Patch("/user", controllers.UserUpdateProfile(p.Users, logg))
		r.Get("/dashboard/metrics", controllers.DashboardMetrics(p.Users, p.Dashboard, logg))
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", controllers.ReportsList(p.Reports, logg))
			r.Post("/generate", controllers.ReportsGenerate(p.Users, p.Reports, logg))
		})
		r.Route("/chat", func(r chi.Router) {
			r.Get("/", controllers.ChatHistory(p.Chat, logg))
			r.Post("/", controllers.ChatAsk(p.Chat, logg))
			r.Delete("/", controllers.ChatClear(p.Chat, logg))
		})
	})

	return r
}
