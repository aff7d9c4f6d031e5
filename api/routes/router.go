package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dariovega/vidora-backend/api/controllers"
	webhookcontrollers "github.com/dariovega/vidora-backend/api/controllers/webhooks"
	"github.com/dariovega/vidora-backend/api/middleware"
	"github.com/dariovega/vidora-backend/internal/identity"
	"github.com/dariovega/vidora-backend/internal/ledger"
	creemwebhook "github.com/dariovega/vidora-backend/internal/webhooks/creem"
	"github.com/dariovega/vidora-backend/pkg/config"
	"github.com/dariovega/vidora-backend/pkg/db"
	"github.com/dariovega/vidora-backend/pkg/logger"
	"github.com/dariovega/vidora-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         db.Pinger
	RedisPinger      redis.Pinger
	WebhookService   *creemwebhook.Service
	WebhookGuard     *creemwebhook.IdempotencyGuard
	ReconcileService *identity.ReconcileService
	LedgerService    *ledger.Service
	MetricsGatherer  prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.RedisPinger))
	})

	if params.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/creem", webhookcontrollers.CreemWebhook(
			params.WebhookService,
			cfg.Creem.WebhookSecret,
			params.WebhookGuard,
			logg,
		))
	})

	r.Route("/api/v1/reconciliation", func(r chi.Router) {
		r.Route("/unmatched-emails", func(r chi.Router) {
			r.Get("/", controllers.ListUnmatchedEmails(params.ReconcileService, logg))
			r.Post("/{entryId}/resolve", controllers.ResolveUnmatchedEmail(params.ReconcileService, logg))
			r.Post("/{entryId}/ignore", controllers.IgnoreUnmatchedEmail(params.ReconcileService, logg))
		})
		r.Get("/users/{userId}/credit-transactions", controllers.UserCreditTransactions(params.LedgerService, logg))
	})

	return r
}
