package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledenbeheer/internal/adapters/email"
	"ledenbeheer/internal/adapters/http/middleware"
	auditStore "ledenbeheer/internal/adapters/storage/audit"
	complianceStore "ledenbeheer/internal/adapters/storage/compliance"
	policyStore "ledenbeheer/internal/adapters/storage/policy"
	volunteerStore "ledenbeheer/internal/adapters/storage/volunteer"
	"ledenbeheer/internal/application/orchestrators"
	policyDomain "ledenbeheer/internal/domain/policy"
	"ledenbeheer/internal/platform/metrics"
)

// Stores holds all storage dependencies.
type Stores struct {
	VolunteerStore volunteerStore.Store
	RecordStore    complianceStore.Store
	PolicyStore    policyStore.Store
	AuditStore     auditStore.Store
}

// Options carries the non-storage dependencies and tunables of the mux.
type Options struct {
	Policy  *policyDomain.Holder
	Sender  email.Sender
	Health  orchestrators.HealthChecker // optional; /healthz reports ok without it
	Metrics *metrics.Metrics
	// Gatherer backs /metrics; the endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	// CSRFKey is the 32-byte gorilla/csrf key; CSRF protection is off when empty.
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string

	RateLimiter     *middleware.RateLimiter // optional
	SlowRequest     time.Duration
	BulkConcurrency int
	DispatchTimeout time.Duration
	Now             func() time.Time
}

type server struct {
	stores *Stores
	opts   Options
}

func (s *server) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}
	return time.Now()
}

// NewMux wires HTTP handlers for the app.
// PRE: s stores and opts.Policy are set
// POST: Returns a router serving /api/vog, /healthz and /metrics
func NewMux(s *Stores, opts Options) http.Handler {
	srv := &server{stores: s, opts: opts}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Timing(opts.Metrics, opts.SlowRequest))

	r.Get("/healthz", srv.handleHealth)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/vog", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(opts.RateLimiter))
		}
		if len(opts.CSRFKey) > 0 {
			r.Use(middleware.CSRF(opts.CSRFKey, opts.SecureCookies, opts.TrustedOrigins))
		}

		r.Get("/people", srv.handleComplianceList)
		r.Post("/bulk/send-reminder", srv.handleBulk(orchestrators.ActionSendReminder))
		r.Post("/bulk/mark-requested", srv.handleBulk(orchestrators.ActionMarkRequested))
		r.Post("/bulk/mark-submitted", srv.handleBulk(orchestrators.ActionMarkRegistrySubmitted))
		r.Get("/settings", srv.handleGetSettings)
		r.Put("/settings", srv.handlePutSettings)
		r.Get("/audit", srv.handleAuditLog)
	})
	return r
}

// handleHealth reports whether persistence is reachable (GET /healthz).
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Description: "database unreachable"})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
