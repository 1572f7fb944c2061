package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"artifactlive.org/internal/audit"
	"artifactlive.org/internal/auth"
	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/poster"
	"artifactlive.org/internal/pricing"
	"artifactlive.org/internal/statements"
	"artifactlive.org/internal/stream"
)

const serviceName = "artifactlive-api"

// ReadyChecker reports whether the service can take traffic.
type ReadyChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps wires the API to the domain services.
type Deps struct {
	Ledger  *ledger.Service
	Pricing pricing.ConfigStore
	Stream  *stream.Stream
	Ready   ReadyChecker
	Version string

	// Issuer and Credentials enable bearer tokens. Without an Issuer every
	// request acts as DefaultOwner.
	Issuer       *auth.Issuer
	Credentials  *auth.Credentials
	DefaultOwner string

	RateBurst  int
	RatePerSec int
}

// API is the HTTP layer.
type API struct {
	ledger     *ledger.Service
	statements *statements.Generator
	poster     *poster.Poster
	pricing    pricing.ConfigStore
	stream     *stream.Stream
	ready      ReadyChecker
	version    string

	issuer       *auth.Issuer
	creds        *auth.Credentials
	defaultOwner string

	rateBurst  int
	ratePerSec int
	handler    http.Handler
}

func New(d Deps) *API {
	a := &API{
		ledger:       d.Ledger,
		statements:   statements.NewGenerator(d.Ledger),
		poster:       poster.New(d.Ledger, d.Pricing),
		pricing:      d.Pricing,
		stream:       d.Stream,
		ready:        d.Ready,
		version:      d.Version,
		issuer:       d.Issuer,
		creds:        d.Credentials,
		defaultOwner: d.DefaultOwner,
		rateBurst:    d.RateBurst,
		ratePerSec:   d.RatePerSec,
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 50
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 25
	}
	a.handler = obs.Instrument(a.routes())
	return a
}

// Handler returns the fully wrapped router.
func (a *API) Handler() http.Handler { return a.handler }

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID, LoggingJSON, SecurityHeaders, CORS)
	r.Use(func(next http.Handler) http.Handler { return RateLimit(next, a.rateBurst, a.ratePerSec) })

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, ledger.KindNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, ledger.KindValidation, "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())
	r.Post("/v1/auth/token", a.handleAuthToken)

	r.Group(func(r chi.Router) {
		r.Use(a.withAuth)

		r.Route("/v1/accounts", func(r chi.Router) {
			r.Get("/", a.listAccounts)
			r.Post("/", a.createAccount)
			r.Delete("/{id}", a.deactivateAccount)
		})
		r.Route("/v1/ledger", func(r chi.Router) {
			r.Post("/transactions", a.postTransaction)
			r.Post("/transactions/{id}/reversal", a.reverseTransaction)
			r.Get("/entries", a.listEntries)
			r.Get("/stream", a.Stream)
		})
		r.Route("/v1/financials", func(r chi.Router) {
			r.Get("/accounting-equation", a.accountingEquation)
			r.Get("/trial-balance", a.trialBalance)
			r.Get("/balance-sheet", a.balanceSheet)
			r.Get("/income-statement", a.incomeStatement)
		})
		r.Post("/v1/capital/contributions", a.recordContribution)
		r.Post("/v1/sales", a.recordSale)
		r.Route("/v1/pricing", func(r chi.Router) {
			r.Get("/config", a.getPricingConfig)
			r.Put("/config", a.updatePricingConfig)
			r.Post("/calculate", a.calculateFees)
			r.Post("/summary", a.projectSummary)
		})
	})
	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"build":   obs.CurrentBuildInfo(),
	})
}

func (a *API) audit(ctx context.Context, event audit.Event, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().WarnContext(ctx, "audit log failed", "event", event, "error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
