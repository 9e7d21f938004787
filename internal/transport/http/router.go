// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to domain services, and map coded errors onto HTTP statuses; no
// decision logic lives here.
package httptransport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"curanet/internal/platform/health"
	dErrors "curanet/pkg/domain-errors"
	httpErrors "curanet/pkg/http-errors"
	"curanet/pkg/platform/httputil"
	"curanet/pkg/platform/middleware/auth"
	"curanet/pkg/platform/middleware/metadata"
	"curanet/pkg/platform/middleware/request"
	"curanet/pkg/platform/middleware/requesttime"
)

// Deps collects the wired services the router exposes.
type Deps struct {
	Consent   ConsentService
	Emergency EmergencyService
	Trail     TrailReader
	Access    AccessAuthorizer
	Redeems   RedeemLimiter

	Health    *health.Handler
	Validator auth.TokenValidator
	Logger    *slog.Logger
}

// NewRouter wires all endpoints with the middleware chain.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(nil).Handler)

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	consent := &ConsentHandler{logger: logger, consent: deps.Consent}
	emergency := &EmergencyHandler{logger: logger, emergency: deps.Emergency, limiter: deps.Redeems}
	trail := &AuditHandler{logger: logger, trail: deps.Trail}
	access := &AccessHandler{logger: logger, gate: deps.Access}

	// Redemption is the single unauthenticated domain endpoint: the bearer
	// of a valid emergency token is the credential.
	r.Post("/emergency/access", emergency.handleRedeem)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Validator, logger))

		consent.Register(r)
		emergency.Register(r)
		trail.Register(r)
		access.Register(r)
	})

	return r
}

// writeError translates a domain error into the uniform JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		httputil.WriteError(w, httpErrors.ToHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}
	httputil.WriteError(w, http.StatusInternalServerError, dErrors.CodeInternal, "")
}

// principal extracts the authenticated caller or fails the request.
func principal(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "principal missing from context despite auth middleware",
			"path", r.URL.Path,
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return auth.Principal{}, false
	}
	return p, true
}
