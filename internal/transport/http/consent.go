package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"curanet/internal/consent/models"
	"curanet/internal/identity"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/httputil"
	"curanet/pkg/requestcontext"
)

// ConsentService defines the consent lifecycle operations the handler needs.
type ConsentService interface {
	CreateRequest(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, rawScope []string, purpose, message string) (*models.ConsentRequest, error)
	ApproveRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID, rawScope []string, expiresAt *time.Time) (*models.Consent, error)
	DenyRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID, reason string) (*models.ConsentRequest, error)
	GrantDirect(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, rawScope []string, purpose string, expiresAt *time.Time) (*models.Consent, error)
	Revoke(ctx context.Context, consentID id.ConsentID, patientID id.PatientID, reason string) (*models.Consent, error)
	ListConsents(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error)
	ListConsentsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.Consent, error)
	ListRequests(ctx context.Context, patientID id.PatientID) ([]*models.ConsentRequest, error)
	ListRequestsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.ConsentRequest, error)
}

// ConsentHandler serves the consent request and consent lifecycle endpoints.
type ConsentHandler struct {
	logger  *slog.Logger
	consent ConsentService
}

// Register mounts the consent routes.
func (h *ConsentHandler) Register(r chi.Router) {
	r.Post("/consents/requests", h.handleCreateRequest)
	r.Get("/consents/requests", h.handleListRequests)
	r.Post("/consents/requests/{requestID}/approve", h.handleApproveRequest)
	r.Post("/consents/requests/{requestID}/deny", h.handleDenyRequest)

	r.Post("/consents", h.handleGrantDirect)
	r.Get("/consents", h.handleListConsents)
	r.Post("/consents/{consentID}/revoke", h.handleRevoke)
}

// handleCreateRequest lets a provider petition a patient for consent. The
// provider identity comes from the token, never the body.
func (h *ConsentHandler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req createRequestRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid patient_id"))
		return
	}

	created, err := h.consent.CreateRequest(ctx, patientID, p.ActorID.AsProvider(), req.Scope, req.Purpose, req.Message)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create consent request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(created, requestcontext.Now(ctx)))
}

func (h *ConsentHandler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var (
		requests []*models.ConsentRequest
		err      error
	)
	switch identity.Role(p.Role) {
	case identity.RolePatient:
		requests, err = h.consent.ListRequests(ctx, p.ActorID.AsPatient())
	case identity.RoleProvider:
		requests, err = h.consent.ListRequestsByProvider(ctx, p.ActorID.AsProvider())
	default:
		writeError(w, dErrors.New(dErrors.CodeAccessDenied, "role cannot list consent requests"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestListResponse(requests, requestcontext.Now(ctx)))
}

func (h *ConsentHandler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	var req approveRequestRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	consent, err := h.consent.ApproveRequest(ctx, requestID, p.ActorID.AsPatient(), req.Scope, req.ExpiresAt)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to approve consent request",
			"request_id", requestcontext.RequestID(ctx),
			"consent_request_id", requestID.String(),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(consent, requestcontext.Now(ctx)))
}

func (h *ConsentHandler) handleDenyRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	var req denyRequestRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	denied, err := h.consent.DenyRequest(ctx, requestID, p.ActorID.AsPatient(), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(denied, requestcontext.Now(ctx)))
}

// handleGrantDirect lets a patient grant consent without a pending request.
func (h *ConsentHandler) handleGrantDirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req grantDirectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	providerID, err := id.ParseProviderID(req.ProviderID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid provider_id"))
		return
	}

	consent, err := h.consent.GrantDirect(ctx, p.ActorID.AsPatient(), providerID, req.Scope, req.Purpose, req.ExpiresAt)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to grant consent",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toConsentResponse(consent, requestcontext.Now(ctx)))
}

func (h *ConsentHandler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var (
		consents []*models.Consent
		err      error
	)
	switch identity.Role(p.Role) {
	case identity.RolePatient:
		consents, err = h.consent.ListConsents(ctx, p.ActorID.AsPatient())
	case identity.RoleProvider:
		consents, err = h.consent.ListConsentsByProvider(ctx, p.ActorID.AsProvider())
	default:
		writeError(w, dErrors.New(dErrors.CodeAccessDenied, "role cannot list consents"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentListResponse(consents, requestcontext.Now(ctx)))
}

func (h *ConsentHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid consent ID"))
		return
	}

	var req revokeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	revoked, err := h.consent.Revoke(ctx, consentID, p.ActorID.AsPatient(), req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to revoke consent",
			"request_id", requestcontext.RequestID(ctx),
			"consent_id", consentID.String(),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(revoked, requestcontext.Now(ctx)))
}
