package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"curanet/internal/audit"
	"curanet/internal/consent/models"
	"curanet/internal/gate"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/httputil"
	"curanet/pkg/requestcontext"
)

// AccessAuthorizer is the enforcement chokepoint the record layer calls
// before touching patient data.
type AccessAuthorizer interface {
	Enforce(ctx context.Context, actorID id.ActorID, patientID id.PatientID, required models.ScopeSet, action audit.Action, resourceType, resourceID string) (*gate.Token, error)
}

// AccessHandler exposes the gate to the surrounding record services.
type AccessHandler struct {
	logger *slog.Logger
	gate   AccessAuthorizer
}

// Register mounts the authorization route.
func (h *AccessHandler) Register(r chi.Router) {
	r.Post("/access/authorize", h.handleAuthorize)
}

type authorizeRequest struct {
	PatientID    string   `json:"patient_id"`
	Action       string   `json:"action"`
	Scopes       []string `json:"scopes"`
	ResourceType string   `json:"resource_type"`
	ResourceID   string   `json:"resource_id,omitempty"`
}

// authorizeResponse is the serialized authorization token.
type authorizeResponse struct {
	Permitted    bool      `json:"permitted"`
	ActorID      string    `json:"actor_id"`
	PatientID    string    `json:"patient_id"`
	Action       string    `json:"action"`
	Scopes       []string  `json:"scopes"`
	ConsentID    string    `json:"consent_id,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	AuditPending bool      `json:"audit_pending,omitempty"`
}

// deniedResponse carries the generic denial reason. Detail beyond the reason
// code lives only in the audit trail.
type deniedResponse struct {
	Permitted      bool     `json:"permitted"`
	Error          string   `json:"error"`
	Reason         string   `json:"reason"`
	RequiredScopes []string `json:"required_scopes,omitempty"`
}

// recordActions are the gate-enforceable operations on patient records.
var recordActions = map[string]audit.Action{
	"read":   audit.ActionRecordRead,
	"create": audit.ActionRecordCreate,
	"update": audit.ActionRecordUpdate,
}

func (h *AccessHandler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req authorizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid patient_id"))
		return
	}
	action, ok := recordActions[req.Action]
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid action"))
		return
	}
	scopes, ok := models.ParseScopeSet(req.Scopes)
	if !ok || len(scopes) == 0 {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid scopes"))
		return
	}

	token, err := h.gate.Enforce(ctx, p.ActorID, patientID, scopes, action, req.ResourceType, req.ResourceID)
	if err != nil {
		var denied *gate.DeniedError
		if errors.As(err, &denied) {
			httputil.WriteJSON(w, http.StatusForbidden, &deniedResponse{
				Error:          string(dErrors.CodeAccessDenied),
				Reason:         denied.Reason,
				RequiredScopes: denied.RequiredScopes.Strings(),
			})
			return
		}
		h.logger.ErrorContext(ctx, "access enforcement failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &authorizeResponse{
		Permitted:    true,
		ActorID:      token.ActorID.String(),
		PatientID:    token.PatientID.String(),
		Action:       string(token.Action),
		Scopes:       token.Scopes.Strings(),
		ConsentID:    token.ConsentID,
		IssuedAt:     token.IssuedAt,
		AuditPending: token.AuditPending,
	})
}
