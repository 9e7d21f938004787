package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"curanet/internal/audit"
	"curanet/internal/identity"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/httputil"
)

// TrailReader is the audit query surface.
type TrailReader interface {
	Query(ctx context.Context, filter audit.QueryFilter, page audit.Page) ([]*audit.Entry, int, error)
	ExportRange(ctx context.Context, filter audit.QueryFilter, limit int) ([]*audit.Entry, error)
}

// AuditHandler serves trail queries. Scoping is enforced here: patients see
// entries about them, providers see entries they caused, admins see all.
type AuditHandler struct {
	logger *slog.Logger
	trail  TrailReader
}

// Register mounts the audit routes.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit/entries", h.handleQuery)
	r.Get("/audit/export", h.handleExport)
}

type entryResponse struct {
	ID           string          `json:"id"`
	SubjectID    string          `json:"subject_id,omitempty"`
	ActorID      string          `json:"actor_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	ConsentID    string          `json:"consent_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Metadata     *audit.Metadata `json:"metadata,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

type queryResponse struct {
	Entries []*entryResponse `json:"entries"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type exportResponse struct {
	Entries []*entryResponse `json:"entries"`
}

func toEntryResponse(e *audit.Entry) *entryResponse {
	return &entryResponse{
		ID:           e.ID.String(),
		SubjectID:    e.SubjectID,
		ActorID:      e.ActorID,
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		ConsentID:    e.ConsentID,
		Reason:       e.Reason,
		Metadata:     e.Metadata,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Timestamp:    e.Timestamp,
	}
}

// parseTrailFilter builds a QueryFilter from query parameters.
func parseTrailFilter(r *http.Request) (audit.QueryFilter, error) {
	filter := audit.QueryFilter{
		ActorID:   r.URL.Query().Get("actor_id"),
		SubjectID: r.URL.Query().Get("subject_id"),
		Action:    audit.Action(r.URL.Query().Get("action")),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid from timestamp")
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid to timestamp")
		}
		filter.To = &t
	}
	return filter, nil
}

// scopeFilter narrows the filter to what the caller may see. Returns an
// error for roles with no trail access.
func scopeFilter(filter audit.QueryFilter, role identity.Role, actorID string) (audit.QueryFilter, error) {
	switch role {
	case identity.RoleAdmin:
		return filter, nil
	case identity.RolePatient:
		filter.SubjectID = actorID
		return filter, nil
	case identity.RoleProvider:
		filter.ActorID = actorID
		return filter, nil
	default:
		return filter, dErrors.New(dErrors.CodeAccessDenied, "role cannot query the audit trail")
	}
}

func (h *AuditHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	filter, err := parseTrailFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err = scopeFilter(filter, identity.Role(p.Role), p.ActorID.String())
	if err != nil {
		writeError(w, err)
		return
	}

	page := audit.Page{
		Limit:  intParam(r, "limit"),
		Offset: intParam(r, "offset"),
	}
	page = page.Normalize()

	entries, total, err := h.trail.Query(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail query failed", "error", err)
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit trail query failed"))
		return
	}

	out := make([]*entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, &queryResponse{
		Entries: out,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

// handleExport returns entries in ascending timestamp order for compliance
// extracts. Admin only; the export cap is enforced by the store.
func (h *AuditHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	if identity.Role(p.Role) != identity.RoleAdmin {
		writeError(w, dErrors.New(dErrors.CodeAccessDenied, "export requires administrative access"))
		return
	}

	filter, err := parseTrailFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.trail.ExportRange(ctx, filter, intParam(r, "limit"))
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail export failed", "error", err)
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit trail export failed"))
		return
	}

	out := make([]*entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, &exportResponse{Entries: out})
}

func intParam(r *http.Request, name string) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return 0
}
