package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"curanet/internal/emergency"
	"curanet/internal/ratelimit"
	id "curanet/pkg/domain"
	dErrors "curanet/pkg/domain-errors"
	"curanet/pkg/platform/httputil"
	"curanet/pkg/requestcontext"
)

// EmergencyService defines the break-glass operations the handler needs.
type EmergencyService interface {
	CreateShare(ctx context.Context, patientID id.PatientID, rawCategories []string, ttl time.Duration) (*emergency.Share, string, error)
	Redeem(ctx context.Context, rawToken string) (*emergency.Data, error)
	Revoke(ctx context.Context, shareID id.ShareID, patientID id.PatientID) (*emergency.Share, error)
	ListShares(ctx context.Context, patientID id.PatientID) ([]*emergency.Share, error)
}

// RedeemLimiter bounds anonymous redemption attempts per client.
type RedeemLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (*ratelimit.Result, error)
}

// EmergencyHandler serves emergency share management and redemption.
type EmergencyHandler struct {
	logger    *slog.Logger
	emergency EmergencyService
	limiter   RedeemLimiter
}

// Register mounts the authenticated emergency routes. Redemption itself is
// mounted unauthenticated by the router.
func (h *EmergencyHandler) Register(r chi.Router) {
	r.Post("/emergency/shares", h.handleCreateShare)
	r.Get("/emergency/shares", h.handleListShares)
	r.Post("/emergency/shares/{shareID}/revoke", h.handleRevokeShare)
}

type createShareRequest struct {
	Categories []string `json:"categories"`
	TTLSeconds int64    `json:"ttl_seconds"`
}

type createShareResponse struct {
	Share *shareResponse `json:"share"`

	// Token is the raw bearer credential, returned exactly once. It is
	// never stored and cannot be recovered.
	Token string `json:"token"`
}

type redeemRequest struct {
	Token string `json:"token"`
}

type shareResponse struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	TokenPrefix string     `json:"token_prefix"`
	Categories  []string   `json:"categories"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Used        bool       `json:"used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	AccessedBy  string     `json:"accessed_by,omitempty"`
}

type shareListResponse struct {
	Shares []*shareResponse `json:"shares"`
}

func toShareResponse(s *emergency.Share) *shareResponse {
	return &shareResponse{
		ID:          s.ID.String(),
		PatientID:   s.PatientID.String(),
		TokenPrefix: s.TokenPrefix,
		Categories:  s.CategoryStrings(),
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
		Used:        s.Used,
		UsedAt:      s.UsedAt,
		AccessedBy:  s.AccessedBy,
	}
}

func (h *EmergencyHandler) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req createShareRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	share, rawToken, err := h.emergency.CreateShare(ctx, p.ActorID.AsPatient(), req.Categories, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create emergency share",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &createShareResponse{
		Share: toShareResponse(share),
		Token: rawToken,
	})
}

// handleRedeem exchanges a raw emergency token for the scoped record payload.
// No authentication is required; the token is the credential. Rate limited
// per client IP.
func (h *EmergencyHandler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.limiter != nil {
		client := requestcontext.Client(ctx)
		result, err := h.limiter.Allow(ctx, "redeem:"+client.IPAddress, requestcontext.Now(ctx))
		if err != nil {
			writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "rate limiter failure"))
			return
		}
		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			writeError(w, dErrors.New(dErrors.CodeRateLimited, "too many redemption attempts"))
			return
		}
	}

	var req redeemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	data, err := h.emergency.Redeem(ctx, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, data)
}

func (h *EmergencyHandler) handleListShares(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	shares, err := h.emergency.ListShares(ctx, p.ActorID.AsPatient())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]*shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, toShareResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, &shareListResponse{Shares: out})
}

func (h *EmergencyHandler) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	shareID, err := id.ParseShareID(chi.URLParam(r, "shareID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid share ID"))
		return
	}

	share, err := h.emergency.Revoke(ctx, shareID, p.ActorID.AsPatient())
	if err != nil {
		h.logger.WarnContext(ctx, "failed to revoke emergency share",
			"request_id", requestcontext.RequestID(ctx),
			"share_id", shareID.String(),
			"error", err,
		)
		writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toShareResponse(share))
}
