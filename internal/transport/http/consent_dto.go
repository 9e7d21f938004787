package httptransport

import (
	"time"

	"curanet/internal/consent/models"
)

// createRequestRequest is a provider's petition for consent.
type createRequestRequest struct {
	PatientID string   `json:"patient_id"`
	Scope     []string `json:"scope"`
	Purpose   string   `json:"purpose"`
	Message   string   `json:"message,omitempty"`
}

// approveRequestRequest optionally narrows scope and sets an expiry.
type approveRequestRequest struct {
	Scope     []string   `json:"scope,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type denyRequestRequest struct {
	Reason string `json:"reason,omitempty"`
}

type grantDirectRequest struct {
	ProviderID string     `json:"provider_id"`
	Scope      []string   `json:"scope"`
	Purpose    string     `json:"purpose"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type revokeRequest struct {
	Reason string `json:"reason,omitempty"`
}

// consentResponse represents a consent in HTTP responses. Status is computed
// against the request time, never read raw from storage.
type consentResponse struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	ProviderID     string     `json:"provider_id"`
	Scope          []string   `json:"scope"`
	Purpose        string     `json:"purpose,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

type consentListResponse struct {
	Consents []*consentResponse `json:"consents"`
}

// requestResponse represents a consent request in HTTP responses.
type requestResponse struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	ProviderID     string     `json:"provider_id"`
	RequestedScope []string   `json:"requested_scope"`
	Purpose        string     `json:"purpose,omitempty"`
	Message        string     `json:"message,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
}

type requestListResponse struct {
	Requests []*requestResponse `json:"requests"`
}

func toConsentResponse(c *models.Consent, now time.Time) *consentResponse {
	return &consentResponse{
		ID:             c.ID.String(),
		PatientID:      c.PatientID.String(),
		ProviderID:     c.ProviderID.String(),
		Scope:          c.Scope.Strings(),
		Purpose:        c.Purpose,
		Status:         string(c.ComputeStatus(now)),
		CreatedAt:      c.CreatedAt,
		ExpiresAt:      c.ExpiresAt,
		RevokedAt:      c.RevokedAt,
		AccessCount:    c.AccessCount,
		LastAccessedAt: c.LastAccessedAt,
	}
}

func toConsentListResponse(consents []*models.Consent, now time.Time) *consentListResponse {
	out := make([]*consentResponse, 0, len(consents))
	for _, c := range consents {
		out = append(out, toConsentResponse(c, now))
	}
	return &consentListResponse{Consents: out}
}

func toRequestResponse(r *models.ConsentRequest, now time.Time) *requestResponse {
	return &requestResponse{
		ID:             r.ID.String(),
		PatientID:      r.PatientID.String(),
		ProviderID:     r.ProviderID.String(),
		RequestedScope: r.RequestedScope.Strings(),
		Purpose:        r.Purpose,
		Message:        r.Message,
		Status:         string(r.ComputeStatus(now)),
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
		ReviewedAt:     r.ReviewedAt,
	}
}

func toRequestListResponse(requests []*models.ConsentRequest, now time.Time) *requestListResponse {
	out := make([]*requestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toRequestResponse(r, now))
	}
	return &requestListResponse{Requests: out}
}
