package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"curanet/internal/consent/models"
	id "curanet/pkg/domain"
	"curanet/pkg/platform/sentinel"
)

// PostgresStore persists consents and consent requests in PostgreSQL.
//
// Pair-level serialization relies on partial unique indexes rather than
// application locks: one ACTIVE consent per (patient_id, provider_id), one
// PENDING request per pair. Concurrent writers race on the index and the
// loser surfaces as ErrConflict.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed consent store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const requestColumns = `id, patient_id, provider_id, requested_scope, purpose, message, status, created_at, expires_at, reviewed_at`

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.ConsentRequest) error {
	if req == nil {
		return fmt.Errorf("consent request is required")
	}
	query := `
		INSERT INTO consent_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (patient_id, provider_id) WHERE status = 'PENDING' DO NOTHING
		RETURNING id
	`
	var storedID uuid.UUID
	err := s.execer().QueryRowContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.PatientID),
		uuid.UUID(req.ProviderID),
		scopeToText(req.RequestedScope),
		req.Purpose,
		req.Message,
		string(req.Status),
		req.CreatedAt,
		req.ExpiresAt,
		req.ReviewedAt,
	).Scan(&storedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A PENDING row holds the slot. Only a live one counts; flip a
			// stale one to EXPIRED and retry once.
			n, expireErr := s.expirePendingForPair(ctx, req.PatientID, req.ProviderID, req.CreatedAt)
			if expireErr != nil {
				return expireErr
			}
			if n == 0 {
				return sentinel.ErrConflict
			}
			err = s.execer().QueryRowContext(ctx, query,
				uuid.UUID(req.ID),
				uuid.UUID(req.PatientID),
				uuid.UUID(req.ProviderID),
				scopeToText(req.RequestedScope),
				req.Purpose,
				req.Message,
				string(req.Status),
				req.CreatedAt,
				req.ExpiresAt,
				req.ReviewedAt,
			).Scan(&storedID)
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrConflict
			}
			if err != nil {
				return fmt.Errorf("create consent request: %w", err)
			}
			return nil
		}
		return fmt.Errorf("create consent request: %w", err)
	}
	return nil
}

func (s *PostgresStore) expirePendingForPair(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, now time.Time) (int64, error) {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE consent_requests
		SET status = 'EXPIRED'
		WHERE patient_id = $1 AND provider_id = $2 AND status = 'PENDING' AND expires_at < $3
	`, uuid.UUID(patientID), uuid.UUID(providerID), now)
	if err != nil {
		return 0, fmt.Errorf("expire stale requests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale requests: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) FindRequest(ctx context.Context, requestID id.RequestID, patientID id.PatientID) (*models.ConsentRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE id = $1 AND patient_id = $2
	`
	req, err := scanRequest(s.execer().QueryRowContext(ctx, query, uuid.UUID(requestID), uuid.UUID(patientID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListRequestsByPatient(ctx context.Context, patientID id.PatientID) ([]*models.ConsentRequest, error) {
	return s.listRequests(ctx, "patient_id", uuid.UUID(patientID))
}

func (s *PostgresStore) ListRequestsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.ConsentRequest, error) {
	return s.listRequests(ctx, "provider_id", uuid.UUID(providerID))
}

func (s *PostgresStore) listRequests(ctx context.Context, column string, value uuid.UUID) ([]*models.ConsentRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer().QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("list consent requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ConsentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateRequest(ctx context.Context, req *models.ConsentRequest) error {
	if req == nil {
		return fmt.Errorf("consent request is required")
	}
	res, err := s.execer().ExecContext(ctx, `
		UPDATE consent_requests
		SET status = $2, expires_at = $3, reviewed_at = $4
		WHERE id = $1
	`, uuid.UUID(req.ID), string(req.Status), req.ExpiresAt, req.ReviewedAt)
	if err != nil {
		return fmt.Errorf("update consent request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent request: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApproveRequest runs the review update and the consent insert in a single
// transaction so a conflict on the consent rolls back the request update.
func (s *PostgresStore) ApproveRequest(ctx context.Context, req *models.ConsentRequest, consent *models.Consent) error {
	if s.tx != nil {
		txStore := s
		if err := txStore.UpdateRequest(ctx, req); err != nil {
			return err
		}
		return txStore.CreateConsent(ctx, consent)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve transaction: %w", err)
	}
	defer tx.Rollback()

	txStore := NewPostgresTx(tx)
	if err := txStore.UpdateRequest(ctx, req); err != nil {
		return err
	}
	if err := txStore.CreateConsent(ctx, consent); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve transaction: %w", err)
	}
	return nil
}

const consentColumns = `id, patient_id, provider_id, scope, purpose, status, created_at, expires_at, revoked_at, access_count, last_accessed_at`

func (s *PostgresStore) CreateConsent(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	query := `
		INSERT INTO consents (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (patient_id, provider_id) WHERE status = 'ACTIVE' DO NOTHING
		RETURNING id
	`
	insert := func() error {
		var storedID uuid.UUID
		return s.execer().QueryRowContext(ctx, query,
			uuid.UUID(consent.ID),
			uuid.UUID(consent.PatientID),
			uuid.UUID(consent.ProviderID),
			scopeToText(consent.Scope),
			consent.Purpose,
			string(consent.Status),
			consent.CreatedAt,
			consent.ExpiresAt,
			consent.RevokedAt,
			consent.AccessCount,
			consent.LastAccessedAt,
		).Scan(&storedID)
	}

	err := insert()
	if errors.Is(err, sql.ErrNoRows) {
		// An ACTIVE row holds the slot. Only a live one is a real conflict;
		// flip an expired one and retry once.
		n, expireErr := s.expireActiveForPair(ctx, consent.PatientID, consent.ProviderID, consent.CreatedAt)
		if expireErr != nil {
			return expireErr
		}
		if n == 0 {
			return sentinel.ErrConflict
		}
		err = insert()
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
	}
	if err != nil {
		return fmt.Errorf("create consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) expireActiveForPair(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, now time.Time) (int64, error) {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE consents
		SET status = 'EXPIRED'
		WHERE patient_id = $1 AND provider_id = $2 AND status = 'ACTIVE'
		  AND expires_at IS NOT NULL AND expires_at < $3
	`, uuid.UUID(patientID), uuid.UUID(providerID), now)
	if err != nil {
		return 0, fmt.Errorf("expire stale consents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale consents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) FindConsent(ctx context.Context, consentID id.ConsentID, patientID id.PatientID) (*models.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE id = $1 AND patient_id = $2
	`
	c, err := scanConsent(s.execer().QueryRowContext(ctx, query, uuid.UUID(consentID), uuid.UUID(patientID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindActive(ctx context.Context, patientID id.PatientID, providerID id.ProviderID, now time.Time) ([]*models.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE patient_id = $1 AND provider_id = $2
		  AND status = 'ACTIVE'
		  AND revoked_at IS NULL
		  AND (expires_at IS NULL OR expires_at >= $3)
		ORDER BY created_at DESC
	`
	rows, err := s.execer().QueryContext(ctx, query, uuid.UUID(patientID), uuid.UUID(providerID), now)
	if err != nil {
		return nil, fmt.Errorf("find active consents: %w", err)
	}
	defer rows.Close()

	var out []*models.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListConsentsByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	return s.listConsents(ctx, "patient_id", uuid.UUID(patientID))
}

func (s *PostgresStore) ListConsentsByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.Consent, error) {
	return s.listConsents(ctx, "provider_id", uuid.UUID(providerID))
}

func (s *PostgresStore) listConsents(ctx context.Context, column string, value uuid.UUID) ([]*models.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer().QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var out []*models.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, consentID id.ConsentID, patientID id.PatientID, revokedAt time.Time) (*models.Consent, error) {
	query := `
		UPDATE consents
		SET status = 'REVOKED', revoked_at = $3
		WHERE id = $1 AND patient_id = $2
		  AND status = 'ACTIVE'
		  AND revoked_at IS NULL
		  AND (expires_at IS NULL OR expires_at >= $3)
		RETURNING ` + consentColumns + `
	`
	c, err := scanConsent(s.execer().QueryRowContext(ctx, query, uuid.UUID(consentID), uuid.UUID(patientID), revokedAt))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke consent: %w", err)
	}

	// Distinguish missing from not-revocable for the caller's error taxonomy.
	if _, findErr := s.FindConsent(ctx, consentID, patientID); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) IncrementAccess(ctx context.Context, consentID id.ConsentID, at time.Time) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE consents
		SET access_count = access_count + 1, last_accessed_at = $2
		WHERE id = $1
	`, uuid.UUID(consentID), at)
	if err != nil {
		return fmt.Errorf("increment access count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment access count: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExpirePendingRequests(ctx context.Context, now time.Time) (int, error) {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE consent_requests
		SET status = 'EXPIRED'
		WHERE status = 'PENDING' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire pending requests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending requests: %w", err)
	}
	return int(n), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanConsent(row scannable) (*models.Consent, error) {
	var (
		c          models.Consent
		consentID  uuid.UUID
		patientID  uuid.UUID
		providerID uuid.UUID
		scope      string
		status     string
	)
	err := row.Scan(
		&consentID,
		&patientID,
		&providerID,
		&scope,
		&c.Purpose,
		&status,
		&c.CreatedAt,
		&c.ExpiresAt,
		&c.RevokedAt,
		&c.AccessCount,
		&c.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ConsentID(consentID)
	c.PatientID = id.PatientID(patientID)
	c.ProviderID = id.ProviderID(providerID)
	c.Scope = scopeFromText(scope)
	c.Status = models.ConsentStatus(status)
	return &c, nil
}

func scanRequest(row scannable) (*models.ConsentRequest, error) {
	var (
		r          models.ConsentRequest
		requestID  uuid.UUID
		patientID  uuid.UUID
		providerID uuid.UUID
		scope      string
		status     string
	)
	err := row.Scan(
		&requestID,
		&patientID,
		&providerID,
		&scope,
		&r.Purpose,
		&r.Message,
		&status,
		&r.CreatedAt,
		&r.ExpiresAt,
		&r.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.RequestID(requestID)
	r.PatientID = id.PatientID(patientID)
	r.ProviderID = id.ProviderID(providerID)
	r.RequestedScope = scopeFromText(scope)
	r.Status = models.RequestStatus(status)
	return &r, nil
}

// Scope sets are stored as a comma-joined canonical string. Values come from
// a closed enum that never contains commas.
func scopeToText(set models.ScopeSet) string {
	return strings.Join(set.Strings(), ",")
}

func scopeFromText(raw string) models.ScopeSet {
	if raw == "" {
		return nil
	}
	set, ok := models.ParseScopeSet(strings.Split(raw, ","))
	if !ok {
		return nil
	}
	return set
}
