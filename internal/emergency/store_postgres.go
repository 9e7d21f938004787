package emergency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "curanet/pkg/domain"
	"curanet/pkg/platform/sentinel"
)

// PostgresStore persists emergency shares in PostgreSQL. Single-use is
// enforced with a conditional update on used=false, not a read-then-write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const shareColumns = `id, patient_id, token_hash, token_prefix, categories, created_by, created_at, expires_at, used, used_at, accessed_by`

func (s *PostgresStore) Create(ctx context.Context, share *Share) error {
	if share == nil {
		return fmt.Errorf("share is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emergency_shares (`+shareColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
	`,
		uuid.UUID(share.ID),
		uuid.UUID(share.PatientID),
		share.TokenHash,
		share.TokenPrefix,
		strings.Join(share.CategoryStrings(), ","),
		share.CreatedBy,
		share.CreatedAt,
		share.ExpiresAt,
		share.Used,
		share.UsedAt,
		share.AccessedBy,
	)
	if err != nil {
		return fmt.Errorf("create emergency share: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, shareID id.ShareID, patientID id.PatientID) (*Share, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shareColumns+`
		FROM emergency_shares
		WHERE id = $1 AND patient_id = $2
	`, uuid.UUID(shareID), uuid.UUID(patientID))

	share, err := scanShare(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find emergency share: %w", err)
	}
	return share, nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*Share, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareColumns+`
		FROM emergency_shares
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, uuid.UUID(patientID))
	if err != nil {
		return nil, fmt.Errorf("list emergency shares: %w", err)
	}
	return collectShares(rows)
}

func (s *PostgresStore) Candidates(ctx context.Context) ([]*Share, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareColumns+`
		FROM emergency_shares
	`)
	if err != nil {
		return nil, fmt.Errorf("list redemption candidates: %w", err)
	}
	return collectShares(rows)
}

func (s *PostgresStore) MarkUsed(ctx context.Context, shareID id.ShareID, usedAt time.Time, accessedBy string) (*Share, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE emergency_shares
		SET used = TRUE, used_at = $2, accessed_by = $3
		WHERE id = $1 AND used = FALSE
		RETURNING `+shareColumns+`
	`, uuid.UUID(shareID), usedAt, accessedBy)

	share, err := scanShare(row)
	if err == nil {
		return share, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark emergency share used: %w", err)
	}

	// Either the share never existed or it lost the race.
	var exists bool
	if checkErr := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM emergency_shares WHERE id = $1)`,
		uuid.UUID(shareID),
	).Scan(&exists); checkErr != nil {
		return nil, fmt.Errorf("mark emergency share used: %w", checkErr)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) CountActive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM emergency_shares
		WHERE used = FALSE AND expires_at >= $1
	`, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active emergency shares: %w", err)
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanShare(row scannable) (*Share, error) {
	var (
		share      Share
		shareID    uuid.UUID
		patientID  uuid.UUID
		categories string
		accessedBy sql.NullString
	)
	err := row.Scan(
		&shareID,
		&patientID,
		&share.TokenHash,
		&share.TokenPrefix,
		&categories,
		&share.CreatedBy,
		&share.CreatedAt,
		&share.ExpiresAt,
		&share.Used,
		&share.UsedAt,
		&accessedBy,
	)
	if err != nil {
		return nil, err
	}
	share.ID = id.ShareID(shareID)
	share.PatientID = id.PatientID(patientID)
	share.AccessedBy = accessedBy.String
	if categories != "" {
		for _, c := range strings.Split(categories, ",") {
			share.Categories = append(share.Categories, Category(c))
		}
	}
	return &share, nil
}

func collectShares(rows *sql.Rows) ([]*Share, error) {
	defer rows.Close()

	var out []*Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emergency share: %w", err)
		}
		out = append(out, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emergency shares: %w", err)
	}
	return out, nil
}
