package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "curanet/pkg/domain"
)

// PostgresStore persists the audit trail in PostgreSQL. The schema grants the
// application role INSERT and SELECT only; UPDATE and DELETE are revoked at
// the database level as a second line behind this interface.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, subject_id, actor_id, action, resource_type, resource_id, consent_id, reason, metadata, ip_address, user_agent, created_at`

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12)
	`,
		uuid.UUID(entry.ID),
		entry.SubjectID,
		entry.ActorID,
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		entry.ConsentID,
		entry.Reason,
		metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter QueryFilter, page Page) ([]*Entry, int, error) {
	page = page.Normalize()
	where, args := buildWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_entries` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+entryColumns+`
		FROM audit_entries`+where+`
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset)

	entries, err := s.queryEntries(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *PostgresStore) ExportRange(ctx context.Context, filter QueryFilter, limit int) ([]*Entry, error) {
	limit = clampExportLimit(limit)
	where, args := buildWhere(filter)

	query := fmt.Sprintf(`
		SELECT `+entryColumns+`
		FROM audit_entries`+where+`
		ORDER BY created_at ASC
		LIMIT $%d
	`, len(args)+1)
	args = append(args, limit)

	return s.queryEntries(ctx, query, args)
}

func buildWhere(filter QueryFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.SubjectID != "" {
		add("subject_id = $%d", filter.SubjectID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func (s *PostgresStore) queryEntries(ctx context.Context, query string, args []any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		e         Entry
		entryID   uuid.UUID
		consentID sql.NullString
		reason    sql.NullString
		metadata  []byte
	)
	err := rows.Scan(
		&entryID,
		&e.SubjectID,
		&e.ActorID,
		(*string)(&e.Action),
		&e.ResourceType,
		&e.ResourceID,
		&consentID,
		&reason,
		&metadata,
		&e.IPAddress,
		&e.UserAgent,
		&e.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id.EntryID(entryID)
	e.ConsentID = consentID.String
	e.Reason = reason.String
	if len(metadata) > 0 {
		var m Metadata
		if err := json.Unmarshal(metadata, &m); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
		e.Metadata = &m
	}
	return &e, nil
}
