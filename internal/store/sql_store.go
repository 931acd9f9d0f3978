package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/landbank/internal/types"
)

// SQLStore implements Store on database/sql. Queries use $N placeholders,
// which both lib/pq and modernc.org/sqlite accept, so the same store runs
// against Postgres in production and SQLite locally.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a SQLStore around an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the portal tables. Column types stay in the SQL subset
// both drivers understand.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS properties (
			id                TEXT PRIMARY KEY,
			parcel_id         TEXT NOT NULL UNIQUE,
			address           TEXT NOT NULL,
			program_type      TEXT NOT NULL,
			buyer_name        TEXT NOT NULL DEFAULT '',
			buyer_email       TEXT NOT NULL DEFAULT '',
			buyer_phone       TEXT NOT NULL DEFAULT '',
			close_date        TIMESTAMP,
			first_attempt     TIMESTAMP,
			second_attempt    TIMESTAMP,
			last_contact_date TIMESTAMP,
			enforcement_level INTEGER NOT NULL DEFAULT 0,
			status            TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMP NOT NULL,
			updated_at        TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS communications (
			id              TEXT PRIMARY KEY,
			property_id     TEXT NOT NULL,
			action          TEXT NOT NULL,
			channel         TEXT NOT NULL DEFAULT 'email',
			recipient_email TEXT NOT NULL DEFAULT '',
			subject         TEXT NOT NULL DEFAULT '',
			body_text       TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			template_name   TEXT NOT NULL DEFAULT '',
			sent_at         TIMESTAMP,
			created_at      TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_communications_property
			ON communications (property_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS templates (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			program_types TEXT NOT NULL,
			variants      TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS submissions (
			id              TEXT PRIMARY KEY,
			confirmation_id TEXT NOT NULL,
			property_id     TEXT NOT NULL,
			type            TEXT NOT NULL,
			form_data       TEXT NOT NULL DEFAULT '{}',
			status          TEXT NOT NULL,
			created_at      TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_submissions_property
			ON submissions (property_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS documents (
			id            TEXT PRIMARY KEY,
			submission_id TEXT NOT NULL,
			property_id   TEXT NOT NULL,
			filename      TEXT NOT NULL,
			mime_type     TEXT NOT NULL,
			size_bytes    INTEGER NOT NULL DEFAULT 0,
			category      TEXT NOT NULL DEFAULT 'document',
			slot          TEXT NOT NULL DEFAULT '',
			blob_url      TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS access_tokens (
			id          TEXT PRIMARY KEY,
			token       TEXT NOT NULL UNIQUE,
			property_id TEXT NOT NULL,
			expires_at  TIMESTAMP NOT NULL,
			revoked_at  TIMESTAMP,
			created_at  TIMESTAMP NOT NULL
		);
	`)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// ── Properties ──────────────────────────────────────────────────────────────

const propertyColumns = `id, parcel_id, address, program_type, buyer_name, buyer_email,
	buyer_phone, close_date, first_attempt, second_attempt, last_contact_date,
	enforcement_level, status, created_at, updated_at`

func (s *SQLStore) CreateProperty(ctx context.Context, p *types.Property) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `INSERT INTO properties (`+propertyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.ParcelID, p.Address, p.ProgramType, p.BuyerName, p.BuyerEmail,
		p.BuyerPhone, nullTime(closeOrNil(p)), nullTime(p.FirstAttempt),
		nullTime(p.SecondAttempt), nullTime(p.LastContactDate),
		p.EnforcementLevel, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// closeOrNil maps the zero close date to SQL NULL.
func closeOrNil(p *types.Property) *time.Time {
	if p.CloseDate.IsZero() {
		return nil
	}
	t := p.CloseDate
	return &t
}

func scanProperty(row interface{ Scan(...any) error }) (types.Property, error) {
	var p types.Property
	var closeDate, first, second, lastContact sql.NullTime
	err := row.Scan(
		&p.ID, &p.ParcelID, &p.Address, &p.ProgramType, &p.BuyerName, &p.BuyerEmail,
		&p.BuyerPhone, &closeDate, &first, &second, &lastContact,
		&p.EnforcementLevel, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return types.Property{}, err
	}
	if closeDate.Valid {
		p.CloseDate = closeDate.Time
	}
	p.FirstAttempt = timePtr(first)
	p.SecondAttempt = timePtr(second)
	p.LastContactDate = timePtr(lastContact)
	return p, nil
}

func (s *SQLStore) GetProperty(ctx context.Context, id string) (types.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Property{}, ErrNotFound
	}
	if err != nil {
		return types.Property{}, fmt.Errorf("scanning property: %w", err)
	}
	return p, nil
}

func (s *SQLStore) GetPropertyByParcel(ctx context.Context, parcelID string) (types.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE parcel_id = $1`, parcelID)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Property{}, ErrNotFound
	}
	if err != nil {
		return types.Property{}, fmt.Errorf("scanning property: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListProperties(ctx context.Context, f PropertyFilter) ([]types.Property, error) {
	conditions := []string{"1 = 1"}
	var args []any
	argN := 1

	if f.ProgramType != "" {
		conditions = append(conditions, fmt.Sprintf("program_type = $%d", argN))
		args = append(args, f.ProgramType)
		argN++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argN))
		args = append(args, f.Status)
		argN++
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	query := fmt.Sprintf(`SELECT `+propertyColumns+` FROM properties
		WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), argN)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var out []types.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateProperty(ctx context.Context, p *types.Property) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE properties SET
			parcel_id = $1, address = $2, program_type = $3, buyer_name = $4,
			buyer_email = $5, buyer_phone = $6, close_date = $7, first_attempt = $8,
			second_attempt = $9, last_contact_date = $10, enforcement_level = $11,
			status = $12, updated_at = $13
		WHERE id = $14`,
		p.ParcelID, p.Address, p.ProgramType, p.BuyerName,
		p.BuyerEmail, p.BuyerPhone, nullTime(closeOrNil(p)), nullTime(p.FirstAttempt),
		nullTime(p.SecondAttempt), nullTime(p.LastContactDate), p.EnforcementLevel,
		p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Communications ──────────────────────────────────────────────────────────

func (s *SQLStore) CreateCommunication(ctx context.Context, c *types.Communication) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO communications
			(id, property_id, action, channel, recipient_email, subject, body_text,
			status, template_name, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.PropertyID, c.Action, c.Channel, c.Recipient, c.Subject, c.Body,
		c.Status, c.TemplateName, nullTime(c.SentAt), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting communication: %w", err)
	}
	return nil
}

func (s *SQLStore) ListCommunications(ctx context.Context, propertyID string) ([]types.Communication, error) {
	query := `SELECT id, property_id, action, channel, recipient_email, subject,
			body_text, status, template_name, sent_at, created_at
		FROM communications`
	var args []any
	if propertyID != "" {
		query += ` WHERE property_id = $1`
		args = append(args, propertyID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying communications: %w", err)
	}
	defer rows.Close()

	var out []types.Communication
	for rows.Next() {
		var c types.Communication
		var sentAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.Action, &c.Channel, &c.Recipient,
			&c.Subject, &c.Body, &c.Status, &c.TemplateName, &sentAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning communication: %w", err)
		}
		c.SentAt = timePtr(sentAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ── Templates ───────────────────────────────────────────────────────────────

func (s *SQLStore) CreateTemplate(ctx context.Context, t *types.MessageTemplate) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	programs, _ := json.Marshal(t.ProgramTypes)
	variants, _ := json.Marshal(t.Variants)
	_, err := s.db.ExecContext(ctx, `INSERT INTO templates
			(id, name, program_types, variants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, string(programs), string(variants), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

func scanTemplate(row interface{ Scan(...any) error }) (types.MessageTemplate, error) {
	var t types.MessageTemplate
	var programs, variants string
	if err := row.Scan(&t.ID, &t.Name, &programs, &variants, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return types.MessageTemplate{}, err
	}
	if err := json.Unmarshal([]byte(programs), &t.ProgramTypes); err != nil {
		return types.MessageTemplate{}, fmt.Errorf("decoding program_types: %w", err)
	}
	if err := json.Unmarshal([]byte(variants), &t.Variants); err != nil {
		return types.MessageTemplate{}, fmt.Errorf("decoding variants: %w", err)
	}
	return t, nil
}

func (s *SQLStore) GetTemplate(ctx context.Context, id string) (types.MessageTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, program_types, variants, created_at, updated_at
		FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.MessageTemplate{}, ErrNotFound
	}
	if err != nil {
		return types.MessageTemplate{}, fmt.Errorf("scanning template: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTemplates(ctx context.Context) ([]types.MessageTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, program_types, variants, created_at, updated_at
		FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var out []types.MessageTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateTemplate(ctx context.Context, t *types.MessageTemplate) error {
	t.UpdatedAt = time.Now().UTC()
	programs, _ := json.Marshal(t.ProgramTypes)
	variants, _ := json.Marshal(t.Variants)
	res, err := s.db.ExecContext(ctx, `UPDATE templates SET
			name = $1, program_types = $2, variants = $3, updated_at = $4
		WHERE id = $5`,
		t.Name, string(programs), string(variants), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Submissions ─────────────────────────────────────────────────────────────

func (s *SQLStore) CreateSubmission(ctx context.Context, sub *types.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.ConfirmationID == "" {
		sub.ConfirmationID = "LB-" + strings.ToUpper(sub.ID[:8])
	}
	sub.CreatedAt = time.Now().UTC()

	formData, _ := json.Marshal(sub.FormData)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO submissions
			(id, confirmation_id, property_id, type, form_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.ConfirmationID, sub.PropertyID, sub.Type, string(formData),
		sub.Status, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}

	for i := range sub.Documents {
		doc := &sub.Documents[i]
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		doc.SubmissionID = sub.ID
		doc.PropertyID = sub.PropertyID
		doc.CreatedAt = sub.CreatedAt
		_, err = tx.ExecContext(ctx, `INSERT INTO documents
				(id, submission_id, property_id, filename, mime_type, size_bytes,
				category, slot, blob_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			doc.ID, doc.SubmissionID, doc.PropertyID, doc.Filename, doc.MimeType,
			doc.SizeBytes, doc.Category, doc.Slot, doc.BlobURL, doc.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (types.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, confirmation_id, property_id, type,
			form_data, status, created_at
		FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Submission{}, ErrNotFound
	}
	if err != nil {
		return types.Submission{}, fmt.Errorf("scanning submission: %w", err)
	}
	docs, err := s.documentsForSubmission(ctx, sub.ID)
	if err != nil {
		return types.Submission{}, err
	}
	sub.Documents = docs
	return sub, nil
}

func scanSubmission(row interface{ Scan(...any) error }) (types.Submission, error) {
	var sub types.Submission
	var formData string
	if err := row.Scan(&sub.ID, &sub.ConfirmationID, &sub.PropertyID, &sub.Type,
		&formData, &sub.Status, &sub.CreatedAt); err != nil {
		return types.Submission{}, err
	}
	if formData != "" && formData != "{}" {
		if err := json.Unmarshal([]byte(formData), &sub.FormData); err != nil {
			return types.Submission{}, fmt.Errorf("decoding form_data: %w", err)
		}
	}
	return sub, nil
}

func (s *SQLStore) documentsForSubmission(ctx context.Context, submissionID string) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, submission_id, property_id,
			filename, mime_type, size_bytes, category, slot, blob_url, created_at
		FROM documents WHERE submission_id = $1 ORDER BY created_at`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []types.Document
	for rows.Next() {
		var d types.Document
		if err := rows.Scan(&d.ID, &d.SubmissionID, &d.PropertyID, &d.Filename,
			&d.MimeType, &d.SizeBytes, &d.Category, &d.Slot, &d.BlobURL, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]types.Submission, error) {
	conditions := []string{"1 = 1"}
	var args []any
	argN := 1

	if f.PropertyID != "" {
		conditions = append(conditions, fmt.Sprintf("property_id = $%d", argN))
		args = append(args, f.PropertyID)
		argN++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argN))
		args = append(args, f.Status)
		argN++
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT id, confirmation_id, property_id, type, form_data,
			status, created_at
		FROM submissions WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), argN)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var out []types.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		docs, err := s.documentsForSubmission(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Documents = docs
	}
	return out, nil
}

// ── Access tokens ───────────────────────────────────────────────────────────

func (s *SQLStore) CreateAccessToken(ctx context.Context, t *types.AccessToken) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO access_tokens
			(id, token, property_id, expires_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Token, t.PropertyID, t.ExpiresAt, nullTime(t.RevokedAt), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting access token: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAccessToken(ctx context.Context, token string) (types.AccessToken, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, token, property_id, expires_at,
			revoked_at, created_at
		FROM access_tokens WHERE token = $1`, token)

	var t types.AccessToken
	var revoked sql.NullTime
	err := row.Scan(&t.ID, &t.Token, &t.PropertyID, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AccessToken{}, ErrNotFound
	}
	if err != nil {
		return types.AccessToken{}, fmt.Errorf("scanning access token: %w", err)
	}
	t.RevokedAt = timePtr(revoked)
	return t, nil
}

func (s *SQLStore) ListAccessTokens(ctx context.Context, propertyID string) ([]types.AccessToken, error) {
	query := `SELECT id, token, property_id, expires_at, revoked_at, created_at
		FROM access_tokens`
	var args []any
	if propertyID != "" {
		query += ` WHERE property_id = $1`
		args = append(args, propertyID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying access tokens: %w", err)
	}
	defer rows.Close()

	var out []types.AccessToken
	for rows.Next() {
		var t types.AccessToken
		var revoked sql.NullTime
		if err := rows.Scan(&t.ID, &t.Token, &t.PropertyID, &t.ExpiresAt, &revoked, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning access token: %w", err)
		}
		t.RevokedAt = timePtr(revoked)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) RevokeAccessToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE access_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("revoking access token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
