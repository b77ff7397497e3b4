package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

const uniqueViolation = "23505"

type OnboardingRepository struct {
	db *sql.DB
}

func NewOnboardingRepository(db *sql.DB) *OnboardingRepository {
	return &OnboardingRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *OnboardingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS onboardings (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL UNIQUE,
	profile JSONB NOT NULL,
	address JSONB,
	legal_representatives JSONB,
	operational_contact JSONB,
	financial_contact JSONB,
	channel JSONB,
	agent JSONB,
	integrations JSONB,
	notes TEXT NOT NULL DEFAULT '',
	documents JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_onboardings_status ON onboardings(status);
CREATE INDEX IF NOT EXISTS idx_onboardings_created_at ON onboardings(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const recordColumns = `id, owner_id, profile, address, legal_representatives, operational_contact, financial_contact, channel, agent, integrations, notes, documents, status, created_at, updated_at`

func (r *OnboardingRepository) Create(ctx context.Context, record *domain.Record) error {
	cols, err := marshalRecord(record)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO onboardings (`+recordColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		record.ID, record.OwnerID, cols.profile, cols.address, cols.representatives,
		cols.operational, cols.financial, cols.channel, cols.agent, cols.integrations,
		record.Notes, cols.documents, string(record.Status), record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.WrapError(domain.ErrConflict, "insert onboarding",
				fmt.Errorf("owner %s already has a record", record.OwnerID))
		}
		return fmt.Errorf("insert onboarding: %w", err)
	}
	return nil
}

func (r *OnboardingRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM onboardings
WHERE owner_id = $1
`, ownerID)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get onboarding by owner",
				fmt.Errorf("owner %s", ownerID))
		}
		return nil, err
	}
	return record, nil
}

func (r *OnboardingRepository) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM onboardings
WHERE id = $1
`, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get onboarding", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return record, nil
}

func (r *OnboardingRepository) Update(ctx context.Context, record *domain.Record) error {
	cols, err := marshalRecord(record)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE onboardings
SET profile = $2, address = $3, legal_representatives = $4, operational_contact = $5,
	financial_contact = $6, channel = $7, agent = $8, integrations = $9,
	notes = $10, status = $11, updated_at = $12
WHERE id = $1
`,
		record.ID, cols.profile, cols.address, cols.representatives, cols.operational,
		cols.financial, cols.channel, cols.agent, cols.integrations,
		record.Notes, string(record.Status), record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update onboarding: %w", err)
	}
	return requireRow(result, "update onboarding", record.ID)
}

func (r *OnboardingRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE onboardings
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update onboarding status: %w", err)
	}
	return requireRow(result, "update onboarding status", id)
}

// AppendDocument adds a document reference under a row lock so concurrent
// attach/detach calls against the same record cannot lose updates.
func (r *OnboardingRepository) AppendDocument(ctx context.Context, recordID string, doc domain.Document) error {
	return r.mutateDocuments(ctx, recordID, func(docs []domain.Document) []domain.Document {
		return append(docs, doc)
	})
}

// RemoveDocument drops the reference with the given handle. Removing a
// handle that is already gone is a no-op: the caller's goal state holds.
func (r *OnboardingRepository) RemoveDocument(ctx context.Context, recordID, handle string) error {
	return r.mutateDocuments(ctx, recordID, func(docs []domain.Document) []domain.Document {
		kept := docs[:0]
		for _, doc := range docs {
			if doc.Handle != handle {
				kept = append(kept, doc)
			}
		}
		return kept
	})
}

func (r *OnboardingRepository) mutateDocuments(
	ctx context.Context,
	recordID string,
	mutate func([]domain.Document) []domain.Document,
) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin documents tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var raw []byte
	err = tx.QueryRowContext(ctx, `
SELECT documents FROM onboardings WHERE id = $1 FOR UPDATE
`, recordID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrNotFound, "lock onboarding", fmt.Errorf("id %s", recordID))
		}
		return fmt.Errorf("lock onboarding row: %w", err)
	}

	var docs []domain.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return fmt.Errorf("unmarshal documents: %w", err)
	}

	docs = mutate(docs)
	if docs == nil {
		docs = []domain.Document{}
	}
	updated, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE onboardings SET documents = $2, updated_at = $3 WHERE id = $1
`, recordID, updated, time.Now().UTC()); err != nil {
		return fmt.Errorf("update documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit documents tx: %w", err)
	}
	return nil
}

func (r *OnboardingRepository) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recordColumns+`
FROM onboardings
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list onboardings: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate onboardings: %w", err)
	}
	return records, nil
}

func (r *OnboardingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM onboardings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete onboarding: %w", err)
	}
	return requireRow(result, "delete onboarding", id)
}

func requireRow(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

type recordColumnsJSON struct {
	profile         []byte
	address         []byte
	representatives []byte
	operational     []byte
	financial       []byte
	channel         []byte
	agent           []byte
	integrations    []byte
	documents       []byte
}

func marshalRecord(record *domain.Record) (recordColumnsJSON, error) {
	var cols recordColumnsJSON
	var err error

	if cols.profile, err = json.Marshal(record.Profile); err != nil {
		return cols, fmt.Errorf("marshal profile: %w", err)
	}
	if cols.address, err = marshalOptional(record.Address); err != nil {
		return cols, fmt.Errorf("marshal address: %w", err)
	}
	if record.LegalRepresentatives != nil {
		if cols.representatives, err = json.Marshal(record.LegalRepresentatives); err != nil {
			return cols, fmt.Errorf("marshal legal representatives: %w", err)
		}
	}
	if cols.operational, err = marshalOptional(record.OperationalContact); err != nil {
		return cols, fmt.Errorf("marshal operational contact: %w", err)
	}
	if cols.financial, err = marshalOptional(record.FinancialContact); err != nil {
		return cols, fmt.Errorf("marshal financial contact: %w", err)
	}
	cols.channel = record.Channel
	cols.agent = record.Agent
	cols.integrations = record.Integrations

	docs := record.Documents
	if docs == nil {
		docs = []domain.Document{}
	}
	if cols.documents, err = json.Marshal(docs); err != nil {
		return cols, fmt.Errorf("marshal documents: %w", err)
	}
	return cols, nil
}

func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var record domain.Record
	var profile, address, representatives, operational, financial []byte
	var channel, agent, integrations, documents []byte
	var status string

	err := row.Scan(
		&record.ID, &record.OwnerID, &profile, &address, &representatives,
		&operational, &financial, &channel, &agent, &integrations,
		&record.Notes, &documents, &status, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan onboarding: %w", err)
	}

	if err := json.Unmarshal(profile, &record.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if err := unmarshalOptional(address, &record.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	if len(representatives) > 0 {
		if err := json.Unmarshal(representatives, &record.LegalRepresentatives); err != nil {
			return nil, fmt.Errorf("unmarshal legal representatives: %w", err)
		}
	}
	if err := unmarshalOptional(operational, &record.OperationalContact); err != nil {
		return nil, fmt.Errorf("unmarshal operational contact: %w", err)
	}
	if err := unmarshalOptional(financial, &record.FinancialContact); err != nil {
		return nil, fmt.Errorf("unmarshal financial contact: %w", err)
	}
	record.Channel = cloneRaw(channel)
	record.Agent = cloneRaw(agent)
	record.Integrations = cloneRaw(integrations)

	if err := json.Unmarshal(documents, &record.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	record.Status = domain.Status(status)
	return &record, nil
}

func unmarshalOptional[T any](raw []byte, target **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*target = &v
	return nil
}

func cloneRaw(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
