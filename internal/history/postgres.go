package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/clinical-assessment-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL. The schema
// is managed via migrations (internal/database).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store over an existing
// connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromPool creates a history store backed by an existing
// pgx connection pool. Closing the store releases the database/sql adapter
// but leaves the pool itself open; the pool owner closes it.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	return NewPostgresStore(stdlib.OpenDBFromPool(pool))
}

// Save persists a new assessment record.
func (s *PostgresStore) Save(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	saved := *record
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}

	snapshot, interp, override, err := encodeRecord(&saved)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessment_records (
			id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, saved.ID, saved.PatientID, saved.ModelID, snapshot, interp, override, saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return &saved, nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		FROM assessment_records
		WHERE id = $1
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	return rec, nil
}

// ListByPatient returns a patient's records newest first.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID, modelID string) ([]*domain.HistoryRecord, error) {
	query := `
		SELECT id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		FROM assessment_records
		WHERE patient_id = $1
	`
	args := []any{patientID}
	if modelID != "" {
		query += " AND model_id = $2"
		args = append(args, modelID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []*domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// UpdateOverride attaches or replaces the override on an existing record.
func (s *PostgresStore) UpdateOverride(ctx context.Context, id string, override *domain.Override) (*domain.HistoryRecord, error) {
	overrideBytes, err := json.Marshal(override)
	if err != nil {
		return nil, fmt.Errorf("failed to encode override: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE assessment_records SET override = $1 WHERE id = $2",
		string(overrideBytes), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}

	return s.Get(ctx, id)
}

// Count returns the total number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// ExportJSON exports all records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		FROM assessment_records
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, maxExportLimit)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var all []*domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		all = append(all, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports records from a JSON reader, skipping existing IDs.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		var existing int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM assessment_records WHERE id = $1", rec.ID).Scan(&existing)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing > 0 {
			skipped++
			continue
		}

		if _, err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
