package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/clinical-assessment-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite. It is the default
// zero-dependency store for single-clinic deployments.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store. It creates the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessment_records (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		input_snapshot TEXT NOT NULL,
		interpretation TEXT NOT NULL,
		override TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_patient ON assessment_records(patient_id);
	CREATE INDEX IF NOT EXISTS idx_records_patient_model ON assessment_records(patient_id, model_id);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON assessment_records(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface over sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*domain.HistoryRecord, error) {
	rec := &domain.HistoryRecord{}
	var snapshotJSON, interpJSON string
	var overrideJSON sql.NullString

	err := s.Scan(&rec.ID, &rec.PatientID, &rec.ModelID,
		&snapshotJSON, &interpJSON, &overrideJSON, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(snapshotJSON), &rec.InputSnapshot); err != nil {
		return nil, fmt.Errorf("failed to decode input snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(interpJSON), &rec.Interpretation); err != nil {
		return nil, fmt.Errorf("failed to decode interpretation: %w", err)
	}
	if overrideJSON.Valid && overrideJSON.String != "" {
		rec.Override = &domain.Override{}
		if err := json.Unmarshal([]byte(overrideJSON.String), rec.Override); err != nil {
			return nil, fmt.Errorf("failed to decode override: %w", err)
		}
	}
	return rec, nil
}

func encodeRecord(record *domain.HistoryRecord) (snapshot, interp string, override sql.NullString, err error) {
	snapshotBytes, err := json.Marshal(record.InputSnapshot)
	if err != nil {
		return "", "", sql.NullString{}, fmt.Errorf("failed to encode input snapshot: %w", err)
	}
	interpBytes, err := json.Marshal(record.Interpretation)
	if err != nil {
		return "", "", sql.NullString{}, fmt.Errorf("failed to encode interpretation: %w", err)
	}
	if record.Override != nil {
		overrideBytes, err := json.Marshal(record.Override)
		if err != nil {
			return "", "", sql.NullString{}, fmt.Errorf("failed to encode override: %w", err)
		}
		override = sql.NullString{String: string(overrideBytes), Valid: true}
	}
	return string(snapshotBytes), string(interpBytes), override, nil
}

// Save persists a new assessment record.
func (s *SQLiteStore) Save(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, saved.ID, saved.PatientID, saved.ModelID, snapshot, interp, override, saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return &saved, nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		FROM assessment_records
		WHERE id = ?
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
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID, modelID string) ([]*domain.HistoryRecord, error) {
	query := `
		SELECT id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		FROM assessment_records
		WHERE patient_id = ?
	`
	args := []any{patientID}
	if modelID != "" {
		query += " AND model_id = ?"
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
// Only the override column changes.
func (s *SQLiteStore) UpdateOverride(ctx context.Context, id string, override *domain.Override) (*domain.HistoryRecord, error) {
	overrideBytes, err := json.Marshal(override)
	if err != nil {
		return nil, fmt.Errorf("failed to encode override: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE assessment_records SET override = ? WHERE id = ?",
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_records").Scan(&count)
	return count, err
}

// maxExportLimit bounds a single export.
const maxExportLimit = 1000000

// ExportJSON exports all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, model_id, input_snapshot, interpretation, override, created_at
		FROM assessment_records
		ORDER BY created_at DESC, id DESC
		LIMIT ?
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		var existing int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM assessment_records WHERE id = ?", rec.ID).Scan(&existing)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
