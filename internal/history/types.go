// Package history provides durable per-patient storage of assessment
// outcomes and the controller that enforces the history contract: records
// are immutable after creation except for the clinician override, and
// listings are always newest first.
package history

import (
	"context"
	"io"
	"time"

	"github.com/clinical-assessment-server/internal/domain"
)

// Store defines the persistence interface for assessment history records.
type Store interface {
	// Save persists a new record, assigning its ID and CreatedAt.
	Save(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error)

	// Get retrieves a record by ID. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.HistoryRecord, error)

	// ListByPatient returns a patient's records for a model, ordered by
	// CreatedAt descending. An empty modelID returns records across all
	// models.
	ListByPatient(ctx context.Context, patientID, modelID string) ([]*domain.HistoryRecord, error)

	// UpdateOverride attaches or replaces the override on an existing
	// record. The input snapshot and interpretation are never touched.
	UpdateOverride(ctx context.Context, id string, override *domain.Override) (*domain.HistoryRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads records from a JSON reader, skipping records whose
	// IDs already exist. Returns the number imported and skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export envelope.
type Export struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Count      int                     `json:"count"`
	Records    []*domain.HistoryRecord `json:"records"`
}

// exportVersion identifies the export format.
const exportVersion = "1.0"
