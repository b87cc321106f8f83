package history

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/domain"
)

// Controller mediates between sessions and the history store. It enforces
// the record contracts (complete interpretation on save, override attached
// without touching the original snapshot) and adds structured logging around
// store operations. It implements domain.HistoryGateway.
type Controller struct {
	store Store
	log   *logrus.Logger
}

// NewController creates a history controller over a store.
func NewController(store Store, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{store: store, log: log}
}

// FetchHistory returns a patient's records for a model, newest first. An
// empty modelID returns records across all models.
func (c *Controller) FetchHistory(ctx context.Context, patientID, modelID string) ([]*domain.HistoryRecord, error) {
	if patientID == "" {
		return nil, domain.NewValidationError("patient ID is required")
	}

	records, err := c.store.ListByPatient(ctx, patientID, modelID)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"model_id":   modelID,
		}).WithError(err).Error("Failed to fetch assessment history")
		return nil, domain.NewAssessmentError(domain.ErrCodePersistenceFailed,
			"failed to fetch assessment history", err.Error(), "")
	}

	c.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"model_id":   modelID,
		"count":      len(records),
	}).Debug("Fetched assessment history")
	return records, nil
}

// SaveRecord persists a completed assessment. The record must carry a
// patient, a model and an interpretation; the snapshot it carries becomes
// immutable once stored.
func (c *Controller) SaveRecord(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	if record == nil {
		return nil, domain.NewValidationError("record is required")
	}
	if record.PatientID == "" {
		return nil, domain.NewValidationError("record patient ID is required")
	}
	if record.ModelID == "" {
		return nil, domain.NewValidationError("record model ID is required")
	}
	if record.Interpretation.PredictedClass == "" {
		return nil, domain.NewValidationError("record interpretation is required")
	}

	saved, err := c.store.Save(ctx, record)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"patient_id": record.PatientID,
			"model_id":   record.ModelID,
		}).WithError(err).Error("Failed to save assessment record")
		return nil, domain.NewAssessmentError(domain.ErrCodePersistenceFailed,
			"failed to save assessment record", err.Error(), "")
	}

	c.log.WithFields(logrus.Fields{
		"record_id":  saved.ID,
		"patient_id": saved.PatientID,
		"model_id":   saved.ModelID,
	}).Info("Assessment record saved")
	return saved, nil
}

// UpdateOverride attaches or replaces a clinician override on an existing
// record. The original snapshot and interpretation are left untouched.
func (c *Controller) UpdateOverride(ctx context.Context, recordID string, override *domain.Override) (*domain.HistoryRecord, error) {
	if recordID == "" {
		return nil, domain.NewValidationError("record ID is required")
	}
	if override == nil {
		return nil, domain.NewValidationError("override is required")
	}
	if override.AcceptedLabel == "" {
		return nil, domain.NewValidationError("override accepted label is required")
	}

	updated, err := c.store.UpdateOverride(ctx, recordID, override)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		c.log.WithField("record_id", recordID).WithError(err).Error("Failed to update override")
		return nil, domain.NewAssessmentError(domain.ErrCodePersistenceFailed,
			"failed to update override", err.Error(), "")
	}

	c.log.WithFields(logrus.Fields{
		"record_id":      updated.ID,
		"accepted_label": override.AcceptedLabel,
	}).Info("Override attached to assessment record")
	return updated, nil
}

// GetRecord retrieves a single record by ID.
func (c *Controller) GetRecord(ctx context.Context, recordID string) (*domain.HistoryRecord, error) {
	if recordID == "" {
		return nil, domain.NewValidationError("record ID is required")
	}
	return c.store.Get(ctx, recordID)
}

// Export writes every stored record to the writer as JSON and returns the
// total record count.
func (c *Controller) Export(ctx context.Context, writer io.Writer) (int64, error) {
	if err := c.store.ExportJSON(ctx, writer); err != nil {
		return 0, domain.NewAssessmentError(domain.ErrCodePersistenceFailed,
			"failed to export history", err.Error(), "")
	}
	count, err := c.store.Count(ctx)
	if err != nil {
		return 0, domain.NewAssessmentError(domain.ErrCodePersistenceFailed,
			"failed to count history records", err.Error(), "")
	}
	c.log.WithField("count", count).Info("History exported")
	return count, nil
}

// Import reads records from a JSON backup, skipping IDs that already exist.
func (c *Controller) Import(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	imported, skipped, err = c.store.ImportJSON(ctx, reader)
	if err != nil {
		return 0, 0, domain.NewAssessmentError(domain.ErrCodePersistenceFailed,
			"failed to import history", err.Error(), "")
	}
	c.log.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("History imported")
	return imported, skipped, nil
}
