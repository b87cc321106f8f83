package history

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-assessment-server/internal/domain"
)

type fakeStore struct {
	records map[string]*domain.HistoryRecord
	order   []string
	fail    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*domain.HistoryRecord{}}
}

func (f *fakeStore) Save(_ context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	saved := *record
	if saved.ID == "" {
		saved.ID = "rec-" + time.Now().Format("150405.000000000")
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}
	f.records[saved.ID] = &saved
	f.order = append(f.order, saved.ID)
	return &saved, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*domain.HistoryRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) ListByPatient(_ context.Context, patientID, modelID string) ([]*domain.HistoryRecord, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	var out []*domain.HistoryRecord
	for i := len(f.order) - 1; i >= 0; i-- {
		rec := f.records[f.order[i]]
		if rec.PatientID != patientID {
			continue
		}
		if modelID != "" && rec.ModelID != modelID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) UpdateOverride(_ context.Context, id string, override *domain.Override) (*domain.HistoryRecord, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Override = override
	return rec, nil
}

func (f *fakeStore) Count(_ context.Context) (int64, error) { return int64(len(f.records)), nil }

func (f *fakeStore) ExportJSON(context.Context, io.Writer) error { return f.fail }

func (f *fakeStore) ImportJSON(context.Context, io.Reader) (int, int, error) {
	return 0, 0, f.fail
}

func (f *fakeStore) Close() error { return nil }

func testController(store Store) *Controller {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewController(store, log)
}

func TestController_SaveRecord(t *testing.T) {
	store := newFakeStore()
	ctrl := testController(store)

	saved, err := ctrl.SaveRecord(context.Background(), sampleRecord("patient-001", "diabetes"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestController_SaveRecord_RequiresInterpretation(t *testing.T) {
	ctrl := testController(newFakeStore())

	rec := sampleRecord("patient-001", "diabetes")
	rec.Interpretation = domain.Interpretation{}

	_, err := ctrl.SaveRecord(context.Background(), rec)
	require.Error(t, err)

	var ae *domain.AssessmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.ErrCodeValidation, ae.Code)
}

func TestController_SaveRecord_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = errors.New("disk full")
	ctrl := testController(store)

	_, err := ctrl.SaveRecord(context.Background(), sampleRecord("patient-001", "diabetes"))
	require.Error(t, err)

	var ae *domain.AssessmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.ErrCodePersistenceFailed, ae.Code)
	assert.True(t, ae.Retryable())
}

func TestController_FetchHistory_NewestFirst(t *testing.T) {
	store := newFakeStore()
	ctrl := testController(store)
	ctx := context.Background()

	first, err := ctrl.SaveRecord(ctx, sampleRecord("patient-001", "diabetes"))
	require.NoError(t, err)
	second, err := ctrl.SaveRecord(ctx, sampleRecord("patient-001", "diabetes"))
	require.NoError(t, err)

	records, err := ctrl.FetchHistory(ctx, "patient-001", "diabetes")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
}

func TestController_FetchHistory_RequiresPatient(t *testing.T) {
	ctrl := testController(newFakeStore())

	_, err := ctrl.FetchHistory(context.Background(), "", "diabetes")
	require.Error(t, err)

	var ae *domain.AssessmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.ErrCodeValidation, ae.Code)
}

func TestController_UpdateOverride(t *testing.T) {
	store := newFakeStore()
	ctrl := testController(store)
	ctx := context.Background()

	saved, err := ctrl.SaveRecord(ctx, sampleRecord("patient-001", "breast-cancer"))
	require.NoError(t, err)

	override := &domain.Override{
		AcceptedLabel: "Benign",
		OverriddenBy:  "dr-okafor",
		OverriddenAt:  time.Now().UTC(),
	}

	updated, err := ctrl.UpdateOverride(ctx, saved.ID, override)
	require.NoError(t, err)
	require.NotNil(t, updated.Override)
	assert.Equal(t, "Benign", updated.Override.AcceptedLabel)

	// Attaching an override leaves the stored snapshot and prediction intact.
	assert.Equal(t, saved.Interpretation.PredictedClass, updated.Interpretation.PredictedClass)
	assert.Equal(t, saved.InputSnapshot, updated.InputSnapshot)
}

func TestController_UpdateOverride_Validation(t *testing.T) {
	ctrl := testController(newFakeStore())
	ctx := context.Background()

	_, err := ctrl.UpdateOverride(ctx, "", &domain.Override{AcceptedLabel: "Benign"})
	require.Error(t, err)

	_, err = ctrl.UpdateOverride(ctx, "rec-1", nil)
	require.Error(t, err)

	_, err = ctrl.UpdateOverride(ctx, "rec-1", &domain.Override{})
	require.Error(t, err)
}

func TestController_UpdateOverride_NotFound(t *testing.T) {
	ctrl := testController(newFakeStore())

	_, err := ctrl.UpdateOverride(context.Background(), "missing",
		&domain.Override{AcceptedLabel: "Benign"})
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestController_GetRecord(t *testing.T) {
	store := newFakeStore()
	ctrl := testController(store)
	ctx := context.Background()

	saved, err := ctrl.SaveRecord(ctx, sampleRecord("patient-001", "diabetes"))
	require.NoError(t, err)

	got, err := ctrl.GetRecord(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)

	_, err = ctrl.GetRecord(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestController_ExportStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = errors.New("disk full")
	ctrl := testController(store)

	var buf bytes.Buffer
	_, err := ctrl.Export(context.Background(), &buf)
	require.Error(t, err)

	var ae *domain.AssessmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.ErrCodePersistenceFailed, ae.Code)

	_, _, err = ctrl.Import(context.Background(), &buf)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.ErrCodePersistenceFailed, ae.Code)
}
