package history

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-assessment-server/internal/domain"
)

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var recordColumns = []string{
	"id", "patient_id", "model_id", "input_snapshot", "interpretation", "override", "created_at",
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	mock.ExpectExec("INSERT INTO assessment_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Save(context.Background(), sampleRecord("patient-001", "diabetes"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	interp := `{"predicted_class":"positive","predicted_label":"Diabetes Likely","confidence":0.87,"confidence_display":"87.0%","severity_tier":"HIGH","severity_rank":1,"interpreted_at":"2025-03-01T12:00:00Z"}`
	rows := sqlmock.NewRows(recordColumns).
		AddRow("rec-1", "patient-001", "diabetes", `{"hba1c":7.1}`, interp,
			nil, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	mock.ExpectQuery("SELECT (.+) FROM assessment_records").
		WithArgs("rec-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "patient-001", got.PatientID)
	assert.Equal(t, 7.1, got.InputSnapshot["hba1c"])
	assert.Equal(t, domain.TierHigh, got.Interpretation.SeverityTier)
	assert.Nil(t, got.Override)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	mock.ExpectQuery("SELECT (.+) FROM assessment_records").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_UpdateOverride_NotFound(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	mock.ExpectExec("UPDATE assessment_records SET override").
		WillReturnResult(sqlmock.NewResult(0, 0))

	override := &domain.Override{AcceptedLabel: "Benign", OverriddenAt: time.Now()}
	_, err := store.UpdateOverride(context.Background(), "missing", override)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Live tests run against a real database when TEST_DATABASE_URL is set.
func getLiveStore(t *testing.T) *PostgresStore {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS assessment_records (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			input_snapshot TEXT NOT NULL,
			interpretation TEXT NOT NULL,
			override TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM assessment_records")
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store
}

func TestPostgresStore_Live_SaveAndList(t *testing.T) {
	store := getLiveStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := sampleRecord("patient-001", "diabetes")
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := store.Save(ctx, rec)
		require.NoError(t, err)
	}

	records, err := store.ListByPatient(ctx, "patient-001", "diabetes")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i-1].CreatedAt.Before(records[i].CreatedAt))
	}
}

func TestPostgresStore_Live_OverrideRoundTrip(t *testing.T) {
	store := getLiveStore(t)
	defer store.Close()

	ctx := context.Background()

	saved, err := store.Save(ctx, sampleRecord("patient-001", "breast-cancer"))
	require.NoError(t, err)

	override := &domain.Override{
		AcceptedLabel: "Benign",
		Notes:         "Biopsy contradicts imaging features",
		OverriddenBy:  "dr-okafor",
		OverriddenAt:  time.Now().UTC(),
	}

	updated, err := store.UpdateOverride(ctx, saved.ID, override)
	require.NoError(t, err)
	require.NotNil(t, updated.Override)
	assert.Equal(t, "Benign", updated.Override.AcceptedLabel)
	assert.Equal(t, saved.Interpretation.PredictedClass, updated.Interpretation.PredictedClass)
	assert.Equal(t, saved.InputSnapshot["hba1c"], updated.InputSnapshot["hba1c"])
}

func TestNewPostgresStoreFromPool_RequiresPool(t *testing.T) {
	_, err := NewPostgresStoreFromPool(nil)
	require.Error(t, err)
}

func TestPostgresStore_Live_FromPool(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS assessment_records (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			input_snapshot TEXT NOT NULL,
			interpretation TEXT NOT NULL,
			override TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	require.NoError(t, err)

	store, err := NewPostgresStoreFromPool(pool)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Save(ctx, sampleRecord("patient-pool", "diabetes"))
	require.NoError(t, err)
	defer func() {
		_, _ = pool.Exec(ctx, "DELETE FROM assessment_records WHERE patient_id = 'patient-pool'")
	}()

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "patient-pool", got.PatientID)
}
