package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-assessment-server/internal/domain"
)

func newPatientServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/api/patients/patient-001":
			json.NewEncoder(w).Encode(domain.PatientSummary{
				ID:          "patient-001",
				DisplayName: "Jordan Avery",
				Age:         54,
				Gender:      "female",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPatientClient_GetPatient(t *testing.T) {
	var hits atomic.Int64
	server := newPatientServer(t, &hits)

	client := NewPatientClient(PatientsConfig{BaseURL: server.URL}, quietLogger())

	summary, err := client.GetPatient(context.Background(), "patient-001")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Avery", summary.DisplayName)
	assert.Equal(t, 54, summary.Age)
	assert.Equal(t, int64(1), hits.Load())
}

func TestPatientClient_GetPatient_CachesInMemory(t *testing.T) {
	var hits atomic.Int64
	server := newPatientServer(t, &hits)

	client := NewPatientClient(PatientsConfig{
		BaseURL:  server.URL,
		CacheTTL: time.Minute,
	}, quietLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.GetPatient(ctx, "patient-001")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), hits.Load(), "repeated lookups should hit the memory cache")

	stats := client.Stats()
	assert.Equal(t, int64(2), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.DirectoryHits)
}

func TestPatientClient_GetPatient_NotFound(t *testing.T) {
	var hits atomic.Int64
	server := newPatientServer(t, &hits)

	client := NewPatientClient(PatientsConfig{BaseURL: server.URL}, quietLogger())

	_, err := client.GetPatient(context.Background(), "patient-999")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatientClient_GetPatient_RequiresID(t *testing.T) {
	client := NewPatientClient(PatientsConfig{BaseURL: "http://localhost:0"}, quietLogger())

	_, err := client.GetPatient(context.Background(), "")
	assert.Error(t, err)
}

func TestPatientClient_Invalidate(t *testing.T) {
	var hits atomic.Int64
	server := newPatientServer(t, &hits)

	client := NewPatientClient(PatientsConfig{
		BaseURL:  server.URL,
		CacheTTL: time.Minute,
	}, quietLogger())

	ctx := context.Background()
	_, err := client.GetPatient(ctx, "patient-001")
	require.NoError(t, err)

	client.Invalidate(ctx, "patient-001")

	_, err = client.GetPatient(ctx, "patient-001")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load(), "invalidation should force a directory refetch")
}
