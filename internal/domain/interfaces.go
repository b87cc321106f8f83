package domain

import (
	"context"
	"time"
)

// RawPrediction is the normalized payload returned by the prediction
// service, before interpretation against the model's classification scheme.
// PredictedClass is "positive"/"negative" for binary schemes and a class
// code for multi-class schemes; the gateway normalizes backend field-name
// variants to this shape at the edge.
type RawPrediction struct {
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
}

// Binary prediction class codes.
const (
	ClassPositive = "positive"
	ClassNegative = "negative"
)

// PredictionGateway submits a validated input snapshot to the inference
// backend. Implementations map transport and server failures to errors the
// session records as PredictionFailed; they never interpret the payload.
type PredictionGateway interface {
	Predict(ctx context.Context, modelID, patientID string, inputSnapshot map[string]any) (*RawPrediction, error)
}

// Override records a clinician's explicit confirmation or correction of the
// predicted classification. It is stored alongside the original prediction,
// never in place of it.
type Override struct {
	AcceptedLabel string    `json:"accepted_label"`
	Notes         string    `json:"notes,omitempty"`
	OverriddenBy  string    `json:"overridden_by,omitempty"`
	OverriddenAt  time.Time `json:"overridden_at"`
}

// HistoryRecord is one persisted assessment outcome. InputSnapshot is the
// exact input set at submission time and is immutable after creation; only
// Override may be attached or replaced later.
type HistoryRecord struct {
	ID             string         `json:"id"`
	PatientID      string         `json:"patient_id"`
	ModelID        string         `json:"model_id"`
	InputSnapshot  map[string]any `json:"input_snapshot"`
	Interpretation Interpretation `json:"interpretation"`
	Override       *Override      `json:"override,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// HistoryGateway persists and retrieves assessment outcomes for a patient.
type HistoryGateway interface {
	// FetchHistory returns a patient's records for a model, newest first.
	FetchHistory(ctx context.Context, patientID, modelID string) ([]*HistoryRecord, error)

	// SaveRecord persists a new record and returns it with ID and
	// CreatedAt assigned.
	SaveRecord(ctx context.Context, record *HistoryRecord) (*HistoryRecord, error)

	// UpdateOverride attaches or replaces the override on an existing
	// record without touching its snapshot or interpretation.
	UpdateOverride(ctx context.Context, recordID string, override *Override) (*HistoryRecord, error)
}

// PatientSummary is the read-only display context for a patient. It prefills
// nothing beyond an explicit, user-visible step; assessment inputs are never
// auto-populated from it.
type PatientSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
}

// PatientDirectory resolves patient display context.
type PatientDirectory interface {
	GetPatient(ctx context.Context, patientID string) (*PatientSummary, error)
}
