// Package gateway contains the HTTP clients for the services the assessment
// workflow depends on: the model inference backend and the patient directory.
// Clients normalize backend payload variants at the edge so the rest of the
// system only sees the canonical shapes defined in internal/domain.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/clinical-assessment-server/internal/domain"
)

// PredictionConfig configures the inference backend client.
type PredictionConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      int
	RateBurst      int
	BreakerEnabled bool
}

// PredictionClient calls the model inference backend. It implements
// domain.PredictionGateway.
type PredictionClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Logger
}

// NewPredictionClient creates a new inference backend client.
func NewPredictionClient(config PredictionConfig, logger *logrus.Logger) *PredictionClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if logger == nil {
		logger = logrus.New()
	}

	client := &PredictionClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		log:       logger,
	}

	if config.BreakerEnabled {
		client.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "PredictionService",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}

	return client
}

type predictRequest struct {
	PatientID string         `json:"patient_id"`
	Inputs    map[string]any `json:"inputs"`
}

// Predict submits a validated input snapshot for inference and returns the
// normalized prediction.
func (c *PredictionClient) Predict(ctx context.Context, modelID, patientID string, inputSnapshot map[string]any) (*domain.RawPrediction, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	call := func() (*domain.RawPrediction, error) {
		return c.predict(ctx, modelID, patientID, inputSnapshot)
	}

	if c.breaker == nil {
		return call()
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return call()
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.RawPrediction), nil
}

func (c *PredictionClient) predict(ctx context.Context, modelID, patientID string, inputSnapshot map[string]any) (*domain.RawPrediction, error) {
	body, err := json.Marshal(predictRequest{
		PatientID: patientID,
		Inputs:    inputSnapshot,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	url := fmt.Sprintf("%s/api/predict/%s", c.baseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"model_id":    modelID,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Prediction service request completed")

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("prediction service returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode prediction response: %w", err)
	}

	return normalizePrediction(raw)
}

// Backends name the predicted class field inconsistently across model
// versions. These are checked in order.
var predictedClassKeys = []string{
	"predicted_class", "prediction", "prediction_result", "result", "predicted_stage", "class",
}

var confidenceKeys = []string{"confidence", "probability", "score"}

var probabilityMapKeys = []string{"probabilities", "class_probabilities"}

// normalizePrediction maps the field-name and value variants the inference
// backends emit onto the canonical RawPrediction shape. Structural problems
// (no recognizable class field) are transport errors here; semantic problems
// (bad confidence, inconsistent probabilities) are left for interpretation.
func normalizePrediction(raw map[string]any) (*domain.RawPrediction, error) {
	pred := &domain.RawPrediction{}

	var classValue any
	found := false
	for _, key := range predictedClassKeys {
		if v, ok := raw[key]; ok && v != nil {
			classValue = v
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("prediction payload has no recognizable class field")
	}

	class, err := normalizeClassValue(classValue)
	if err != nil {
		return nil, err
	}
	pred.PredictedClass = class

	for _, key := range confidenceKeys {
		if v, ok := raw[key]; ok {
			conf, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("prediction confidence %q is not numeric", key)
			}
			pred.Confidence = conf
			break
		}
	}

	for _, key := range probabilityMapKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("prediction probabilities %q is not an object", key)
		}
		pred.Probabilities = make(map[string]float64, len(m))
		for class, p := range m {
			f, ok := p.(float64)
			if !ok {
				return nil, fmt.Errorf("probability for class %q is not numeric", class)
			}
			pred.Probabilities[class] = f
		}
		break
	}

	return pred, nil
}

// normalizeClassValue converts the binary class variants (booleans, 0/1,
// yes/no, label aliases) to the canonical codes. Unrecognized strings pass
// through unchanged as multi-class codes.
func normalizeClassValue(value any) (string, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return domain.ClassPositive, nil
		}
		return domain.ClassNegative, nil
	case float64:
		switch v {
		case 1:
			return domain.ClassPositive, nil
		case 0:
			return domain.ClassNegative, nil
		}
		return "", fmt.Errorf("numeric predicted class %v is not 0 or 1", v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "positive", "true", "yes", "1", "malignant":
			return domain.ClassPositive, nil
		case "negative", "false", "no", "0", "benign":
			return domain.ClassNegative, nil
		case "":
			return "", fmt.Errorf("predicted class is empty")
		}
		return strings.TrimSpace(v), nil
	default:
		return "", fmt.Errorf("predicted class has unsupported type %T", value)
	}
}
