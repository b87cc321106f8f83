package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/domain"
)

// PatientsConfig configures the patient directory client.
type PatientsConfig struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// DirectoryStats tracks cache performance for the patient directory.
type DirectoryStats struct {
	MemoryHits    int64 `json:"memory_hits"`
	RedisHits     int64 `json:"redis_hits"`
	DirectoryHits int64 `json:"directory_hits"`
	Misses        int64 `json:"misses"`
	Errors        int64 `json:"errors"`
}

// PatientClient resolves patient display summaries from the directory
// service with two cache tiers: an in-process expiring LRU for hot entries
// and an optional shared Redis tier. Summaries are display context only;
// nothing from them feeds assessment inputs. It implements
// domain.PatientDirectory.
type PatientClient struct {
	baseURL     string
	httpClient  *http.Client
	memoryCache *expirable.LRU[string, *domain.PatientSummary]
	redisClient *redis.Client
	redisTTL    time.Duration
	log         *logrus.Logger

	statsMu sync.Mutex
	stats   DirectoryStats
}

// PatientClientOption customizes the patient client.
type PatientClientOption func(*PatientClient)

// WithRedisCache enables the shared Redis cache tier.
func WithRedisCache(client *redis.Client, ttl time.Duration) PatientClientOption {
	return func(c *PatientClient) {
		c.redisClient = client
		if ttl > 0 {
			c.redisTTL = ttl
		}
	}
}

// NewPatientClient creates a new patient directory client.
func NewPatientClient(config PatientsConfig, logger *logrus.Logger, opts ...PatientClientOption) *PatientClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CacheSize == 0 {
		config.CacheSize = 1024
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}

	client := &PatientClient{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		memoryCache: expirable.NewLRU[string, *domain.PatientSummary](config.CacheSize, nil, config.CacheTTL),
		redisTTL:    config.CacheTTL,
		log:         logger,
	}

	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetPatient resolves a patient summary, consulting the cache tiers before
// the directory service.
func (c *PatientClient) GetPatient(ctx context.Context, patientID string) (*domain.PatientSummary, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient ID cannot be empty")
	}

	if summary, ok := c.memoryCache.Get(patientID); ok {
		c.incrementStat(func(s *DirectoryStats) { s.MemoryHits++ })
		return summary, nil
	}

	if summary := c.getFromRedis(ctx, patientID); summary != nil {
		c.incrementStat(func(s *DirectoryStats) { s.RedisHits++ })
		c.memoryCache.Add(patientID, summary)
		return summary, nil
	}

	summary, err := c.fetchFromDirectory(ctx, patientID)
	if err != nil {
		c.incrementStat(func(s *DirectoryStats) { s.Errors++ })
		return nil, err
	}

	c.incrementStat(func(s *DirectoryStats) { s.DirectoryHits++ })
	c.memoryCache.Add(patientID, summary)
	c.setInRedis(ctx, patientID, summary)
	return summary, nil
}

// Invalidate drops a patient from both cache tiers.
func (c *PatientClient) Invalidate(ctx context.Context, patientID string) {
	c.memoryCache.Remove(patientID)
	if c.redisClient != nil {
		if err := c.redisClient.Del(ctx, redisPatientKey(patientID)).Err(); err != nil {
			c.log.WithField("patient_id", patientID).WithError(err).Warn("Failed to invalidate Redis entry")
		}
	}
}

// Stats returns cache performance counters.
func (c *PatientClient) Stats() DirectoryStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *PatientClient) incrementStat(fn func(*DirectoryStats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

func redisPatientKey(patientID string) string {
	return "patient:summary:" + patientID
}

func (c *PatientClient) getFromRedis(ctx context.Context, patientID string) *domain.PatientSummary {
	if c.redisClient == nil {
		return nil
	}

	payload, err := c.redisClient.Get(ctx, redisPatientKey(patientID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithField("patient_id", patientID).WithError(err).Warn("Redis lookup failed")
		}
		return nil
	}

	summary := &domain.PatientSummary{}
	if err := json.Unmarshal(payload, summary); err != nil {
		c.log.WithField("patient_id", patientID).WithError(err).Warn("Corrupt Redis cache entry")
		return nil
	}
	return summary
}

func (c *PatientClient) setInRedis(ctx context.Context, patientID string, summary *domain.PatientSummary) {
	if c.redisClient == nil {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, redisPatientKey(patientID), payload, c.redisTTL).Err(); err != nil {
		c.log.WithField("patient_id", patientID).WithError(err).Warn("Failed to populate Redis cache")
	}
}

func (c *PatientClient) fetchFromDirectory(ctx context.Context, patientID string) (*domain.PatientSummary, error) {
	url := fmt.Sprintf("%s/api/patients/%s", c.baseURL, patientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("patient directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("patient directory returned status %d", resp.StatusCode)
	}

	summary := &domain.PatientSummary{}
	if err := json.NewDecoder(resp.Body).Decode(summary); err != nil {
		return nil, fmt.Errorf("failed to decode patient summary: %w", err)
	}
	return summary, nil
}
