package api

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/domain"
)

// SessionManager tracks the live assessment sessions served over the API.
// Sessions are in-memory only; their outcomes reach storage through the
// history gateway when persisted.
type SessionManager struct {
	registry  *domain.Registry
	predictor domain.PredictionGateway
	history   domain.HistoryGateway
	log       *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionManager creates a session manager.
func NewSessionManager(registry *domain.Registry, predictor domain.PredictionGateway, history domain.HistoryGateway, log *logrus.Logger) *SessionManager {
	if log == nil {
		log = logrus.New()
	}
	return &SessionManager{
		registry:  registry,
		predictor: predictor,
		history:   history,
		log:       log,
		sessions:  make(map[string]*domain.Session),
	}
}

// Create starts a new assessment session for a patient and model.
func (m *SessionManager) Create(patientID, modelID string, opts ...domain.SessionOption) (*domain.Session, error) {
	if patientID == "" {
		return nil, domain.NewValidationError("patient ID is required")
	}

	model, err := m.registry.Get(modelID)
	if err != nil {
		return nil, err
	}

	opts = append(opts, domain.WithLogger(m.log))
	session := domain.NewSession(patientID, model, m.predictor, m.history, opts...)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"session_id": session.ID(),
		"patient_id": patientID,
		"model_id":   modelID,
	}).Info("Assessment session created")
	return session, nil
}

// Get returns a live session by ID.
func (m *SessionManager) Get(sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// Abandon discards a session. Any in-flight prediction result is dropped
// when it returns.
func (m *SessionManager) Abandon(sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}

	session.Abandon()
	m.log.WithField("session_id", sessionID).Info("Assessment session abandoned")
	return nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
