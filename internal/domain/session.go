package domain

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionSnapshot is the read-only view of a session exposed to the
// presentation layer. The view renders snapshots and raises events through
// the session's methods; it never mutates session state directly.
type SessionSnapshot struct {
	SessionID   string            `json:"session_id"`
	PatientID   string            `json:"patient_id"`
	ModelID     string            `json:"model_id"`
	Status      SessionStatus     `json:"status"`
	InputValues map[string]any    `json:"input_values"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Result      *Interpretation   `json:"result,omitempty"`
	Override    *Override         `json:"override,omitempty"`
	LastError   *AssessmentError  `json:"last_error,omitempty"`
	RecordID    string            `json:"record_id,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TransitionFunc observes session snapshots after each state transition.
// Bound at construction; invoked outside the session lock.
type TransitionFunc func(SessionSnapshot)

// Session orchestrates one end-to-end assessment run for one patient and one
// disease model. It owns its input values and result for its lifetime; a new
// assessment for the same patient starts a fresh session.
//
// Prediction and persistence are separate, independently retryable steps: a
// failure saving to history never forces re-running inference.
type Session struct {
	id        string
	patientID string
	model     *AssessmentModel

	predictor PredictionGateway
	history   HistoryGateway
	log       *logrus.Logger

	mu            sync.Mutex
	status        SessionStatus
	inputValues   map[string]any
	fieldErrors   map[string]string
	typedSnapshot map[string]any
	result        *Interpretation
	override      *Override
	lastError     *AssessmentError
	recordID      string
	updatedAt     time.Time

	// epoch identifies the current submission attempt. A network result
	// carrying a stale epoch belongs to an abandoned or superseded attempt
	// and is discarded instead of mutating the session.
	epoch     uint64
	abandoned bool

	onTransition TransitionFunc
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithTransitionObserver registers a callback invoked after every state
// transition, with the fresh snapshot.
func WithTransitionObserver(fn TransitionFunc) SessionOption {
	return func(s *Session) { s.onTransition = fn }
}

// WithLogger sets a custom logger.
func WithLogger(log *logrus.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession creates a session in the Editing state for the given patient
// and model, with constructor-injected gateways.
func NewSession(patientID string, model *AssessmentModel, predictor PredictionGateway, history HistoryGateway, opts ...SessionOption) *Session {
	s := &Session{
		id:          uuid.New().String(),
		patientID:   patientID,
		model:       model,
		predictor:   predictor,
		history:     history,
		log:         logrus.New(),
		status:      StatusEditing,
		inputValues: make(map[string]any),
		fieldErrors: make(map[string]string),
		updatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns the current read-only view of the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSnapshot {
	return SessionSnapshot{
		SessionID:   s.id,
		PatientID:   s.patientID,
		ModelID:     s.model.ID,
		Status:      s.status,
		InputValues: copyValues(s.inputValues),
		FieldErrors: copyErrors(s.fieldErrors),
		Result:      s.result,
		Override:    s.override,
		LastError:   s.lastError,
		RecordID:    s.recordID,
		UpdatedAt:   s.updatedAt,
	}
}

func (s *Session) transitionLocked(to SessionStatus) {
	from := s.status
	s.status = to
	s.updatedAt = time.Now().UTC()
	s.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"patient_id": s.patientID,
		"model_id":   s.model.ID,
		"from":       from.String(),
		"to":         to.String(),
	}).Debug("Session transition")
}

// notify publishes the given snapshot to the transition observer. Called
// after the lock is released.
func (s *Session) notify(snap SessionSnapshot) {
	if s.onTransition != nil {
		s.onTransition(snap)
	}
}

// SetField records one raw input value and re-validates only that field,
// setting or clearing its field error. Allowed while Editing; from Failed it
// returns the session to Editing first so the clinician can amend input
// after a failed submission.
func (s *Session) SetField(name string, value any) error {
	s.mu.Lock()

	switch s.status {
	case StatusEditing:
	case StatusFailed:
		s.lastError = nil
		s.transitionLocked(StatusEditing)
	default:
		defer s.mu.Unlock()
		return StateConflictError(s.id, "setField", s.status)
	}

	spec, known := s.model.FieldByName(name)
	if !known {
		s.inputValues[name] = value
		s.fieldErrors[name] = "unknown field"
		s.updatedAt = time.Now().UTC()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}

	s.inputValues[name] = value
	if _, ferr := ValidateField(spec, value); ferr != nil {
		s.fieldErrors[name] = ferr.Reason
	} else {
		delete(s.fieldErrors, name)
	}
	s.updatedAt = time.Now().UTC()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Submit validates the full input set and, when valid, issues exactly one
// prediction call. Re-entrant calls while a prediction is in flight are
// rejected; validation failure returns the session to Editing with populated
// field errors and no network call is made.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusSubmitting {
		defer s.mu.Unlock()
		return StateConflictError(s.id, "submit", s.status)
	}
	if s.status != StatusEditing && s.status != StatusFailed {
		defer s.mu.Unlock()
		return StateConflictError(s.id, "submit", s.status)
	}
	return s.submitLocked(ctx)
}

// Retry re-runs a failed submission re-using the captured input, without
// re-prompting the user to re-enter data.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusFailed {
		defer s.mu.Unlock()
		return StateConflictError(s.id, "retry", s.status)
	}
	s.lastError = nil
	return s.submitLocked(ctx)
}

// submitLocked runs the Validating -> Submitting -> Resulted/Failed leg.
// Enters holding the lock, releases it around the network call, and
// re-acquires it to apply the outcome.
func (s *Session) submitLocked(ctx context.Context) error {
	s.transitionLocked(StatusValidating)

	validation := ValidateAll(s.model, s.inputValues)
	if !validation.IsValid {
		s.fieldErrors = validation.FieldErrors
		s.transitionLocked(StatusEditing)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		s.log.WithFields(logrus.Fields{
			"session_id":   s.id,
			"model_id":     s.model.ID,
			"field_errors": len(validation.FieldErrors),
		}).Info("Submission blocked by field validation")
		return NewAssessmentError(ErrCodeValidation, "input validation failed", "", s.id)
	}

	s.fieldErrors = make(map[string]string)
	s.typedSnapshot = copyValues(validation.Typed)
	s.epoch++
	epoch := s.epoch
	s.transitionLocked(StatusSubmitting)
	snapshot := copyValues(s.typedSnapshot)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	raw, err := s.predictor.Predict(ctx, s.model.ID, s.patientID, snapshot)

	s.mu.Lock()
	if s.abandoned || s.epoch != epoch {
		defer s.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"epoch":      epoch,
		}).Warn("Discarding prediction result for abandoned or superseded submission")
		return nil
	}

	if err != nil {
		s.lastError = PredictionFailedError(s.id, err)
		s.transitionLocked(StatusFailed)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		s.log.WithError(err).WithField("session_id", s.id).Error("Prediction request failed")
		return s.lastError
	}

	interp, ierr := Interpret(s.model, raw, snapshot)
	if ierr != nil {
		assessErr, ok := ierr.(*AssessmentError)
		if !ok {
			assessErr = MalformedPredictionError(s.id, ierr.Error())
		}
		assessErr.SessionID = s.id
		s.lastError = assessErr
		s.transitionLocked(StatusFailed)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		s.log.WithError(ierr).WithFields(logrus.Fields{
			"session_id": s.id,
			"model_id":   s.model.ID,
		}).Error("Prediction payload could not be interpreted")
		return assessErr
	}

	s.result = interp
	s.lastError = nil
	s.transitionLocked(StatusResulted)
	resultSnap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(resultSnap)

	fields := logrus.Fields{"session_id": s.id, "patient_id": s.patientID, "model_id": s.model.ID}
	for k, v := range interp.LogFields() {
		fields[k] = v
	}
	s.log.WithFields(fields).Info("Assessment resulted")
	return nil
}

// SetOverride records the clinician's confirmation or correction of the
// predicted classification. Allowed only at Resulted; it never re-invokes
// prediction.
func (s *Session) SetOverride(acceptedLabel, notes, overriddenBy string) error {
	s.mu.Lock()
	if s.status != StatusResulted {
		defer s.mu.Unlock()
		return StateConflictError(s.id, "override", s.status)
	}
	s.override = &Override{
		AcceptedLabel: acceptedLabel,
		Notes:         notes,
		OverriddenBy:  overriddenBy,
		OverriddenAt:  time.Now().UTC(),
	}
	s.updatedAt = time.Now().UTC()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Persist saves the assessment outcome to the patient's history. Requires a
// Resulted session; a persistence failure returns the session to Resulted
// with the interpreted result retained, so saving can be retried without
// re-running prediction. On success the session is Saved, which is terminal.
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusResulted {
		defer s.mu.Unlock()
		return StateConflictError(s.id, "persist", s.status)
	}
	if s.result == nil {
		defer s.mu.Unlock()
		return NewAssessmentError(ErrCodeValidation, "cannot persist a session without a result", "", s.id)
	}

	record := &HistoryRecord{
		PatientID:      s.patientID,
		ModelID:        s.model.ID,
		InputSnapshot:  copyValues(s.typedSnapshot),
		Interpretation: *s.result,
		Override:       s.override,
	}
	s.transitionLocked(StatusSaving)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	saved, err := s.history.SaveRecord(ctx, record)

	s.mu.Lock()
	if s.abandoned {
		defer s.mu.Unlock()
		s.log.WithField("session_id", s.id).Warn("Discarding persist outcome for abandoned session")
		return nil
	}
	if err != nil {
		s.lastError = PersistenceFailedError(s.id, err)
		s.transitionLocked(StatusResulted)
		failSnap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(failSnap)
		s.log.WithError(err).WithField("session_id", s.id).Error("Failed to persist assessment")
		return s.lastError
	}

	s.recordID = saved.ID
	s.lastError = nil
	s.transitionLocked(StatusSaved)
	savedSnap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(savedSnap)

	s.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"record_id":  saved.ID,
		"patient_id": s.patientID,
		"model_id":   s.model.ID,
	}).Info("Assessment persisted to patient history")
	return nil
}

// Abandon marks the session as abandoned, e.g. when the clinician navigates
// away mid-submission. An in-flight request is not force-cancelled at the
// network layer, but its result is discarded when it resolves instead of
// mutating a stale session.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandoned = true
	s.epoch++
}

func copyValues(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyErrors(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
