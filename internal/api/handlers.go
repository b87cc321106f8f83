package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinical-assessment-server/internal/domain"
)

type createSessionRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
	ModelID   string `json:"model_id" binding:"required"`
}

type setFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

type overrideRequest struct {
	AcceptedLabel string `json:"accepted_label" binding:"required"`
	Notes         string `json:"notes"`
	OverriddenBy  string `json:"overridden_by"`
}

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.registry.List()})
}

func (s *Server) handleGetModel(c *gin.Context) {
	model, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	summary, err := s.patients.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError(err.Error()))
		return
	}

	session, err := s.sessions.Create(req.PatientID, req.ModelID,
		domain.WithTransitionObserver(s.hub.Publish))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session.Snapshot())
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleSetField(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	var req setFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError(err.Error()))
		return
	}

	// Field-level failures are part of the editing flow; the snapshot
	// carries them back instead of an error status.
	if err := session.SetField(req.Field, req.Value); err != nil {
		var fe *domain.FieldError
		if !errors.As(err, &fe) {
			s.renderError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleSubmit(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	if err := session.Submit(c.Request.Context()); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleRetry(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	if err := session.Retry(c.Request.Context()); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleSetOverride(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError(err.Error()))
		return
	}

	if err := session.SetOverride(req.AcceptedLabel, req.Notes, req.OverriddenBy); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handlePersist(c *gin.Context) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	if err := session.Persist(c.Request.Context()); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleAbandonSession(c *gin.Context) {
	if err := s.sessions.Abandon(c.Param("id")); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListHistory(c *gin.Context) {
	patientID := c.Query("patient_id")
	modelID := c.Query("model_id")

	records, err := s.history.FetchHistory(c.Request.Context(), patientID, modelID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"count":      len(records),
		"records":    records,
	})
}

func (s *Server) handleGetRecord(c *gin.Context) {
	record, err := s.history.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleRecordOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError(err.Error()))
		return
	}

	record, err := s.history.UpdateOverride(c.Request.Context(), c.Param("id"), &domain.Override{
		AcceptedLabel: req.AcceptedLabel,
		Notes:         req.Notes,
		OverriddenBy:  req.OverriddenBy,
		OverriddenAt:  time.Now().UTC(),
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
