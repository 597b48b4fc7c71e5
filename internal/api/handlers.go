package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/feedback"
	"github.com/frame-dx-server/internal/health"
)

const (
	diagnosisIDHeader = "X-Diagnosis-ID"
	snapshotHeader    = "X-Frames-Version"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultPageSize = 50
	maxPageSize     = 500
)

// handleHealth reports liveness and the frame snapshot being served.
func (s *Server) handleHealth(c *gin.Context) {
	catalog := s.deps.Frames.Catalog()
	body := gin.H{
		"status":           health.StateHealthy,
		"timestamp":        time.Now().UTC(),
		"uptime":           time.Since(s.startedAt).String(),
		"frames_version":   catalog.Version(),
		"frames":           len(catalog.AllFrames()),
		"diseases":         len(catalog.Diseases()),
		"frames_loaded_at": s.deps.Frames.LoadedAt().UTC(),
		"history_enabled":  s.deps.Diagnosis.HistoryEnabled(),
		"feedback_enabled": s.deps.Feedback != nil,
	}

	code := http.StatusOK
	if s.deps.Health != nil {
		report := s.deps.Health.Run(c.Request.Context())
		body["status"] = report.Overall
		body["components"] = report.Components
		if report.Overall == health.StateUnhealthy {
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, body)
}

// handleFrames serves the full hierarchy for the tree view.
func (s *Server) handleFrames(c *gin.Context) {
	catalog := s.deps.Frames.Catalog()
	c.Header(snapshotHeader, catalog.Version())
	c.JSON(http.StatusOK, catalog.Hierarchy())
}

// handleSymptoms serves the autocomplete vocabulary.
func (s *Server) handleSymptoms(c *gin.Context) {
	catalog := s.deps.Frames.Catalog()
	c.Header(snapshotHeader, catalog.Version())
	c.JSON(http.StatusOK, catalog.SymptomVocabulary())
}

// handleDiseases lists the frames that take part in ranking.
func (s *Server) handleDiseases(c *gin.Context) {
	catalog := s.deps.Frames.Catalog()
	c.Header(snapshotHeader, catalog.Version())
	c.JSON(http.StatusOK, catalog.Diseases())
}

// handleDiagnose ranks the frames against the posted symptoms.
func (s *Server) handleDiagnose(c *gin.Context) {
	var req domain.DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
		return
	}

	opts, err := parseDiagnoseOptions(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	outcome, err := s.deps.Diagnosis.Run(c.Request.Context(), req.Symptoms, opts, requestID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if outcome.RecordID != "" {
		c.Header(diagnosisIDHeader, outcome.RecordID)
	}
	c.Header(snapshotHeader, outcome.Result.SnapshotVersion)
	c.JSON(http.StatusOK, outcome.Result.Response())
}

func parseDiagnoseOptions(c *gin.Context) (domain.DiagnoseOptions, error) {
	var opts domain.DiagnoseOptions

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return opts, invalidRequest("limit", "must be a non-negative integer", raw)
		}
		opts.Limit = limit
	}

	if raw := c.Query("exclude_zero"); raw != "" {
		exclude, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, invalidRequest("exclude_zero", "must be a boolean", raw)
		}
		opts.ExcludeZero = exclude
	}

	return opts, nil
}

// handleReload rebuilds the frame store from its source.
func (s *Server) handleReload(c *gin.Context) {
	store, err := s.deps.Frames.Reload(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":     requestID(c),
		"frames_version": store.Version(),
	}).Info("Frame store reloaded via API")

	c.JSON(http.StatusOK, gin.H{
		"frames_version": store.Version(),
		"frames":         store.Len(),
		"diseases":       len(store.Diseases()),
	})
}

type feedbackRequest struct {
	Symptoms         []string `json:"symptoms"`
	SuggestedDisease string   `json:"suggested_disease"`
	ConfirmedDisease string   `json:"confirmed_disease"`
	Reviewer         string   `json:"reviewer"`
	Notes            string   `json:"notes"`
}

// handleSaveFeedback records a reviewer's verdict. When the request omits the
// suggested disease, the engine's current top result is used.
func (s *Server) handleSaveFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, errFeedbackDisabled)
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
		return
	}

	fb := &feedback.Feedback{
		Symptoms:         req.Symptoms,
		SuggestedDisease: req.SuggestedDisease,
		ConfirmedDisease: req.ConfirmedDisease,
		Reviewer:         req.Reviewer,
		Notes:            req.Notes,
	}

	result, err := s.deps.Diagnosis.Diagnose(c.Request.Context(), req.Symptoms, domain.DiagnoseOptions{})
	if err != nil {
		s.respondError(c, err)
		return
	}
	fb.SnapshotVersion = result.SnapshotVersion
	if fb.SuggestedDisease == "" {
		if top, ok := result.Top(); ok {
			fb.SuggestedDisease = top.Disease
		}
	}

	if err := s.deps.Feedback.Save(c.Request.Context(), fb); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"feedback_id": fb.ID,
		"suggested":   fb.SuggestedDisease,
		"confirmed":   fb.ConfirmedDisease,
		"agreed":      fb.UserAgreed,
	}).Info("Diagnosis feedback saved")

	c.JSON(http.StatusCreated, fb)
}

// handleListFeedback pages through stored feedback, newest first.
func (s *Server) handleListFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, errFeedbackDisabled)
		return
	}

	limit, offset, err := parsePage(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	entries, err := s.deps.Feedback.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	total, err := s.deps.Feedback.Count(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleExportFeedback streams every feedback entry as a JSON document, or as
// a spreadsheet with ?format=xlsx.
func (s *Server) handleExportFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, errFeedbackDisabled)
		return
	}

	stamp := time.Now().UTC().Format("20060102")
	ctx := c.Request.Context()

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="feedback-%s.json"`, stamp))
		c.Status(http.StatusOK)
		if err := s.deps.Feedback.ExportJSON(ctx, c.Writer); err != nil {
			s.logger.WithError(err).Error("Feedback export failed")
		}
	case "xlsx":
		var buf bytes.Buffer
		if err := feedback.ExportXLSX(ctx, s.deps.Feedback, &buf); err != nil {
			s.respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="feedback-%s.xlsx"`, stamp))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	default:
		s.respondError(c, invalidRequest("format", "must be json or xlsx", format))
	}
}

// handleRecentHistory lists the latest recorded diagnoses.
func (s *Server) handleRecentHistory(c *gin.Context) {
	limit, _, err := parsePage(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	records, err := s.deps.Diagnosis.RecentHistory(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// handleGetHistory returns one recorded diagnosis.
func (s *Server) handleGetHistory(c *gin.Context) {
	record, err := s.deps.Diagnosis.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func parsePage(c *gin.Context) (limit, offset int, err error) {
	limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxPageSize {
			return 0, 0, invalidRequest("limit", fmt.Sprintf("must be between 1 and %d", maxPageSize), raw)
		}
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, invalidRequest("offset", "must be a non-negative integer", raw)
		}
	}
	return limit, offset, nil
}
