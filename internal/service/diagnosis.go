package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/cache"
	"github.com/frame-dx-server/internal/domain"
)

// DiagnosisService wraps the ranking engine with result caching and
// optional history recording.
type DiagnosisService struct {
	logger  *logrus.Logger
	engine  *RankingEngine
	cache   cache.Cache
	history domain.HistoryRepository
}

// Outcome is one served diagnosis.
type Outcome struct {
	Result   *domain.DiagnosisResult
	RecordID string
	Cached   bool
}

// NewDiagnosisService creates a new diagnosis service. resultCache and history
// may be nil.
func NewDiagnosisService(
	logger *logrus.Logger,
	engine *RankingEngine,
	resultCache cache.Cache,
	history domain.HistoryRepository,
) *DiagnosisService {
	if resultCache == nil {
		resultCache = cache.Noop{}
	}
	return &DiagnosisService{
		logger:  logger,
		engine:  engine,
		cache:   resultCache,
		history: history,
	}
}

// Engine returns the underlying ranking engine.
func (s *DiagnosisService) Engine() *RankingEngine {
	return s.engine
}

// HistoryEnabled reports whether diagnoses are being recorded.
func (s *DiagnosisService) HistoryEnabled() bool {
	return s.history != nil
}

// Diagnose implements domain.Diagnoser. It ranks without recording history,
// for callers that only need the result (feedback suggestions, prompts, CLI).
func (s *DiagnosisService) Diagnose(ctx context.Context, symptoms []string, opts domain.DiagnoseOptions) (*domain.DiagnosisResult, error) {
	outcome, err := s.run(ctx, symptoms, opts, "", false)
	if err != nil {
		return nil, err
	}
	return outcome.Result, nil
}

// Run performs a diagnosis and records it when history is enabled.
// requestID is stored with the record for correlation.
func (s *DiagnosisService) Run(ctx context.Context, symptoms []string, opts domain.DiagnoseOptions, requestID string) (*Outcome, error) {
	return s.run(ctx, symptoms, opts, requestID, true)
}

func (s *DiagnosisService) run(ctx context.Context, symptoms []string, opts domain.DiagnoseOptions, requestID string, record bool) (*Outcome, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	// Step 1: Normalize and validate reported findings
	present, err := s.engine.Normalize(symptoms)
	if err != nil {
		return nil, err
	}

	// Step 2: Pin one snapshot so the cache key and the evaluation agree
	snapshot := s.engine.Snapshot()
	key := cache.Key(snapshot.Version(), present)

	// Step 3: Serve from cache or rank
	full, cached := s.cache.Get(ctx, key)
	if !cached {
		full = s.engine.Rank(snapshot, present)
		s.cache.Set(ctx, key, full)
	}

	// Step 4: Apply request options
	outcome := &Outcome{
		Result: ApplyOptions(full, opts),
		Cached: cached,
	}

	// Step 5: Record history; failures do not fail the diagnosis
	if record && s.history != nil {
		rec := newRecord(outcome.Result, requestID)
		if err := s.history.Save(ctx, rec); err != nil {
			s.logger.WithError(err).WithField("request_id", requestID).Warn("Failed to record diagnosis history")
		} else {
			outcome.RecordID = rec.ID
		}
	}

	fields := logrus.Fields{
		"findings":         len(full.Findings),
		"ranked":           len(outcome.Result.Ranked),
		"cached":           cached,
		"snapshot_version": full.SnapshotVersion,
		"processing_time":  time.Since(startTime),
	}
	if top, ok := outcome.Result.Top(); ok {
		fields["top_disease"] = top.Disease
		fields["top_score"] = top.Score
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	s.logger.WithFields(fields).Info("Diagnosis completed")

	return outcome, nil
}

// History returns a recorded diagnosis.
func (s *DiagnosisService) History(ctx context.Context, id string) (*domain.DiagnosisRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("diagnosis history is disabled: %w", domain.ErrUnavailable)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NewValidationError("id", "must be a UUID", id)
	}
	return s.history.Get(ctx, id)
}

// RecentHistory lists the latest recorded diagnoses.
func (s *DiagnosisService) RecentHistory(ctx context.Context, limit int) ([]*domain.DiagnosisRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("diagnosis history is disabled: %w", domain.ErrUnavailable)
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.history.ListRecent(ctx, limit)
}

func newRecord(result *domain.DiagnosisResult, requestID string) *domain.DiagnosisRecord {
	record := &domain.DiagnosisRecord{
		ID:              uuid.NewString(),
		Symptoms:        result.Findings,
		Ranked:          result.Ranked,
		SnapshotVersion: result.SnapshotVersion,
		RequestID:       requestID,
		CreatedAt:       time.Now().UTC(),
	}
	if top, ok := result.Top(); ok {
		record.TopDisease = top.Disease
	}
	return record
}
