package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/pkg/findings"
)

// DefaultMaxSymptoms bounds a single diagnosis request when the engine is not
// configured otherwise.
const DefaultMaxSymptoms = 256

// RankingEngine runs a full diagnosis across every diagnosable frame of the
// current store snapshot.
type RankingEngine struct {
	logger      *logrus.Logger
	catalog     domain.CatalogProvider
	evaluator   *RuleEvaluator
	scorer      *Scorer
	validator   *findings.Validator
	maxSymptoms int
}

// NewRankingEngine creates a new ranking engine reading frames from catalog
func NewRankingEngine(catalog domain.CatalogProvider, cfg domain.EngineConfig, logger *logrus.Logger) *RankingEngine {
	maxSymptoms := cfg.MaxSymptoms
	if maxSymptoms <= 0 {
		maxSymptoms = DefaultMaxSymptoms
	}
	return &RankingEngine{
		logger:      logger,
		catalog:     catalog,
		evaluator:   NewRuleEvaluator(logger),
		scorer:      NewScorer(),
		validator:   findings.NewValidator(cfg.MaxSymptomLength),
		maxSymptoms: maxSymptoms,
	}
}

// Snapshot returns the catalog snapshot the next diagnosis would run against.
func (r *RankingEngine) Snapshot() domain.FrameCatalog {
	return r.catalog.Catalog()
}

// Normalize validates raw symptoms and folds them into a finding set.
// An empty list is valid and yields an empty set.
func (r *RankingEngine) Normalize(symptoms []string) (findings.Set, error) {
	if len(symptoms) > r.maxSymptoms {
		return nil, domain.NewValidationError("symptoms", fmt.Sprintf("at most %d symptoms are allowed", r.maxSymptoms), len(symptoms))
	}
	return r.validator.Parse(symptoms)
}

// Diagnose implements domain.Diagnoser.
func (r *RankingEngine) Diagnose(ctx context.Context, symptoms []string, opts domain.DiagnoseOptions) (*domain.DiagnosisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	present, err := r.Normalize(symptoms)
	if err != nil {
		return nil, err
	}

	result := r.Rank(r.catalog.Catalog(), present)
	return ApplyOptions(result, opts), nil
}

// Rank evaluates present against every diagnosable frame of snapshot. It only
// reads its inputs, so concurrent calls over the same snapshot are safe.
func (r *RankingEngine) Rank(snapshot domain.FrameCatalog, present findings.Set) *domain.DiagnosisResult {
	startTime := time.Now()

	frames := snapshot.AllFrames()
	result := &domain.DiagnosisResult{
		Ranked:          []domain.RankedResult{},
		Details:         make(map[string]domain.DiagnosisDetails, len(frames)),
		Findings:        present.Sorted(),
		SnapshotVersion: snapshot.Version(),
	}

	// frames are in canonical order, so the stable sort below breaks ties by it
	for _, frame := range frames {
		if !frame.IsDiagnosable() {
			continue
		}

		eval := r.evaluator.Evaluate(frame, present)
		total := r.scorer.Score(eval.MatchedFindings)

		result.Details[frame.ID] = domain.DiagnosisDetails{
			MatchedFindings:  eval.MatchedFindings,
			UnmetMust:        eval.UnmetMust,
			ForbiddenPresent: eval.ForbiddenPresent,
			Total:            total,
		}
		if eval.Admissible {
			result.Ranked = append(result.Ranked, domain.RankedResult{
				Disease: frame.ID,
				Score:   total,
			})
		}
	}

	sort.SliceStable(result.Ranked, func(i, j int) bool {
		return result.Ranked[i].Score > result.Ranked[j].Score
	})

	r.logger.WithFields(logrus.Fields{
		"findings":         len(result.Findings),
		"evaluated":        len(result.Details),
		"admissible":       len(result.Ranked),
		"snapshot_version": result.SnapshotVersion,
		"processing_time":  time.Since(startTime),
	}).Debug("Diagnosis ranked")

	return result
}

// ValidateOptions rejects option values no request can mean.
func ValidateOptions(opts domain.DiagnoseOptions) error {
	if opts.Limit < 0 {
		return domain.NewValidationError("limit", "limit cannot be negative", opts.Limit)
	}
	return nil
}

// ApplyOptions trims the ranked list of result according to opts. Details are
// kept for every evaluated frame. result is not modified; when opts change
// nothing the same pointer is returned.
func ApplyOptions(result *domain.DiagnosisResult, opts domain.DiagnoseOptions) *domain.DiagnosisResult {
	ranked := result.Ranked
	if opts.ExcludeZero {
		// ranked is sorted descending, so zero scores form the tail
		cut := len(ranked)
		for cut > 0 && ranked[cut-1].Score <= 0 {
			cut--
		}
		ranked = ranked[:cut]
	}
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	if len(ranked) == len(result.Ranked) {
		return result
	}

	trimmed := *result
	trimmed.Ranked = append([]domain.RankedResult{}, ranked...)
	return &trimmed
}
