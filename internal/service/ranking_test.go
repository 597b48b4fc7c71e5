package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/kb"
	"github.com/frame-dx-server/pkg/findings"
)

type staticCatalog struct {
	store *kb.Store
}

func (s staticCatalog) Catalog() domain.FrameCatalog {
	return s.store
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// clinicStore holds the flu and measles frames used throughout these tests,
// plus a grouping frame and an unconstrained frame.
func clinicStore(t *testing.T) *kb.Store {
	t.Helper()
	store, err := kb.NewStore("Disease", []domain.FrameDefinition{
		{ID: "Disease"},
		{ID: "Viral", Parent: "Disease"},
		{
			ID:       "flu",
			Parent:   "Viral",
			Findings: map[string]float64{"fever": 2, "cough": 1, "fatigue": 1},
			Rules:    map[string][]string{"must_have": {"fever"}},
		},
		{
			ID:       "measles",
			Parent:   "Viral",
			Findings: map[string]float64{"rash": 3, "fever": 2, "koplik spots": 4},
			Rules:    map[string][]string{"must_not_have": {"immunized"}},
		},
		{
			ID:       "cold",
			Parent:   "Disease",
			Findings: map[string]float64{"cough": 2, "runny nose": 2},
			Rules:    map[string][]string{"should_have": {"sneezing"}},
		},
	})
	require.NoError(t, err)
	return store
}

func newEngine(t *testing.T, store *kb.Store) *RankingEngine {
	t.Helper()
	return NewRankingEngine(staticCatalog{store}, domain.EngineConfig{}, testLogger())
}

func TestRankingEngine_FluAdmissible(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	result, err := engine.Diagnose(context.Background(), []string{"fever", "cough"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	flu := result.Details["flu"]
	assert.Equal(t, map[string]float64{"fever": 2, "cough": 1}, flu.MatchedFindings)
	assert.Empty(t, flu.UnmetMust)
	assert.Empty(t, flu.ForbiddenPresent)
	assert.Equal(t, 3.0, flu.Total)
	assert.Contains(t, result.Ranked, domain.RankedResult{Disease: "flu", Score: 3})
}

func TestRankingEngine_FluMissingRequiredFinding(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	result, err := engine.Diagnose(context.Background(), []string{"cough"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	flu, ok := result.Details["flu"]
	require.True(t, ok, "disqualified frames keep their details")
	assert.Equal(t, []string{"fever"}, flu.UnmetMust)
	assert.Equal(t, 1.0, flu.Total)
	for _, r := range result.Ranked {
		assert.NotEqual(t, "flu", r.Disease)
	}
}

func TestRankingEngine_MeaslesForbiddenFinding(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	result, err := engine.Diagnose(context.Background(), []string{"rash", "immunized", "koplik spots"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	measles := result.Details["measles"]
	assert.Equal(t, []string{"immunized"}, measles.ForbiddenPresent)
	assert.Equal(t, 7.0, measles.Total)
	for _, r := range result.Ranked {
		assert.NotEqual(t, "measles", r.Disease)
	}
}

func TestRankingEngine_SortAndTieBreak(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	// flu: fever 2 + cough 1 = 3; measles: fever 2; cold: cough 2
	result, err := engine.Diagnose(context.Background(), []string{"Fever", "COUGH"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	want := []domain.RankedResult{
		{Disease: "flu", Score: 3},
		{Disease: "measles", Score: 2},
		{Disease: "cold", Score: 2},
	}
	if diff := cmp.Diff(want, result.Ranked); diff != "" {
		t.Errorf("ranked mismatch (-want +got):\n%s", diff)
	}
}

func TestRankingEngine_GroupingFramesExcluded(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	result, err := engine.Diagnose(context.Background(), []string{"fever"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	assert.NotContains(t, result.Details, "Disease")
	assert.NotContains(t, result.Details, "Viral")
	assert.Len(t, result.Details, 3)
}

func TestRankingEngine_UnknownRuleKindIgnored(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	result, err := engine.Diagnose(context.Background(), []string{"cough"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.RankedResult{Disease: "cold", Score: 2}, result.Ranked[0])
}

func TestRankingEngine_EmptyRequest(t *testing.T) {
	engine := newEngine(t, clinicStore(t))

	result, err := engine.Diagnose(context.Background(), []string{}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	// only frames without must_have survive, all scoring 0, in canonical order
	assert.Equal(t, []domain.RankedResult{
		{Disease: "measles", Score: 0},
		{Disease: "cold", Score: 0},
	}, result.Ranked)
	assert.Equal(t, []string{"fever"}, result.Details["flu"].UnmetMust)
	assert.Empty(t, result.Findings)
}

func TestRankingEngine_EmptyStore(t *testing.T) {
	engine := newEngine(t, kb.NewEmptyStore())

	result, err := engine.Diagnose(context.Background(), []string{"fever", "cough"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	assert.NotNil(t, result.Ranked)
	assert.Empty(t, result.Ranked)
	assert.NotNil(t, result.Details)
	assert.Empty(t, result.Details)
}

func TestRankingEngine_Idempotent(t *testing.T) {
	engine := newEngine(t, clinicStore(t))
	symptoms := []string{"fever", "rash", "cough", "runny nose"}

	first, err := engine.Diagnose(context.Background(), symptoms, domain.DiagnoseOptions{})
	require.NoError(t, err)
	second, err := engine.Diagnose(context.Background(), symptoms, domain.DiagnoseOptions{})
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated diagnosis differs (-first +second):\n%s", diff)
	}
}

func TestRankingEngine_Monotonic(t *testing.T) {
	engine := newEngine(t, clinicStore(t))
	base := []string{"fever"}

	before, err := engine.Diagnose(context.Background(), base, domain.DiagnoseOptions{})
	require.NoError(t, err)

	for _, extra := range []string{"cough", "fatigue", "rash", "koplik spots"} {
		after, err := engine.Diagnose(context.Background(), append([]string{extra}, base...), domain.DiagnoseOptions{})
		require.NoError(t, err)

		for id, prev := range before.Details {
			next := after.Details[id]
			assert.GreaterOrEqual(t, next.Total, prev.Total, "%s score decreased after adding %q", id, extra)
			for finding := range prev.MatchedFindings {
				assert.Contains(t, next.MatchedFindings, finding, "%s lost match %q", id, finding)
			}
		}
	}
}

func TestRankingEngine_Properties(t *testing.T) {
	store := clinicStore(t)
	engine := newEngine(t, store)
	scorer := NewScorer()

	requests := [][]string{
		{},
		{"fever"},
		{"fever", "immunized"},
		{"rash", "koplik spots", "fever", "cough"},
		{"runny nose", "sneezing"},
	}

	for _, req := range requests {
		result, err := engine.Diagnose(context.Background(), req, domain.DiagnoseOptions{})
		require.NoError(t, err)
		present := findings.NewSet(req...)

		ranked := map[string]bool{}
		for i, r := range result.Ranked {
			ranked[r.Disease] = true
			if i > 0 {
				assert.GreaterOrEqual(t, result.Ranked[i-1].Score, r.Score, "ranked must be non-increasing")
			}
		}

		for _, frame := range store.AllFrames() {
			if !frame.IsDiagnosable() {
				continue
			}
			details := result.Details[frame.ID]
			assert.Equal(t, scorer.Score(details.MatchedFindings), details.Total)

			var missing []string
			for _, id := range frame.RuleMembers(domain.MustHave) {
				if !present.Has(id) {
					missing = append(missing, id)
				}
			}
			assert.ElementsMatch(t, missing, details.UnmetMust)

			disqualified := len(details.UnmetMust) > 0 || len(details.ForbiddenPresent) > 0
			assert.Equal(t, !disqualified, ranked[frame.ID], "frame %s in request %v", frame.ID, req)
		}
	}
}

func TestRankingEngine_Options(t *testing.T) {
	engine := newEngine(t, clinicStore(t))
	ctx := context.Background()

	result, err := engine.Diagnose(ctx, []string{"cough"}, domain.DiagnoseOptions{ExcludeZero: true})
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedResult{{Disease: "cold", Score: 2}}, result.Ranked)
	assert.Len(t, result.Details, 3, "options never trim details")

	result, err = engine.Diagnose(ctx, []string{"fever", "cough"}, domain.DiagnoseOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedResult{{Disease: "flu", Score: 3}}, result.Ranked)

	_, err = engine.Diagnose(ctx, []string{"fever"}, domain.DiagnoseOptions{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestRankingEngine_InvalidRequest(t *testing.T) {
	engine := NewRankingEngine(staticCatalog{clinicStore(t)}, domain.EngineConfig{MaxSymptoms: 2, MaxSymptomLength: 8}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		symptoms []string
	}{
		{"blank entry", []string{"fever", "   "}},
		{"too many", []string{"a", "b", "c"}},
		{"too long", []string{"shortness of breath"}},
		{"control characters", []string{"fev\x00er"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Diagnose(ctx, tt.symptoms, domain.DiagnoseOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestRankingEngine_CanceledContext(t *testing.T) {
	engine := newEngine(t, clinicStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Diagnose(ctx, []string{"fever"}, domain.DiagnoseOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankingEngine_SeedHepatitisNormalization(t *testing.T) {
	store, err := kb.Seed()
	require.NoError(t, err)
	engine := newEngine(t, store)

	result, err := engine.Diagnose(context.Background(), []string{"Elevated ALT/AST", "jaundice"}, domain.DiagnoseOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.RankedResult{Disease: "Hepatitis", Score: 4.5}, result.Ranked[0])
	assert.Equal(t, 1.5, result.Details["Alcoholic Hepatitis"].Total)
}

func TestApplyOptions_DoesNotMutate(t *testing.T) {
	full := &domain.DiagnosisResult{
		Ranked: []domain.RankedResult{{Disease: "a", Score: 2}, {Disease: "b", Score: 0}},
	}

	same := ApplyOptions(full, domain.DiagnoseOptions{})
	assert.Same(t, full, same)

	trimmed := ApplyOptions(full, domain.DiagnoseOptions{ExcludeZero: true})
	assert.Len(t, trimmed.Ranked, 1)
	assert.Len(t, full.Ranked, 2)
}
