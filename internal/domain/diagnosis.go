package domain

import (
	"time"
)

// EvaluationResult is the outcome of checking one frame's hard rules and
// findings against the reported symptoms.
type EvaluationResult struct {
	FrameID          string
	MatchedFindings  map[string]float64
	UnmetMust        []string
	ForbiddenPresent []string
	Admissible       bool
}

// DiagnoseOptions tunes a single diagnosis request. The zero value keeps every
// admissible frame, which is the behaviour the front-end expects.
type DiagnoseOptions struct {
	// Limit caps the ranked list; 0 means no limit.
	Limit int `json:"limit,omitempty"`
	// ExcludeZero drops admissible frames that scored 0 from the ranked list.
	ExcludeZero bool `json:"exclude_zero,omitempty"`
}

// RankedResult is one entry of the ranked differential.
type RankedResult struct {
	Disease string  `json:"disease"`
	Score   float64 `json:"score"`
}

// DiagnosisDetails explains how a frame was scored and why it was kept or
// disqualified.
type DiagnosisDetails struct {
	MatchedFindings  map[string]float64 `json:"matched_findings"`
	UnmetMust        []string           `json:"unmet_must"`
	ForbiddenPresent []string           `json:"forbidden_present"`
	Total            float64            `json:"total"`
}

// DiagnoseRequest is the body of POST /api/diagnose.
type DiagnoseRequest struct {
	Symptoms []string `json:"symptoms"`
}

// DiagnoseResponse is the body returned by POST /api/diagnose.
type DiagnoseResponse struct {
	Ranked  []RankedResult              `json:"ranked"`
	Details map[string]DiagnosisDetails `json:"details"`
}

// DiagnosisResult is the engine's output for one request. Results may be
// shared through the cache and must be treated as read-only.
type DiagnosisResult struct {
	Ranked          []RankedResult              `json:"ranked"`
	Details         map[string]DiagnosisDetails `json:"details"`
	Findings        []string                    `json:"findings"`
	SnapshotVersion string                      `json:"snapshot_version"`
}

// Response converts the result to the wire contract.
func (r *DiagnosisResult) Response() DiagnoseResponse {
	return DiagnoseResponse{
		Ranked:  r.Ranked,
		Details: r.Details,
	}
}

// Top returns the best ranked disease, if any.
func (r *DiagnosisResult) Top() (RankedResult, bool) {
	if len(r.Ranked) == 0 {
		return RankedResult{}, false
	}
	return r.Ranked[0], true
}

// DiagnosisRecord is a persisted diagnosis, kept for audit and review.
type DiagnosisRecord struct {
	ID              string         `json:"id"`
	Symptoms        []string       `json:"symptoms"`
	Ranked          []RankedResult `json:"ranked"`
	TopDisease      string         `json:"top_disease,omitempty"`
	SnapshotVersion string         `json:"snapshot_version"`
	RequestID       string         `json:"request_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
