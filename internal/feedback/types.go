// Package feedback stores clinician feedback on diagnoses: which disease the
// engine ranked first for a set of findings and which one was confirmed.
package feedback

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/pkg/findings"
)

// Feedback represents a reviewer's verdict on a diagnosis.
type Feedback struct {
	ID               int64     `json:"id,omitempty"`
	Symptoms         []string  `json:"symptoms"`                   // Normalized, sorted findings
	SymptomKey       string    `json:"symptom_key"`                // Symptoms joined, unique per reviewer
	SuggestedDisease string    `json:"suggested_disease"`          // Engine's top ranked frame
	ConfirmedDisease string    `json:"confirmed_disease"`          // Reviewer's decision
	UserAgreed       bool      `json:"user_agreed"`                // Suggested == confirmed
	Reviewer         string    `json:"reviewer,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	SnapshotVersion  string    `json:"snapshot_version,omitempty"` // Frame store version that produced the suggestion
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const symptomKeySeparator = "|"

// SymptomKey returns the canonical key for a list of raw findings.
func SymptomKey(symptoms []string) string {
	return strings.Join(findings.NewSet(symptoms...).Sorted(), symptomKeySeparator)
}

// Prepare normalizes the feedback in place and checks required fields.
func (f *Feedback) Prepare() error {
	f.Symptoms = findings.NewSet(f.Symptoms...).Sorted()
	f.SymptomKey = strings.Join(f.Symptoms, symptomKeySeparator)
	f.SuggestedDisease = strings.TrimSpace(f.SuggestedDisease)
	f.ConfirmedDisease = strings.TrimSpace(f.ConfirmedDisease)
	f.Reviewer = strings.TrimSpace(f.Reviewer)

	if len(f.Symptoms) == 0 {
		return domain.NewValidationError("symptoms", "at least one symptom is required", f.Symptoms)
	}
	if f.ConfirmedDisease == "" {
		return domain.NewValidationError("confirmed_disease", "confirmed disease is required", f.ConfirmedDisease)
	}

	f.UserAgreed = f.SuggestedDisease != "" && f.SuggestedDisease == f.ConfirmedDisease
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Feedback for the same symptom key and
	// reviewer is updated in place.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for a symptom key and reviewer. It returns nil,
	// nil when none exists.
	Get(ctx context.Context, symptomKey string, reviewer string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping entries that
	// already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// columns selected by every read query, in scan order
const feedbackColumns = `id, symptoms, symptom_key, suggested_disease, confirmed_disease,
			user_agreed, reviewer, notes, snapshot_version, created_at, updated_at`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}
