package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// scanFeedback scans a row selected with feedbackColumns.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var symptoms string

	err := s.Scan(
		&fb.ID, &symptoms, &fb.SymptomKey, &fb.SuggestedDisease, &fb.ConfirmedDisease,
		&fb.UserAgreed, &fb.Reviewer, &fb.Notes, &fb.SnapshotVersion,
		&fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symptoms), &fb.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to decode symptoms of feedback %d: %w", fb.ID, err)
	}
	return fb, nil
}

func encodeSymptoms(symptoms []string) (string, error) {
	if symptoms == nil {
		symptoms = []string{}
	}
	data, err := json.Marshal(symptoms)
	if err != nil {
		return "", fmt.Errorf("failed to encode symptoms: %w", err)
	}
	return string(data), nil
}

// exportJSON writes every entry of store as a FeedbackExport document.
func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &FeedbackExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importJSON saves entries of a FeedbackExport document that store does not
// already hold.
func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		if err := fb.Prepare(); err != nil {
			skipped++
			continue
		}

		existing, err := store.Get(ctx, fb.SymptomKey, fb.Reviewer)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
