package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
)

// HistoryRepository persists served diagnoses in PostgreSQL.
type HistoryRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *pgxpool.Pool, logger *logrus.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: logger,
	}
}

// Save inserts a diagnosis record. The record ID must be a UUID.
func (r *HistoryRepository) Save(ctx context.Context, record *domain.DiagnosisRecord) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.NewValidationError("id", "must be a UUID", record.ID)
	}

	symptoms, err := json.Marshal(nonNilStrings(record.Symptoms))
	if err != nil {
		return fmt.Errorf("encoding symptoms: %w", err)
	}
	ranked := record.Ranked
	if ranked == nil {
		ranked = []domain.RankedResult{}
	}
	rankedJSON, err := json.Marshal(ranked)
	if err != nil {
		return fmt.Errorf("encoding ranked results: %w", err)
	}

	query := `
		INSERT INTO diagnosis_history (
			id, symptoms, ranked, top_disease, snapshot_version, request_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.db.Exec(ctx, query,
		id.String(),
		symptoms,
		rankedJSON,
		record.TopDisease,
		record.SnapshotVersion,
		record.RequestID,
		record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id": record.ID,
			"error":     err,
		}).Error("Failed to save diagnosis record")
		return fmt.Errorf("saving diagnosis record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"record_id":   record.ID,
		"top_disease": record.TopDisease,
	}).Debug("Diagnosis record saved")

	return nil
}

// Get retrieves a diagnosis record by its ID
func (r *HistoryRepository) Get(ctx context.Context, id string) (*domain.DiagnosisRecord, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewValidationError("id", "must be a UUID", id)
	}

	query := `
		SELECT id, symptoms, ranked, top_disease, snapshot_version, request_id, created_at
		FROM diagnosis_history
		WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, parsed.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("diagnosis record not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to get diagnosis record")
		return nil, fmt.Errorf("getting diagnosis record: %w", err)
	}

	return record, nil
}

// ListRecent returns the newest records first.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]*domain.DiagnosisRecord, error) {
	query := `
		SELECT id, symptoms, ranked, top_disease, snapshot_version, request_id, created_at
		FROM diagnosis_history
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing diagnosis records: %w", err)
	}
	defer rows.Close()

	records := []*domain.DiagnosisRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning diagnosis record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating diagnosis records: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*domain.DiagnosisRecord, error) {
	var record domain.DiagnosisRecord
	var symptoms, ranked []byte

	err := row.Scan(
		&record.ID,
		&symptoms,
		&ranked,
		&record.TopDisease,
		&record.SnapshotVersion,
		&record.RequestID,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(symptoms, &record.Symptoms); err != nil {
		return nil, fmt.Errorf("decoding symptoms: %w", err)
	}
	if err := json.Unmarshal(ranked, &record.Ranked); err != nil {
		return nil, fmt.Errorf("decoding ranked results: %w", err)
	}
	return &record, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
