package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type ScalingActionRepository struct {
	db *sql.DB
}

func NewScalingActionRepository(db *sql.DB) *ScalingActionRepository {
	return &ScalingActionRepository{db: db}
}

func (r *ScalingActionRepository) Insert(ctx context.Context, rec *models.ActionRecord) error {
	query := `
		INSERT INTO scaling_actions
			(id, timestamp, prediction_id, action, confidence, target, detail, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var predictionID *string
	if rec.PredictionID != "" {
		predictionID = &rec.PredictionID
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp,
		predictionID,
		rec.Action,
		rec.Confidence,
		rec.Target,
		rec.Detail,
		rec.Status,
		rec.Error,
	)
	return err
}

func (r *ScalingActionRepository) GetRecent(ctx context.Context, limit int) ([]models.ActionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, timestamp, COALESCE(prediction_id::text, ''), action, confidence,
			   target, detail, status, error
		FROM scaling_actions
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ActionRecord
	for rows.Next() {
		var (
			rec            models.ActionRecord
			action, status string
		)
		err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.PredictionID, &action, &rec.Confidence,
			&rec.Target, &rec.Detail, &status, &rec.Error,
		)
		if err != nil {
			return nil, err
		}
		rec.Action = models.ScalingAction(action)
		rec.Status = models.ActionStatus(status)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *ScalingActionRepository) GetStats(ctx context.Context, from, to time.Time) (*ActionStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'success') AS success_count,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
			COALESCE(AVG(confidence) FILTER (WHERE status = 'success'), 0) AS avg_confidence
		FROM scaling_actions
		WHERE timestamp >= $1 AND timestamp <= $2`

	var stats ActionStats
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&stats.SuccessCount, &stats.FailedCount, &stats.AvgConfidence,
	)
	if err != nil {
		return nil, err
	}

	stats.From = from
	stats.To = to

	return &stats, nil
}

type ActionStats struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	SuccessCount  int       `json:"success_count"`
	FailedCount   int       `json:"failed_count"`
	AvgConfidence float64   `json:"avg_confidence"`
}
