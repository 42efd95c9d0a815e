package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Insert(ctx context.Context, p models.ScalingPrediction) error {
	params, err := json.Marshal(p.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	query := `
		INSERT INTO scaling_predictions
			(id, created_at, action, confidence, predicted_value, current_value,
			 horizon_minutes, reasoning, parameters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.CreatedAt,
		p.Action,
		p.Confidence,
		p.PredictedValue,
		p.CurrentValue,
		p.HorizonMinutes,
		p.Reasoning,
		params,
	)
	return err
}

func (r *PredictionRepository) GetRecent(ctx context.Context, limit int) ([]models.ScalingPrediction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, created_at, action, confidence, predicted_value, current_value,
			   horizon_minutes, reasoning, parameters
		FROM scaling_predictions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []models.ScalingPrediction
	for rows.Next() {
		var (
			p      models.ScalingPrediction
			action string
			params []byte
		)
		err := rows.Scan(
			&p.ID, &p.CreatedAt, &action, &p.Confidence,
			&p.PredictedValue, &p.CurrentValue, &p.HorizonMinutes,
			&p.Reasoning, &params,
		)
		if err != nil {
			return nil, err
		}
		p.Action = models.ScalingAction(action)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p.Parameters); err != nil {
				return nil, fmt.Errorf("failed to decode parameters: %w", err)
			}
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}
