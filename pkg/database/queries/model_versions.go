package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

var ErrNoModel = errors.New("no model version recorded")

type ModelVersionRepository struct {
	db *sql.DB
}

func NewModelVersionRepository(db *sql.DB) *ModelVersionRepository {
	return &ModelVersionRepository{db: db}
}

func (r *ModelVersionRepository) Insert(ctx context.Context, info models.ModelInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode model info: %w", err)
	}

	query := `
		INSERT INTO model_versions
			(version, trained_at, sample_count, clusters, outlier_threshold, outlier_count, info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (version) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		info.Version,
		info.TrainedAt,
		info.SampleCount,
		info.Clusters,
		info.OutlierThreshold,
		info.OutlierCount,
		payload,
	)
	return err
}

func (r *ModelVersionRepository) GetLatest(ctx context.Context) (*models.ModelInfo, error) {
	query := `SELECT info FROM model_versions ORDER BY version DESC LIMIT 1`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoModel
	}
	if err != nil {
		return nil, err
	}

	var info models.ModelInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, fmt.Errorf("failed to decode model info: %w", err)
	}
	return &info, nil
}
