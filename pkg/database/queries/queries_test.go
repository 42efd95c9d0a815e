package queries

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPredictionRepository_Insert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPredictionRepository(db)

	p := models.NewScalingPrediction(models.ActionScaleUpCPU, 0.9, 97, 80, 15)
	p.Reasoning = "cpu forecast 97.0% in 15m"
	p.Parameters[models.ParamTargetUsage] = 70

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scaling_predictions")).
		WithArgs(p.ID, sqlmock.AnyArg(), "scale_up_cpu", 0.9, 97.0, 80.0, 15, p.Reasoning, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionRepository_GetRecent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPredictionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "created_at", "action", "confidence", "predicted_value",
		"current_value", "horizon_minutes", "reasoning", "parameters",
	}).AddRow("a1", now, "scale_up_memory", 0.8, 95.0, 80.0, 15, "memory", []byte(`{"target_usage":75}`))

	mock.ExpectQuery(regexp.QuoteMeta("FROM scaling_predictions")).
		WithArgs(50).
		WillReturnRows(rows)

	got, err := repo.GetRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ActionScaleUpMemory, got[0].Action)
	assert.Equal(t, 75.0, got[0].Parameters[models.ParamTargetUsage])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScalingActionRepository_Insert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScalingActionRepository(db)

	p := models.NewScalingPrediction(models.ActionScaleUpThreads, 0.85, 300, 100, 15)
	rec := models.NewActionRecord(p, time.Now(), models.ActionSuccess)
	rec.Target = 32

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scaling_actions")).
		WithArgs(rec.ID, sqlmock.AnyArg(), sqlmock.AnyArg(), "scale_up_threads", 0.85, 32, "", "success", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScalingActionRepository_GetStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScalingActionRepository(db)

	from := time.Now().Add(-time.Hour)
	to := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM scaling_actions")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"success_count", "failed_count", "avg_confidence"}).
			AddRow(3, 1, 0.87))

	stats, err := repo.GetStats(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.InDelta(t, 0.87, stats.AvgConfidence, 1e-9)
}

func TestModelVersionRepository_GetLatest(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewModelVersionRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM model_versions")).
			WillReturnRows(sqlmock.NewRows([]string{"info"}))

		_, err := repo.GetLatest(context.Background())
		assert.ErrorIs(t, err, ErrNoModel)
	})

	t.Run("decodes info", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewModelVersionRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM model_versions")).
			WillReturnRows(sqlmock.NewRows([]string{"info"}).
				AddRow([]byte(`{"version":4,"sample_count":120,"clusters":3}`)))

		info, err := repo.GetLatest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(4), info.Version)
		assert.Equal(t, 120, info.SampleCount)
	})
}
