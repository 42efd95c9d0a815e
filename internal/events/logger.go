package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/database/queries"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// Store persists the audit trail of the engine.
type Store interface {
	SavePredictions(ctx context.Context, predictions []models.ScalingPrediction) error
	SaveAction(ctx context.Context, rec *models.ActionRecord) error
	SaveModel(ctx context.Context, info models.ModelInfo) error
}

// DBStore writes audit rows through the query repositories.
type DBStore struct {
	predictions *queries.PredictionRepository
	actions     *queries.ScalingActionRepository
	models      *queries.ModelVersionRepository
}

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{
		predictions: queries.NewPredictionRepository(db),
		actions:     queries.NewScalingActionRepository(db),
		models:      queries.NewModelVersionRepository(db),
	}
}

func (s *DBStore) SavePredictions(ctx context.Context, predictions []models.ScalingPrediction) error {
	for _, p := range predictions {
		if err := s.predictions.Insert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) SaveAction(ctx context.Context, rec *models.ActionRecord) error {
	return s.actions.Insert(ctx, rec)
}

func (s *DBStore) SaveModel(ctx context.Context, info models.ModelInfo) error {
	return s.models.Insert(ctx, info)
}

// EventLogger drains a bus subscription, logs every event and persists
// predictions, actions and model versions when a Store is configured.
type EventLogger struct {
	store        Store
	eventChan    <-chan *models.Event
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewEventLogger(store Store, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:        store,
		eventChan:    eventChan,
		writeTimeout: 5 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		stop:         make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	l.wg.Add(1)
	go l.run()
}

// Stop persists whatever is already buffered on the channel, then returns.
func (l *EventLogger) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.wg.Wait()
	l.cancel()
}

func (l *EventLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			l.drain()
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) drain() {
	for {
		select {
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		default:
			return
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"source":     event.Source,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}

	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.writeTimeout)
	defer cancel()

	var err error
	switch event.Type {
	case models.EventTypePredictionsMade:
		if predictions, ok := event.Data.([]models.ScalingPrediction); ok && len(predictions) > 0 {
			err = l.store.SavePredictions(ctx, predictions)
		}
	case models.EventTypeScalingCompleted, models.EventTypeScalingFailed:
		if rec, ok := event.Data.(*models.ActionRecord); ok {
			err = l.store.SaveAction(ctx, rec)
		}
	case models.EventTypeModelTrained:
		if info, ok := event.Data.(models.ModelInfo); ok {
			err = l.store.SaveModel(ctx, info)
		}
	}

	if err != nil {
		logger.Errorf("Failed to persist %s event: %v", event.Type, err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
