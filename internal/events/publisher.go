package events

import (
	"fmt"
	"strings"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

const (
	SourceCollector = "collector"
	SourceDecision  = "decision"
	SourceScaler    = "scaler"
	SourceTrainer   = "trainer"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SampleCollected(sample models.LoadSample) {
	if sample.Degraded {
		msg := "Sample degraded: " + strings.Join(sample.DegradedSources, ",")
		event := models.NewEvent(models.EventTypeSampleDegraded, SourceCollector, msg).
			WithSeverity(models.SeverityWarning).
			WithData(sample)
		p.publish(event)
		return
	}

	event := models.NewEvent(models.EventTypeSampleCollected, SourceCollector, "Sample collected").
		WithData(sample)
	p.publish(event)
}

func (p *Publisher) PredictionsMade(predictions []models.ScalingPrediction, trend models.Trend) {
	msg := fmt.Sprintf("%d predictions, trend %s", len(predictions), trend)
	event := models.NewEvent(models.EventTypePredictionsMade, SourceDecision, msg).
		WithData(predictions)
	p.publish(event)
}

func (p *Publisher) ScalingCompleted(rec *models.ActionRecord) {
	msg := "Scaling complete: " + string(rec.Action)
	event := models.NewEvent(models.EventTypeScalingCompleted, SourceScaler, msg).
		WithData(rec)
	p.publish(event)
}

func (p *Publisher) ScalingFailed(rec *models.ActionRecord, err error) {
	msg := "Scaling failed: " + string(rec.Action)
	event := models.NewEvent(models.EventTypeScalingFailed, SourceScaler, msg).
		WithSeverity(models.SeverityCritical).
		WithData(rec)
	if err != nil {
		event.Message = msg + ": " + err.Error()
	}
	p.publish(event)
}

func (p *Publisher) ModelTrained(info models.ModelInfo) {
	msg := fmt.Sprintf("Model v%d trained on %d samples", info.Version, info.SampleCount)
	event := models.NewEvent(models.EventTypeModelTrained, SourceTrainer, msg).
		WithData(info)
	p.publish(event)
}

func (p *Publisher) TrainingSkipped(reason string) {
	event := models.NewEvent(models.EventTypeTrainingSkipped, SourceTrainer, "Training skipped: "+reason)
	p.publish(event)
}

func (p *Publisher) Error(source, message string, err error) {
	event := models.NewEvent(models.EventTypeError, source, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
