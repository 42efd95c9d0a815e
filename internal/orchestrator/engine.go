// Package orchestrator owns the engine state and runs the sampling,
// decision and training loops.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/OldStager01/predictive-scaler/internal/analyzer"
	"github.com/OldStager01/predictive-scaler/internal/collector"
	"github.com/OldStager01/predictive-scaler/internal/decision"
	"github.com/OldStager01/predictive-scaler/internal/events"
	"github.com/OldStager01/predictive-scaler/internal/forecast"
	"github.com/OldStager01/predictive-scaler/internal/history"
	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/metrics"
	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/internal/resilience"
	"github.com/OldStager01/predictive-scaler/internal/scaler"
	"github.com/OldStager01/predictive-scaler/internal/telemetry"
	"github.com/OldStager01/predictive-scaler/internal/trainer"
	"github.com/OldStager01/predictive-scaler/pkg/config"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

const (
	LoopSampling = "sampling"
	LoopDecision = "decision"
	LoopTraining = "training"
)

// Deps are the collaborators injected into an Engine. Only Pools is
// required.
type Deps struct {
	Pools      pools.Set
	Dispatcher scaler.Dispatcher
	Forecaster forecast.Forecaster
	Metrics    *metrics.Metrics
	Store      events.Store
	Now        func() time.Time
}

// evaluation is the decision output for one history revision.
type evaluation struct {
	revision    uint64
	trend       models.Trend
	forecast    *models.LoadSample
	predictions []models.ScalingPrediction
	generatedAt time.Time
}

// Engine owns the load history, the execution controller, the trained
// model and the prediction log. Each has a single writer: the collector
// appends samples, the controller charges cooldowns, the trainer swaps
// models.
type Engine struct {
	config      *config.Config
	history     *history.History
	collector   *collector.Collector
	analyzer    *analyzer.Analyzer
	forecaster  forecast.Forecaster
	decision    *decision.Engine
	controller  *scaler.Controller
	trainer     *trainer.Trainer
	bus         *events.EventBus
	publisher   *events.Publisher
	eventLogger *events.EventLogger
	metrics     *metrics.Metrics
	predictions *PredictionLog
	loops       []*Loop
	now         func() time.Time

	evalMu sync.Mutex
	last   *evaluation
	// logged is the last revision whose predictions reached the log.
	logged    uint64
	loggedAny bool

	runMu   sync.Mutex
	running bool
}

func NewEngine(cfg *config.Config, deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	bus := events.NewEventBus(cfg.Events.BufferSize)
	publisher := events.NewPublisher(bus)

	hist := history.New(history.Config{
		Window:     cfg.History.Window,
		MaxSamples: cfg.History.MaxSamples,
	})

	coll := collector.New(collector.Config{
		Timeout:     cfg.Collector.Timeout,
		MaxFailures: cfg.Collector.CircuitBreaker.MaxFailures,
		OpenTimeout: cfg.Collector.CircuitBreaker.Timeout,
		Now:         now,
		OnStateChange: func(name string, from, to resilience.State) {
			m.SetCircuitState(name, int(to))
			logger.WithSource(name).Warnf("Circuit breaker %s -> %s", from, to)
		},
	}, deps.Pools, hist, publisher)

	fc := deps.Forecaster
	if fc == nil {
		fcfg := forecast.Config{
			StdDev:   cfg.Forecaster.DampeningStdDev,
			Disabled: cfg.Forecaster.DisableDampening,
		}
		if cfg.Forecaster.Seed != 0 {
			fc = forecast.NewSeeded(fcfg, cfg.Forecaster.Seed)
		} else {
			fc = forecast.New(fcfg, nil)
		}
	}

	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = scaler.NewPoolDispatcher(scaler.DispatcherConfig{
			MinThreads:   cfg.Pools.MinThreads,
			MaxThreads:   cfg.Pools.MaxThreads,
			CachePattern: cfg.Scaler.CachePattern,
			Timeout:      cfg.Scaler.DispatchTimeout,
		}, deps.Pools)
	}

	e := &Engine{
		config:    cfg,
		history:   hist,
		collector: coll,
		analyzer: analyzer.New(analyzer.Config{
			MinSamples:    cfg.Analyzer.MinSamples,
			Window:        cfg.Analyzer.Window,
			HighThreshold: cfg.Analyzer.HighThreshold,
			LowThreshold:  cfg.Analyzer.LowThreshold,
		}),
		forecaster: fc,
		decision:   decision.NewEngine(decision.Config{Now: now}),
		controller: scaler.NewController(scaler.ControllerConfig{
			Enabled:          cfg.Scaler.Enabled,
			CooldownPeriod:   cfg.Scaler.CooldownPeriod,
			ScalingThreshold: cfg.Scaler.ScalingThreshold,
			ActionLogSize:    cfg.Scaler.ActionLogSize,
			Now:              now,
		}, dispatcher),
		trainer: trainer.New(trainer.Config{
			MinSamples:    cfg.Trainer.MinSamples,
			Trees:         cfg.Trainer.Trees,
			SubsampleSize: cfg.Trainer.SubsampleSize,
			Clusters:      cfg.Trainer.Clusters,
			MaxIterations: cfg.Trainer.MaxIterations,
			Contamination: cfg.Trainer.Contamination,
			Seed:          cfg.Trainer.Seed,
			Now:           now,
		}),
		bus:         bus,
		publisher:   publisher,
		eventLogger: events.NewEventLogger(deps.Store, bus.SubscribeAll()),
		metrics:     m,
		predictions: NewPredictionLog(cfg.Scaler.PredictionLogSize),
		now:         now,
	}

	e.loops = []*Loop{
		NewLoop(LoopConfig{Name: LoopSampling, Interval: cfg.Collector.Interval, Cycle: e.sampleCycle, Observe: m.ObserveCycle}),
		NewLoop(LoopConfig{Name: LoopDecision, Interval: cfg.Decision.Interval, Cycle: e.decisionCycle, Observe: m.ObserveCycle}),
	}
	if cfg.Trainer.Enabled {
		e.loops = append(e.loops, NewLoop(LoopConfig{
			Name: LoopTraining, Interval: cfg.Trainer.Interval, Cycle: e.trainingCycle, Observe: m.ObserveCycle,
		}))
	}

	return e
}

func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return
	}
	e.running = true

	logger.Info("Engine starting")
	e.eventLogger.Start()
	for _, l := range e.loops {
		l.Start(ctx)
	}
}

// Stop halts every loop, closes the bus, then lets the event logger persist
// the events still buffered.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.running {
		return
	}
	e.running = false

	logger.Info("Engine stopping")
	for _, l := range e.loops {
		l.Stop()
	}
	e.bus.Close()
	e.eventLogger.Stop()
	logger.Info("Engine stopped")
}

func (e *Engine) IsRunning() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

func (e *Engine) sampleCycle(ctx context.Context) error {
	sample := e.collector.Sample(ctx)
	e.metrics.ObserveSample(sample, e.history.Len())
	return nil
}

func (e *Engine) decisionCycle(ctx context.Context) error {
	e.runDecision(ctx)
	return nil
}

func (e *Engine) trainingCycle(ctx context.Context) error {
	_, span := telemetry.StartSpan(ctx, "training.cycle")
	defer span.End()

	snap := e.history.Snapshot()
	span.SetAttributes(attribute.Int("history.size", snap.Len()))

	start := time.Now()
	model, err := e.trainer.RunCycle(snap.Samples)
	switch {
	case errors.Is(err, trainer.ErrInsufficientData):
		e.publisher.TrainingSkipped(err.Error())
		return nil
	case err != nil:
		span.RecordError(err)
		e.publisher.Error(events.SourceTrainer, "Model training failed", err)
		e.publisher.TrainingSkipped(err.Error())
		return nil
	}

	e.metrics.ObserveModel(model.Info, time.Since(start))
	e.publisher.ModelTrained(model.Info)
	return nil
}

// evaluate returns the trend, forecast and predictions for snap, reusing
// the previous result when the history has not changed.
func (e *Engine) evaluate(snap history.Snapshot) *evaluation {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if e.last != nil && e.last.revision == snap.Revision {
		return e.last
	}

	ev := &evaluation{
		revision:    snap.Revision,
		trend:       models.TrendSteady,
		generatedAt: e.now(),
	}

	if current, ok := snap.Latest(); ok {
		horizon := e.config.Forecaster.HorizonMinutes
		ev.trend = e.analyzer.Analyze(snap.Recent(e.config.Analyzer.Window))
		predicted := e.forecaster.Forecast(current, ev.trend, horizon)
		ev.forecast = &predicted
		ev.predictions = e.decision.Decide(current, predicted, horizon)
	}

	e.last = ev
	return ev
}

// claim reports whether ev has not been logged yet and marks it logged.
func (e *Engine) claim(ev *evaluation) bool {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()
	if e.loggedAny && e.logged >= ev.revision {
		return false
	}
	e.logged = ev.revision
	e.loggedAny = true
	return true
}

// runDecision evaluates the current history and offers the predictions to
// the execution controller.
func (e *Engine) runDecision(ctx context.Context) (*evaluation, scaler.TickResult) {
	ctx, span := telemetry.StartSpan(ctx, "decision.cycle")
	defer span.End()

	snap := e.history.Snapshot()
	ev := e.evaluate(snap)
	span.SetAttributes(
		attribute.Int("history.size", snap.Len()),
		attribute.String("trend", string(ev.trend)),
		attribute.Int("predictions", len(ev.predictions)),
	)

	if e.claim(ev) {
		e.predictions.Append(ev.predictions...)
		e.metrics.ObservePredictions(ev.predictions)
		if ev.forecast != nil {
			e.metrics.SetForecast(*ev.forecast)
		}
		e.publisher.PredictionsMade(ev.predictions, ev.trend)
	}

	result := e.controller.Tick(ctx, ev.predictions)
	switch {
	case result.Dispatched != nil:
		e.metrics.ObserveDispatch(result.Dispatched.Action, models.ActionSuccess)
		e.publisher.ScalingCompleted(result.Dispatched)
	case result.Failed != nil:
		span.RecordError(result.Err)
		e.metrics.ObserveDispatch(result.Failed.Action, models.ActionFailed)
		e.publisher.ScalingFailed(result.Failed, result.Err)
	}
	e.metrics.SetCooldown(e.controller.State().Active)

	return ev, result
}

// Recommendations is a read-only snapshot of the current scaling outlook.
// Repeated calls without new samples return the same predictions.
func (e *Engine) Recommendations(ctx context.Context) models.Recommendations {
	snap := e.history.Snapshot()
	ev := e.evaluate(snap)
	state := e.controller.State()

	recs := ev.predictions
	if recs == nil {
		recs = []models.ScalingPrediction{}
	}

	return models.Recommendations{
		Recommendations:          recs,
		ScalingEnabled:           e.controller.Enabled(),
		CooldownRemainingSeconds: state.RemainingSeconds(),
		LoadHistorySize:          snap.Len(),
		Trend:                    ev.trend,
		Forecast:                 ev.forecast,
		GeneratedAt:              ev.generatedAt,
	}
}

// Trigger runs one decision cycle now. Dispatch still honours the
// cooldown. Only a corrupt history or a cancelled request yields an error.
func (e *Engine) Trigger(ctx context.Context) (*models.TriggerResult, error) {
	if err := e.history.Validate(); err != nil {
		return nil, &models.TriggerError{
			Code:    models.TriggerErrCorruptHistory,
			Message: "load history failed validation",
			Err:     err,
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, &models.TriggerError{
			Code:    models.TriggerErrUnavailable,
			Message: "request cancelled before the decision cycle ran",
			Err:     err,
		}
	}

	logger.InfoCtx(ctx, "Manual scaling trigger")
	ev, result := e.runDecision(ctx)

	predictions := ev.predictions
	if predictions == nil {
		predictions = []models.ScalingPrediction{}
	}

	return &models.TriggerResult{
		Predictions:    predictions,
		Dispatched:     result.Dispatched,
		CooldownActive: result.CooldownActive,
		Reason:         result.Reason,
	}, nil
}

// SampleNow takes one sample outside the sampling loop.
func (e *Engine) SampleNow(ctx context.Context) models.LoadSample {
	sample := e.collector.Sample(ctx)
	e.metrics.ObserveSample(sample, e.history.Len())
	return sample
}

// TrainNow runs one training cycle outside the training loop.
func (e *Engine) TrainNow(ctx context.Context) error {
	return e.trainingCycle(ctx)
}

func (e *Engine) History() history.Snapshot {
	return e.history.Snapshot()
}

func (e *Engine) Cooldown() models.CooldownState {
	return e.controller.State()
}

func (e *Engine) Actions() []models.ActionRecord {
	return e.controller.Actions()
}

func (e *Engine) Predictions(limit int) []models.ScalingPrediction {
	return e.predictions.Recent(limit)
}

// Model returns the current trained model, or nil before the first fit.
func (e *Engine) Model() *trainer.Model {
	return e.trainer.Current()
}

func (e *Engine) CircuitStates() map[string]resilience.State {
	return e.collector.BreakerStates()
}

func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

func (e *Engine) SubscribeAll() <-chan *models.Event {
	return e.bus.SubscribeAll()
}
