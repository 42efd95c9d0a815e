package decision

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/pkg/models"
)

// Rule thresholds. Confidence formulas are fixed; see Decide.
const (
	CPUHighThreshold    = 80.0
	CPULowThreshold     = 30.0
	MemoryHighThreshold = 85.0
	ThroughputSurge     = 1.5

	cpuTargetUsage     = 70.0
	cpuScaleDownTarget = 50.0
	memoryTargetUsage  = 75.0

	scaleDownCap  = 0.90
	throughputCap = 0.90
)

type Config struct {
	Now func() time.Time
}

type Engine struct {
	config Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{config: cfg}
}

// Decide compares the forecast with the current sample and returns the
// triggered scaling predictions ordered by descending confidence. Rules for
// cpu, memory and throughput are evaluated independently:
//
//	cpu > 80            scale_up_cpu        min(0.95, (cpu-70)/30)
//	cpu < 30            scale_down_cpu      min(0.90, (50-cpu)/50)
//	memory > 85         scale_up_memory     min(0.95, (mem-75)/25)
//	tput > 1.5 * cur    scale_up_threads    min(0.90, (tput-cur)/cur)
func (e *Engine) Decide(current, predicted models.LoadSample, horizonMinutes int) []models.ScalingPrediction {
	now := e.config.Now()
	var out []models.ScalingPrediction

	if p, ok := e.cpuRule(current, predicted, horizonMinutes); ok {
		out = append(out, p)
	}
	if p, ok := e.memoryRule(current, predicted, horizonMinutes); ok {
		out = append(out, p)
	}
	if p, ok := e.throughputRule(current, predicted, horizonMinutes); ok {
		out = append(out, p)
	}

	for i := range out {
		out[i].CreatedAt = now
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Action < out[j].Action
	})

	if len(out) > 0 {
		logger.WithFields(map[string]interface{}{
			"count":      len(out),
			"top_action": out[0].Action,
			"confidence": out[0].Confidence,
		}).Debug("Scaling predictions generated")
	}

	return out
}

func (e *Engine) cpuRule(current, predicted models.LoadSample, horizon int) (models.ScalingPrediction, bool) {
	cpu := predicted.CPUUsage

	switch {
	case cpu > CPUHighThreshold:
		p := models.NewScalingPrediction(models.ActionScaleUpCPU,
			math.Min(models.MaxConfidence, (cpu-cpuTargetUsage)/30), cpu, current.CPUUsage, horizon)
		factor := cpu / cpuTargetUsage
		p.Reasoning = fmt.Sprintf("cpu_usage forecast %.1f%% in %dm exceeds %.0f%%", cpu, horizon, CPUHighThreshold)
		p.Parameters[models.ParamTargetUsage] = cpuTargetUsage
		p.Parameters[models.ParamScalingFactor] = factor
		setTargetWorkers(&p, current.CPUWorkers, factor)
		return p, true

	case cpu < CPULowThreshold:
		p := models.NewScalingPrediction(models.ActionScaleDownCPU,
			math.Min(scaleDownCap, (cpuScaleDownTarget-cpu)/50), cpu, current.CPUUsage, horizon)
		factor := math.Max(cpu, 1) / cpuScaleDownTarget
		p.Reasoning = fmt.Sprintf("cpu_usage forecast %.1f%% in %dm below %.0f%%", cpu, horizon, CPULowThreshold)
		p.Parameters[models.ParamTargetUsage] = cpuScaleDownTarget
		p.Parameters[models.ParamScalingFactor] = factor
		setTargetWorkers(&p, current.CPUWorkers, factor)
		return p, true
	}

	return models.ScalingPrediction{}, false
}

func (e *Engine) memoryRule(current, predicted models.LoadSample, horizon int) (models.ScalingPrediction, bool) {
	mem := predicted.MemoryUsage
	if mem <= MemoryHighThreshold {
		return models.ScalingPrediction{}, false
	}

	p := models.NewScalingPrediction(models.ActionScaleUpMemory,
		math.Min(models.MaxConfidence, (mem-memoryTargetUsage)/25), mem, current.MemoryUsage, horizon)
	p.Reasoning = fmt.Sprintf("memory_usage forecast %.1f%% in %dm exceeds %.0f%%", mem, horizon, MemoryHighThreshold)
	p.Parameters[models.ParamTargetUsage] = memoryTargetUsage
	p.Parameters[models.ParamExcessPercent] = mem - memoryTargetUsage
	return p, true
}

func (e *Engine) throughputRule(current, predicted models.LoadSample, horizon int) (models.ScalingPrediction, bool) {
	cur := current.Throughput
	pred := predicted.Throughput
	if cur <= 0 || pred <= cur*ThroughputSurge {
		return models.ScalingPrediction{}, false
	}

	p := models.NewScalingPrediction(models.ActionScaleUpThreads,
		math.Min(throughputCap, (pred-cur)/cur), pred, cur, horizon)
	factor := pred / cur
	p.Reasoning = fmt.Sprintf("throughput forecast %.1f req/s in %dm is %.1fx current %.1f", pred, horizon, factor, cur)
	p.Parameters[models.ParamScalingFactor] = factor
	setTargetWorkers(&p, current.ThreadWorkers, factor)
	return p, true
}

// setTargetWorkers records an absolute pool size so a retried dispatch
// converges instead of compounding.
func setTargetWorkers(p *models.ScalingPrediction, workers int, factor float64) {
	if workers <= 0 {
		return
	}
	target := math.Ceil(float64(workers) * factor)
	if target < 1 {
		target = 1
	}
	p.Parameters[models.ParamTargetWorkers] = target
}
