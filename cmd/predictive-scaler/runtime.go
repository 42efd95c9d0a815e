package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/predictive-scaler/api/handlers"
	"github.com/OldStager01/predictive-scaler/internal/events"
	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/pools"
	"github.com/OldStager01/predictive-scaler/internal/simulator"
	"github.com/OldStager01/predictive-scaler/pkg/config"
	"github.com/OldStager01/predictive-scaler/pkg/database"
)

// runtime holds the collaborators built from config for one process.
type runtime struct {
	cfg      *config.Config
	db       *database.DB
	store    events.Store
	redis    handlers.Pinger
	set      pools.Set
	counters *pools.RequestCounters
	cache    *pools.LocalCache
	sim      *simulator.ServiceSim
	closers  []func()
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{
		cfg:   cfg,
		cache: pools.NewLocalCache(time.Minute),
	}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database.ToDBConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.db = db
		rt.store = events.NewDBStore(db.DB)
		rt.closers = append(rt.closers, func() { db.Close() })
		logger.Info("Database connection established")
	}

	if err := rt.buildPools(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) buildPools(ctx context.Context) error {
	cfg := rt.cfg

	if cfg.Collector.Source == "simulated" {
		rt.sim = simulator.NewServiceSim(simulator.ServiceConfig{
			CPUWorkers:    cfg.Pools.CPUWorkers,
			ThreadWorkers: cfg.Pools.ThreadWorkers,
			Seed:          cfg.Forecaster.Seed,
		}, simulator.ParsePattern(cfg.Collector.Pattern, time.Now(), cfg.Forecaster.Seed))
		rt.set = simulator.NewSources(rt.sim).Set()
		logger.Infof("Using simulated sources (pattern=%s)", rt.sim.PatternName())
		return nil
	}

	cpuWorkers := cfg.Pools.CPUWorkers
	if cpuWorkers <= 0 {
		cpuWorkers = pools.Cores()
	}
	cpuPool := pools.NewWorkerPool("cpu", cpuWorkers, cfg.Pools.QueueSize)
	threadPool := pools.NewWorkerPool("threads", cfg.Pools.ThreadWorkers, cfg.Pools.QueueSize)
	rt.closers = append(rt.closers, cpuPool.Close, threadPool.Close)

	rt.set = pools.Set{
		CPU:     pools.NewHostCPUPool(cpuPool),
		Threads: threadPool,
		Memory:  pools.NewHostMemory(),
		Cache:   rt.cache,
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		rc := pools.NewRedisCache(client, cfg.Redis.ScanBatch)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		rt.set.Cache = rc
		rt.redis = handlers.PingFunc(rc.Ping)
		rt.closers = append(rt.closers, func() { client.Close() })
		logger.Infof("Using redis cache at %s", cfg.Redis.Addr)
	}

	switch cfg.Collector.Source {
	case "http":
		counters := pools.NewHTTPCounters(pools.HTTPCountersConfig{
			Endpoint: cfg.Collector.Endpoint,
			Timeout:  cfg.Collector.Timeout,
		})
		rt.set.Counters = counters
		rt.closers = append(rt.closers, func() { counters.Close() })
		logger.Infof("Polling performance counters from %s", cfg.Collector.Endpoint)
	default:
		rt.counters = pools.NewRequestCounters(time.Minute)
		rt.set.Counters = rt.counters
	}

	return nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
