package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictive-scaler/internal/logger"
)

type Config struct {
	Port    int
	Pattern string
	Seed    int64
	Service ServiceConfig
}

// Simulator serves a ServiceSim over HTTP so a scaler running with the
// http collector source can poll its performance counters.
type Simulator struct {
	config     Config
	sim        *ServiceSim
	httpServer *http.Server
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	cfg.Service.Seed = cfg.Seed

	return &Simulator{
		config: cfg,
		sim:    NewServiceSim(cfg.Service, ParsePattern(cfg.Pattern, time.Now(), cfg.Seed)),
	}
}

func (s *Simulator) Service() *ServiceSim {
	return s.sim
}

func (s *Simulator) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.healthHandler)
	router.GET("/performance", s.performanceHandler)
	router.GET("/status", s.statusHandler)
	router.POST("/spike", s.spikeHandler)
	router.POST("/memory-spike", s.memorySpikeHandler)
	router.POST("/pattern", s.patternHandler)
	router.POST("/workers", s.workersHandler)

	return router
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Simulator listening on %s (pattern=%s)", addr, s.sim.PatternName())

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "load-simulator",
	})
}

func (s *Simulator) performanceHandler(c *gin.Context) {
	c.JSON(http.StatusOK, Summary(s.sim.Read()))
}

func (s *Simulator) statusHandler(c *gin.Context) {
	status := s.sim.Status()
	status["reading"] = s.sim.Read()
	c.JSON(http.StatusOK, status)
}

type spikeRequest struct {
	Multiplier float64 `json:"multiplier" binding:"required,gt=0"`
	Duration   string  `json:"duration" binding:"required"`
	RampUp     string  `json:"ramp_up"`
}

type memorySpikeRequest struct {
	Target   float64 `json:"target" binding:"required,gt=0,lte=100"`
	Duration string  `json:"duration" binding:"required"`
	RampUp   string  `json:"ramp_up"`
}

func parseDurations(duration, rampUp string) (time.Duration, time.Duration, error) {
	d, err := time.ParseDuration(duration)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid duration: %w", err)
	}
	var r time.Duration
	if rampUp != "" {
		if r, err = time.ParseDuration(rampUp); err != nil {
			return 0, 0, fmt.Errorf("invalid ramp_up: %w", err)
		}
	}
	return d, r, nil
}

func (s *Simulator) spikeHandler(c *gin.Context) {
	var req spikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	duration, rampUp, err := parseDurations(req.Duration, req.RampUp)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.sim.InjectSpike(req.Multiplier, duration, rampUp)
	logger.Infof("Injected load spike x%.2f for %s", req.Multiplier, duration)
	c.JSON(http.StatusOK, gin.H{"status": "spike injected"})
}

func (s *Simulator) memorySpikeHandler(c *gin.Context) {
	var req memorySpikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	duration, rampUp, err := parseDurations(req.Duration, req.RampUp)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.sim.InjectMemorySpike(req.Target, duration, rampUp)
	c.JSON(http.StatusOK, gin.H{"status": "memory spike injected"})
}

func (s *Simulator) patternHandler(c *gin.Context) {
	var req struct {
		Pattern string `json:"pattern" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := ParsePattern(req.Pattern, time.Now(), s.config.Seed)
	s.sim.SetPattern(p)
	c.JSON(http.StatusOK, gin.H{"pattern": p.Name()})
}

func (s *Simulator) workersHandler(c *gin.Context) {
	var req struct {
		CPU     int `json:"cpu"`
		Threads int `json:"threads"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.sim.SetCPUWorkers(req.CPU)
	s.sim.SetThreadWorkers(req.Threads)
	cpu, threads := s.sim.Workers()
	c.JSON(http.StatusOK, gin.H{"cpu_workers": cpu, "thread_workers": threads})
}
