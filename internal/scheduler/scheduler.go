package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"IBSentinel/internal/analysis"
	"IBSentinel/internal/loader"
	"IBSentinel/internal/model"
	"IBSentinel/internal/simulator"
)

// Run is the outcome of one pipeline execution.
type Run struct {
	Started  time.Time
	Analysis *analysis.Result
	Summary  analysis.Summary
	// Simulation fields are empty when no simulator is configured.
	Trades     []model.Trade
	Curve      model.EquityCurve
	SimSummary *simulator.Summary
}

// Scheduler re-runs the analysis pipeline on a cron schedule.
type Scheduler struct {
	Cron      *cron.Cron
	Source    loader.Source
	Analyzer  *analysis.Analyzer
	Params    analysis.Params
	Simulator *simulator.Simulator
	// OnRun receives every successful run.
	OnRun  func(*Run)
	Ctx    context.Context
	logger *zap.Logger

	mu   sync.Mutex
	last *Run
}

// NewScheduler creates a Scheduler. sim may be nil to skip trade simulation.
func NewScheduler(ctx context.Context, src loader.Source, params analysis.Params, sim *simulator.Simulator, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Source:    src,
		Analyzer:  analysis.NewAnalyzer(logger),
		Params:    params,
		Simulator: sim,
		Ctx:       ctx,
		logger:    logger,
	}
}

// Register adds the pipeline job for spec, a six-field cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Last returns the most recent successful run, or nil.
func (s *Scheduler) Last() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) tick() {
	if _, err := s.RunNow(); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err))
	}
}

// RunNow loads the dataset, analyzes it and simulates trades when a
// simulator is configured.
func (s *Scheduler) RunNow() (*Run, error) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	run := &Run{Started: time.Now()}

	rows, err := s.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.Analyzer.Analyze(rows, s.Params)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	run.Analysis = res
	run.Summary = analysis.Summarize(res.Sessions)

	fields := []zap.Field{
		zap.String("run_id", res.RunID),
		zap.Int("sessions", run.Summary.Sessions),
		zap.Int("up", run.Summary.Up),
		zap.Int("down", run.Summary.Down),
	}
	for _, ts := range run.Summary.Targets {
		fields = append(fields, zap.Float64(ts.Target.String()+"_hit_rate", ts.HitRate))
	}

	if s.Simulator != nil {
		run.Trades = s.Simulator.Run(res.Bars, res.Sessions)
		run.Curve = s.Simulator.Ledger().Curve(run.Trades)
		sum := simulator.Summarize(run.Trades, run.Curve)
		run.SimSummary = &sum
		fields = append(fields,
			zap.Int("trades", sum.Realized),
			zap.Float64("win_rate", sum.WinRate),
			zap.Float64("total_r", sum.TotalR),
			zap.String("final_balance", sum.Final.StringFixed(2)),
		)
	}
	s.logger.Info("analysis run complete", fields...)

	s.mu.Lock()
	s.last = run
	s.mu.Unlock()
	if s.OnRun != nil {
		s.OnRun(run)
	}
	return run, nil
}
