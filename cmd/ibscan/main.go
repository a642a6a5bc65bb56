package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"IBSentinel/internal/cache"
	"IBSentinel/internal/config"
	"IBSentinel/internal/loader"
	"IBSentinel/internal/report"
	"IBSentinel/internal/scheduler"
	"IBSentinel/internal/simulator"
)

func main() {
	cfgPath := flag.String("config", "", "path to config.yaml (default $CONFIG_PATH or configs/config.yaml)")
	once := flag.Bool("once", false, "run a single analysis even when a cron schedule is configured")
	sessions := flag.Bool("sessions", false, "print one line per analyzed session")
	flag.Parse()

	path := *cfgPath
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts, _ := cfg.LoaderOptions()
	src, err := loader.Open(opts)
	if err != nil {
		logger.Fatal("open data source", zap.Error(err))
	}
	logger.Info("data source", zap.String("name", src.Name()))

	ttl, _ := cfg.CacheTTL()
	rdb := newRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	cached := cache.New(src, rdb, ttl, logger)

	ap, _ := cfg.AnalysisParams()
	var sim *simulator.Simulator
	if cfg.Simulation.Enabled {
		sp, _ := cfg.SimulationParams()
		if sim, err = simulator.New(sp, logger); err != nil {
			logger.Fatal("init simulator", zap.Error(err))
		}
	}

	sched := scheduler.NewScheduler(ctx, cached, ap, sim, logger)
	sched.OnRun = func(run *scheduler.Run) {
		fmt.Println(report.FormatRun(run))
		if *sessions {
			fmt.Print(report.FormatSessions(run.Analysis.Sessions))
		}
	}

	if cfg.Schedule.Cron == "" || *once {
		if _, err := sched.RunNow(); err != nil {
			logger.Fatal("analysis run", zap.Error(err))
		}
		return
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		logger.Fatal("register cron task", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		go func() {
			if _, err := sched.RunNow(); err != nil {
				logger.Error("startup run failed", zap.Error(err))
			}
		}()
	}
	logger.Info("running, press Ctrl+C to stop", zap.String("cron", cfg.Schedule.Cron))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received, stopping")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

// newRedis connects to the shared cache. Failures fall back to the
// in-process cache only.
func newRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.Cache.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caching in memory only", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	logger.Info("redis connected", zap.String("addr", cfg.Cache.RedisAddr))
	return rdb
}
