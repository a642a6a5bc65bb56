package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"IBSentinel/internal/analysis"
	"IBSentinel/internal/calendar"
	"IBSentinel/internal/loader"
	"IBSentinel/internal/model"
	"IBSentinel/internal/simulator"
)

// Config holds all application configuration.
type Config struct {
	Data struct {
		Source     string `yaml:"source"`
		Path       string `yaml:"path"`
		SearchRoot string `yaml:"search_root"`
		Table      string `yaml:"table"`
		Timezone   string `yaml:"timezone"`
		URL        string `yaml:"url"`
		APIKey     string `yaml:"api_key"`
		Proxy      string `yaml:"proxy"`
		ClickHouse struct {
			Addr     string `yaml:"addr"`
			Database string `yaml:"database"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			Symbol   string `yaml:"symbol"`
		} `yaml:"clickhouse"`
	} `yaml:"data"`
	Cache struct {
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		TTL           string `yaml:"ttl"`
	} `yaml:"cache"`
	Analysis struct {
		IBStart   string `yaml:"ib_start"`
		IBEnd     string `yaml:"ib_end"`
		Deadline  string `yaml:"deadline"`
		Direction string `yaml:"direction"`
		Mode      string `yaml:"mode"`
		// Overnight is inferred from ib_start > ib_end when unset.
		Overnight *bool  `yaml:"overnight"`
		StartDate string `yaml:"start_date"`
		EndDate   string `yaml:"end_date"`
		MinBars   int    `yaml:"min_bars"`
		Workers   int    `yaml:"workers"`
	} `yaml:"analysis"`
	Simulation struct {
		Enabled         bool     `yaml:"enabled"`
		TriggerPct      *float64 `yaml:"trigger_pct"`
		EntryPct        *float64 `yaml:"entry_pct"`
		TakeProfitPct   *float64 `yaml:"take_profit_pct"`
		StopPct         *float64 `yaml:"stop_pct"`
		Strategy        string   `yaml:"strategy"`
		Deadline        string   `yaml:"deadline"`
		RiskModel       string   `yaml:"risk_model"`
		RiskValue       *float64 `yaml:"risk_value"`
		StartingCapital *float64 `yaml:"starting_capital"`
	} `yaml:"simulation"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Values already in the environment win over .env.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := os.Getenv("DATA_PATH"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("DATA_URL"); v != "" {
		c.Data.URL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.Data.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Data.Proxy = v
	}
	if v := os.Getenv("IB_TIMEZONE"); v != "" {
		c.Data.Timezone = v
	}
	if v := os.Getenv("CLICKHOUSE_ADDR"); v != "" {
		c.Data.ClickHouse.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_USER"); v != "" {
		c.Data.ClickHouse.Username = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.Data.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("RISK_VALUE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Simulation.RiskValue = &f
		}
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Data.SearchRoot == "" {
		c.Data.SearchRoot = "."
	}
	if c.Data.Timezone == "" {
		c.Data.Timezone = calendar.DefaultZone
	}
	if c.Data.ClickHouse.Database == "" {
		c.Data.ClickHouse.Database = "default"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "24h"
	}
	if c.Analysis.IBStart == "" {
		c.Analysis.IBStart = "01:00"
	}
	if c.Analysis.IBEnd == "" {
		c.Analysis.IBEnd = "02:00"
	}
	if c.Analysis.Deadline == "" {
		c.Analysis.Deadline = "17:00"
	}
	if c.Analysis.Direction == "" {
		c.Analysis.Direction = string(model.DirectionBoth)
	}
	if c.Analysis.Mode == "" {
		c.Analysis.Mode = string(model.ModeWick)
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 1
	}
	sim := &c.Simulation
	def := simulator.DefaultParams()
	for _, f := range []struct {
		p **float64
		v float64
	}{
		{&sim.TriggerPct, def.TriggerPct},
		{&sim.EntryPct, def.EntryPct},
		{&sim.TakeProfitPct, def.TakeProfitPct},
		{&sim.StopPct, def.StopPct},
		{&sim.RiskValue, def.RiskValue.InexactFloat64()},
		{&sim.StartingCapital, def.StartingCapital.InexactFloat64()},
	} {
		if *f.p == nil {
			v := f.v
			*f.p = &v
		}
	}
	if sim.Strategy == "" {
		sim.Strategy = string(def.Strategy)
	}
	if sim.RiskModel == "" {
		sim.RiskModel = string(def.RiskModel)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that every field parses and required fields are set.
func (c *Config) Validate() error {
	if _, err := c.LoaderOptions(); err != nil {
		return err
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.AnalysisParams(); err != nil {
		return err
	}
	if _, err := c.SimulationParams(); err != nil {
		return err
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative")
	}
	return nil
}

// LoaderOptions returns the data source selection.
func (c *Config) LoaderOptions() (loader.Options, error) {
	d := c.Data
	if d.Source == loader.KindClickHouse && d.ClickHouse.Addr == "" {
		return loader.Options{}, fmt.Errorf("data.clickhouse.addr is required")
	}
	if d.Source == loader.KindHTTP && d.URL == "" {
		return loader.Options{}, fmt.Errorf("data.url is required")
	}
	return loader.Options{
		Kind:       d.Source,
		Path:       d.Path,
		SearchRoot: d.SearchRoot,
		Table:      d.Table,
		URL:        d.URL,
		APIKey:     d.APIKey,
		Proxy:      d.Proxy,
		ClickHouse: loader.ClickHouseConfig{
			Addr:     d.ClickHouse.Addr,
			Database: d.ClickHouse.Database,
			Username: d.ClickHouse.Username,
			Password: d.ClickHouse.Password,
			Table:    d.Table,
			Symbol:   d.ClickHouse.Symbol,
		},
	}, nil
}

// CacheTTL parses cache.ttl.
func (c *Config) CacheTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache.ttl: %w", err)
	}
	return ttl, nil
}

// AnalysisParams builds validated analysis parameters.
func (c *Config) AnalysisParams() (analysis.Params, error) {
	a := c.Analysis
	p := analysis.DefaultParams()
	var err error

	if p.Location, err = calendar.LoadZone(c.Data.Timezone); err != nil {
		return p, err
	}
	if p.IBStart, err = model.ParseClock(a.IBStart); err != nil {
		return p, fmt.Errorf("analysis.ib_start: %w", err)
	}
	if p.IBEnd, err = model.ParseClock(a.IBEnd); err != nil {
		return p, fmt.Errorf("analysis.ib_end: %w", err)
	}
	if p.Deadline, err = model.ParseClock(a.Deadline); err != nil {
		return p, fmt.Errorf("analysis.deadline: %w", err)
	}
	if p.Direction, err = model.ParseDirection(a.Direction); err != nil {
		return p, fmt.Errorf("analysis.direction: %w", err)
	}
	if p.Mode, err = model.ParseBreakoutMode(a.Mode); err != nil {
		return p, fmt.Errorf("analysis.mode: %w", err)
	}
	if a.StartDate != "" {
		if p.Start, err = model.ParseDate(a.StartDate); err != nil {
			return p, fmt.Errorf("analysis.start_date: %w", err)
		}
	}
	if a.EndDate != "" {
		if p.End, err = model.ParseDate(a.EndDate); err != nil {
			return p, fmt.Errorf("analysis.end_date: %w", err)
		}
	}
	if a.Overnight != nil {
		p.Overnight = *a.Overnight
	} else {
		p.Overnight = p.IBEnd.Before(p.IBStart)
	}
	if a.MinBars > 0 {
		p.MinBars = a.MinBars
	}
	p.Workers = a.Workers
	return p, p.Validate()
}

// SimulationParams builds validated simulation parameters.
func (c *Config) SimulationParams() (simulator.Params, error) {
	s := c.Simulation
	p := simulator.DefaultParams()
	var err error

	if p.Location, err = calendar.LoadZone(c.Data.Timezone); err != nil {
		return p, err
	}
	if p.Strategy, err = model.ParseStrategy(s.Strategy); err != nil {
		return p, fmt.Errorf("simulation.strategy: %w", err)
	}
	if p.RiskModel, err = model.ParseRiskModel(s.RiskModel); err != nil {
		return p, fmt.Errorf("simulation.risk_model: %w", err)
	}
	if s.Deadline != "" {
		if p.Deadline, err = model.ParseClock(s.Deadline); err != nil {
			return p, fmt.Errorf("simulation.deadline: %w", err)
		}
	}
	for _, f := range []struct {
		dst *float64
		src *float64
	}{
		{&p.TriggerPct, s.TriggerPct},
		{&p.EntryPct, s.EntryPct},
		{&p.TakeProfitPct, s.TakeProfitPct},
		{&p.StopPct, s.StopPct},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if s.RiskValue != nil {
		p.RiskValue = decimal.NewFromFloat(*s.RiskValue)
	}
	if s.StartingCapital != nil {
		p.StartingCapital = decimal.NewFromFloat(*s.StartingCapital)
	}
	return p, p.Validate()
}
