// Package config loads office simulation settings from a JSON file with an
// environment overlay.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/mini-office/internal/agents"
	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/work"
)

// Config is the full runtime configuration.
type Config struct {
	Seed     int64  `json:"seed" env:"OFFICESIM_SEED"`
	DBPath   string `json:"db_path" env:"OFFICESIM_DB_PATH"`
	LogLevel string `json:"log_level" env:"OFFICESIM_LOG_LEVEL"`

	API       APIConfig       `json:"api"`
	Clock     ClockConfig     `json:"clock"`
	Office    OfficeConfig    `json:"office"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Needs     NeedsConfig     `json:"needs"`
	Work      WorkConfig      `json:"work"`
}

type APIConfig struct {
	Port     int    `json:"port" env:"OFFICESIM_API_PORT"`
	AdminKey string `json:"admin_key" env:"OFFICESIM_ADMIN_KEY"`
	RelayKey string `json:"relay_key" env:"OFFICESIM_RELAY_KEY"`
}

type ClockConfig struct {
	TickSeconds float64 `json:"tick_seconds" env:"OFFICESIM_TICK_SECONDS"` // Sim-seconds per tick
	IntervalMS  int     `json:"interval_ms" env:"OFFICESIM_INTERVAL_MS"`   // Wall time per tick at speed 1
	Speed       float64 `json:"speed" env:"OFFICESIM_SPEED"`
}

type OfficeConfig struct {
	Agents      int     `json:"agents" env:"OFFICESIM_AGENTS"`
	Width       float64 `json:"width" env:"OFFICESIM_FLOOR_WIDTH"`
	Depth       float64 `json:"depth" env:"OFFICESIM_FLOOR_DEPTH"`
	WalkSpeed   float64 `json:"walk_speed" env:"OFFICESIM_WALK_SPEED"`
	CatalogFile string  `json:"catalog_file" env:"OFFICESIM_CATALOG_FILE"` // Empty: built-in layout
}

type SchedulerConfig struct {
	Cooldown         float64 `json:"cooldown" env:"OFFICESIM_COOLDOWN"`
	ArrivalThreshold float64 `json:"arrival_threshold" env:"OFFICESIM_ARRIVAL_THRESHOLD"`
	TurnRate         float64 `json:"turn_rate" env:"OFFICESIM_TURN_RATE"`
}

// NeedsConfig keys caps and rates by need name ("hunger", "hygiene", ...).
type NeedsConfig struct {
	Threshold      float64            `json:"threshold" env:"OFFICESIM_NEEDS_THRESHOLD"`
	DriftAmplitude float64            `json:"drift_amplitude" env:"OFFICESIM_NEEDS_DRIFT"`
	Caps           map[string]float64 `json:"caps"`
	Rates          map[string]float64 `json:"rates"`
}

type WorkConfig struct {
	MaxWorkers int  `json:"max_workers" env:"OFFICESIM_WORK_MAX_WORKERS"`
	AutoPost   bool `json:"auto_post" env:"OFFICESIM_WORK_AUTO_POST"`
}

// DefaultConfig returns the stock office.
func DefaultConfig() *Config {
	sched := agents.DefaultSchedulerConfig()
	st := needs.DefaultStateConfig()

	caps := make(map[string]float64, needs.NumKinds)
	rates := make(map[string]float64, needs.NumKinds)
	for _, k := range needs.Kinds() {
		caps[k.String()] = st.Caps[k]
		rates[k.String()] = st.Rates[k]
	}

	return &Config{
		Seed:     42,
		DBPath:   "data/office.db",
		LogLevel: "info",
		API: APIConfig{
			Port: 8080,
		},
		Clock: ClockConfig{
			TickSeconds: 1,
			IntervalMS:  1000,
			Speed:       1,
		},
		Office: OfficeConfig{
			Agents:    6,
			Width:     40,
			Depth:     30,
			WalkSpeed: 1.5,
		},
		Scheduler: SchedulerConfig{
			Cooldown:         sched.Cooldown,
			ArrivalThreshold: sched.ArrivalThreshold,
			TurnRate:         sched.TurnRate,
		},
		Needs: NeedsConfig{
			Threshold:      st.Threshold,
			DriftAmplitude: 0.3,
			Caps:           caps,
			Rates:          rates,
		},
		Work: WorkConfig{
			MaxWorkers: 2,
			AutoPost:   true,
		},
	}
}

// LoadConfig reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Clock.TickSeconds <= 0 {
		errs = append(errs, errors.New("clock.tick_seconds must be positive"))
	}
	if c.Clock.IntervalMS <= 0 {
		errs = append(errs, errors.New("clock.interval_ms must be positive"))
	}
	if c.Clock.Speed < 0 {
		errs = append(errs, errors.New("clock.speed must not be negative"))
	}
	if c.Office.Agents < 0 {
		errs = append(errs, errors.New("office.agents must not be negative"))
	}
	if c.Office.Width <= 0 || c.Office.Depth <= 0 {
		errs = append(errs, errors.New("office floor must have positive size"))
	}
	if c.Office.WalkSpeed <= 0 {
		errs = append(errs, errors.New("office.walk_speed must be positive"))
	}
	if c.Scheduler.Cooldown < 0 || c.Scheduler.ArrivalThreshold < 0 || c.Scheduler.TurnRate <= 0 {
		errs = append(errs, errors.New("scheduler: cooldown and arrival_threshold must not be negative, turn_rate must be positive"))
	}
	if c.Work.MaxWorkers <= 0 {
		errs = append(errs, errors.New("work.max_workers must be positive"))
	}
	if _, err := c.NeedsStateConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NeedsStateConfig converts the name-keyed need settings.
func (c *Config) NeedsStateConfig() (needs.StateConfig, error) {
	st := needs.DefaultStateConfig()
	st.Threshold = c.Needs.Threshold
	for name, v := range c.Needs.Caps {
		k, err := needs.ParseKind(name)
		if err != nil {
			return st, fmt.Errorf("needs.caps: %w", err)
		}
		st.Caps[k] = v
	}
	for name, v := range c.Needs.Rates {
		k, err := needs.ParseKind(name)
		if err != nil {
			return st, fmt.Errorf("needs.rates: %w", err)
		}
		st.Rates[k] = v
	}
	if _, err := needs.NewState(st); err != nil {
		return st, err
	}
	return st, nil
}

// SchedulerConfig converts to the scheduler's tuning.
func (c *Config) SchedulerConfig() agents.SchedulerConfig {
	return agents.SchedulerConfig{
		Cooldown:         c.Scheduler.Cooldown,
		ArrivalThreshold: c.Scheduler.ArrivalThreshold,
		TurnRate:         c.Scheduler.TurnRate,
	}
}

// BoardConfig converts to the work board's settings.
func (c *Config) BoardConfig() work.BoardConfig {
	return work.BoardConfig{
		MaxWorkers: c.Work.MaxWorkers,
		AutoPost:   c.Work.AutoPost,
		Seed:       c.Seed,
	}
}

// Level parses LogLevel for slog.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
