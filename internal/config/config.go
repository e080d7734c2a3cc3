package config

import (
	"github.com/conorfennell/resurface/internal/fsrs"
	"github.com/conorfennell/resurface/internal/sm2"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Session   SessionConfig   `koanf:"session"`
	Sync      SyncConfig      `koanf:"sync"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// ServerConfig configures the HTTP review surface.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

// SchedulerConfig selects the scheduling algorithm and its parameters.
type SchedulerConfig struct {
	Algorithm string     `koanf:"algorithm" validate:"oneof=sm2 fsrs"`
	SM2       SM2Config  `koanf:"sm2"`
	FSRS      FSRSConfig `koanf:"fsrs"`
}

// SM2Config mirrors sm2.Settings.
type SM2Config struct {
	MinimumEasinessFactor float64 `koanf:"minimum_easiness_factor" validate:"gt=0"`
	IntervalModifier      float64 `koanf:"interval_modifier" validate:"gt=0,lte=10"`
	MaximumInterval       int     `koanf:"maximum_interval" validate:"gte=0,lte=36500"` // 0 means 36500
}

// FSRSConfig mirrors fsrs.Params.
type FSRSConfig struct {
	DecayFactor        float64 `koanf:"decay_factor" validate:"gte=0,lte=1"`
	DifficultyAddition float64 `koanf:"difficulty_addition" validate:"gte=0"`
	StabilityAddition  float64 `koanf:"stability_addition" validate:"gt=0"`
}

// SessionConfig bounds a review session.
type SessionConfig struct {
	ReviewsPerSession int    `koanf:"reviews_per_session" validate:"gte=0"`
	Policy            string `koanf:"policy" validate:"oneof=first soonest"`
}

// SyncConfig controls deck source synchronisation.
type SyncConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	s := sm2.DefaultSettings()
	p := fsrs.DefaultParams()
	return Config{
		Database: DatabaseConfig{Path: "resurface.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Server:   ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{
			Algorithm: "fsrs",
			SM2: SM2Config{
				MinimumEasinessFactor: s.MinimumEasinessFactor,
				IntervalModifier:      s.IntervalModifier,
				MaximumInterval:       s.MaximumInterval,
			},
			FSRS: FSRSConfig{
				DecayFactor:        p.DecayFactor,
				DifficultyAddition: p.DifficultyAddition,
				StabilityAddition:  p.StabilityAddition,
			},
		},
		Session: SessionConfig{ReviewsPerSession: 20, Policy: "first"},
		Sync:    SyncConfig{ReposDir: "repos"},
	}
}

// SM2Settings converts the SM-2 section into scheduler settings.
func (c SchedulerConfig) SM2Settings() sm2.Settings {
	return sm2.Settings{
		MinimumEasinessFactor: c.SM2.MinimumEasinessFactor,
		IntervalModifier:      c.SM2.IntervalModifier,
		MaximumInterval:       c.SM2.MaximumInterval,
	}
}

// FSRSParams converts the FSRS section into scheduler parameters.
func (c SchedulerConfig) FSRSParams() fsrs.Params {
	return fsrs.Params{
		DecayFactor:        c.FSRS.DecayFactor,
		DifficultyAddition: c.FSRS.DifficultyAddition,
		StabilityAddition:  c.FSRS.StabilityAddition,
	}
}
