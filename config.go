package notequiz

import "time"

// Default values
const (
	DefaultLowRateLimit = 5
	DefaultMaxAttempts  = 10
	DefaultStorePath    = "./quiz.db"
)

// StoreConfig selects the quiz store backend.
type StoreConfig struct {
	Engine string `mapstructure:"engine"` // sqlite3, sqlite, json or memory
	Path   string `mapstructure:"path"`
}

// AIConfig configures the generation capability.
type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// SchedulerConfig bounds quiz selection.
type SchedulerConfig struct {
	// LowRateLimit is how many poorly answered quizzes a session reuses.
	LowRateLimit int `mapstructure:"low_rate_limit"`
	// MaxAttempts caps generation calls per selection. Zero means unbounded.
	MaxAttempts int `mapstructure:"max_attempts"`
	// MaxDuration caps the wall time of a selection. Zero means no limit.
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// Config is the complete engine configuration
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	AI        AIConfig        `mapstructure:"ai"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Verbose   bool            `mapstructure:"verbose"`
	LogDir    string          `mapstructure:"log_dir"`
}

// DefaultSchedulerConfig returns the default selection bounds.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		LowRateLimit: DefaultLowRateLimit,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Engine: EngineSQLite3,
			Path:   DefaultStorePath,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}
