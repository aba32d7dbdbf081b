// Package config loads process configuration from an optional YAML file and
// environment overrides, and holds the mutable player settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	DataDir  string  `yaml:"data_dir"`
	DBFile   string  `yaml:"db_file"`
	APIPort  int     `yaml:"api_port"`
	AdminKey string  `yaml:"admin_key"`
	LogLevel string  `yaml:"log_level"`
	Speed    float64 `yaml:"speed"`
	Seed     int64   `yaml:"seed"` // 0 = crypto randomness

	AutosaveSeconds int `yaml:"autosave_seconds"`

	Policy Policy `yaml:"policy"`
}

// Policy holds the scheduling constants that shape offline and periodic behavior.
type Policy struct {
	// Scripted income earned offline is scaled by this factor.
	OfflineIncomeDiscount float64 `yaml:"offline_income_discount"`

	// One contract sampling opportunity occurs every ContractIntervalCycles.
	ContractIntervalCycles int64   `yaml:"contract_interval_cycles"`
	ContractProbability    float64 `yaml:"contract_probability"`
	// Above this many offline opportunities the reconciler stops sampling
	// each one and uses opportunities * probability instead.
	ContractSampleThreshold int64 `yaml:"contract_sample_threshold"`

	InvitationCycles       int64 `yaml:"invitation_cycles"`
	PassiveRepCycles       int64 `yaml:"passive_rep_cycles"`
	MessageCycles          int64 `yaml:"message_cycles"`
	LateGameMessageCycles  int64 `yaml:"late_game_message_cycles"`
	MechanicsCycles        int64 `yaml:"mechanics_cycles"`
	AchievementFirstCycles int64 `yaml:"achievement_first_cycles"`
	AchievementCycles      int64 `yaml:"achievement_cycles"`

	// A disabled counter is re-checked after this many cycles.
	DisabledRecheckCycles int64 `yaml:"disabled_recheck_cycles"`

	PassiveRepRate float64 `yaml:"passive_rep_rate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:         "data",
		DBFile:          "idle.db",
		APIPort:         8080,
		LogLevel:        "info",
		Speed:           1,
		AutosaveSeconds: 60,
		Policy:          DefaultPolicy(),
	}
}

// DefaultPolicy returns the built-in scheduling constants.
func DefaultPolicy() Policy {
	return Policy{
		OfflineIncomeDiscount:   0.75,
		ContractIntervalCycles:  3000,
		ContractProbability:     0.25,
		ContractSampleThreshold: 100,
		InvitationCycles:        100,
		PassiveRepCycles:        5,
		MessageCycles:           150,
		LateGameMessageCycles:   4500,
		MechanicsCycles:         5,
		AchievementFirstCycles:  60,
		AchievementCycles:       300,
		DisabledRecheckCycles:   300,
		PassiveRepRate:          1.0 / 60,
	}
}

// Load reads configuration from path (if non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = envOrDefault("IDLE_DATA_DIR", c.DataDir)
	c.DBFile = envOrDefault("IDLE_DB_FILE", c.DBFile)
	c.APIPort = envIntOrDefault("IDLE_API_PORT", c.APIPort)
	c.AdminKey = envOrDefault("IDLE_ADMIN_KEY", c.AdminKey)
	c.LogLevel = envOrDefault("IDLE_LOG_LEVEL", c.LogLevel)
	c.AutosaveSeconds = envIntOrDefault("IDLE_AUTOSAVE_SECONDS", c.AutosaveSeconds)
	if v := os.Getenv("IDLE_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Speed = f
		}
	}
	if v := os.Getenv("IDLE_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
}

// Validate rejects configurations the scheduler cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed %v must be > 0", c.Speed))
	}
	if c.AutosaveSeconds < 0 {
		errs = append(errs, fmt.Errorf("autosave_seconds %d must be >= 0", c.AutosaveSeconds))
	}
	p := c.Policy
	if p.OfflineIncomeDiscount < 0 || p.OfflineIncomeDiscount > 1 {
		errs = append(errs, fmt.Errorf("offline_income_discount %v must be in [0,1]", p.OfflineIncomeDiscount))
	}
	if p.ContractProbability < 0 || p.ContractProbability > 1 {
		errs = append(errs, fmt.Errorf("contract_probability %v must be in [0,1]", p.ContractProbability))
	}
	if p.ContractIntervalCycles <= 0 {
		errs = append(errs, errors.New("contract_interval_cycles must be positive"))
	}
	if p.ContractSampleThreshold < 0 {
		errs = append(errs, errors.New("contract_sample_threshold must be >= 0"))
	}
	if p.DisabledRecheckCycles <= 0 {
		errs = append(errs, errors.New("disabled_recheck_cycles must be positive"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps the configured level name to a slog level. Unknown names map to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DBPath returns the sqlite database path.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, c.DBFile)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
