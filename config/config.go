// Package config loads settings for the trainer and the dashboard.
//
// Values are layered: built-in defaults, then an optional YAML file, then an
// optional .env file and the process environment (HOUSEPRICE_* variables).
// A later layer wins.
package config

import (
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// Default locations, relative to the working directory.
const (
	DefaultConfigFile     = "config.yaml"
	DefaultEnvFile        = ".env"
	DefaultDataPath       = "data/house_data.csv"
	DefaultModelPath      = "models/house_price_model.pkl"
	DefaultBackgroundPath = "assets/background.png"
	DefaultAddr           = ":8501"
)

// Config is the full configuration file layout.
type Config struct {
	DataPath  string `yaml:"data_path"`
	ModelPath string `yaml:"model_path"`

	Training struct {
		TestSize    float64 `yaml:"test_size"`
		RandomState int64   `yaml:"random_state"`
		NEstimators int     `yaml:"n_estimators"`
		NJobs       int     `yaml:"n_jobs"`
	} `yaml:"training"`

	Server struct {
		Addr            string        `yaml:"addr"`
		BackgroundPath  string        `yaml:"background_path"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Trainer is the subset of settings the trainer job reads.
type Trainer struct {
	DataPath    string
	ModelPath   string
	TestSize    float64
	RandomState int64
	NEstimators int
	NJobs       int
}

// Dashboard is the subset of settings the dashboard server reads.
type Dashboard struct {
	DataPath        string
	ModelPath       string
	BackgroundPath  string
	Addr            string
	ShutdownTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{
		DataPath:  DefaultDataPath,
		ModelPath: DefaultModelPath,
	}
	c.Training.TestSize = 0.2
	c.Training.RandomState = 42
	c.Training.NEstimators = 300
	c.Training.NJobs = 1
	c.Server.Addr = DefaultAddr
	c.Server.BackgroundPath = DefaultBackgroundPath
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	return c
}

// Load reads config.yaml and .env from the working directory when present.
// HOUSEPRICE_CONFIG overrides the YAML location.
func Load() (*Config, error) {
	path := os.Getenv("HOUSEPRICE_CONFIG")
	if path == "" {
		path = DefaultConfigFile
	}
	return LoadFrom(path, DefaultEnvFile)
}

// LoadFrom layers the YAML file at yamlPath and the given env files over the
// defaults. Missing files are skipped; unreadable or malformed ones are errors.
func LoadFrom(yamlPath string, envFiles ...string) (*Config, error) {
	c := Default()

	if yamlPath != "" {
		if err := c.readYAML(yamlPath); err != nil {
			return nil, err
		}
	}

	for _, f := range envFiles {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "read env file %s", f)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) readYAML(path string) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "open config %s", path)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil && err != io.EOF {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DataPath, "HOUSEPRICE_DATA_PATH")
	setString(&c.ModelPath, "HOUSEPRICE_MODEL_PATH")
	setString(&c.Server.Addr, "HOUSEPRICE_ADDR")
	setString(&c.Server.BackgroundPath, "HOUSEPRICE_BACKGROUND_PATH")
	setString(&c.Log.Level, "HOUSEPRICE_LOG_LEVEL")
	setString(&c.Log.File, "HOUSEPRICE_LOG_FILE")

	if v := os.Getenv("HOUSEPRICE_N_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError("HOUSEPRICE_N_JOBS", "must be an integer", v)
		}
		c.Training.NJobs = n
	}
	if v := os.Getenv("HOUSEPRICE_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValidationError("HOUSEPRICE_SHUTDOWN_TIMEOUT", "must be a duration", v)
		}
		c.Server.ShutdownTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects settings neither program can run with.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return errors.NewValidationError("data_path", "must not be empty", c.DataPath)
	}
	if c.ModelPath == "" {
		return errors.NewValidationError("model_path", "must not be empty", c.ModelPath)
	}
	if !(c.Training.TestSize > 0 && c.Training.TestSize < 1) {
		return errors.NewValidationError("training.test_size", "must be in (0, 1)", c.Training.TestSize)
	}
	if c.Training.NEstimators < 1 {
		return errors.NewValidationError("training.n_estimators", "must be >= 1", c.Training.NEstimators)
	}
	if c.Server.Addr == "" {
		return errors.NewValidationError("server.addr", "must not be empty", c.Server.Addr)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.NewValidationError("server.shutdown_timeout", "must be positive", c.Server.ShutdownTimeout)
	}
	if !log.ValidLevel(c.Log.Level) {
		return errors.NewValidationError("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Trainer returns the trainer's view of the configuration.
func (c *Config) Trainer() Trainer {
	return Trainer{
		DataPath:    c.DataPath,
		ModelPath:   c.ModelPath,
		TestSize:    c.Training.TestSize,
		RandomState: c.Training.RandomState,
		NEstimators: c.Training.NEstimators,
		NJobs:       c.Training.NJobs,
	}
}

// Dashboard returns the dashboard's view of the configuration.
func (c *Config) Dashboard() Dashboard {
	return Dashboard{
		DataPath:        c.DataPath,
		ModelPath:       c.ModelPath,
		BackgroundPath:  c.Server.BackgroundPath,
		Addr:            c.Server.Addr,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// LogFile returns the rotation settings for the optional log file.
func (c *Config) LogFile() log.FileOptions {
	return log.FileOptions{
		Path:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
