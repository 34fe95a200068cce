package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"busdelay/features"
	"busdelay/logging"
	"busdelay/ml"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		Console    bool   `yaml:"console"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	ML struct {
		Watch     bool           `yaml:"watch"`
		CacheSize int            `yaml:"cache_size"`
		Locale    string         `yaml:"locale"`
		StopVisit ArtifactConfig `yaml:"stop_visit"`
		Schedule  ArtifactConfig `yaml:"schedule"`
	} `yaml:"ml"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// ArtifactConfig locates the fitted scaler and model of one form variant.
type ArtifactConfig struct {
	ScalerType string `yaml:"scaler_type"`
	ScalerPath string `yaml:"scaler_path"`
	ModelType  string `yaml:"model_type"`
	ModelPath  string `yaml:"model_path"`
}

func (a ArtifactConfig) Spec(schema features.Schema) ml.ArtifactSpec {
	return ml.ArtifactSpec{
		Schema:     schema,
		ScalerType: a.ScalerType,
		ScalerPath: a.ScalerPath,
		ModelType:  a.ModelType,
		ModelPath:  a.ModelPath,
	}
}

func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8501
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Http.MaxBodyBytes = 1 << 16

	logDefaults := logging.DefaultConfig()
	cfg.Log.Level = logDefaults.Level
	cfg.Log.Console = logDefaults.Console
	cfg.Log.MaxSizeMB = logDefaults.MaxSizeMB
	cfg.Log.MaxBackups = logDefaults.MaxBackups
	cfg.Log.MaxAgeDays = logDefaults.MaxAgeDays

	cfg.ML.CacheSize = 1024
	cfg.ML.Locale = "en"
	cfg.ML.StopVisit = ArtifactConfig{
		ScalerType: ml.ScalerStandard,
		ScalerPath: "model/scaler.json",
		ModelType:  ml.ModelLogisticRegression,
		ModelPath:  "model/delay_model.json",
	}
	cfg.ML.Schedule = ArtifactConfig{
		ScalerType: ml.ScalerStandard,
		ScalerPath: "model/schedule_scaler.json",
		ModelType:  ml.ModelDecisionTree,
		ModelPath:  "model/schedule_model.json",
	}
	cfg.Metrics.Enabled = true
	return cfg
}

// dotEnvFile is read before the config file when it exists.
var dotEnvFile = ".env"

// loadDotEnv exports the variables of name. A missing file is not an error;
// one that cannot be read or parsed is.
func loadDotEnv(name string) error {
	if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// Load reads .env (if present), then the YAML file at path over the
// defaults, then BUSDELAY_* environment overrides. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	config := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	for name, a := range map[string]ArtifactConfig{"stop_visit": c.ML.StopVisit, "schedule": c.ML.Schedule} {
		if a.ScalerPath == "" || a.ModelPath == "" {
			return fmt.Errorf("ml.%s: scaler_path and model_path are required", name)
		}
		if a.ModelType == "" {
			return fmt.Errorf("ml.%s: model_type is required", name)
		}
	}
	return nil
}

// Logging maps the log section onto the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Console = c.Log.Console
	cfg.File = c.Log.File != ""
	cfg.FilePath = c.Log.File
	cfg.MaxSizeMB = c.Log.MaxSizeMB
	cfg.MaxBackups = c.Log.MaxBackups
	cfg.MaxAgeDays = c.Log.MaxAgeDays
	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BUSDELAY_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BUSDELAY_HTTP_PORT: %q", v)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("BUSDELAY_WATCH_ARTIFACTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			c.ML.Watch = true
		default:
			c.ML.Watch = false
		}
	}
	setString(&c.Log.Level, "BUSDELAY_LOG_LEVEL")
	setString(&c.Log.File, "BUSDELAY_LOG_FILE")
	setString(&c.ML.Locale, "BUSDELAY_LOCALE")
	setString(&c.ML.StopVisit.ScalerPath, "BUSDELAY_STOP_SCALER_PATH")
	setString(&c.ML.StopVisit.ModelPath, "BUSDELAY_STOP_MODEL_PATH")
	setString(&c.ML.Schedule.ScalerPath, "BUSDELAY_SCHEDULE_SCALER_PATH")
	setString(&c.ML.Schedule.ModelPath, "BUSDELAY_SCHEDULE_MODEL_PATH")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
