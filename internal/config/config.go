package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL       string        `yaml:"database_url"`
	Port              string        `yaml:"port"`
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	FrontendOrigin    string        `yaml:"frontend_origin"`
	RedisURL          string        `yaml:"redis_url"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	LogFile           string        `yaml:"log_file"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	RateLimit         int           `yaml:"rate_limit"`
	RateWindow        time.Duration `yaml:"rate_window"`
	StrictEvents      bool          `yaml:"strict_events"`
	Storage           StorageConfig `yaml:"storage"`
}

// StorageConfig selects the attachment blob store. S3 is used when Bucket
// is set, the local upload directory otherwise.
type StorageConfig struct {
	UploadDir       string `yaml:"upload_dir"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

func Default() Config {
	return Config{
		Port:              "8080",
		TokenTTL:          time.Hour,
		FrontendOrigin:    "http://localhost:5173",
		LogLevel:          "info",
		LogFormat:         "json",
		ReconcileInterval: 5 * time.Minute,
		RateLimit:         120,
		RateWindow:        time.Minute,
		Storage: StorageConfig{
			UploadDir:      "uploads",
			MaxUploadBytes: 10 << 20,
		},
	}
}

// Load reads the optional YAML file at path, then applies environment
// overrides on top of it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Port, "PORT")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.FrontendOrigin, "FRONTEND_ORIGIN")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.LogFile, "LOG_FILE")
	setString(&cfg.Storage.UploadDir, "UPLOAD_DIR")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.Region, "S3_REGION")
	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&cfg.Storage.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")

	if err := setDuration(&cfg.TokenTTL, "TOKEN_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ReconcileInterval, "RECONCILE_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.RateWindow, "RATE_WINDOW"); err != nil {
		return err
	}
	if value := os.Getenv("RATE_LIMIT"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = parsed
	}
	if value := os.Getenv("MAX_UPLOAD_BYTES"); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.Storage.MaxUploadBytes = parsed
	}
	if value := os.Getenv("STRICT_EVENTS"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("STRICT_EVENTS: %w", err)
		}
		cfg.StrictEvents = parsed
	}
	return nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("reconcile interval must be positive"))
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		errs = append(errs, errors.New("rate limit and window must be positive"))
	}
	if c.Storage.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload bytes must be positive"))
	}
	if c.Storage.Bucket != "" && c.Storage.Region == "" {
		errs = append(errs, errors.New("S3_REGION is required when S3_BUCKET is set"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}
