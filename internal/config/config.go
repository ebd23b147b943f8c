package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	defaultAddress              = ":4001"
	defaultThreshold            = 50
	defaultSearchRadiusKm       = 5
	defaultSemanticTimeoutSecs  = 10
	defaultMaxSemanticDeviation = 40
	defaultExchangeTimeoutSecs  = 300
	defaultSweepIntervalSecs    = 15
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Matching struct {
		Threshold            int     `yaml:"threshold"`
		SearchRadiusKm       float64 `yaml:"search_radius_km"`
		ShowGlobal           bool    `yaml:"show_global"`
		SemanticTimeoutSecs  int     `yaml:"semantic_timeout_seconds"`
		MaxSemanticDeviation int     `yaml:"max_semantic_deviation"`
	} `yaml:"matching"`
	Exchange struct {
		TimeoutSecs       int `yaml:"timeout_seconds"`
		SweepIntervalSecs int `yaml:"sweep_interval_seconds"`
	} `yaml:"exchange"`
	Notifications struct {
		Enabled             bool   `yaml:"enabled"`
		FirebaseCredentials string `yaml:"firebase_credentials"`
	} `yaml:"notifications"`
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Storage struct {
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"storage"`
	LogFile string `yaml:"log_file"`
}

// SemanticTimeout returns the semantic matcher budget.
func (c Config) SemanticTimeout() time.Duration {
	return time.Duration(c.Matching.SemanticTimeoutSecs) * time.Second
}

// ExchangeTimeout returns the handover window.
func (c Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutSecs) * time.Second
}

// SweepInterval returns how often the durable deadline queue is swept.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Exchange.SweepIntervalSecs) * time.Second
}

// Load reads the YAML file at path, when present, and overlays environment
// variables. A missing file is not an error.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Notifications.FirebaseCredentials, "FIREBASE_CREDENTIALS")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.Region, "S3_REGION")
	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.LogFile, "LOG_FILE")
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"REDIS_DB", &cfg.Redis.DB},
		{"MATCH_THRESHOLD", &cfg.Matching.Threshold},
		{"SEMANTIC_TIMEOUT_SECONDS", &cfg.Matching.SemanticTimeoutSecs},
		{"MAX_SEMANTIC_DEVIATION", &cfg.Matching.MaxSemanticDeviation},
		{"EXCHANGE_TIMEOUT_SECONDS", &cfg.Exchange.TimeoutSecs},
		{"EXCHANGE_SWEEP_SECONDS", &cfg.Exchange.SweepIntervalSecs},
	}
	for _, e := range ints {
		v, err := readIntEnv(e.name)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		}
		if v != nil {
			*e.dst = *v
		}
	}

	if v := os.Getenv("SEARCH_RADIUS_KM"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse SEARCH_RADIUS_KM: %w", err)
		}
		cfg.Matching.SearchRadiusKm = km
	}
	for name, dst := range map[string]*bool{
		"SHOW_GLOBAL":           &cfg.Matching.ShowGlobal,
		"NOTIFICATIONS_ENABLED": &cfg.Notifications.Enabled,
	} {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = b
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Matching.Threshold == 0 {
		cfg.Matching.Threshold = defaultThreshold
	}
	if cfg.Matching.SearchRadiusKm == 0 {
		cfg.Matching.SearchRadiusKm = defaultSearchRadiusKm
	}
	if cfg.Matching.SemanticTimeoutSecs == 0 {
		cfg.Matching.SemanticTimeoutSecs = defaultSemanticTimeoutSecs
	}
	if cfg.Matching.MaxSemanticDeviation == 0 {
		cfg.Matching.MaxSemanticDeviation = defaultMaxSemanticDeviation
	}
	if cfg.Exchange.TimeoutSecs == 0 {
		cfg.Exchange.TimeoutSecs = defaultExchangeTimeoutSecs
	}
	if cfg.Exchange.SweepIntervalSecs == 0 {
		cfg.Exchange.SweepIntervalSecs = defaultSweepIntervalSecs
	}
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database url is required"))
	}
	switch c.Database.Driver {
	case "mysql", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database driver %q is not supported", c.Database.Driver))
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		errs = append(errs, fmt.Errorf("matching threshold %d is outside 0..100", c.Matching.Threshold))
	}
	if c.Matching.SearchRadiusKm < 1 || c.Matching.SearchRadiusKm > 20 {
		errs = append(errs, fmt.Errorf("search radius %.1f km is outside 1..20", c.Matching.SearchRadiusKm))
	}
	if c.Exchange.TimeoutSecs < 0 || c.Matching.SemanticTimeoutSecs < 0 || c.Exchange.SweepIntervalSecs < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Notifications.Enabled && c.Notifications.FirebaseCredentials == "" {
		errs = append(errs, errors.New("notifications enabled without firebase credentials"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func readIntEnv(name string) (*int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
