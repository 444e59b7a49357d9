package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target any) error
	Extension() string
}

// Loader handles loading configuration from multiple sources.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	fileLoaders []FileLoader
	getenv      func(string) string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		fileLoaders: []FileLoader{YAMLLoader{}, JSONLoader{}},
		getenv:      os.Getenv,
	}
}

// Load applies, lowest priority first:
//  1. code defaults
//  2. base.yaml
//  3. <environment>.yaml
//  4. local.yaml (development only)
//  5. environment variables
func (l *Loader) Load() (*Config, error) {
	l.sources = []string{"defaults"}
	cfg := Default(l.environment)

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	if err := l.loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")

	// Files may not change the environment the loader was built for.
	cfg.Environment = l.environment
	cfg.LoadedFrom = l.sources
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())

		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		err = loader.Load(file, cfg)
		file.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return fs.ErrNotExist
}

func (l *Loader) loadEnvironmentVariables(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := l.getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := l.getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := l.getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := l.getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_HOST", &cfg.Server.Host)
	integer("SERVER_PORT", &cfg.Server.Port)
	str("PUBLIC_BASE_URL", &cfg.Server.PublicBaseURL)

	str("SUPABASE_URL", &cfg.Supabase.URL)
	str("SUPABASE_SERVICE_ROLE_KEY", &cfg.Supabase.ServiceRoleKey)
	str("SUPABASE_JWT_SECRET", &cfg.Supabase.JWTSecret)
	str("SUPABASE_STORAGE_BUCKET", &cfg.Supabase.StorageBucket)
	str("PERSISTENCE", &cfg.Supabase.Persistence)

	str("RATELIMIT_STORE", &cfg.RateLimit.Store)
	str("RATELIMIT_TABLE", &cfg.RateLimit.DynamoDBTable)
	str("AWS_REGION", &cfg.RateLimit.Region)
	integer("THROTTLE_REQUESTS", &cfg.RateLimit.Throttle.Requests)
	duration("THROTTLE_WINDOW", &cfg.RateLimit.Throttle.Window)

	duration("AUTOSAVE_DEBOUNCE", &cfg.Autosave.Debounce)
	duration("DRAFTS_IDLE_TIMEOUT", &cfg.Drafts.IdleTimeout)
	integer("FREE_CUSTOMER_LIMIT", &cfg.Entitlements.FreeCustomerLimit)

	boolean("ENABLE_METRICS", &cfg.Metrics.Enabled)
	integer("METRICS_PORT", &cfg.Metrics.Port)
	boolean("ENABLE_TRACING", &cfg.Tracing.Enabled)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)

	str("EVENTS_PROVIDER", &cfg.Events.Provider)
	str("EVENT_BUS_NAME", &cfg.Events.EventBusName)
	str("LOG_LEVEL", &cfg.Logging.Level)

	if v := l.getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	return errors.Join(errs...)
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (YAMLLoader) Load(reader io.Reader, target any) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (YAMLLoader) Extension() string { return "yaml" }

// JSONLoader loads configuration from JSON files. Durations are nanoseconds.
type JSONLoader struct{}

func (JSONLoader) Load(reader io.Reader, target any) error {
	return json.NewDecoder(reader).Decode(target)
}

func (JSONLoader) Extension() string { return "json" }

// Load reads the configuration for the ENVIRONMENT variable from the
// directory named by CONFIG_DIR (default "config").
func Load() (*Config, error) {
	return NewLoader(os.Getenv("CONFIG_DIR"), EnvironmentFromEnv()).Load()
}
