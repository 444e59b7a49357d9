// Package config loads the service configuration from layered sources and
// hot-reloads it in development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	switch e {
	case Development, Staging, Production:
		return true
	}
	return false
}

// Config is the full service configuration.
type Config struct {
	Environment  Environment  `yaml:"environment" json:"environment"`
	Server       Server       `yaml:"server" json:"server"`
	Supabase     Supabase     `yaml:"supabase" json:"supabase"`
	RateLimit    RateLimit    `yaml:"ratelimit" json:"ratelimit"`
	Autosave     Autosave     `yaml:"autosave" json:"autosave"`
	Drafts       Drafts       `yaml:"drafts" json:"drafts"`
	Entitlements Entitlements `yaml:"entitlements" json:"entitlements"`
	Metrics      Metrics      `yaml:"metrics" json:"metrics"`
	Tracing      Tracing      `yaml:"tracing" json:"tracing"`
	Events       Events       `yaml:"events" json:"events"`
	Logging      Logging      `yaml:"logging" json:"logging"`
	CORS         CORS         `yaml:"cors" json:"cors"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-" json:"-"`
}

type Server struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRequestSize  int64         `yaml:"max_request_size" json:"max_request_size"`
	// PublicBaseURL prefixes blob URLs when the in-memory blob store is used.
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Supabase struct {
	URL            string `yaml:"url" json:"url"`
	ServiceRoleKey string `yaml:"service_role_key" json:"-"`
	JWTSecret      string `yaml:"jwt_secret" json:"-"`
	StorageBucket  string `yaml:"storage_bucket" json:"storage_bucket"`
	// Persistence selects "supabase" or "memory".
	Persistence string `yaml:"persistence" json:"persistence"`
}

type RateLimit struct {
	// Store selects "memory" or "dynamodb".
	Store         string        `yaml:"store" json:"store"`
	DynamoDBTable string        `yaml:"dynamodb_table" json:"dynamodb_table"`
	Region        string        `yaml:"region" json:"region"`
	GateTTL       time.Duration `yaml:"gate_ttl" json:"gate_ttl"`
	UploadWindow  time.Duration `yaml:"upload_window" json:"upload_window"`
	ProofWindow   time.Duration `yaml:"proof_window" json:"proof_window"`
	ExportWindow  time.Duration `yaml:"export_window" json:"export_window"`
	Throttle      Throttle      `yaml:"throttle" json:"throttle"`
}

type Throttle struct {
	Requests int           `yaml:"requests" json:"requests"`
	Window   time.Duration `yaml:"window" json:"window"`
}

type Autosave struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

type Drafts struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

type Entitlements struct {
	FreeCustomerLimit int `yaml:"free_customer_limit" json:"free_customer_limit"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Port      int    `yaml:"port" json:"port"`
	Path      string `yaml:"path" json:"path"`
}

type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
	Insecure    bool    `yaml:"insecure" json:"insecure"`
}

type Events struct {
	// Provider selects "eventbridge" or "log".
	Provider     string `yaml:"provider" json:"provider"`
	EventBusName string `yaml:"event_bus_name" json:"event_bus_name"`
	Source       string `yaml:"source" json:"source"`
}

type Logging struct {
	Level string `yaml:"level" json:"level"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// Default returns the configuration used before any source is applied.
func Default(env Environment) *Config {
	return &Config{
		Environment: env,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxRequestSize:  10 << 20,
			PublicBaseURL:   "http://localhost:8080/blobs",
		},
		Supabase: Supabase{
			StorageBucket: "agency-images",
			Persistence:   "supabase",
		},
		RateLimit: RateLimit{
			Store:         "memory",
			DynamoDBTable: "agency-toolkit-gates",
			Region:        "us-east-1",
			GateTTL:       time.Hour,
			UploadWindow:  60 * time.Second,
			ProofWindow:   5 * time.Second,
			ExportWindow:  30 * time.Second,
			Throttle:      Throttle{Requests: 120, Window: time.Minute},
		},
		Autosave: Autosave{Debounce: 800 * time.Millisecond},
		Drafts: Drafts{
			IdleTimeout:   15 * time.Minute,
			SweepInterval: time.Minute,
		},
		Entitlements: Entitlements{FreeCustomerLimit: 3},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "agency_toolkit",
			Port:      9090,
			Path:      "/metrics",
		},
		Tracing: Tracing{
			ServiceName: "agency-toolkit",
			Endpoint:    "localhost:4317",
			SampleRate:  0.1,
			Insecure:    true,
		},
		Events: Events{
			Provider:     "log",
			EventBusName: "default",
			Source:       "agency-toolkit",
		},
		Logging: Logging{Level: "info"},
		CORS: CORS{
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxAge:         300,
		},
	}
}

// applyEnvironmentDefaults adjusts values that depend on the environment.
func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Development:
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
		c.Tracing.SampleRate = 1
	case Production:
		c.Tracing.Insecure = false
	}
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	var errs []error

	if !c.Environment.Valid() {
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Supabase.Persistence {
	case "memory":
		if c.Environment == Production {
			errs = append(errs, errors.New("supabase.persistence=memory is not allowed in production"))
		}
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			errs = append(errs, errors.New("supabase.url and supabase.service_role_key are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown supabase.persistence %q", c.Supabase.Persistence))
	}

	switch c.RateLimit.Store {
	case "memory":
	case "dynamodb":
		if c.RateLimit.DynamoDBTable == "" {
			errs = append(errs, errors.New("ratelimit.dynamodb_table is required for the dynamodb store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ratelimit.store %q", c.RateLimit.Store))
	}
	for name, w := range map[string]time.Duration{
		"upload_window": c.RateLimit.UploadWindow,
		"proof_window":  c.RateLimit.ProofWindow,
		"export_window": c.RateLimit.ExportWindow,
	} {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.%s must be positive", name))
		}
	}
	if c.RateLimit.Throttle.Requests <= 0 || c.RateLimit.Throttle.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.throttle requests and window must be positive"))
	}

	if c.Autosave.Debounce <= 0 {
		errs = append(errs, errors.New("autosave.debounce must be positive"))
	}
	if c.Drafts.IdleTimeout <= 0 || c.Drafts.SweepInterval <= 0 {
		errs = append(errs, errors.New("drafts.idle_timeout and drafts.sweep_interval must be positive"))
	}
	if c.Entitlements.FreeCustomerLimit < 0 {
		errs = append(errs, errors.New("entitlements.free_customer_limit must not be negative"))
	}

	switch c.Events.Provider {
	case "log", "eventbridge":
	default:
		errs = append(errs, fmt.Errorf("unknown events.provider %q", c.Events.Provider))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}
	return errors.Join(errs...)
}

// EnvironmentFromEnv reads ENVIRONMENT, defaulting to development.
func EnvironmentFromEnv() Environment {
	env := Environment(strings.ToLower(os.Getenv("ENVIRONMENT")))
	if env == "" {
		return Development
	}
	return env
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	cp.Supabase.ServiceRoleKey = mask(c.Supabase.ServiceRoleKey)
	cp.Supabase.JWTSecret = mask(c.Supabase.JWTSecret)
	return &cp
}
