package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of the browser-use API service.
type Config struct {
	// Server HTTP surface configuration
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Agent browser agent defaults
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Browser headless browser configuration
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// LLM vision model client configuration
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Registry task registry backend configuration
	Registry RegistryConfig `yaml:"registry" env:"REGISTRY"`

	// Pool background worker pool configuration
	Pool PoolConfig `yaml:"pool" env:"POOL"`

	// Log logging configuration
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry OTel configuration
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// HTTP port
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics port
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout. Synchronous runs block the request for the whole
	// agent execution, so this must cover Agent.Timeout.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Allowed CORS origins (empty disables cross-origin requests)
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// Per-IP rate limit, requests per second
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// Per-IP rate limit burst
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// AgentConfig holds browser agent defaults.
type AgentConfig struct {
	// Default model when a request does not name one
	DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`
	// Maximum observe-plan-act steps per run
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// Delay between executed actions
	ActionDelay time.Duration `yaml:"action_delay" env:"ACTION_DELAY"`
	// Hard ceiling on a single run
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Directory for per-task conversation logs
	ConversationDir string `yaml:"conversation_dir" env:"CONVERSATION_DIR"`
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	// Run headless
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// Viewport width
	ViewportWidth int `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	// Viewport height
	ViewportHeight int `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	// Optional user agent override
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
	// Optional proxy URL
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`
	// Per-navigation timeout
	NavigationTimeout time.Duration `yaml:"navigation_timeout" env:"NAVIGATION_TIMEOUT"`
}

// LLMConfig configures the vision model client.
type LLMConfig struct {
	// API key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Optional base URL for OpenAI-compatible endpoints
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RegistryConfig selects and configures the task registry backend.
type RegistryConfig struct {
	// Backend: memory, redis
	Backend string `yaml:"backend" env:"BACKEND"`
	// Redis address
	Addr string `yaml:"addr" env:"ADDR"`
	// Redis password
	Password string `yaml:"password" env:"PASSWORD"`
	// Redis database number
	DB int `yaml:"db" env:"DB"`
	// Connection pool size
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Record TTL; zero keeps records for the process lifetime,
	// matching the in-memory backend
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// PoolConfig bounds background task execution.
type PoolConfig struct {
	// Maximum concurrent workers
	MaxWorkers int `yaml:"max_workers" env:"MAX_WORKERS"`
	// Queued tasks beyond running workers
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
	// Idle worker exit timeout
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures OTel export.
type TelemetryConfig struct {
	// Enabled toggles the SDK; disabled leaves noop global providers
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP gRPC endpoint
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Service name reported on spans
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Trace sample rate
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "BROWSERUSE"}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves configuration. Precedence: defaults, YAML file,
// prefixed environment variables, then the bare PORT variable, which
// overrides the HTTP port for platform compatibility.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT value %q: %w", port, err)
		}
		cfg.Server.HTTPPort = p
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, "agent max_steps must be positive")
	}
	if c.Pool.MaxWorkers <= 0 {
		errs = append(errs, "pool max_workers must be positive")
	}
	if c.Pool.QueueSize < 0 {
		errs = append(errs, "pool queue_size must not be negative")
	}
	switch c.Registry.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("unknown registry backend %q", c.Registry.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
