package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/nfrund/unicorn/internal/pubsub"
)

const (
	// DefaultPath is the config file used when none is given.
	DefaultPath = "unicorn.json"
	// APIService is the services key of the WebSocket API listener.
	APIService = "api"

	defaultIP   = "127.0.0.1"
	defaultPort = 60000
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Service is the listen address of one component.
type Service struct {
	IP   string `json:"ip" validate:"required,ip"`
	Port int    `json:"port" validate:"required,min=1,max=65535"`
}

// DefaultService returns 127.0.0.1:60000.
func DefaultService() Service {
	return Service{IP: defaultIP, Port: defaultPort}
}

// UnmarshalJSON fills omitted fields with their defaults.
func (s *Service) UnmarshalJSON(data []byte) error {
	type alias Service
	a := alias(DefaultService())
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Service(a)
	return nil
}

// Address returns the service's host:port.
func (s Service) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// RouterConfig tunes the command queue and per-connection buffers.
type RouterConfig struct {
	CommandBuffer  int      `json:"command_buffer" validate:"min=1"`
	SendBuffer     int      `json:"send_buffer" validate:"min=1"`
	ReadLimit      int64    `json:"read_limit" validate:"min=512"`
	OriginPatterns []string `json:"origin_patterns"`
	// ConnectRate caps WebSocket upgrades per second per client IP. Zero disables it.
	ConnectRate float64 `json:"connect_rate" validate:"min=0"`
}

// Config holds all configuration for the application.
type Config struct {
	Services  map[string]Service   `json:"services" validate:"dive"`
	LogLevel  string               `json:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat string               `json:"log_format" validate:"omitempty,oneof=text json"`
	Router    RouterConfig         `json:"router"`
	Tracing   pubsub.TracingConfig `json:"tracing"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Services:  map[string]Service{APIService: DefaultService()},
		LogLevel:  "info",
		LogFormat: "text",
		Router: RouterConfig{
			CommandBuffer: 1024,
			SendBuffer:    256,
			ReadLimit:     64 << 10,
		},
		Tracing: pubsub.DefaultTracingConfig(),
	}
}

// Service returns the named service, or the default service if it is not configured.
func (c *Config) Service(name string) Service {
	if s, ok := c.Services[name]; ok {
		return s
	}
	return DefaultService()
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
}

// Load reads the JSON config at path from fs, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("Config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.Services == nil {
		cfg.Services = make(map[string]Service)
	}
	if _, ok := cfg.Services[APIService]; !ok {
		cfg.Services[APIService] = DefaultService()
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
	if level := os.Getenv("UNICORN_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if addr := os.Getenv("UNICORN_API_ADDR"); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("UNICORN_API_ADDR: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("UNICORN_API_ADDR: %w", err)
		}
		cfg.Services[APIService] = Service{IP: host, Port: port}
	}
	if enabled := os.Getenv("PUBSUB_TRACING_ENABLED"); enabled != "" {
		on, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("PUBSUB_TRACING_ENABLED: %w", err)
		}
		cfg.Tracing.Enabled = on
	}
	if name := os.Getenv("PUBSUB_TRACING_SERVICE_NAME"); name != "" {
		cfg.Tracing.ServiceName = name
	}
	if url := os.Getenv("PUBSUB_TRACING_ZIPKIN_URL"); url != "" {
		cfg.Tracing.ZipkinURL = url
	}
	return nil
}
