package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/layerline/internal/timeline"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Timeline TimelineConfig    `yaml:"timeline"`
	Redis    RedisConfig       `yaml:"redis"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Timeline.Validate(); err != nil {
		return err
	}
	return c.Redis.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// CatalogConfig holds the path to the layer definition directory.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// Watch enables live reindexing when definition files change.
	Watch bool `yaml:"watch"`
}

// Validate validates the catalogue configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TimelineConfig tunes the coverage calculator and the axis defaults used
// when a request leaves them out.
type TimelineConfig struct {
	IgnoredLayers []string `yaml:"ignored_layers"`
	// MaxIntervals caps interval dates per range; 0 disables the cap.
	MaxIntervals int     `yaml:"max_intervals"`
	DefaultWidth float64 `yaml:"default_width"`
	DefaultZoom  string  `yaml:"default_zoom"`
	// InvalidateThrottle is the minimum gap between coverage.invalidated events.
	InvalidateThrottle time.Duration `yaml:"invalidate_throttle"`
}

// Validate validates the timeline configuration.
func (c *TimelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxIntervals, validation.Min(0)),
		validation.Field(&c.DefaultWidth, validation.Required, validation.Min(1.0)),
		validation.Field(&c.DefaultZoom, validation.Required, validation.By(func(v interface{}) error {
			_, err := timeline.ParseUnit(v.(string))
			return err
		})),
		validation.Field(&c.InvalidateThrottle, validation.Min(time.Duration(0))),
	)
}

// Zoom returns the parsed default zoom unit. Call after Validate.
func (c *TimelineConfig) Zoom() timeline.Unit {
	u, err := timeline.ParseUnit(c.DefaultZoom)
	if err != nil {
		return timeline.UnitDay
	}
	return u
}

// RedisConfig enables the shared coverage response cache. An empty Addr
// leaves it off.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Validate validates the Redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.TTL, validation.When(c.Addr != "", validation.Required, validation.Min(time.Second))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Catalog: CatalogConfig{
			Path:  "./catalog",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./layerline.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Timeline: TimelineConfig{
			IgnoredLayers:      append([]string(nil), timeline.DefaultIgnoredLayers...),
			MaxIntervals:       100000,
			DefaultWidth:       1000,
			DefaultZoom:        "day",
			InvalidateThrottle: 2 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
	}
}
