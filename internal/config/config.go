package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	FanOutSequential = "sequential"
	FanOutConcurrent = "concurrent"

	AcquireFailureAbort   = "abort"
	AcquireFailureIsolate = "isolate"

	defaultAPIPort = 3000
)

type Config struct {
	APIPort              int    `env:"API_PORT"`
	Port                 int    `env:"PORT"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
	FanOutMode           string `env:"FANOUT_MODE,default=sequential"`
	AcquireFailurePolicy string `env:"ACQUIRE_FAILURE_POLICY,default=abort"`
	AcquireTimeoutMS     int    `env:"DB_ACQUIRE_TIMEOUT_MS,default=0"`
	RedisURL             string `env:"REDIS_URL"`
	RateLimitPerSec      int    `env:"RATE_LIMIT_PER_SEC,default=100"`

	System1 BackendConfig
	System2 BackendConfig
}

func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutMS) * time.Millisecond
}

// BackendConfig holds connection settings for one downstream database.
type BackendConfig struct {
	Driver       string
	Host         string
	User         string
	Password     string
	Database     string
	Port         int
	MaxOpenConns int
}

type system1Env struct {
	Driver       string `env:"DB_DRIVER_SYSTEM1,default=mysql"`
	Host         string `env:"DB_HOST_SYSTEM1,default=localhost"`
	User         string `env:"DB_USER_SYSTEM1,default=root"`
	Password     string `env:"DB_PASSWORD_SYSTEM1"`
	Database     string `env:"DB_NAME_SYSTEM1,default=bff_api"`
	Port         int    `env:"DB_PORT_SYSTEM1,default=3306"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS_SYSTEM1,default=10"`
}

type system2Env struct {
	Driver       string `env:"DB_DRIVER_SYSTEM2,default=mysql"`
	Host         string `env:"DB_HOST_SYSTEM2,default=localhost"`
	User         string `env:"DB_USER_SYSTEM2,default=root"`
	Password     string `env:"DB_PASSWORD_SYSTEM2"`
	Database     string `env:"DB_NAME_SYSTEM2,default=cloud"`
	Port         int    `env:"DB_PORT_SYSTEM2,default=3306"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS_SYSTEM2,default=10"`
}

func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var s1 system1Env
	if _, err := env.UnmarshalFromEnviron(&s1); err != nil {
		return nil, fmt.Errorf("failed to load system1 config: %w", err)
	}
	var s2 system2Env
	if _, err := env.UnmarshalFromEnviron(&s2); err != nil {
		return nil, fmt.Errorf("failed to load system2 config: %w", err)
	}
	cfg.System1 = BackendConfig(s1)
	cfg.System2 = BackendConfig(s2)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	// API_PORT wins over PORT; both unset means the default.
	if c.APIPort == 0 {
		c.APIPort = c.Port
	}
	if c.APIPort == 0 {
		c.APIPort = defaultAPIPort
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid API_PORT %d", c.APIPort)
	}

	c.FanOutMode = strings.ToLower(strings.TrimSpace(c.FanOutMode))
	switch c.FanOutMode {
	case FanOutSequential, FanOutConcurrent:
	default:
		return fmt.Errorf("invalid FANOUT_MODE %q", c.FanOutMode)
	}

	c.AcquireFailurePolicy = strings.ToLower(strings.TrimSpace(c.AcquireFailurePolicy))
	switch c.AcquireFailurePolicy {
	case AcquireFailureAbort, AcquireFailureIsolate:
	default:
		return fmt.Errorf("invalid ACQUIRE_FAILURE_POLICY %q", c.AcquireFailurePolicy)
	}

	if c.AcquireTimeoutMS < 0 {
		return fmt.Errorf("DB_ACQUIRE_TIMEOUT_MS must not be negative")
	}
	if err := c.System1.validate("system1"); err != nil {
		return err
	}
	return c.System2.validate("system2")
}

func (b *BackendConfig) validate(name string) error {
	b.Driver = strings.ToLower(strings.TrimSpace(b.Driver))
	switch b.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%s: unsupported database driver %q", name, b.Driver)
	}
	if strings.TrimSpace(b.Database) == "" {
		return fmt.Errorf("%s: database name is required", name)
	}
	if b.Driver != DriverSQLite && (b.Port <= 0 || b.Port > 65535) {
		return fmt.Errorf("%s: invalid port %d", name, b.Port)
	}
	return nil
}

// DSN builds the driver specific data source name. For sqlite Database is a file path.
func (b BackendConfig) DSN() string {
	switch b.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(b.User, b.Password),
			Host:     net.JoinHostPort(b.Host, strconv.Itoa(b.Port)),
			Path:     "/" + b.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case DriverSQLite:
		return b.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC",
			b.User, b.Password, net.JoinHostPort(b.Host, strconv.Itoa(b.Port)), b.Database)
	}
}
