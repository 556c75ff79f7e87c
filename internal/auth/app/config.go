package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/caarlos0/env/v11"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	AccessSecret  string `env:"AUTH_ACCESS_SECRET,required,notEmpty"`
	RefreshSecret string `env:"AUTH_REFRESH_SECRET,required,notEmpty"`
	AccessTTL     string `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    string `env:"AUTH_REFRESH_TTL" envDefault:"7d"`
	Issuer        string `env:"AUTH_ISSUER" envDefault:"sessionauth"`
	BcryptCost    int    `env:"AUTH_BCRYPT_COST" envDefault:"10"`

	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`     // generated on first start
	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"` // sqlite, holds users and (by default) refresh tokens

	TokenBackend     string        `env:"AUTH_TOKEN_BACKEND" envDefault:"sqlite"` // sqlite or redis
	RedisAddr        string        `env:"AUTH_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"AUTH_REDIS_PASSWORD"`
	RedisDB          int           `env:"AUTH_REDIS_DB" envDefault:"0"`
	RefreshRetention time.Duration `env:"AUTH_REFRESH_RETENTION" envDefault:"720h"`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	RateLimits httpx.RateLimitProfiles `envPrefix:"RATELIMIT_"`
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFrom reads vars instead of the process environment.
func LoadConfigFrom(vars map[string]string) (Config, error) {
	return loadConfig(env.Options{Environment: vars})
}

func loadConfig(opts env.Options) (Config, error) {
	cfg := Config{RateLimits: httpx.DefaultRateLimits()}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("%w: %w", service.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once. The returned error matches
// service.ErrConfiguration.
func (c Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" || c.RefreshSecret == "" {
		errs = append(errs, errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET are required"))
	} else if c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ"))
	}
	if _, err := jwtx.ParseTTL(c.AccessTTL); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_ACCESS_TTL: %w", err))
	}
	if _, err := jwtx.ParseTTL(c.RefreshTTL); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_REFRESH_TTL: %w", err))
	}
	if c.BcryptCost < cryptox.MinCost || c.BcryptCost > cryptox.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST: %d not in [%d, %d]", c.BcryptCost, cryptox.MinCost, cryptox.MaxCost))
	}
	switch c.TokenBackend {
	case BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_BACKEND: unknown backend %q", c.TokenBackend))
	}
	if c.RefreshRetention < 0 {
		errs = append(errs, errors.New("AUTH_REFRESH_RETENTION must not be negative"))
	}
	if c.HousekeepingInterval <= 0 {
		errs = append(errs, errors.New("HOUSEKEEPING_INTERVAL must be positive"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", service.ErrConfiguration, errors.Join(errs...))
}

func (c Config) sessionConfig(pepper []byte) service.SessionConfig {
	return service.SessionConfig{
		AccessSecret:  []byte(c.AccessSecret),
		RefreshSecret: []byte(c.RefreshSecret),
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
		Issuer:        c.Issuer,
		BcryptCost:    c.BcryptCost,
		Pepper:        pepper,
	}
}
