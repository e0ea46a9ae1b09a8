// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every setting of the service.
type Config struct {
	Port   string `env:"PORT" envDefault:"3000"`
	AppEnv string `env:"APP_ENV" envDefault:"production"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"skillsync"`
	DatabaseDSN   string `env:"DB_DSN"`

	JWTSecret    string        `env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"skillsync.events"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"skillsync"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
	S3   S3Config   `envPrefix:"S3_"`

	PublicURL   string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"web"`
	DebugRoutes bool   `env:"DEBUG_ROUTES" envDefault:"false"`
}

// SMTPConfig configures the verification mailer. Host empty disables mail.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"SkillSync <no-reply@skillsync.local>"`
}

// S3Config configures avatar uploads. Bucket empty disables uploads.
type S3Config struct {
	Bucket       string        `env:"BUCKET"`
	Region       string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint     string        `env:"ENDPOINT"`
	AccessKey    string        `env:"ACCESS_KEY"`
	SecretKey    string        `env:"SECRET_KEY"`
	PresignTTL   time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
	UsePathStyle bool          `env:"USE_PATH_STYLE" envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the settings the service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing JWT_SECRET_KEY environment variable"))
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("missing MONGO_URI environment variable"))
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("missing DB_DSN environment variable"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether internal error detail may reach clients.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
