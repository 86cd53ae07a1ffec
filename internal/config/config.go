package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v9"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"

	AuthFirebase = "firebase"
	AuthHeader   = "header"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	Env        string `env:"APP_ENV" envDefault:"dev"`
	Storage    string `env:"STORAGE_DRIVER" envDefault:"mysql"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`

	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	AuthMode                string `env:"AUTH_MODE" envDefault:"firebase"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	AllowedOriginSuffixes []string `env:"ALLOWED_ORIGIN_SUFFIXES" envSeparator:"," envDefault:"vercel.app"`
	WSSendBuffer          int      `env:"WS_SEND_BUFFER" envDefault:"64"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMySQL:
		for _, f := range []struct{ name, value string }{
			{"DB_USER", c.DBUser},
			{"DB_PASSWORD", c.DBPassword},
			{"DB_NAME", c.DBName},
		} {
			if f.value == "" {
				errs = append(errs, fmt.Errorf("%s is required for mysql storage", f.name))
			}
		}
		if c.DBHost == "" && c.InstanceConnectionName == "" {
			errs = append(errs, errors.New("DB_HOST or INSTANCE_CONNECTION_NAME is required for mysql storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage))
	}
	switch c.AuthMode {
	case AuthFirebase:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for firebase auth"))
		}
	case AuthHeader:
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}
	if c.WSSendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local"
}
