package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		BasePath     string   `yaml:"base_path"`
		ReadTimeout  string   `yaml:"read_timeout"`
		WriteTimeout string   `yaml:"write_timeout"`
		CORSOrigins  []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Postgres struct {
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Quiz struct {
		CacheTTL         string `yaml:"cache_ttl"`
		FetchConcurrency int    `yaml:"fetch_concurrency"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret  string  `yaml:"jwt_secret"`
		TokenTTL   string  `yaml:"token_ttl"`
		BcryptCost int     `yaml:"bcrypt_cost"`
		LoginRate  float64 `yaml:"login_rate"`
		LoginBurst int     `yaml:"login_burst"`
	} `yaml:"auth"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies environment overrides and
// defaults. A missing file is not an error; deployments may configure
// everything through the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, err
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	str(&c.Server.Port, "PORT")
	str(&c.Storage.Driver, "STORAGE_DRIVER")
	str(&c.Postgres.URL, "DATABASE_URL")
	str(&c.Postgres.Host, "DB_HOST")
	str(&c.Postgres.User, "DB_USER")
	str(&c.Postgres.Password, "DB_PASSWORD")
	str(&c.Postgres.Name, "DB_NAME")
	str(&c.Postgres.SSLMode, "DB_SSLMODE")
	str(&c.Redis.Addr, "REDIS_ADDR")
	str(&c.Redis.Password, "REDIS_PASSWORD")
	str(&c.Auth.JWTSecret, "JWT_SECRET", "SECRET_KEY")
	str(&c.Log.Level, "LOG_LEVEL")
	if v, ok := lookup("DB_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Postgres.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) must be set")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.URL == "" && (c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.Name == "") {
			return errors.New("postgres storage needs postgres.url or host, user and name")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// PostgresDSN returns postgres.url when set, otherwise builds a URL from the
// discrete connection settings.
func (c Config) PostgresDSN() string {
	if c.Postgres.URL != "" {
		return c.Postgres.URL
	}
	if c.Postgres.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:   c.Postgres.Host + ":" + strconv.Itoa(c.Postgres.Port),
		Path:   "/" + c.Postgres.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.Postgres.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// BasePath is the API prefix normalised to a leading slash and no trailing one.
func (c Config) BasePath() string {
	p := strings.TrimRight(c.Server.BasePath, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
