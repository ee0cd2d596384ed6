// Package config builds the immutable server configuration from
// defaults, environment variables and command-line flags (in that order).
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings. It is built once at startup and passed by value.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseDSN     string        `env:"DATABASE_URL"`
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTTL       time.Duration `env:"JWT_ACCESS_TTL" envDefault:"30m"`
	RefreshTTL      time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	AppName         string        `env:"APP_NAME" envDefault:"counter-orion"`
	AppVersion      string        `env:"APP_VERSION" envDefault:"dev"`
	Dev             bool          `env:"APP_DEV"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"1m"`
	LoginWindow     time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	LoginMaxFails   int           `env:"LOGIN_MAX_FAILS" envDefault:"5"`
	LoginBlockFor   time.Duration `env:"LOGIN_BLOCK_FOR" envDefault:"15m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load parses the environment and then args (without the program name).
// Flags win over environment variables.
func Load(args []string) (Config, error) {
	return load(args, env.Options{})
}

func load(args []string, opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("counter-orion", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&cfg.JWTSecret, "jwt-key", cfg.JWTSecret, "HS256 signing key (required)")
	fs.DurationVar(&cfg.AccessTTL, "access-ttl", cfg.AccessTTL, "access token TTL")
	fs.DurationVar(&cfg.RefreshTTL, "refresh-ttl", cfg.RefreshTTL, "refresh token TTL")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development logging")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address for the catalog cache (empty disables it)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []error
	if c.JWTSecret == "" {
		problems = append(problems, errors.New("missing jwt signing key (JWT_SECRET / -jwt-key)"))
	}
	if c.DatabaseDSN == "" {
		problems = append(problems, errors.New("missing database dsn (DATABASE_URL / -dsn)"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		problems = append(problems, errors.New("token TTLs must be positive"))
	}
	if c.LoginMaxFails <= 0 {
		problems = append(problems, errors.New("LOGIN_MAX_FAILS must be positive"))
	}
	return errors.Join(problems...)
}

// ImportConfig holds settings of the catalog import command.
type ImportConfig struct {
	DatabaseDSN string   `env:"DATABASE_URL"`
	RedisAddr   string   `env:"REDIS_ADDR"`
	Game        string   `env:"CATALOG_GAME" envDefault:"cs2"`
	Rarities    []string `env:"CATALOG_RARITIES" envSeparator:"," envDefault:"Covert,Extraordinary"`
	Dev         bool     `env:"APP_DEV"`
	File        string
	Prune       bool
}

// LoadImport is Load for the import command. An empty -rarities accepts every rarity.
func LoadImport(args []string) (ImportConfig, error) {
	return loadImport(args, env.Options{})
}

func loadImport(args []string, opts env.Options) (ImportConfig, error) {
	var cfg ImportConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return ImportConfig{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address of the catalog cache to invalidate")
	fs.StringVar(&cfg.File, "file", "", "JSON file with the source list (required)")
	fs.StringVar(&cfg.Game, "game", cfg.Game, "catalog game partition")
	rarities := fs.String("rarities", strings.Join(cfg.Rarities, ","), "comma-separated rarity allow-list")
	fs.BoolVar(&cfg.Prune, "prune", false, "delete rows of the game missing from the source")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development logging")
	if err := fs.Parse(args); err != nil {
		return ImportConfig{}, err
	}

	cfg.Rarities = cfg.Rarities[:0]
	for _, r := range strings.Split(*rarities, ",") {
		if r = strings.TrimSpace(r); r != "" {
			cfg.Rarities = append(cfg.Rarities, r)
		}
	}

	var problems []error
	if cfg.DatabaseDSN == "" {
		problems = append(problems, errors.New("missing database dsn (DATABASE_URL / -dsn)"))
	}
	if cfg.File == "" {
		problems = append(problems, errors.New("missing source file (-file)"))
	}
	if err := errors.Join(problems...); err != nil {
		return ImportConfig{}, err
	}
	return cfg, nil
}
