// Package config reads settings from LASTCARD_ environment variables, and
// from .env files if there are any.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/lastcard/game"
)

const Prefix = "LASTCARD_"

type Config struct {
	WebAddr  string `env:"WEB_ADDR" envDefault:":8080"`
	TCPAddr  string `env:"TCP_ADDR" envDefault:":1234"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":1235"`

	// Store is memory, sqlite or postgres.
	Store       string `env:"STORE" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"lastcard.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// RedisAddr turns on locks shared between servers.
	RedisAddr string        `env:"REDIS_ADDR"`
	LockTTL   time.Duration `env:"LOCK_TTL" envDefault:"10s"`

	// Reshuffle is fixed or deck-height.
	Reshuffle string `env:"RESHUFFLE" envDefault:"fixed"`
	Seed      int64  `env:"SEED" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`

	// client only
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	ServerAddr   string        `env:"SERVER_ADDR" envDefault:"localhost:1234"`
	Game         string        `env:"GAME"`
	Player       string        `env:"PLAYER"`
}

// Load reads .env files that exist, then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromMap reads settings from m instead of the environment; keys still
// carry the prefix.
func FromMap(m map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: m})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("sqlite store needs " + Prefix + "SQLITE_PATH")
		}
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres store needs " + Prefix + "POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Reshuffle {
	case "fixed", "deck-height":
	default:
		return fmt.Errorf("unknown reshuffle accounting %q", c.Reshuffle)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("bad log level: %w", err)
	}
	return nil
}

// Accounting is the reshuffle accounting chosen.
func (c Config) Accounting() game.ReshuffleAccounting {
	if c.Reshuffle == "deck-height" {
		return game.DeckHeight{DeckSize: game.DeckSize}
	}
	return game.FixedDivisor{DeckSize: game.DeckSize}
}

// SetupLogging configures the global zerolog logger.
func (c Config) SetupLogging() {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
