package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/lastcard/config"
	"github.com/undeconstructed/lastcard/game"
	"github.com/undeconstructed/lastcard/lock/redislock"
	"github.com/undeconstructed/lastcard/server"
	"github.com/undeconstructed/lastcard/store/memory"
	"github.com/undeconstructed/lastcard/store/postgres"
	"github.com/undeconstructed/lastcard/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	cfg.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, cfg)
	log.Info().Err(err).Msg("server return")
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []game.Option{
		game.WithAccounting(cfg.Accounting()),
		game.WithShuffler(game.NewShuffler(cfg.Seed)),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		opts = append(opts, game.WithLocker(redislock.New(rdb, cfg.LockTTL)))
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis locks")
	}

	table := game.NewTable(store, opts...)
	srv := server.NewServer(table, server.Addrs{
		Web:  cfg.WebAddr,
		TCP:  cfg.TCPAddr,
		GRPC: cfg.GRPCAddr,
	})
	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (game.Store, func(), error) {
	log.Info().Str("store", cfg.Store).Msg("opening store")
	switch cfg.Store {
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return memory.New(), func() {}, nil
	}
}
