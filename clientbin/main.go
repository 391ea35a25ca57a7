package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/lastcard/client"
	"github.com/undeconstructed/lastcard/comms"
	"github.com/undeconstructed/lastcard/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	cfg.SetupLogging()

	// a connect code from the join response, or game and player from config
	var code string
	switch {
	case len(os.Args) > 1:
		code = os.Args[1]
	case cfg.Game != "" && cfg.Player != "":
		code = comms.EncodeConnectString(cfg.Game, cfg.Player)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s <code>, or set %sGAME and %sPLAYER\n", os.Args[0], config.Prefix, config.Prefix)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, code); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, code string) error {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dctx, cfg.ServerAddr, code)
	cancel()
	if err != nil {
		return err
	}
	defer c.Close()

	log := log.With().Str("game", c.GameID).Str("player", c.PlayerID).Logger()
	log.Info().Msg("connected")

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g := client.NewGameProxy(c)
	box := client.NewBox()
	go func() {
		if err := client.Poll(ctx, g, box, cfg.PollInterval, log); err != nil {
			log.Error().Err(err).Msg("lost the server")
			stop()
		}
	}()

	l, err := client.NewReadline("hist.txt")
	if err != nil {
		return err
	}
	defer l.Close()

	return client.Repl(ctx, l, g, box, c.PlayerID)
}
