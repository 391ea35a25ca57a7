package server

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/undeconstructed/lastcard/game"
)

// Addrs says where each gateway listens. Empty means don't run it.
type Addrs struct {
	Web  string
	TCP  string
	GRPC string
}

// Server puts a table on the network.
type Server struct {
	table *game.Table
	addrs Addrs
	log   zerolog.Logger
}

func NewServer(table *game.Table, addrs Addrs) *Server {
	return &Server{
		table: table,
		addrs: addrs,
		log:   log.With().Str("component", "server").Logger(),
	}
}

// Run serves until ctx is done or a gateway fails.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("server running")
	defer s.log.Info().Msg("server stopping")

	grp, gctx := errgroup.WithContext(ctx)

	if s.addrs.Web != "" {
		grp.Go(func() error { return runWebGateway(gctx, s, s.addrs.Web) })
	}
	if s.addrs.TCP != "" {
		grp.Go(func() error { return runTcpGateway(gctx, s, s.addrs.TCP) })
	}
	if s.addrs.GRPC != "" {
		grp.Go(func() error { return runGrpcGateway(gctx, s, s.addrs.GRPC) })
	}

	err := grp.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Connect checks that a connect code points at someone real.
func (s *Server) Connect(ctx context.Context, gameID, playerID string) (game.PlayerView, error) {
	st, err := s.table.RoundState(ctx, gameID)
	if err != nil {
		return game.PlayerView{}, err
	}
	for _, p := range st.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return game.PlayerView{}, game.ErrUnknownPlayer
}
