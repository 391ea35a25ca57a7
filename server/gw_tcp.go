package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/lastcard/comms"
)

func runTcpGateway(ctx context.Context, server *Server, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	m := &tcpManager{
		server: server,
		log:    log.With().Str("gw", "tcp").Logger(),
	}
	m.log.Info().Msgf("comms listening on tcp:%v", ln.Addr())

	return m.Serve(ctx, ln)
}

type tcpManager struct {
	server *Server
	log    zerolog.Logger
	conns  sync.WaitGroup
}

// Serve accepts until ctx is done, then waits for connections to finish.
func (m *tcpManager) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			m.conns.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		m.conns.Add(1)
		go func() {
			defer m.conns.Done()
			m.manageTcpConnection(ctx, conn)
		}()
	}
}

func (m *tcpManager) manageTcpConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := m.log.With().Str("client", conn.RemoteAddr().String()).Logger()
	log.Info().Msgf("connecting")

	// unblock reads when the server goes down
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	upStream := comms.NewDecoder(conn)
	dnStream := comms.NewEncoder(conn)

	msg1, err := upStream.Decode()
	if err != nil {
		log.Info().Err(err).Msg("first message error")
		return
	}
	ss, res, err := m.server.connect(ctx, msg1, log)
	if sendErr := dnStream.Send(res); sendErr != nil {
		log.Info().Err(sendErr).Msg("send error")
		return
	}
	if err != nil {
		log.Info().Err(err).Msg("connect error")
		return
	}

	for {
		// one request at a time, answered in order
		msg, err := upStream.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Info().Err(err).Msg("decode error")
			}
			break
		}
		log.Debug().Msgf("received: %s %s", msg.Head, string(msg.Data))

		out := ss.handle(ctx, msg)
		if err := dnStream.Send(out); err != nil {
			log.Info().Err(err).Msg("send error")
			break
		}
	}

	log.Info().Msg("disconnected")
}
