package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/undeconstructed/lastcard/comms"
	"github.com/undeconstructed/lastcard/game"
)

// session is one connected client, on whatever gateway.
type session struct {
	server   *Server
	gameID   string
	playerID string
	log      zerolog.Logger
}

// handle runs one request frame and makes its response frame.
func (ss *session) handle(ctx context.Context, msg comms.Message) comms.Message {
	req, err := comms.ParseRequest(msg)
	if err != nil {
		ss.log.Info().Msgf("junk from client: %v", msg.Head)
		out, _ := comms.Encode("error", Reply{Err: comms.WrapError(game.ErrBadRequest)})
		return out
	}

	var reply Reply
	data, err := ss.dispatch(ctx, req)
	if err != nil {
		reply.Err = comms.WrapError(err)
		if !game.IsValidation(err) && !game.IsState(err) {
			ss.log.Error().Err(err).Str("command", req.Command).Msg("request failed")
		}
	} else {
		reply.Data = data
	}

	out, err := comms.Encode(comms.ResponseHead(req.ID), reply)
	if err != nil {
		ss.log.Warn().Err(err).Msg("encode error")
		out, _ = comms.Encode(comms.ResponseHead(req.ID), Reply{Err: comms.WrapError(err)})
	}
	return out
}

func (ss *session) dispatch(ctx context.Context, req comms.Request) (interface{}, error) {
	t := ss.server.table
	switch req.Command {
	case "state":
		return t.RoundState(ctx, ss.gameID)
	case "actions":
		var in ActionsInput
		if err := decodeBody(req.Body, &in); err != nil {
			return nil, err
		}
		return t.Actions(ctx, ss.gameID, in.After)
	case "ready":
		return t.Ready(ctx, ss.gameID, ss.playerID)
	case "start":
		return t.SubmitAction(ctx, ss.gameID, ss.playerID, game.Payload{Effect: game.EffectStartGame.String()})
	case "pickup":
		return t.SubmitAction(ctx, ss.gameID, ss.playerID, game.Payload{Effect: game.EffectPickup.String()})
	case "play":
		var cards []game.Card
		if err := decodeBody(req.Body, &cards); err != nil {
			return nil, err
		}
		return t.SubmitAction(ctx, ss.gameID, ss.playerID, game.Payload{Effect: game.EffectPlay.String(), Cards: cards})
	case "action":
		var p game.Payload
		if err := decodeBody(req.Body, &p); err != nil {
			return nil, err
		}
		return t.SubmitAction(ctx, ss.gameID, ss.playerID, p)
	default:
		return nil, fmt.Errorf("%w: unknown command %q", game.ErrBadRequest, req.Command)
	}
}

func decodeBody(body json.RawMessage, v interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrBadRequest, err)
	}
	return nil
}

// connect handles the first frame of a connection, "connect <code>".
func (s *Server) connect(ctx context.Context, msg comms.Message, log zerolog.Logger) (*session, comms.Message, error) {
	fields := msg.Head.Fields()
	if len(fields) != 2 || fields[0] != "connect" {
		err := errors.New("bad first message head")
		out, _ := comms.Encode("connected", comms.ConnectResponse{Err: comms.WrapError(game.ErrBadRequest)})
		return nil, out, err
	}

	gameID, playerID, err := comms.DecodeConnectString(fields[1])
	if err != nil {
		out, _ := comms.Encode("connected", comms.ConnectResponse{Err: comms.WrapError(game.ErrBadRequest)})
		return nil, out, err
	}

	if _, err := s.Connect(ctx, gameID, playerID); err != nil {
		out, _ := comms.Encode("connected", comms.ConnectResponse{Err: comms.WrapError(err)})
		return nil, out, err
	}

	out, _ := comms.Encode("connected", comms.ConnectResponse{GameID: gameID, PlayerID: playerID})
	return &session{
		server:   s,
		gameID:   gameID,
		playerID: playerID,
		log:      log.With().Str("game", gameID).Str("player", playerID).Logger(),
	}, out, nil
}
