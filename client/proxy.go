package client

import (
	"context"

	"github.com/undeconstructed/lastcard/game"
)

// GameClient is the table as one player sees it.
type GameClient interface {
	State(ctx context.Context) (game.StateView, error)
	Actions(ctx context.Context, after int64) ([]game.ActionView, error)
	Ready(ctx context.Context) (game.Result, error)
	Start(ctx context.Context) (game.Result, error)
	Play(ctx context.Context, cards []game.Card) (game.Result, error)
	Pickup(ctx context.Context) (game.Result, error)
}

type gameProxy struct {
	client *Client
}

func NewGameProxy(client *Client) GameClient {
	return &gameProxy{client: client}
}

func (gp *gameProxy) State(ctx context.Context) (game.StateView, error) {
	var st game.StateView
	err := gp.client.Do(ctx, "state", nil, &st)
	return st, err
}

func (gp *gameProxy) Actions(ctx context.Context, after int64) ([]game.ActionView, error) {
	var out []game.ActionView
	err := gp.client.Do(ctx, "actions", map[string]int64{"after": after}, &out)
	return out, err
}

func (gp *gameProxy) Ready(ctx context.Context) (game.Result, error) {
	return gp.result(ctx, "ready", nil)
}

func (gp *gameProxy) Start(ctx context.Context) (game.Result, error) {
	return gp.result(ctx, "start", nil)
}

func (gp *gameProxy) Play(ctx context.Context, cards []game.Card) (game.Result, error) {
	return gp.result(ctx, "play", cards)
}

func (gp *gameProxy) Pickup(ctx context.Context) (game.Result, error) {
	return gp.result(ctx, "pickup", nil)
}

func (gp *gameProxy) result(ctx context.Context, cmd string, body interface{}) (game.Result, error) {
	var res game.Result
	err := gp.client.Do(ctx, cmd, body, &res)
	return res, err
}
