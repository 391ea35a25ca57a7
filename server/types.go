package server

import (
	"github.com/undeconstructed/lastcard/comms"
	"github.com/undeconstructed/lastcard/game"
)

type MakeGameOutput struct {
	ID string `json:"id"`
}

type JoinInput struct {
	Nickname string    `json:"nickname"`
	Role     game.Role `json:"role"`
}

type JoinOutput struct {
	game.Player
	// Code is for connecting over tcp or ws
	Code string `json:"code"`
}

type ActionsInput struct {
	After int64 `json:"after"`
}

// Reply is the data of every response frame.
type Reply struct {
	Data interface{}       `json:"data,omitempty"`
	Err  *comms.CommsError `json:"error,omitempty"`
}

type errorOutput struct {
	Error *comms.CommsError `json:"error"`
}
