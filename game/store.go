package game

import "context"

// Role of someone at the table.
type Role string

const (
	RolePlayer   Role = "player"
	RoleObserver Role = "observer"
)

// Player is someone at the table. Observers watch and are never dealt in.
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"name"`
	Role     Role   `json:"role"`
	Seat     int    `json:"seat"`
	Ready    bool   `json:"ready"`
	HasTurn  bool   `json:"has_turn"`
	LastCard bool   `json:"last_card"`
}

// Game is the stored record of a game. Everything about cards lives in the
// action log instead.
type Game struct {
	ID      string   `json:"id"`
	Players []Player `json:"players"`
	Pending bool     `json:"pending"`
	Winner  string   `json:"winner,omitempty"`
}

// Started is the inverse of Pending.
func (g *Game) Started() bool {
	return !g.Pending
}

// Over is true once someone has won.
func (g *Game) Over() bool {
	return g.Winner != ""
}

// Player finds a player by id.
func (g *Game) Player(id string) (*Player, bool) {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i], true
		}
	}
	return nil, false
}

// Seated gets the players who play, in seat order.
func (g *Game) Seated() []*Player {
	var out []*Player
	for i := range g.Players {
		if g.Players[i].Role == RolePlayer {
			out = append(out, &g.Players[i])
		}
	}
	return out
}

// nextAfter is the seated player after id, wrapping round.
func (g *Game) nextAfter(id string) *Player {
	seated := g.Seated()
	for i, p := range seated {
		if p.ID == id {
			return seated[(i+1)%len(seated)]
		}
	}
	return nil
}

// ActionLog is the append only record of what happened in each game.
type ActionLog interface {
	// Append adds all the actions atomically, giving back their sequence ids.
	Append(ctx context.Context, gameID string, actions ...Action) ([]int64, error)
	// Log reads a consistent snapshot of a game's actions.
	Log(ctx context.Context, gameID string) (Log, error)
}

// GameRecords holds games and their players.
type GameRecords interface {
	CreateGame(ctx context.Context, g Game) error
	// Game loads a game with its players in seat order, or ErrGameNotFound.
	Game(ctx context.Context, id string) (Game, error)
	// AddPlayer seats a player, who must have a unique id and nickname.
	AddPlayer(ctx context.Context, gameID string, p Player) error
	// SaveGame writes the game's flags and every player's flags.
	SaveGame(ctx context.Context, g Game) error
}

// Store is everything the table needs to persist.
type Store interface {
	ActionLog
	GameRecords
}
