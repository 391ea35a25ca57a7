// Package memory keeps games in process. Good for tests and single servers
// that don't mind losing everything on restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/undeconstructed/lastcard/game"
)

type record struct {
	game game.Game
	log  game.Log
}

// Store is a game.Store in memory.
type Store struct {
	mu    sync.RWMutex
	games map[string]*record
	seq   int64
}

func New() *Store {
	return &Store{games: map[string]*record{}}
}

func (s *Store) CreateGame(ctx context.Context, g game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[g.ID]; exists {
		return fmt.Errorf("game %s exists", g.ID)
	}
	s.games[g.ID] = &record{game: copyGame(g)}
	return nil
}

func (s *Store) Game(ctx context.Context, id string) (game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.games[id]
	if !ok {
		return game.Game{}, game.ErrGameNotFound
	}
	return copyGame(r.game), nil
}

func (s *Store) AddPlayer(ctx context.Context, gameID string, p game.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.games[gameID]
	if !ok {
		return game.ErrGameNotFound
	}
	for _, x := range r.game.Players {
		if x.ID == p.ID || x.Nickname == p.Nickname {
			return fmt.Errorf("player %s already in game %s", p.Nickname, gameID)
		}
	}
	r.game.Players = append(r.game.Players, p)
	return nil
}

func (s *Store) SaveGame(ctx context.Context, g game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.games[g.ID]
	if !ok {
		return game.ErrGameNotFound
	}
	r.game = copyGame(g)
	return nil
}

func (s *Store) Append(ctx context.Context, gameID string, actions ...game.Action) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.games[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	ids := make([]int64, 0, len(actions))
	for _, a := range actions {
		s.seq++
		a.Seq = s.seq
		if a.Card != nil {
			c := *a.Card
			a.Card = &c
		}
		r.log = append(r.log, a)
		ids = append(ids, a.Seq)
	}
	return ids, nil
}

func (s *Store) Log(ctx context.Context, gameID string) (game.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.games[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	out := make(game.Log, len(r.log))
	copy(out, r.log)
	return out, nil
}

func copyGame(g game.Game) game.Game {
	players := make([]game.Player, len(g.Players))
	copy(players, g.Players)
	g.Players = players
	return g
}
