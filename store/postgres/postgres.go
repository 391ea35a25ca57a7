// Package postgres keeps games in PostgreSQL, for running more than one
// server against the same games.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/undeconstructed/lastcard/game"
	"github.com/undeconstructed/lastcard/store/postgres/migrations"
)

// Store is a game.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		body, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, g game.Game) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO games (id, pending, winner) VALUES ($1, $2, $3)`, g.ID, g.Pending, g.Winner)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (s *Store) Game(ctx context.Context, id string) (game.Game, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return game.Game{}, err
	}
	defer tx.Rollback(ctx)

	g := game.Game{ID: id, Players: []game.Player{}}
	err = tx.QueryRow(ctx, `SELECT pending, winner FROM games WHERE id = $1`, id).Scan(&g.Pending, &g.Winner)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Game{}, game.ErrGameNotFound
	}
	if err != nil {
		return game.Game{}, fmt.Errorf("select game: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, nickname, role, seat, ready, has_turn, last_card
		FROM players WHERE game_id = $1 ORDER BY seat`, id)
	if err != nil {
		return game.Game{}, fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p game.Player
		var role string
		if err := rows.Scan(&p.ID, &p.Nickname, &role, &p.Seat, &p.Ready, &p.HasTurn, &p.LastCard); err != nil {
			return game.Game{}, fmt.Errorf("scan player: %w", err)
		}
		p.Role = game.Role(role)
		g.Players = append(g.Players, p)
	}
	if err := rows.Err(); err != nil {
		return game.Game{}, err
	}
	return g, nil
}

func (s *Store) AddPlayer(ctx context.Context, gameID string, p game.Player) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO players (game_id, id, nickname, role, seat, ready, has_turn, last_card)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		gameID, p.ID, p.Nickname, string(p.Role), p.Seat, p.Ready, p.HasTurn, p.LastCard)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return game.ErrGameNotFound
		case "23505":
			return fmt.Errorf("player %s already in game %s: %w", p.Nickname, gameID, err)
		}
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *Store) SaveGame(ctx context.Context, g game.Game) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE games SET pending = $1, winner = $2 WHERE id = $3`, g.Pending, g.Winner, g.ID)
		if err != nil {
			return fmt.Errorf("update game: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return game.ErrGameNotFound
		}
		batch := &pgx.Batch{}
		for _, p := range g.Players {
			batch.Queue(`UPDATE players SET ready = $1, has_turn = $2, last_card = $3 WHERE game_id = $4 AND id = $5`,
				p.Ready, p.HasTurn, p.LastCard, g.ID, p.ID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("update players: %w", err)
		}
		return nil
	})
}

func (s *Store) Append(ctx context.Context, gameID string, actions ...game.Action) ([]int64, error) {
	ids := make([]int64, 0, len(actions))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// appends to one game commit in sequence order
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM games WHERE id = $1 FOR UPDATE`, gameID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return game.ErrGameNotFound
		}
		if err != nil {
			return err
		}

		for _, a := range actions {
			var rank, suit *string
			if a.Card != nil {
				rk, st := string(a.Card.Rank), string(a.Card.Suit)
				rank, suit = &rk, &st
			}
			var seq int64
			if err := tx.QueryRow(ctx,
				`INSERT INTO actions (game_id, player_id, effect, card_rank, card_suit)
				VALUES ($1, $2, $3, $4, $5) RETURNING seq`,
				gameID, a.PlayerID, a.Effect.String(), rank, suit).Scan(&seq); err != nil {
				return fmt.Errorf("insert action: %w", err)
			}
			ids = append(ids, seq)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) Log(ctx context.Context, gameID string) (game.Log, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, player_id, effect, card_rank, card_suit FROM actions WHERE game_id = $1 ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("select actions: %w", err)
	}
	defer rows.Close()

	var log game.Log
	for rows.Next() {
		var a game.Action
		var effect string
		var rank, suit *string
		if err := rows.Scan(&a.Seq, &a.PlayerID, &effect, &rank, &suit); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if a.Effect, err = game.ParseEffect(effect); err != nil {
			return nil, err
		}
		if rank != nil && suit != nil {
			a.Card = &game.Card{Rank: game.Rank(*rank), Suit: game.Suit(*suit)}
		}
		log = append(log, a)
	}
	return log, rows.Err()
}

var _ game.Store = (*Store)(nil)
