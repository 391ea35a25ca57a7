// Package sqlite keeps games in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/undeconstructed/lastcard/game"
	"github.com/undeconstructed/lastcard/store/sqlite/migrations"
)

// Store is a game.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and brings the schema up to
// date.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; appends are short
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateGame(ctx context.Context, g game.Game) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, pending, winner, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Pending, g.Winner, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (s *Store) Game(ctx context.Context, id string) (game.Game, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return game.Game{}, err
	}
	defer tx.Rollback()

	g := game.Game{ID: id, Players: []game.Player{}}
	err = tx.QueryRowContext(ctx, `SELECT pending, winner FROM games WHERE id = ?`, id).Scan(&g.Pending, &g.Winner)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Game{}, game.ErrGameNotFound
	}
	if err != nil {
		return game.Game{}, fmt.Errorf("select game: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, nickname, role, seat, ready, has_turn, last_card
		FROM players WHERE game_id = ? ORDER BY seat`, id)
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (game_id, id, nickname, role, seat, ready, has_turn, last_card)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID, p.ID, p.Nickname, string(p.Role), p.Seat, p.Ready, p.HasTurn, p.LastCard)
	if err != nil {
		if isConstraint(err) {
			if _, gerr := s.Game(ctx, gameID); errors.Is(gerr, game.ErrGameNotFound) {
				return gerr
			}
			return fmt.Errorf("player %s already in game %s: %w", p.Nickname, gameID, err)
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *Store) SaveGame(ctx context.Context, g game.Game) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE games SET pending = ?, winner = ? WHERE id = ?`, g.Pending, g.Winner, g.ID)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.ErrGameNotFound
	}
	for _, p := range g.Players {
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET ready = ?, has_turn = ?, last_card = ? WHERE game_id = ? AND id = ?`,
			p.Ready, p.HasTurn, p.LastCard, g.ID, p.ID); err != nil {
			return fmt.Errorf("update player: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) Append(ctx context.Context, gameID string, actions ...game.Action) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, gameID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrGameNotFound
		}
		return nil, err
	}

	ids := make([]int64, 0, len(actions))
	for _, a := range actions {
		var rank, suit sql.NullString
		if a.Card != nil {
			rank = sql.NullString{String: string(a.Card.Rank), Valid: true}
			suit = sql.NullString{String: string(a.Card.Suit), Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO actions (game_id, player_id, effect, card_rank, card_suit) VALUES (?, ?, ?, ?, ?)`,
			gameID, a.PlayerID, a.Effect.String(), rank, suit)
		if err != nil {
			return nil, fmt.Errorf("insert action: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit actions: %w", err)
	}
	return ids, nil
}

func (s *Store) Log(ctx context.Context, gameID string) (game.Log, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, player_id, effect, card_rank, card_suit FROM actions WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("select actions: %w", err)
	}
	defer rows.Close()

	var log game.Log
	for rows.Next() {
		var a game.Action
		var effect string
		var rank, suit sql.NullString
		if err := rows.Scan(&a.Seq, &a.PlayerID, &effect, &rank, &suit); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if a.Effect, err = game.ParseEffect(effect); err != nil {
			return nil, err
		}
		if rank.Valid {
			a.Card = &game.Card{Rank: game.Rank(rank.String), Suit: game.Suit(suit.String)}
		}
		log = append(log, a)
	}
	return log, rows.Err()
}

func isConstraint(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}

var _ game.Store = (*Store)(nil)
