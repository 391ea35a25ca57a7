package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// HandSize is how many cards each player is dealt.
	HandSize = 5
	// MaxPlayers leaves at least one card for the pile after dealing.
	MaxPlayers = (DeckSize - 1) / HandSize
)

// ErrTableFull means no more seats.
var ErrTableFull = &GameError{KindState, "TABLEFULL", "no seats left"}

// Outcome is what a successful action led to.
type Outcome string

const (
	OutcomeReady    Outcome = "ready"
	OutcomeStarted  Outcome = "started"
	OutcomeWon      Outcome = "won"
	OutcomeLastCard Outcome = "last_card"
	OutcomeNextTurn Outcome = "next_turn"
	OutcomeDrew     Outcome = "drew"
)

// Result is the answer to a submitted action. Errors are for the player;
// anything worse comes back as a Go error instead.
type Result struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
	Codes   []string `json:"codes,omitempty"`
	Outcome Outcome  `json:"outcome,omitempty"`
	// Next is whoever has the turn now.
	Next string `json:"next_player,omitempty"`
	// signals from the last card played, for whoever runs the turn policy
	Skip   bool `json:"skip,omitempty"`
	Pickup int  `json:"pickup,omitempty"`
	Wild   bool `json:"wild,omitempty"`
	// Drawn is the card picked up, only told to the drawer
	Drawn *Card `json:"drawn,omitempty"`
	// Warnings are failures after the log was written; the action stands.
	Warnings []string `json:"warnings,omitempty"`
}

func succeeded(o Outcome) Result {
	return Result{Success: true, Errors: []string{}, Outcome: o}
}

func failed(err error) Result {
	return Result{Errors: []string{err.Error()}, Codes: []string{ErrorCode(err)}}
}

// Payload is a submitted action.
type Payload struct {
	Effect string `json:"effect"`
	Cards  []Card `json:"cards,omitempty"`
}

// Table runs games: it is the only writer of action logs.
type Table struct {
	store   Store
	locks   Locker
	shuffle Shuffler
	acct    ReshuffleAccounting
	log     zerolog.Logger
	newID   func() string
}

type Option func(*Table)

func WithLocker(l Locker) Option {
	return func(t *Table) { t.locks = l }
}

func WithShuffler(s Shuffler) Option {
	return func(t *Table) { t.shuffle = s }
}

func WithAccounting(a ReshuffleAccounting) Option {
	return func(t *Table) { t.acct = a }
}

func WithLogger(l zerolog.Logger) Option {
	return func(t *Table) { t.log = l }
}

func NewTable(store Store, opts ...Option) *Table {
	t := &Table{
		store:   store,
		locks:   NewKeyedMutex(),
		shuffle: NewShuffler(0),
		acct:    FixedDivisor{DeckSize: DeckSize},
		log:     log.With().Str("component", "table").Logger(),
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// round is one game loaded with its log and derived cards.
type round struct {
	game  Game
	log   Log
	state RoundState
}

func (t *Table) load(ctx context.Context, gameID string) (*round, error) {
	g, err := t.store.Game(ctx, gameID)
	if err != nil {
		return nil, Persistence("load game", err)
	}
	lg, err := t.store.Log(ctx, gameID)
	if err != nil {
		return nil, Persistence("read log", err)
	}

	// the log wins over the record, which may have missed an update
	if g.Pending && lg.Count(EffectStartGame) > 0 {
		g.Pending = false
	}

	rs, err := Reconstruct(gameID, lg, g.Seated(), g.Started(), t.acct)
	if err != nil {
		return nil, err
	}
	if g.Started() {
		if err := rs.Check(gameID); err != nil {
			return nil, err
		}
		if g.Winner == "" {
			for _, p := range g.Seated() {
				if len(rs.Hands[p.ID]) == 0 {
					g.Winner = p.ID
				}
			}
		}
	}

	return &round{game: g, log: lg, state: rs}, nil
}

// mutate runs f inside the game's exclusive section.
func (t *Table) mutate(ctx context.Context, gameID string, f func(*round) (Result, error)) (Result, error) {
	unlock, err := t.locks.Lock(ctx, gameID)
	if err != nil {
		return Result{}, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()

	r, err := t.load(ctx, gameID)
	if err != nil {
		return Result{}, err
	}
	return f(r)
}

// saveAfter writes game flags once the log already has the action. The
// action stands whatever happens here.
func (t *Table) saveAfter(ctx context.Context, r *round, res *Result) {
	if err := t.store.SaveGame(ctx, r.game); err != nil {
		t.log.Error().Err(err).Str("game", r.game.ID).Msg("cannot save game after append")
		res.Warnings = append(res.Warnings, fmt.Sprintf("game record not updated: %v", err))
	}
}

// CreateGame makes an empty pending game.
func (t *Table) CreateGame(ctx context.Context) (Game, error) {
	g := Game{ID: t.newID(), Pending: true, Players: []Player{}}
	if err := t.store.CreateGame(ctx, g); err != nil {
		return Game{}, Persistence("create game", err)
	}
	t.log.Info().Str("game", g.ID).Msg("created")
	return g, nil
}

// Join seats someone, or finds them if the nickname is already here.
// Players can only sit down before the start; observers any time.
func (t *Table) Join(ctx context.Context, gameID, nickname string, role Role) (Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return Player{}, ErrBadRequest
	}
	if role == "" {
		role = RolePlayer
	}
	if role != RolePlayer && role != RoleObserver {
		return Player{}, ErrBadRequest
	}

	unlock, err := t.locks.Lock(ctx, gameID)
	if err != nil {
		return Player{}, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()

	r, err := t.load(ctx, gameID)
	if err != nil {
		return Player{}, err
	}

	for _, p := range r.game.Players {
		if p.Nickname == nickname {
			return p, nil
		}
	}

	if role == RolePlayer {
		if r.game.Started() {
			return Player{}, ErrAlreadyStarted
		}
		if len(r.game.Seated()) >= MaxPlayers {
			return Player{}, ErrTableFull
		}
	}

	p := Player{
		ID:       t.newID(),
		Nickname: nickname,
		Role:     role,
		Seat:     len(r.game.Players),
	}
	if err := t.store.AddPlayer(ctx, gameID, p); err != nil {
		return Player{}, Persistence("add player", err)
	}

	t.log.Info().Str("game", gameID).Str("player", p.ID).Str("name", nickname).Str("role", string(role)).Msg("joined")
	return p, nil
}

// Ready marks a player ready, and starts the round once everyone is.
func (t *Table) Ready(ctx context.Context, gameID, playerID string) (Result, error) {
	return t.mutate(ctx, gameID, func(r *round) (Result, error) {
		p, ok := r.game.Player(playerID)
		if !ok || p.Role != RolePlayer {
			return failed(ErrUnknownPlayer), nil
		}
		if r.game.Started() {
			return failed(ErrAlreadyStarted), nil
		}

		if !p.Ready {
			p.Ready = true
			if err := t.store.SaveGame(ctx, r.game); err != nil {
				return Result{}, Persistence("save ready", err)
			}
		}

		if checkStart(&r.game) != nil {
			return succeeded(OutcomeReady), nil
		}
		return t.startRound(ctx, r)
	})
}

// SubmitAction is the one way in for moves.
func (t *Table) SubmitAction(ctx context.Context, gameID, playerID string, payload Payload) (Result, error) {
	return t.mutate(ctx, gameID, func(r *round) (Result, error) {
		p, ok := r.game.Player(playerID)
		if !ok || p.Role != RolePlayer {
			return failed(ErrUnknownPlayer), nil
		}

		var res Result
		var err error
		switch strings.ToLower(payload.Effect) {
		case EffectStartGame.String():
			res, err = t.startRound(ctx, r)
		case EffectPlay.String():
			res, err = t.playMove(ctx, r, p, payload.Cards)
		case EffectPickup.String():
			res, err = t.draw(ctx, r, p)
		default:
			res = failed(fmt.Errorf("%w: unknown effect %q", ErrBadRequest, payload.Effect))
		}
		if err != nil {
			return res, err
		}

		ev := t.log.Info()
		if !res.Success {
			ev = t.log.Debug()
		}
		ev.Str("game", gameID).Str("player", playerID).Str("effect", payload.Effect).
			Bool("success", res.Success).Strs("errors", res.Errors).Str("outcome", string(res.Outcome)).
			Msg("action")
		return res, nil
	})
}

// RoundState reads the current state. No lock; the log read is a snapshot.
func (t *Table) RoundState(ctx context.Context, gameID string) (StateView, error) {
	r, err := t.load(ctx, gameID)
	if err != nil {
		return StateView{}, err
	}
	return viewOf(r), nil
}

// Actions reads the log after seq, for clients animating what changed.
func (t *Table) Actions(ctx context.Context, gameID string, after int64) ([]ActionView, error) {
	if _, err := t.store.Game(ctx, gameID); err != nil {
		return nil, Persistence("load game", err)
	}
	lg, err := t.store.Log(ctx, gameID)
	if err != nil {
		return nil, Persistence("read log", err)
	}
	return actionViews(lg.After(after)), nil
}

// IsNotFound says whether err is an unknown game.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGameNotFound)
}
