package game

import (
	"errors"
	"fmt"
)

// Kind sorts errors into the ones a player caused and the ones we did.
type Kind int

const (
	// KindValidation is a bad move: empty, not held, illegal, mixed ranks.
	KindValidation Kind = iota + 1
	// KindState is a move at the wrong time.
	KindState
	// KindInvariant means the log says something impossible.
	KindInvariant
	// KindPersistence means the store failed.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindInvariant:
		return "invariant"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

type GameError struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *GameError) ErrorCode() string { return e.Code }
func (e *GameError) Error() string     { return e.Msg }

// Is matches on code, so formatted errors still match their sentinel.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrEmptyMove is a play with no cards
	ErrEmptyMove = &GameError{KindValidation, "EMPTYMOVE", "need to specify cards to play when calling play cards"}
	// ErrNotHeld is a play of cards not in hand
	ErrNotHeld = &GameError{KindValidation, "NOTHELD", "don't cheat, you don't have those cards"}
	// ErrIllegalPlay is a first card that doesn't go on the pile
	ErrIllegalPlay = &GameError{KindValidation, "ILLEGALPLAY", "cannot play that card on the pile"}
	// ErrMixedRanks is several cards that aren't all the same rank
	ErrMixedRanks = &GameError{KindValidation, "MIXEDRANKS", "when playing cards together, they must all be of same rank"}
	// ErrBadCard is something that isn't one of the 52
	ErrBadCard = &GameError{KindValidation, "BADCARD", "no such card"}
	// ErrBadRequest is for bad requests
	ErrBadRequest = &GameError{KindValidation, "BADREQUEST", "bad request"}

	// ErrGameNotFound means no such game
	ErrGameNotFound = &GameError{KindState, "NOGAME", "game not found"}
	// ErrNoPlayers means can't start the game with fewer than two players
	ErrNoPlayers = &GameError{KindState, "NOPLAYERS", "need at least two players"}
	// ErrNotReady means someone seated is not ready
	ErrNotReady = &GameError{KindState, "NOTREADY", "not all players are ready"}
	// ErrAlreadyStarted is only when starting too much, or seating late
	ErrAlreadyStarted = &GameError{KindState, "ALREADYSTARTED", "game has already started"}
	// ErrNotStarted means the game has not started
	ErrNotStarted = &GameError{KindState, "NOTSTARTED", "game has not started"}
	// ErrGameOver means someone already won
	ErrGameOver = &GameError{KindState, "GAMEOVER", "game is over"}
	// ErrNotYourTurn means you can't do something while it's not your turn
	ErrNotYourTurn = &GameError{KindState, "NOTYOURTURN", "it's not your turn"}
	// ErrUnknownPlayer means the player isn't seated in this game
	ErrUnknownPlayer = &GameError{KindState, "UNKNOWNPLAYER", "player not in game"}
	// ErrDeckEmpty means there is nothing to draw
	ErrDeckEmpty = &GameError{KindState, "DECKEMPTY", "the deck is empty"}
)

func errIllegalPlay(c, top Card) error {
	return &GameError{KindValidation, ErrIllegalPlay.Code, fmt.Sprintf("cannot play %s on %s", c, top)}
}

func errBadCard(rank, suit string) error {
	return &GameError{KindValidation, ErrBadCard.Code, fmt.Sprintf("no such card: %s of %s", rank, suit)}
}

// InvariantViolation is a log that contradicts itself, e.g. a play of a card
// the player never picked up. Never a player's fault.
type InvariantViolation struct {
	GameID string
	Msg    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in game %s: %s", e.GameID, e.Msg)
}

// PersistenceError is a store failure. The request is over.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err from a store operation, leaving nil alone.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	var ge *GameError
	if errors.As(err, &ge) {
		// not found and friends pass through
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func kindOf(err error) Kind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	var iv *InvariantViolation
	if errors.As(err, &iv) {
		return KindInvariant
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return KindPersistence
	}
	return 0
}

func IsValidation(err error) bool  { return kindOf(err) == KindValidation }
func IsState(err error) bool       { return kindOf(err) == KindState }
func IsInvariant(err error) bool   { return kindOf(err) == KindInvariant }
func IsPersistence(err error) bool { return kindOf(err) == KindPersistence }

// ErrorCode gets a code for any error, for the wire.
func ErrorCode(err error) string {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	switch kindOf(err) {
	case KindInvariant:
		return "INVARIANT"
	case KindPersistence:
		return "PERSISTENCE"
	}
	return "INTERNAL"
}
