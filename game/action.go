package game

import "fmt"

// Effect is what an action did. The set is closed.
type Effect int

const (
	EffectPickup Effect = iota + 1
	EffectPlay
	EffectShuffle
	EffectStartGame
)

var effectNames = map[Effect]string{
	EffectPickup:    "pickup",
	EffectPlay:      "play",
	EffectShuffle:   "shuffle",
	EffectStartGame: "start_game",
}

func (e Effect) String() string {
	if s, ok := effectNames[e]; ok {
		return s
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// ParseEffect is the inverse of String.
func ParseEffect(s string) (Effect, error) {
	for e, name := range effectNames {
		if name == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown effect: %q", s)
}

func (e Effect) MarshalText() ([]byte, error) {
	if _, ok := effectNames[e]; !ok {
		return nil, fmt.Errorf("unknown effect: %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *Effect) UnmarshalText(text []byte) error {
	x, err := ParseEffect(string(text))
	if err != nil {
		return err
	}
	*e = x
	return nil
}

// HasCard says whether actions of this effect carry a card.
func (e Effect) HasCard() bool {
	return e == EffectPickup || e == EffectPlay
}

// Action is one entry in a game's log. Seq is set by the store.
type Action struct {
	Seq      int64
	PlayerID string
	Effect   Effect
	Card     *Card
}

func pickup(player string, c Card) Action {
	return Action{PlayerID: player, Effect: EffectPickup, Card: &c}
}

func play(player string, c Card) Action {
	return Action{PlayerID: player, Effect: EffectPlay, Card: &c}
}

func marker(player string, e Effect) Action {
	return Action{PlayerID: player, Effect: e}
}

// Log is a snapshot of a game's actions, ascending by Seq.
type Log []Action

// OfEffect keeps the actions with effect e, in order.
func (l Log) OfEffect(e Effect) Log {
	var out Log
	for _, a := range l {
		if a.Effect == e {
			out = append(out, a)
		}
	}
	return out
}

// Count is the number of actions with effect e.
func (l Log) Count(e Effect) int {
	n := 0
	for _, a := range l {
		if a.Effect == e {
			n++
		}
	}
	return n
}

// Between keeps the actions of effect e with after < Seq < before. A before
// of zero or less means no upper bound.
func (l Log) Between(e Effect, after, before int64) Log {
	var out Log
	for _, a := range l {
		if a.Effect != e || a.Seq <= after {
			continue
		}
		if before > 0 && a.Seq >= before {
			continue
		}
		out = append(out, a)
	}
	return out
}

// After keeps every action with Seq > seq.
func (l Log) After(seq int64) Log {
	var out Log
	for _, a := range l {
		if a.Seq > seq {
			out = append(out, a)
		}
	}
	return out
}

// Last is the newest action, if any.
func (l Log) Last() (Action, bool) {
	if len(l) == 0 {
		return Action{}, false
	}
	return l[len(l)-1], true
}

// Cards gets the cards of the actions, skipping markers.
func (l Log) Cards() []Card {
	out := make([]Card, 0, len(l))
	for _, a := range l {
		if a.Card != nil {
			out = append(out, *a.Card)
		}
	}
	return out
}
