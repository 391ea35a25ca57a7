package game

// PlayerView is a player as clients see them.
type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Ready    bool   `json:"ready"`
	HasTurn  bool   `json:"has_turn"`
	LastCard bool   `json:"last_card"`
}

// StateView is the whole round. Hands are keyed by player id.
type StateView struct {
	Started bool              `json:"started"`
	Deck    []Card            `json:"deck"`
	Hands   map[string][]Card `json:"hands"`
	Pile    []Card            `json:"pile"`
	Players []PlayerView      `json:"players"`
	Winner  string            `json:"winner,omitempty"`
}

// Top is the top of the pile, if there is one.
func (v StateView) Top() (Card, bool) {
	if len(v.Pile) == 0 {
		return Card{}, false
	}
	return v.Pile[len(v.Pile)-1], true
}

// Turn is whoever has the turn.
func (v StateView) Turn() (PlayerView, bool) {
	for _, p := range v.Players {
		if p.HasTurn {
			return p, true
		}
	}
	return PlayerView{}, false
}

// ActionView is one log entry on the wire.
type ActionView struct {
	ID       int64  `json:"id"`
	Effect   Effect `json:"effect"`
	PlayerID string `json:"player_id"`
	CardRank Rank   `json:"card_rank,omitempty"`
	CardSuit Suit   `json:"card_suit,omitempty"`
}

func viewOf(r *round) StateView {
	v := StateView{
		Started: r.game.Started(),
		Deck:    r.state.Deck,
		Hands:   r.state.Hands,
		Pile:    r.state.Pile,
		Players: make([]PlayerView, 0, len(r.game.Players)),
		Winner:  r.game.Winner,
	}
	for _, p := range r.game.Players {
		v.Players = append(v.Players, PlayerView{
			ID:       p.ID,
			Name:     p.Nickname,
			Role:     p.Role,
			Ready:    p.Ready,
			HasTurn:  p.HasTurn && !r.game.Over(),
			LastCard: p.LastCard,
		})
	}
	return v
}

func actionViews(l Log) []ActionView {
	out := make([]ActionView, 0, len(l))
	for _, a := range l {
		v := ActionView{ID: a.Seq, Effect: a.Effect, PlayerID: a.PlayerID}
		if a.Card != nil {
			v.CardRank = a.Card.Rank
			v.CardSuit = a.Card.Suit
		}
		out = append(out, v)
	}
	return out
}
