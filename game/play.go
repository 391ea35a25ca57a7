package game

import (
	"context"
	"fmt"
)

// checkTurn covers what has to be true before a player can do anything.
func checkTurn(r *round, p *Player) error {
	switch {
	case !r.game.Started():
		return ErrNotStarted
	case r.game.Over():
		return ErrGameOver
	case !p.HasTurn:
		return ErrNotYourTurn
	}
	return nil
}

// CheckMove tests a play of cards from hand onto top. Only the first card
// has to go on top; the rest must match its rank.
func CheckMove(hand []Card, top *Card, cards []Card) error {
	if len(cards) == 0 {
		return ErrEmptyMove
	}
	for _, c := range cards {
		if !c.Valid() {
			return errBadCard(string(c.Rank), string(c.Suit))
		}
	}
	if !holds(hand, cards) {
		return ErrNotHeld
	}
	first := cards[0]
	if top != nil && !first.PlayableOn(*top) {
		return errIllegalPlay(first, *top)
	}
	for _, c := range cards[1:] {
		if c.Rank != first.Rank {
			return ErrMixedRanks
		}
	}
	return nil
}

func normalize(cards []Card) ([]Card, error) {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		n, err := ParseCard(string(c.Rank), string(c.Suit))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (t *Table) playMove(ctx context.Context, r *round, p *Player, cards []Card) (Result, error) {
	if err := checkTurn(r, p); err != nil {
		return failed(err), nil
	}

	cards, err := normalize(cards)
	if err != nil {
		return failed(err), nil
	}
	hand := r.state.Hands[p.ID]
	var top *Card
	if c, ok := r.state.Top(); ok {
		top = &c
	}
	if err := CheckMove(hand, top, cards); err != nil {
		return failed(err), nil
	}

	actions := make([]Action, 0, len(cards)+1)
	for _, c := range cards {
		actions = append(actions, play(p.ID, c))
		hand, _ = without(hand, c)
	}
	if t.reshuffled(r.log, actions...) {
		actions = append(actions, marker(p.ID, EffectShuffle))
	}
	if _, err := t.store.Append(ctx, r.game.ID, actions...); err != nil {
		return Result{}, Persistence("append play", err)
	}

	last := cards[len(cards)-1]
	res := Result{
		Success: true,
		Errors:  []string{},
		Skip:    last.IsSkip(),
		Pickup:  last.PickupCount(),
		Wild:    last.IsWild(),
	}

	p.LastCard = false
	switch len(hand) {
	case 0:
		r.game.Winner = p.ID
		p.HasTurn = false
		res.Outcome = OutcomeWon
	case 1:
		p.LastCard = true
		res.Outcome = OutcomeLastCard
		res.Next = p.ID
	default:
		next := r.game.nextAfter(p.ID)
		if next == nil {
			return res, &InvariantViolation{GameID: r.game.ID, Msg: fmt.Sprintf("%s has no seat", p.ID)}
		}
		p.HasTurn = false
		next.HasTurn = true
		res.Outcome = OutcomeNextTurn
		res.Next = next.ID
	}

	t.saveAfter(ctx, r, &res)
	return res, nil
}

func (t *Table) draw(ctx context.Context, r *round, p *Player) (Result, error) {
	if err := checkTurn(r, p); err != nil {
		return failed(err), nil
	}
	deck := r.state.Deck
	if len(deck) == 0 {
		return failed(ErrDeckEmpty), nil
	}

	c := deck[t.shuffle.Intn(len(deck))]
	a := pickup(p.ID, c)

	actions := []Action{a}
	if t.reshuffled(r.log, a) {
		actions = append(actions, marker(p.ID, EffectShuffle))
	}
	if _, err := t.store.Append(ctx, r.game.ID, actions...); err != nil {
		return Result{}, Persistence("append pickup", err)
	}

	res := succeeded(OutcomeDrew)
	res.Next = p.ID
	res.Drawn = &c
	if p.LastCard {
		p.LastCard = false
		t.saveAfter(ctx, r, &res)
	}
	return res, nil
}

// reshuffled says whether appending actions to log turns the pile over.
func (t *Table) reshuffled(log Log, actions ...Action) bool {
	after := append(Log{}, log...)
	var seq int64
	if last, ok := log.Last(); ok {
		seq = last.Seq
	}
	for _, a := range actions {
		seq++
		a.Seq = seq
		after = append(after, a)
	}
	return t.acct.Reshuffles(after) > t.acct.Reshuffles(log)
}
