package game

import "context"

// checkStart says whether a round can begin.
func checkStart(g *Game) error {
	if g.Started() {
		return ErrAlreadyStarted
	}
	seated := g.Seated()
	if len(seated) < 2 {
		return ErrNoPlayers
	}
	for _, p := range seated {
		if !p.Ready {
			return ErrNotReady
		}
	}
	return nil
}

// deal is the actions that start a round: a start marker, HandSize cards
// each going round the table, then the dealer turns the first card onto the
// pile.
func deal(seated []*Player, stack CardStack) []Action {
	dealer := seated[0]
	actions := []Action{marker(dealer.ID, EffectStartGame)}

	var c Card
	for i := 0; i < HandSize*len(seated); i++ {
		c, stack, _ = stack.Take()
		actions = append(actions, pickup(seated[i%len(seated)].ID, c))
	}

	c, _, _ = stack.Take()
	actions = append(actions, pickup(dealer.ID, c), play(dealer.ID, c))
	return actions
}

func (t *Table) startRound(ctx context.Context, r *round) (Result, error) {
	if err := checkStart(&r.game); err != nil {
		return failed(err), nil
	}

	seated := r.game.Seated()
	actions := deal(seated, NewCardStack(t.shuffle))
	if _, err := t.store.Append(ctx, r.game.ID, actions...); err != nil {
		return Result{}, Persistence("append deal", err)
	}

	r.game.Pending = false
	for _, p := range seated {
		p.HasTurn = false
		p.LastCard = false
	}
	dealer := seated[0]
	dealer.HasTurn = true

	res := succeeded(OutcomeStarted)
	res.Next = dealer.ID
	t.saveAfter(ctx, r, &res)

	t.log.Info().Str("game", r.game.ID).Int("players", len(seated)).Str("dealer", dealer.ID).Msg("round started")
	return res, nil
}
