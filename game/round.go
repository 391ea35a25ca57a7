package game

import (
	"fmt"
)

// RoundState is what the cards look like, worked out from the log. It is
// never stored.
type RoundState struct {
	// Deck is a set, kept in universe order.
	Deck []Card
	// Hands in pickup order, per player id.
	Hands map[string][]Card
	// Pile oldest first; the last card is the top.
	Pile []Card
}

// Top is the card to play on.
func (rs *RoundState) Top() (Card, bool) {
	if len(rs.Pile) == 0 {
		return Card{}, false
	}
	return rs.Pile[len(rs.Pile)-1], true
}

// ReshuffleAccounting decides what is left on the pile once the deck has been
// run through and the pile shuffled back in.
type ReshuffleAccounting interface {
	// Pile gives the current pile, oldest first.
	Pile(log Log) []Card
	// Reshuffles is how many times the pile has gone back into the deck.
	Reshuffles(log Log) int
}

// FixedDivisor counts a reshuffle every DeckSize pickups. Only right for the
// first reshuffle: after that the deck is smaller than DeckSize, so later
// reshuffles are detected late.
type FixedDivisor struct {
	DeckSize int
}

func (f FixedDivisor) size() int {
	if f.DeckSize <= 0 {
		return DeckSize
	}
	return f.DeckSize
}

func (f FixedDivisor) Reshuffles(log Log) int {
	return log.Count(EffectPickup) / f.size()
}

func (f FixedDivisor) Pile(log Log) []Card {
	n := f.Reshuffles(log)
	if n == 0 {
		return log.OfEffect(EffectPlay).Cards()
	}

	// the pickup that finished off the deck
	trigger := log.OfEffect(EffectPickup)[f.size()*n-1]

	var pile []Card
	if before := log.Between(EffectPlay, 0, trigger.Seq); len(before) > 0 {
		last, _ := before.Last()
		pile = append(pile, *last.Card)
	}
	return append(pile, log.Between(EffectPlay, trigger.Seq, 0).Cards()...)
}

// DeckHeight follows the height of the deck through the log. The pickup that
// takes it to zero turns the pile over, leaving the top card, and the deck
// grows by however many cards went back in. If the pile was only the top card
// at that point, the first play onto it turns it over instead.
type DeckHeight struct {
	DeckSize int
}

func (d DeckHeight) walk(log Log) (pile []Card, reshuffles int) {
	height := d.DeckSize
	if height <= 0 {
		height = DeckSize
	}
	turnOver := func() {
		if height == 0 && len(pile) > 1 {
			height = len(pile) - 1
			pile = pile[len(pile)-1:]
			reshuffles++
		}
	}
	for _, a := range log {
		switch a.Effect {
		case EffectPickup:
			height--
			turnOver()
		case EffectPlay:
			pile = append(pile, *a.Card)
			turnOver()
		}
	}
	return pile, reshuffles
}

func (d DeckHeight) Pile(log Log) []Card {
	pile, _ := d.walk(log)
	return append([]Card(nil), pile...)
}

func (d DeckHeight) Reshuffles(log Log) int {
	_, n := d.walk(log)
	return n
}

// Reconstruct works out the round from a log snapshot. players are the
// seated players; everyone gets a hand entry once the game has started.
func Reconstruct(gameID string, log Log, players []*Player, started bool, acct ReshuffleAccounting) (RoundState, error) {
	rs := RoundState{Hands: map[string][]Card{}}
	if !started {
		rs.Deck = Universe()
		rs.Pile = []Card{}
		return rs, nil
	}
	if acct == nil {
		acct = FixedDivisor{}
	}

	for _, p := range players {
		rs.Hands[p.ID] = []Card{}
	}

	for _, a := range log {
		switch a.Effect {
		case EffectPickup:
			rs.Hands[a.PlayerID] = append(rs.Hands[a.PlayerID], *a.Card)
		case EffectPlay:
			hand, ok := without(rs.Hands[a.PlayerID], *a.Card)
			if !ok {
				return RoundState{}, &InvariantViolation{
					GameID: gameID,
					Msg:    fmt.Sprintf("action %d: %s played %s without holding it", a.Seq, a.PlayerID, a.Card),
				}
			}
			rs.Hands[a.PlayerID] = hand
		}
	}

	rs.Pile = acct.Pile(log)
	if rs.Pile == nil {
		rs.Pile = []Card{}
	}

	used := map[Card]bool{}
	for _, c := range rs.Pile {
		used[c] = true
	}
	for _, h := range rs.Hands {
		for _, c := range h {
			used[c] = true
		}
	}
	rs.Deck = []Card{}
	for _, c := range Universe() {
		if !used[c] {
			rs.Deck = append(rs.Deck, c)
		}
	}

	return rs, nil
}

// Check tests that deck, pile and hands share out the universe with nothing
// lost and nothing twice.
func (rs *RoundState) Check(gameID string) error {
	seen := map[Card]string{}
	note := func(c Card, where string) error {
		if !c.Valid() {
			return &InvariantViolation{GameID: gameID, Msg: fmt.Sprintf("%v in %s is not a card", c, where)}
		}
		if prev, ok := seen[c]; ok {
			return &InvariantViolation{GameID: gameID, Msg: fmt.Sprintf("%s in both %s and %s", c, prev, where)}
		}
		seen[c] = where
		return nil
	}
	for _, c := range rs.Deck {
		if err := note(c, "deck"); err != nil {
			return err
		}
	}
	for _, c := range rs.Pile {
		if err := note(c, "pile"); err != nil {
			return err
		}
	}
	for id, h := range rs.Hands {
		for _, c := range h {
			if err := note(c, "hand of "+id); err != nil {
				return err
			}
		}
	}
	if len(seen) != DeckSize {
		return &InvariantViolation{GameID: gameID, Msg: fmt.Sprintf("%d cards accounted for", len(seen))}
	}
	return nil
}

// without removes the first c from cards.
func without(cards []Card, c Card) ([]Card, bool) {
	for i, x := range cards {
		if x == c {
			out := make([]Card, 0, len(cards)-1)
			out = append(out, cards[0:i]...)
			out = append(out, cards[i+1:]...)
			return out, true
		}
	}
	return cards, false
}

// holds is a multiset containment test: hand has every card in want.
func holds(hand []Card, want []Card) bool {
	counts := map[Card]int{}
	for _, c := range hand {
		counts[c]++
	}
	for _, c := range want {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}
