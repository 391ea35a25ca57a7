package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(r Rank, s Suit) Card { return Card{Rank: r, Suit: s} }

// numbered gives the actions sequence ids the way a store would.
func numbered(actions ...Action) Log {
	for i := range actions {
		actions[i].Seq = int64(i + 1)
	}
	return Log(actions)
}

func players(ids ...string) []*Player {
	var out []*Player
	for i, id := range ids {
		out = append(out, &Player{ID: id, Nickname: id, Role: RolePlayer, Seat: i})
	}
	return out
}

func TestReconstruct_notStarted(t *testing.T) {
	rs, err := Reconstruct("g", nil, players("a", "b"), false, nil)
	require.NoError(t, err)
	assert.Len(t, rs.Deck, DeckSize)
	assert.Empty(t, rs.Pile)
	assert.Empty(t, rs.Hands)
}

func TestReconstruct_handsAndPile(t *testing.T) {
	log := numbered(
		marker("a", EffectStartGame),
		pickup("a", c(Two, Hearts)),
		pickup("b", c(Three, Hearts)),
		pickup("a", c(Four, Hearts)),
		pickup("b", c(Five, Hearts)),
		pickup("a", c(Six, Hearts)),
		play("a", c(Six, Hearts)),
		play("a", c(Two, Hearts)),
	)
	rs, err := Reconstruct("g", log, players("a", "b"), true, FixedDivisor{})
	require.NoError(t, err)
	require.NoError(t, rs.Check("g"))

	assert.Equal(t, []Card{c(Four, Hearts)}, rs.Hands["a"])
	assert.Equal(t, []Card{c(Three, Hearts), c(Five, Hearts)}, rs.Hands["b"])
	assert.Equal(t, []Card{c(Six, Hearts), c(Two, Hearts)}, rs.Pile)
	top, ok := rs.Top()
	assert.True(t, ok)
	assert.Equal(t, c(Two, Hearts), top)
	assert.Len(t, rs.Deck, DeckSize-5)
	assert.NotContains(t, rs.Deck, c(Two, Hearts))
}

func TestReconstruct_playNotHeld(t *testing.T) {
	log := numbered(
		pickup("a", c(Two, Hearts)),
		play("b", c(Two, Hearts)),
	)
	_, err := Reconstruct("g", log, players("a", "b"), true, nil)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestReconstruct_pickupThenPlay(t *testing.T) {
	start := numbered(
		pickup("a", c(Two, Hearts)),
		play("a", c(Two, Hearts)),
	)
	before, err := Reconstruct("g", start, players("a"), true, nil)
	require.NoError(t, err)

	x := c(Nine, Clubs)
	withPickup := numbered(append(append(Log{}, start...), pickup("a", x))...)
	mid, err := Reconstruct("g", withPickup, players("a"), true, nil)
	require.NoError(t, err)
	assert.Len(t, mid.Deck, len(before.Deck)-1)
	assert.Len(t, mid.Hands["a"], len(before.Hands["a"])+1)
	assert.Len(t, mid.Pile, len(before.Pile))

	withPlay := numbered(append(append(Log{}, withPickup...), play("a", x))...)
	after, err := Reconstruct("g", withPlay, players("a"), true, nil)
	require.NoError(t, err)
	assert.Len(t, after.Deck, len(mid.Deck))
	assert.Len(t, after.Hands["a"], len(before.Hands["a"]))
	assert.Len(t, after.Pile, len(before.Pile)+1)
	assert.NotContains(t, after.Deck, x)
	require.NoError(t, after.Check("g"))
}

// exhaust is a dealt game where a plays once onto the pile and then b picks
// up the whole rest of the deck.
func exhaust(t *testing.T) (Log, Card, Card) {
	stack := NewCardStack(NewShuffler(3))
	log := Log(deal(players("a", "b"), stack))
	first := *log[len(log)-1].Card

	rs, err := Reconstruct("g", numbered(log...), players("a", "b"), true, nil)
	require.NoError(t, err)
	played := rs.Hands["a"][0]
	log = append(log, play("a", played))
	for _, x := range stack[HandSize*2+1:] {
		log = append(log, pickup("b", x))
	}
	return numbered(log...), first, played
}

func TestReconstruct_reshuffle(t *testing.T) {
	for name, acct := range map[string]ReshuffleAccounting{
		"fixed":  FixedDivisor{DeckSize: DeckSize},
		"height": DeckHeight{DeckSize: DeckSize},
	} {
		t.Run(name, func(t *testing.T) {
			log, first, played := exhaust(t)
			require.Equal(t, DeckSize, log.Count(EffectPickup))
			assert.Equal(t, 1, acct.Reshuffles(log))

			rs, err := Reconstruct("g", log, players("a", "b"), true, acct)
			require.NoError(t, err)
			require.NoError(t, rs.Check("g"))
			assert.Equal(t, []Card{played}, rs.Pile)
			assert.Equal(t, []Card{first}, rs.Deck)

			next := rs.Hands["b"][0]
			log = numbered(append(log, play("b", next))...)
			rs, err = Reconstruct("g", log, players("a", "b"), true, acct)
			require.NoError(t, err)
			require.NoError(t, rs.Check("g"))
			assert.Equal(t, []Card{played, next}, rs.Pile)
		})
	}
}

func TestReconstruct_secondReshuffle(t *testing.T) {
	log, first, played := exhaust(t)
	rs, err := Reconstruct("g", log, players("a", "b"), true, nil)
	require.NoError(t, err)
	next := rs.Hands["b"][0]
	log = numbered(append(log, play("b", next), pickup("a", first))...)

	// the deck ran out again with two cards on the pile
	height, err := Reconstruct("g", log, players("a", "b"), true, DeckHeight{})
	require.NoError(t, err)
	require.NoError(t, height.Check("g"))
	assert.Equal(t, 2, DeckHeight{}.Reshuffles(log))
	assert.Equal(t, []Card{next}, height.Pile)
	assert.Equal(t, []Card{played}, height.Deck)

	// fixed divisor only counts every 52 pickups, so it misses it
	fixed, err := Reconstruct("g", log, players("a", "b"), true, FixedDivisor{})
	require.NoError(t, err)
	require.NoError(t, fixed.Check("g"))
	assert.Equal(t, 1, FixedDivisor{}.Reshuffles(log))
	assert.Equal(t, []Card{played, next}, fixed.Pile)
	assert.Empty(t, fixed.Deck)
}

func TestReconstruct_pileTurnsOverOnPlay(t *testing.T) {
	stack := NewCardStack(NewShuffler(5))
	log := Log(deal(players("a", "b"), stack))
	first := *log[len(log)-1].Card
	for _, x := range stack[HandSize*2+1:] {
		log = append(log, pickup("b", x))
	}
	log = numbered(log...)

	rs, err := Reconstruct("g", log, players("a", "b"), true, DeckHeight{})
	require.NoError(t, err)
	assert.Empty(t, rs.Deck)
	assert.Equal(t, []Card{first}, rs.Pile)
	assert.Zero(t, DeckHeight{}.Reshuffles(log))

	next := rs.Hands["a"][0]
	log = numbered(append(log, play("a", next))...)
	rs, err = Reconstruct("g", log, players("a", "b"), true, DeckHeight{})
	require.NoError(t, err)
	require.NoError(t, rs.Check("g"))
	assert.Equal(t, 1, DeckHeight{}.Reshuffles(log))
	assert.Equal(t, []Card{next}, rs.Pile)
	assert.Equal(t, []Card{first}, rs.Deck)

	// a second card on top leaves the new deck alone
	another := rs.Hands["a"][0]
	log = numbered(append(log, play("a", another))...)
	rs, err = Reconstruct("g", log, players("a", "b"), true, DeckHeight{})
	require.NoError(t, err)
	assert.Equal(t, 1, DeckHeight{}.Reshuffles(log))
	assert.Equal(t, []Card{next, another}, rs.Pile)
	assert.Equal(t, []Card{first}, rs.Deck)
}

func TestReconstruct_idempotent(t *testing.T) {
	stack := NewCardStack(NewShuffler(3))
	dealt := numbered(deal(players("a", "b"), stack)...)
	exhausted, _, _ := exhaust(t)

	for name, log := range map[string]Log{"dealt": dealt, "reshuffled": exhausted} {
		for _, acct := range []ReshuffleAccounting{FixedDivisor{}, DeckHeight{}} {
			t.Run(name, func(t *testing.T) {
				one, err := Reconstruct("g", log, players("a", "b"), true, acct)
				require.NoError(t, err)
				two, err := Reconstruct("g", log, players("a", "b"), true, acct)
				require.NoError(t, err)

				b1, err := json.Marshal(one)
				require.NoError(t, err)
				b2, err := json.Marshal(two)
				require.NoError(t, err)
				assert.Equal(t, string(b1), string(b2))
			})
		}
	}
}

func TestWithout_lastCard(t *testing.T) {
	out, ok := without([]Card{c(Two, Hearts)}, c(Two, Hearts))
	require.True(t, ok)
	require.NotNil(t, out)
	assert.Empty(t, out)

	_, ok = without([]Card{c(Two, Hearts)}, c(Three, Hearts))
	assert.False(t, ok)
}

func TestCheck_catchesDuplicates(t *testing.T) {
	rs := RoundState{
		Deck:  Universe()[1:],
		Hands: map[string][]Card{"a": {Universe()[1]}},
		Pile:  []Card{},
	}
	assert.True(t, IsInvariant(rs.Check("g")))

	rs = RoundState{Deck: Universe()[1:], Hands: map[string][]Card{}, Pile: []Card{}}
	assert.True(t, IsInvariant(rs.Check("g")))
}

func TestHolds_multiset(t *testing.T) {
	hand := []Card{c(Two, Hearts), c(Three, Clubs)}
	assert.True(t, holds(hand, []Card{c(Three, Clubs)}))
	assert.False(t, holds(hand, []Card{c(Two, Hearts), c(Two, Hearts)}))
	assert.False(t, holds(hand, []Card{c(Four, Clubs)}))
}
