// Package storetest checks that a game.Store behaves the way the table needs.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undeconstructed/lastcard/game"
)

// Run runs every check against stores made by newStore.
func Run(t *testing.T, newStore func(t *testing.T) game.Store) {
	t.Run("GameNotFound", func(t *testing.T) { testGameNotFound(t, newStore(t)) })
	t.Run("Players", func(t *testing.T) { testPlayers(t, newStore(t)) })
	t.Run("SaveGame", func(t *testing.T) { testSaveGame(t, newStore(t)) })
	t.Run("AppendOrder", func(t *testing.T) { testAppendOrder(t, newStore(t)) })
	t.Run("LogsSeparate", func(t *testing.T) { testLogsSeparate(t, newStore(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
	t.Run("Table", func(t *testing.T) { testTable(t, newStore(t)) })
}

func newGame(t *testing.T, s game.Store) game.Game {
	g := game.Game{ID: uuid.NewString(), Pending: true}
	require.NoError(t, s.CreateGame(context.Background(), g))
	return g
}

func testGameNotFound(t *testing.T, s game.Store) {
	ctx := context.Background()
	_, err := s.Game(ctx, "nope")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

func testPlayers(t *testing.T, s game.Store) {
	ctx := context.Background()
	g := newGame(t, s)

	require.NoError(t, s.AddPlayer(ctx, g.ID, game.Player{ID: "p1", Nickname: "ann", Role: game.RolePlayer, Seat: 0}))
	require.NoError(t, s.AddPlayer(ctx, g.ID, game.Player{ID: "o1", Nickname: "olly", Role: game.RoleObserver, Seat: 1}))
	require.NoError(t, s.AddPlayer(ctx, g.ID, game.Player{ID: "p2", Nickname: "bob", Role: game.RolePlayer, Seat: 2}))

	assert.Error(t, s.AddPlayer(ctx, g.ID, game.Player{ID: "p3", Nickname: "ann", Role: game.RolePlayer, Seat: 3}), "duplicate nickname")

	got, err := s.Game(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Pending)
	require.Len(t, got.Players, 3)
	assert.Equal(t, []string{"p1", "o1", "p2"}, []string{got.Players[0].ID, got.Players[1].ID, got.Players[2].ID})
	assert.Equal(t, game.RoleObserver, got.Players[1].Role)
	assert.Equal(t, "bob", got.Players[2].Nickname)
}

func testSaveGame(t *testing.T, s game.Store) {
	ctx := context.Background()
	g := newGame(t, s)
	require.NoError(t, s.AddPlayer(ctx, g.ID, game.Player{ID: "p1", Nickname: "ann", Role: game.RolePlayer}))
	require.NoError(t, s.AddPlayer(ctx, g.ID, game.Player{ID: "p2", Nickname: "bob", Role: game.RolePlayer, Seat: 1}))

	g, err := s.Game(ctx, g.ID)
	require.NoError(t, err)
	g.Pending = false
	g.Winner = "p2"
	g.Players[0].Ready = true
	g.Players[0].HasTurn = true
	g.Players[1].LastCard = true
	require.NoError(t, s.SaveGame(ctx, g))

	got, err := s.Game(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.Pending)
	assert.Equal(t, "p2", got.Winner)
	assert.True(t, got.Players[0].Ready)
	assert.True(t, got.Players[0].HasTurn)
	assert.False(t, got.Players[1].HasTurn)
	assert.True(t, got.Players[1].LastCard)
}

func testAppendOrder(t *testing.T, s game.Store) {
	ctx := context.Background()
	g := newGame(t, s)

	c1 := game.Card{Rank: game.Seven, Suit: game.Clubs}
	c2 := game.Card{Rank: game.Ace, Suit: game.Diamonds}
	ids, err := s.Append(ctx, g.ID,
		game.Action{PlayerID: "p1", Effect: game.EffectStartGame},
		game.Action{PlayerID: "p1", Effect: game.EffectPickup, Card: &c1},
		game.Action{PlayerID: "p1", Effect: game.EffectPlay, Card: &c1},
	)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])

	more, err := s.Append(ctx, g.ID, game.Action{PlayerID: "p2", Effect: game.EffectPickup, Card: &c2})
	require.NoError(t, err)
	assert.Greater(t, more[0], ids[2])

	log, err := s.Log(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, game.EffectStartGame, log[0].Effect)
	assert.Nil(t, log[0].Card)
	assert.Equal(t, c1, *log[2].Card)
	assert.Equal(t, c2, *log[3].Card)
	assert.Equal(t, "p2", log[3].PlayerID)
	assert.Equal(t, more[0], log[3].Seq)

	assert.Len(t, log.After(ids[1]), 2)
}

func testLogsSeparate(t *testing.T, s game.Store) {
	ctx := context.Background()
	a := newGame(t, s)
	b := newGame(t, s)
	c := game.Card{Rank: game.Two, Suit: game.Hearts}

	_, err := s.Append(ctx, a.ID, game.Action{PlayerID: "x", Effect: game.EffectPickup, Card: &c})
	require.NoError(t, err)

	log, err := s.Log(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func testConcurrentAppend(t *testing.T, s game.Store) {
	ctx := context.Background()
	g := newGame(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := s.Append(ctx, g.ID,
					game.Action{PlayerID: "p", Effect: game.EffectShuffle},
					game.Action{PlayerID: "p", Effect: game.EffectShuffle},
				)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	log, err := s.Log(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, log, 80)
	for i := 1; i < len(log); i++ {
		assert.Less(t, log[i-1].Seq, log[i].Seq)
	}
}

// testTable plays the opening of a game through the store.
func testTable(t *testing.T, s game.Store) {
	ctx := context.Background()
	tbl := game.NewTable(s, game.WithShuffler(game.NewShuffler(7)))

	g, err := tbl.CreateGame(ctx)
	require.NoError(t, err)
	ann, err := tbl.Join(ctx, g.ID, "ann", game.RolePlayer)
	require.NoError(t, err)
	bob, err := tbl.Join(ctx, g.ID, "bob", game.RolePlayer)
	require.NoError(t, err)

	_, err = tbl.Ready(ctx, g.ID, ann.ID)
	require.NoError(t, err)
	res, err := tbl.Ready(ctx, g.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, game.OutcomeStarted, res.Outcome)

	st, err := tbl.RoundState(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, st.Started)
	assert.Len(t, st.Deck, 41)
	assert.Len(t, st.Pile, 1)
	assert.Len(t, st.Hands[ann.ID], 5)
	assert.Len(t, st.Hands[bob.ID], 5)

	res, err = tbl.SubmitAction(ctx, g.ID, ann.ID, game.Payload{Effect: "pickup"})
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)

	st, err = tbl.RoundState(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, st.Deck, 40)
	assert.Len(t, st.Hands[ann.ID], 6)

	actions, err := tbl.Actions(ctx, g.ID, 0)
	require.NoError(t, err)
	assert.Len(t, actions, 14)
}
