package redislock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undeconstructed/lastcard/game"
	"github.com/undeconstructed/lastcard/store/memory"
)

func newLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, time.Second), mr
}

func TestLocker_lockUnlock(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "g")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lastcard:lock:g"))

	unlock()
	assert.False(t, mr.Exists("lastcard:lock:g"))
}

func TestLocker_otherServerWaits(t *testing.T) {
	a, mr := newLocker(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	b := New(client, time.Second)

	unlock, err := a.Lock(context.Background(), "g")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = b.Lock(ctx, "g")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// a different game is free
	unlockOther, err := b.Lock(context.Background(), "h")
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock2, err := b.Lock(context.Background(), "g")
	require.NoError(t, err)
	unlock2()
}

func TestLocker_expiredLockNotStolenBack(t *testing.T) {
	a, mr := newLocker(t)
	unlock, err := a.Lock(context.Background(), "g")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("lastcard:lock:g"))
	require.NoError(t, mr.Set("lastcard:lock:g", "someone-else"))

	unlock()
	got, err := mr.Get("lastcard:lock:g")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLocker_renewedWhileHeld(t *testing.T) {
	a, mr := newLocker(t)
	unlock, err := a.Lock(context.Background(), "g")
	require.NoError(t, err)

	// without renewal the key would be gone after the second jump
	for i := 0; i < 2; i++ {
		mr.FastForward(700 * time.Millisecond)
		require.True(t, mr.Exists("lastcard:lock:g"))
		assert.Eventually(t, func() bool {
			return mr.TTL("lastcard:lock:g") > 500*time.Millisecond
		}, 2*time.Second, 10*time.Millisecond)
	}

	unlock()
	assert.False(t, mr.Exists("lastcard:lock:g"))
}

func TestLocker_table(t *testing.T) {
	l, _ := newLocker(t)
	ctx := context.Background()
	tbl := game.NewTable(memory.New(), game.WithLocker(l))

	g, err := tbl.CreateGame(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, name := range []string{"ann", "bob", "cat", "dan"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := tbl.Join(ctx, g.ID, name, game.RolePlayer)
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	st, err := tbl.RoundState(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, st.Players, 4)
}
