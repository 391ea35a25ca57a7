// Package redislock gives per-game exclusive sections across servers that
// share a store. A held lock has its expiry pushed back every third of the
// TTL, so it only lapses when the holder loses Redis for about a TTL.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/lastcard/game"
)

// release deletes the key only if we still own it.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renew pushes the expiry back only if we still own the key.
var renew = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a game.Locker held in Redis. Locks expire after TTL in case the
// holder dies.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	// local serialises this process's waiters so only one polls Redis
	local *game.KeyedMutex
}

func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{
		client: client,
		prefix: "lastcard:lock:",
		ttl:    ttl,
		retry:  20 * time.Millisecond,
		local:  game.NewKeyedMutex(),
	}
}

func (l *Locker) Lock(ctx context.Context, gameID string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, gameID)
	if err != nil {
		return nil, err
	}

	key := l.prefix + gameID
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("redis lock %s: %w", gameID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	done := make(chan struct{})
	go l.keep(key, token, gameID, done)

	return func() {
		close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("game", gameID).Msg("cannot release redis lock")
		}
		unlockLocal()
	}, nil
}

// keep renews the lease until done is closed or the key is no longer ours.
func (l *Locker) keep(key, token, gameID string, done <-chan struct{}) {
	every := l.ttl / 3
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renew.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			log.Warn().Err(err).Str("game", gameID).Msg("cannot renew redis lock")
		case n == 0:
			log.Warn().Str("game", gameID).Msg("redis lock lost while held")
			return
		}
	}
}

var _ game.Locker = (*Locker)(nil)
