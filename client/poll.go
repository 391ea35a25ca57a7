package client

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/undeconstructed/lastcard/comms"
	"github.com/undeconstructed/lastcard/game"
)

// Snapshot is what the poller last saw.
type Snapshot struct {
	Seq   int64
	State game.StateView
	// News is the actions since the snapshot before.
	News []game.ActionView
}

// pollState is carried from one poll to the next.
type pollState struct {
	started bool
	lastSeq int64
	last    *Snapshot
}

// step polls once. It returns the next state, and a snapshot if anything
// changed.
func (ps pollState) step(ctx context.Context, g GameClient) (pollState, *Snapshot, error) {
	news, err := g.Actions(ctx, ps.lastSeq)
	if err != nil {
		return ps, nil, err
	}

	// before the deal only ready flags move, and they aren't in the log
	if len(news) == 0 && ps.started && ps.last != nil {
		return ps, nil, nil
	}

	st, err := g.State(ctx)
	if err != nil {
		return ps, nil, err
	}

	next := ps
	next.started = st.Started
	if len(news) > 0 {
		next.lastSeq = news[len(news)-1].ID
	}
	if ps.last != nil && len(news) == 0 && reflect.DeepEqual(ps.last.State, st) {
		return next, nil, nil
	}

	snap := &Snapshot{Seq: next.lastSeq, State: st, News: news}
	next.last = snap
	return next, snap, nil
}

// Poll keeps box up to date until ctx is done.
func Poll(ctx context.Context, g GameClient, box *Box, every time.Duration, log zerolog.Logger) error {
	tick := time.NewTicker(every)
	defer tick.Stop()

	var ps pollState
	for {
		next, snap, err := ps.step(ctx, g)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *comms.CommsError
			if !errors.As(err, &ce) {
				return err
			}
			log.Warn().Err(err).Msg("poll failed")
		} else {
			ps = next
			if snap != nil {
				box.Put(snap)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
