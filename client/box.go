package client

import (
	"sync"
)

// Box holds the latest snapshot, and wakes anyone waiting for a newer one.
type Box struct {
	l *sync.Mutex
	c *sync.Cond
	v *Snapshot
}

func NewBox() *Box {
	l := &sync.Mutex{}
	c := sync.NewCond(l)
	return &Box{l, c, nil}
}

func (b *Box) Put(v *Snapshot) {
	b.l.Lock()
	defer b.l.Unlock()
	b.v = v
	b.c.Broadcast()
}

func (b *Box) Get() *Snapshot {
	b.l.Lock()
	defer b.l.Unlock()
	return b.v
}

// Wait blocks until the box holds something other than seen.
func (b *Box) Wait(seen *Snapshot) *Snapshot {
	b.l.Lock()
	defer b.l.Unlock()
	for b.v == seen {
		b.c.Wait()
	}
	return b.v
}

func (b *Box) Listen(seen *Snapshot) <-chan *Snapshot {
	ch := make(chan *Snapshot, 1)
	go func() {
		ch <- b.Wait(seen)
		close(ch)
	}()
	return ch
}
