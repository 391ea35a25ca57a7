package game

import (
	"math/rand"
	"sync"
	"time"
)

// Shuffler is a source of shuffles and picks. *rand.Rand is one, but not
// safe to share; use NewShuffler for that.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewShuffler makes a shuffler safe for many games at once. A seed of zero
// means seed from the clock.
func NewShuffler(seed int64) Shuffler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// CardStack is cards face down, taken from the front.
type CardStack []Card

// NewCardStack shuffles the whole universe.
func NewCardStack(s Shuffler) CardStack {
	stack := CardStack(Universe())
	s.Shuffle(len(stack), func(i, j int) { stack[i], stack[j] = stack[j], stack[i] })
	return stack
}

func (stack CardStack) Take() (Card, CardStack, bool) {
	if len(stack) == 0 {
		return Card{}, stack, false
	}

	out := stack[0]
	rest := stack[1:]
	return out, rest, true
}
