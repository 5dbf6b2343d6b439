package agent

import "math/rand"

type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Terminal  bool
}

// replayBuffer is a fixed-capacity ring; once full, each insert overwrites
// the oldest transition. Not safe for concurrent use.
type replayBuffer struct {
	items []Transition
	next  int
	size  int
}

func newReplayBuffer(capacity int) *replayBuffer {
	return &replayBuffer{items: make([]Transition, capacity)}
}

func (b *replayBuffer) add(t Transition) {
	b.items[b.next] = t
	b.next = (b.next + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

func (b *replayBuffer) len() int {
	return b.size
}

// sample draws n transitions uniformly with replacement.
func (b *replayBuffer) sample(rng *rand.Rand, n int) []Transition {
	out := make([]Transition, n)
	for i := range out {
		out[i] = b.items[b.at(rng.Intn(b.size))]
	}
	return out
}

// at maps a logical position (0 = oldest) onto the ring.
func (b *replayBuffer) at(i int) int {
	start := 0
	if b.size == len(b.items) {
		start = b.next
	}
	return (start + i) % len(b.items)
}

// snapshot returns the stored transitions, oldest first.
func (b *replayBuffer) snapshot() []Transition {
	out := make([]Transition, b.size)
	for i := range out {
		out[i] = b.items[b.at(i)]
	}
	return out
}
