package util

import (
	"math/rand"
	"sync"
	"time"
)

// LockedSource is a random source guarded by a mutex so one *rand.Rand can be shared by concurrent sessions.
type LockedSource struct {
	lk  sync.Mutex
	src rand.Source
}

func (r *LockedSource) Int63() (n int64) {
	r.lk.Lock()
	n = r.src.Int63()
	r.lk.Unlock()
	return
}

func (r *LockedSource) Seed(seed int64) {
	r.lk.Lock()
	r.src.Seed(seed)
	r.lk.Unlock()
}

// NewThreadsafeRand returns a *rand.Rand that is safe to share across multiple goroutines.
func NewThreadsafeRand(seed int64) *rand.Rand {
	return rand.New(&LockedSource{
		lk:  sync.Mutex{},
		src: rand.NewSource(seed),
	})
}

// NewTimeSeededRand returns a threadsafe *rand.Rand seeded from the wall clock.
func NewTimeSeededRand() *rand.Rand {
	return NewThreadsafeRand(time.Now().UnixNano())
}

// Jitter returns a duration drawn uniformly from [low, high].
func Jitter(random *rand.Rand, low, high time.Duration) time.Duration {
	if high <= low {
		return low
	}
	return low + time.Duration(random.Int63n(int64(high-low)+1))
}
