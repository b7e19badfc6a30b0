package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitter(t *testing.T) {
	random := NewThreadsafeRand(42)
	for i := 0; i < 1000; i++ {
		d := Jitter(random, 500*time.Millisecond, time.Second)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.Equal(t, time.Second, Jitter(random, time.Second, time.Second))
	assert.Equal(t, time.Second, Jitter(random, time.Second, 0))
}

func TestNewThreadsafeRand_Concurrent(t *testing.T) {
	random := NewThreadsafeRand(1)
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				random.Intn(10)
			}
		}()
	}
	wg.Wait()
}
