package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerializesSameKey(t *testing.T) {
	p := NewPerKey()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := p.Lock("cause-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLock_IndependentKeysDoNotBlock(t *testing.T) {
	p := NewPerKey()
	unlockA := p.Lock("cause-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := p.Lock("cause-b")
		unlockB()
		close(done)
	}()
	<-done
}
