package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceTokenGenerator_Increments(t *testing.T) {
	gen := NewSequenceTokenGenerator("run")

	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, "run-3", gen.Generate())
}

func TestSequenceTokenGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequenceTokenGenerator("")
	assert.Equal(t, "cycle-1", gen.Generate())
}

func TestSequenceTokenGenerator_Reset(t *testing.T) {
	gen := NewSequenceTokenGenerator("c")
	gen.Generate()
	gen.Generate()
	gen.Reset()
	assert.Equal(t, "c-1", gen.Generate())
}

func TestSequenceTokenGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceTokenGenerator("t")
	const goroutines = 10
	const calls = 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				tok := gen.Generate()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls, "all tokens should be unique")
}
