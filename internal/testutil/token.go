package testutil

import (
	"fmt"
	"sync"
)

// SequenceTokenGenerator generates "<prefix>-1", "<prefix>-2", ... cycle
// tokens.
//
// Unlike dispatch.FixedGenerator it never runs out, which suits scenarios
// that do not know how many cycles a test will run.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceTokenGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceTokenGenerator creates a generator. An empty prefix defaults
// to "cycle".
func NewSequenceTokenGenerator(prefix string) *SequenceTokenGenerator {
	if prefix == "" {
		prefix = "cycle"
	}
	return &SequenceTokenGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequenceTokenGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
