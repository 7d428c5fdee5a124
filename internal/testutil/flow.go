package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs returns a generator of "<prefix>-1", "<prefix>-2", ... for
// deterministic session handles and prompt tokens.
//
// Thread-safety: the returned function is safe for concurrent use.
func SequentialIDs(prefix string) func() string {
	if prefix == "" {
		prefix = "id"
	}
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// SequentialTokens adapts SequentialIDs to a Generate method.
type SequentialTokens struct {
	next func() string
}

// NewSequentialTokens creates a token generator with the given prefix.
func NewSequentialTokens(prefix string) *SequentialTokens {
	return &SequentialTokens{next: SequentialIDs(prefix)}
}

// Generate returns the next token.
func (g *SequentialTokens) Generate() string {
	return g.next()
}
