package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// SequentialIDs generates "prefix-1", "prefix-2", ... in order. It
// satisfies factgraph.IDGenerator, making subscription IDs in logs and
// golden output stable.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "sub".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "sub"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
