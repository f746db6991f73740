package testutil

import (
	"fmt"
	"sync"
)

// FlowGenerator names flows "<prefix>-1", "<prefix>-2", ... in dispatch order.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FlowGenerator produces byte-identical traces.
//
// Unlike engine.FixedGenerator, which panics once its list is used up, this
// generator never runs out, so a scenario can dispatch any number of flows.
//
// Thread-safety: FlowGenerator is safe for concurrent use via internal mutex.
type FlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFlowGenerator creates a generator for prefix.
//
// The prefix is typically set in the scenario YAML:
//
//	flow_prefix: "login"
//
// If prefix is empty, tokens are "flow-1", "flow-2", ...
func NewFlowGenerator(prefix string) *FlowGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &FlowGenerator{prefix: prefix}
}

// Generate returns the next flow token.
//
// Implements engine.FlowTokenGenerator interface.
func (g *FlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset starts numbering from 1 again.
func (g *FlowGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
