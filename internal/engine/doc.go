// Package engine implements the fmdesk dispatch loop.
//
// The engine owns the single state container. It receives actions, applies
// the root reducer, publishes the new state, and starts the effects that
// react to each action type.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// The engine applies all actions in a single goroutine for deterministic
// behavior. This ensures:
// - Reducers see actions in exactly one order
// - The action log replays to the same state
// - Readers never observe a half-applied action
//
// Action Processing Flow:
// 1. Dispatch() queues an action as the root of a new flow
// 2. Engine.Run() dequeues actions one at a time
// 3. The action is sealed (seq, flow, id) and appended to the log
// 4. state.Reduce produces the next state, published atomically
// 5. Subscribers are notified, then matching effects start on goroutines
// 6. Effect outputs are queued in the same flow and go back to step 2
//
// Effects are the only place I/O happens. They never touch state directly:
// they read the Trigger's post-reduce snapshot and return actions.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every action is stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Flow Tokens:
// A root dispatch gets a fresh UUIDv7 flow token; everything its effects emit
// inherits it. The per-flow step quota (DefaultMaxSteps) bounds cascades.
//
// Idle Tracking:
// WaitIdle returns once no action is queued and no effect is running, which
// is how the CLI and the scenario harness wait for a flow to settle.
package engine
