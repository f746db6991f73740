package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/obs"
	"github.com/roach88/fmdesk/internal/state"
)

// FlowTokenGenerator generates unique flow tokens for request correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type FlowTokenGenerator interface {
	Generate() string
}

// LogWriter persists sealed actions. *store.Store implements it.
type LogWriter interface {
	AppendAction(ctx context.Context, env action.Envelope) (bool, error)
}

// Trigger is what an effect receives: the action that matched, its sealed
// envelope (seq, flow, id) and the state right after the reducer applied it.
type Trigger struct {
	Action   action.Action
	Envelope action.Envelope
	State    state.State
}

// Seq is the trigger's logical time. Effects pass it back as RequestSeq on
// their outcomes so reducers can drop stale responses.
func (t Trigger) Seq() int64 { return t.Envelope.Seq }

// EffectFunc handles one action type. It may block on I/O and returns the
// follow-up actions to dispatch in the same flow. Returning nil is fine.
type EffectFunc func(ctx context.Context, t Trigger) []action.Action

type effect struct {
	name string
	fn   EffectFunc
}

// Record is delivered to subscribers after each reduction.
type Record struct {
	Envelope action.Envelope
	Action   action.Action
	State    state.State
}

// DefaultMaxSteps is the default maximum number of actions per flow.
// This prevents runaway effect cascades from consuming unbounded resources.
const DefaultMaxSteps = 1000

// Engine is the single-writer dispatch loop.
//
// Actions are queued by Dispatch (or by effects), stamped by the logical
// clock, appended to the log, reduced into the next state, and then handed
// to subscribers and to every effect registered for their type.
//
// CRITICAL: All state transitions happen in the single-writer Run loop.
// Effects run on their own goroutines and only talk back through the queue.
//
// Thread-safety model:
//   - Dispatch(), State(), WaitIdle(), Subscribe(): safe from any goroutine
//   - On(): call before Run
//   - Run(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - effects for one type are started in registration order
//   - every action of a flow carries the flow token of its root dispatch
//   - the published state is only ever replaced, never mutated
type Engine struct {
	log      LogWriter
	clock    *Clock
	queue    *actionQueue
	flowGen  FlowTokenGenerator
	metrics  *obs.Metrics
	work     *tracker
	maxSteps int

	effects map[action.Type][]effect

	current atomic.Pointer[state.State]

	quotaMu sync.Mutex
	quotas  map[string]*QuotaEnforcer

	subMu   sync.RWMutex
	subs    map[int]func(Record)
	nextSub int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxSteps sets the maximum steps quota per flow.
//
// Default: 1000 steps (DefaultMaxSteps)
// Use WithMaxSteps(10) for testing quota enforcement.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithLog appends every reduced action to w.
func WithLog(w LogWriter) EngineOption {
	return func(e *Engine) {
		e.log = w
	}
}

// WithMetrics records reducer and effect metrics.
func WithMetrics(m *obs.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces the clock, e.g. NewClockAt(lastSeq) to continue a log.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithInitialState starts the engine from s instead of state.Initial().
func WithInitialState(s state.State) EngineOption {
	return func(e *Engine) {
		e.current.Store(&s)
	}
}

// New creates an Engine. A nil flowGen uses UUIDv7Generator.
//
// Options can be passed to configure the engine (e.g., WithMaxSteps, WithLog).
func New(flowGen FlowTokenGenerator, opts ...EngineOption) *Engine {
	if flowGen == nil {
		flowGen = UUIDv7Generator{}
	}

	e := &Engine{
		clock:    NewClock(),
		queue:    newActionQueue(),
		flowGen:  flowGen,
		maxSteps: DefaultMaxSteps,
		effects:  make(map[action.Type][]effect),
		quotas:   make(map[string]*QuotaEnforcer),
		subs:     make(map[int]func(Record)),
	}
	e.work = newTracker(e.CleanupFlow)
	initial := state.Initial()
	e.current.Store(&initial)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// On registers fn under name for actions of type t.
// Must be called before Run.
func (e *Engine) On(t action.Type, name string, fn EffectFunc) {
	e.effects[t] = append(e.effects[t], effect{name: name, fn: fn})
}

// Effects returns the registered effect names for t, in registration order.
func (e *Engine) Effects(t action.Type) []string {
	names := make([]string, 0, len(e.effects[t]))
	for _, eff := range e.effects[t] {
		names = append(names, eff.name)
	}
	return names
}

// Dispatch queues a as the root of a new flow and returns the flow token.
// Thread-safe: may be called from any goroutine.
//
// Returns ErrStopped if the engine has been stopped.
func (e *Engine) Dispatch(a action.Action) (string, error) {
	if a == nil {
		return "", errors.New("dispatch: nil action")
	}
	flow := e.NewFlow()
	if !e.enqueue(queued{action: a, flow: flow}) {
		return "", ErrStopped
	}
	return flow, nil
}

// DispatchAndWait dispatches a and waits until the engine is idle again.
func (e *Engine) DispatchAndWait(ctx context.Context, a action.Action) (string, error) {
	flow, err := e.Dispatch(a)
	if err != nil {
		return "", err
	}
	if err := e.WaitIdle(ctx); err != nil {
		return flow, err
	}
	return flow, nil
}

// NewFlow generates a new flow token.
// Thread-safe: may be called from any goroutine.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// State returns the latest published state.
// Thread-safe: the returned value shares no mutable data with the engine.
func (e *Engine) State() state.State {
	return *e.current.Load()
}

// Subscribe calls fn after every reduction, on the Run goroutine, in
// dispatch order. fn must not block. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(Record)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// WaitIdle blocks until the queue is empty and no effect is running, or ctx
// is done.
func (e *Engine) WaitIdle(ctx context.Context) error {
	select {
	case <-e.work.wait():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait idle (%d pending): %w", e.work.pending(), ctx.Err())
	}
}

// Run starts the single-writer loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: On action processing failure, the error is logged with the
// action's context and processing continues. This "log and continue" behavior
// keeps one bad action from wedging every later one.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())
	defer e.drain()

	for {
		item, ok := e.queue.TryDequeue()
		if ok {
			if err := e.process(ctx, item); err != nil {
				logActionError(item, err)
			}
			e.finish(item.flow)
			continue
		}

		// Nothing ready - wait for signal or context cancellation
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which makes this case fire immediately.
			if e.queue.Drained() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the queue, which will cause Run() to return once it is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// process applies one action.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
//
// QUOTA ENFORCEMENT: Each action counts against its flow's quota. Once the
// quota is exceeded the action is dropped before it reaches the reducer.
func (e *Engine) process(ctx context.Context, item queued) error {
	quota := e.QuotaFor(item.flow)
	if err := quota.Check(item.flow); err != nil {
		slog.Error("max steps quota exceeded",
			"flow", item.flow,
			"type", item.action.Type(),
			"steps", quota.Current(),
			"limit", e.maxSteps,
			"event", "quota_exceeded",
		)
		return fmt.Errorf("quota enforcement failed: %w", err)
	}

	env, err := action.Seal(item.action, e.clock.Next(), item.flow)
	if err != nil {
		return &RuntimeError{Code: ErrCodeSealFailed, Message: err.Error(), FlowToken: item.flow}
	}
	env.Cause = item.cause
	env.Effect = item.effect

	if e.log != nil {
		if _, err := e.log.AppendAction(ctx, env); err != nil {
			// The in-memory state stays authoritative; a missing log entry
			// only affects later replay.
			slog.Error("append action failed",
				"id", env.ID,
				"type", env.Type,
				"seq", env.Seq,
				"error", err,
			)
		}
	}

	start := time.Now()
	next := state.Reduce(*e.current.Load(), item.action)
	e.current.Store(&next)
	e.metrics.ActionReduced(string(env.Type), time.Since(start))
	e.metrics.QueueDepth(e.queue.Len())

	slog.Debug("action reduced",
		"type", env.Type,
		"seq", env.Seq,
		"flow", env.Flow,
		"effect", env.Effect,
	)

	e.notify(Record{Envelope: env, Action: item.action, State: next})

	for _, eff := range e.effects[env.Type] {
		e.spawn(ctx, eff, Trigger{Action: item.action, Envelope: env, State: next})
	}

	return nil
}

func (e *Engine) notify(rec Record) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, fn := range e.subs {
		fn(rec)
	}
}

// spawn runs eff on its own goroutine and queues its output in the
// trigger's flow.
func (e *Engine) spawn(ctx context.Context, eff effect, t Trigger) {
	flow := t.Envelope.Flow
	e.work.add(flow)

	go func() {
		defer e.finish(flow)

		for _, next := range e.runEffect(ctx, eff, t) {
			if next == nil {
				continue
			}
			item := queued{action: next, flow: flow, cause: t.Envelope.ID, effect: eff.name}
			if !e.enqueue(item) {
				slog.Warn("engine stopped, dropping effect output",
					"effect", eff.name,
					"type", next.Type(),
					"flow", flow,
				)
			}
		}
	}()
}

// runEffect calls eff and converts a panic into a logged RuntimeError with
// no follow-up actions.
func (e *Engine) runEffect(ctx context.Context, eff effect, t Trigger) (out []action.Action) {
	start := time.Now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			out = nil
			outcome = "panic"
			err := NewEffectPanicError(t.Envelope.Flow, eff.name, r)
			slog.Error("effect panicked",
				"effect", eff.name,
				"type", t.Envelope.Type,
				"seq", t.Envelope.Seq,
				"error", err,
				"stack", string(debug.Stack()),
			)
		}
		e.metrics.EffectRan(eff.name, outcome, time.Since(start))
	}()

	return eff.fn(ctx, t)
}

// enqueue registers the work before it becomes visible so WaitIdle never
// observes a false idle between an effect finishing and its output landing.
func (e *Engine) enqueue(item queued) bool {
	e.work.add(item.flow)
	if !e.queue.Enqueue(item) {
		e.finish(item.flow)
		return false
	}
	return true
}

// finish releases one unit of work. The tracker drops the flow's quota once
// nothing of the flow is outstanding.
func (e *Engine) finish(flow string) {
	e.work.done(flow)
}

// drain releases work still queued when Run exits so WaitIdle returns.
func (e *Engine) drain() {
	e.queue.Close()
	for {
		item, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		slog.Warn("engine stopped, dropping queued action",
			"type", item.action.Type(),
			"flow", item.flow,
		)
		e.finish(item.flow)
	}
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the current number of pending actions.
// Thread-safe: delegates to the queue's locking.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// CleanupFlow removes the quota enforcer of a finished flow.
func (e *Engine) CleanupFlow(flowToken string) {
	e.quotaMu.Lock()
	defer e.quotaMu.Unlock()
	delete(e.quotas, flowToken)
}

// MaxSteps returns the configured maximum steps per flow.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// QuotaFor returns or creates the quota enforcer for a specific flow.
func (e *Engine) QuotaFor(flowToken string) *QuotaEnforcer {
	e.quotaMu.Lock()
	defer e.quotaMu.Unlock()

	q, ok := e.quotas[flowToken]
	if !ok {
		q = NewQuotaEnforcer(e.maxSteps)
		e.quotas[flowToken] = q
	}
	return q
}

// QuotaCount returns the number of active quota enforcers.
func (e *Engine) QuotaCount() int {
	e.quotaMu.Lock()
	defer e.quotaMu.Unlock()
	return len(e.quotas)
}

// logActionError logs an action processing failure with full context.
func logActionError(item queued, err error) {
	slog.Error("action processing failed",
		"type", item.action.Type(),
		"flow", item.flow,
		"cause", item.cause,
		"effect", item.effect,
		"error", err,
	)
}
