package engine

import (
	"context"
	"fmt"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/state"
)

// Replay is STRUCTURAL, not a special mode: the log holds every action the
// reducer saw, in seq order, and state.Reduce is pure. Folding the decoded
// log from state.Initial() therefore reproduces the engine's state exactly.
//
// Effects are NOT re-run during replay. Their outputs are already in the
// log as ordinary actions (with Cause and Effect set), so re-running them
// would apply every response twice.
//
// Two consequences follow:
//   - Reducers never read clocks; timestamps (LoadedAt) travel in payloads.
//   - Sequence fencing compares RequestSeq values stored in the payloads, so
//     stale responses are dropped on replay exactly as they were live.

// LogReader reads the action log. *store.Store implements it.
type LogReader interface {
	ReadLog(ctx context.Context, afterSeq int64, limit int) ([]action.Envelope, error)
}

// ReplayResult is the outcome of folding a log.
type ReplayResult struct {
	State   state.State
	Actions int   // envelopes applied
	LastSeq int64 // seq of the last applied envelope
}

// ReplayEnvelopes folds envs, in the given order, from state.Initial().
// An envelope whose type is not in reg fails the replay.
func ReplayEnvelopes(envs []action.Envelope, reg *action.Registry) (ReplayResult, error) {
	return replayFrom(state.Initial(), envs, reg)
}

// Replay reads the whole log from r and folds it. upTo > 0 stops after the
// envelope with that seq.
func Replay(ctx context.Context, r LogReader, reg *action.Registry, upTo int64) (ReplayResult, error) {
	envs, err := r.ReadLog(ctx, 0, 0)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	if upTo > 0 {
		cut := len(envs)
		for i, env := range envs {
			if env.Seq > upTo {
				cut = i
				break
			}
		}
		envs = envs[:cut]
	}
	return ReplayEnvelopes(envs, reg)
}

func replayFrom(s state.State, envs []action.Envelope, reg *action.Registry) (ReplayResult, error) {
	res := ReplayResult{State: s}
	for _, env := range envs {
		a, err := reg.Decode(env)
		if err != nil {
			return res, fmt.Errorf("replay seq %d: %w", env.Seq, err)
		}
		res.State = state.Reduce(res.State, a)
		res.Actions++
		res.LastSeq = env.Seq
	}
	return res, nil
}

// Resume rebuilds state from the log and returns the options that let a new
// engine continue it: the replayed state and a clock positioned after the
// last logged seq.
func Resume(ctx context.Context, r LogReader, reg *action.Registry) ([]EngineOption, ReplayResult, error) {
	res, err := Replay(ctx, r, reg, 0)
	if err != nil {
		return nil, res, err
	}
	opts := []EngineOption{
		WithInitialState(res.State),
		WithClock(NewClockAt(res.LastSeq)),
	}
	return opts, res, nil
}
